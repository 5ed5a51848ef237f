package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tg-chats-collector/internal/handler"
	"tg-chats-collector/internal/middleware"
)

type routerConfig struct {
	Chats   handler.ChatFinder
	History handler.HistoryProvider
	Jobs    handler.JobEnqueuer
	Checks  []handler.Check

	APIKeyHash     string
	AllowedOrigins string
	OpenAPI        *middleware.OpenAPIValidatorConfig
	Limiter        *middleware.RateLimiter
	RequestTimeout time.Duration
	Profiler       bool
}

func newRouter(rc routerConfig) http.Handler {
	chats := handler.NewChatHandler(rc.Chats)
	history := handler.NewHistoryHandler(rc.History, rc.Jobs)

	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.RequestID())
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.CORS(middleware.ParseOrigins(rc.AllowedOrigins)))
	r.Use(middleware.Metrics())

	r.Get("/health", handler.Health)
	r.Get("/health/ready", handler.Ready(rc.Checks...))
	r.Handle("/metrics", promhttp.Handler())
	if rc.Profiler {
		r.Mount("/debug", chimiddleware.Profiler())
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Not Found", http.StatusNotFound)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.APIKey(rc.APIKeyHash))
		if rc.Limiter != nil {
			r.Use(rc.Limiter.Middleware())
		}
		r.Use(middleware.OpenAPIValidator(rc.OpenAPI))
		if rc.RequestTimeout > 0 {
			r.Use(chimiddleware.Timeout(rc.RequestTimeout))
		}

		r.Post("/chats/search-private", chats.SearchPrivate)
		r.Post("/chats/search-public", chats.SearchPublic)
		r.Get("/chats/last", chats.LastChats)
		// Deprecated path kept for existing clients.
		r.Get("/lastChats", chats.LastChats)

		r.Post("/chat-history/search", history.Search)
		r.Get("/getChatHistory", history.ChatHistory)
		r.Get("/chat-history/stored", history.Stored)
		r.Post("/chat-history/jobs", history.EnqueueJob)
	})

	return r
}
