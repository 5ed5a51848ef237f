package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/spf13/cobra"

	"tg-chats-collector/internal/domain"
	"tg-chats-collector/internal/handler"
	"tg-chats-collector/internal/messaging"
	"tg-chats-collector/internal/service"
)

type historyRunner interface {
	SearchHistory(ctx context.Context, req service.SearchHistoryRequest) (*service.SearchHistoryResult, error)
	ChatHistory(ctx context.Context, req service.ChatHistoryRequest) (*service.ChatHistoryResult, error)
}

// env is what a command needs from the wired application.
type env struct {
	chats   handler.ChatFinder
	history historyRunner
	results func() (<-chan amqp.Delivery, error)
	timeout time.Duration
	close   func()
}

type opener func(ctx context.Context, logLevel string) (*env, error)

type cli struct {
	open     opener
	logLevel string
}

func newRootCmd(open opener) *cobra.Command {
	c := &cli{open: open}

	root := &cobra.Command{
		Use:          "collector-cli",
		Short:        "Look up Telegram chats and collect their message history",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "warn", "Log level: debug|info|warn|error.")

	root.AddCommand(
		c.lastChatsCmd(),
		c.searchPrivateChatCmd(),
		c.searchPublicChannelCmd(),
		c.searchHistoryCmd(),
		c.chatHistoryCmd(),
		c.watchResultsCmd(),
	)
	return root
}

// run opens the application for one command and closes it afterwards.
// bounded commands get the configured collection timeout.
func (c *cli) run(bounded bool, fn func(ctx context.Context, e *env, out io.Writer) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		e, err := c.open(cmd.Context(), c.logLevel)
		if err != nil {
			return err
		}
		if e.close != nil {
			defer e.close()
		}

		ctx := cmd.Context()
		if bounded && e.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, e.timeout)
			defer cancel()
		}
		return fn(ctx, e, cmd.OutOrStdout())
	}
}

func (c *cli) lastChatsCmd() *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "last-chats",
		Short: "List the most recent chats of the main chat list",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().IntVarP(&count, "count", "c", 10, "Number of chats to list.")
	cmd.RunE = c.run(true, func(ctx context.Context, e *env, out io.Writer) error {
		if count <= 0 {
			return fmt.Errorf("%w: count must be positive", domain.ErrInvalidInput)
		}
		chats, err := e.chats.LastChats(ctx, count)
		if err != nil {
			return err
		}
		return printJSON(out, chats)
	})
	return cmd
}

func (c *cli) searchPrivateChatCmd() *cobra.Command {
	var namePart, topicPart string
	cmd := &cobra.Command{
		Use:   "search-private-chat",
		Short: "Find chats whose title contains a name part",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().StringVarP(&namePart, "name", "n", "", "Part of the chat title.")
	cmd.Flags().StringVarP(&topicPart, "topic", "t", "", "Part of a topic name.")
	_ = cmd.MarkFlagRequired("name")
	cmd.RunE = c.run(true, func(ctx context.Context, e *env, out io.Writer) error {
		matches, err := e.chats.Search(ctx, domain.ChatReference{PrivateChatNamePart: namePart}, topicPart)
		if err != nil {
			return err
		}
		return printJSON(out, matches)
	})
	return cmd
}

func (c *cli) searchPublicChannelCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "search-public-channel",
		Short: "Look up a public chat or channel by its username",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "Public username, with or without @.")
	_ = cmd.MarkFlagRequired("name")
	cmd.RunE = c.run(true, func(ctx context.Context, e *env, out io.Writer) error {
		matches, err := e.chats.Search(ctx, domain.ChatReference{PublicName: name}, "")
		if err != nil {
			return err
		}
		return printJSON(out, matches)
	})
	return cmd
}

func (c *cli) searchHistoryCmd() *cobra.Command {
	var chatID, topicID int64
	var from string
	cmd := &cobra.Command{
		Use:   "search-history",
		Short: "Collect every message of a chat sent since a date",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().Int64Var(&chatID, "chat-id", 0, "Chat id.")
	cmd.Flags().Int64Var(&topicID, "topic-id", 0, "Topic id; 0 collects the whole chat.")
	cmd.Flags().StringVar(&from, "from", "", "Start date time, RFC 3339 or 2006-01-02T15:04:05 in UTC.")
	_ = cmd.MarkFlagRequired("chat-id")
	_ = cmd.MarkFlagRequired("from")
	cmd.RunE = c.run(true, func(ctx context.Context, e *env, out io.Writer) error {
		dateFrom, err := handler.ParseDateTime(from)
		if err != nil || dateFrom == nil {
			return fmt.Errorf("%w: --from must be a date time", domain.ErrInvalidInput)
		}
		result, err := e.history.SearchHistory(ctx, service.SearchHistoryRequest{
			ChatID:   chatID,
			TopicID:  topicID,
			DateFrom: *dateFrom,
		})
		if err != nil {
			return err
		}
		return printJSON(out, result)
	})
	return cmd
}

func (c *cli) chatHistoryCmd() *cobra.Command {
	var in handler.ChatHistoryJobRequest
	cmd := &cobra.Command{
		Use:   "chat-history",
		Short: "Collect a chat by name into size-bounded batches",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().StringVar(&in.PublicChatName, "public-name", "", "Public username of the chat.")
	cmd.Flags().StringVar(&in.PrivateChatNamePart, "private-name", "", "Part of the chat title.")
	cmd.Flags().StringVar(&in.TopicNamePart, "topic", "", "Part of a topic name.")
	cmd.Flags().IntVar(&in.Limit, "limit", 0, "Messages to collect when no --from is given; 0 uses the default.")
	cmd.Flags().StringVar(&in.DateFrom, "from", "", "Start date time.")
	cmd.Flags().StringVar(&in.DateTo, "to", "", "End date time.")
	cmd.RunE = c.run(true, func(ctx context.Context, e *env, out io.Writer) error {
		if in.Limit < 0 {
			return fmt.Errorf("%w: --limit must not be negative", domain.ErrInvalidInput)
		}
		req := service.ChatHistoryRequest{
			PublicChatName:      in.PublicChatName,
			PrivateChatNamePart: in.PrivateChatNamePart,
			TopicNamePart:       in.TopicNamePart,
			Limit:               in.Limit,
		}
		var err error
		if req.DateFrom, err = handler.ParseDateTime(in.DateFrom); err != nil {
			return fmt.Errorf("%w: --from must be a date time", domain.ErrInvalidInput)
		}
		if req.DateTo, err = handler.ParseDateTime(in.DateTo); err != nil {
			return fmt.Errorf("%w: --to must be a date time", domain.ErrInvalidInput)
		}

		result, err := e.history.ChatHistory(ctx, req)
		if err != nil {
			return err
		}
		return printJSON(out, result)
	})
	return cmd
}

func (c *cli) watchResultsCmd() *cobra.Command {
	var summary bool
	cmd := &cobra.Command{
		Use:   "watch-results",
		Short: "Print published chat history batches until interrupted",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().BoolVar(&summary, "summary", false, "Print one line per batch instead of the full envelope.")
	cmd.RunE = c.run(false, func(ctx context.Context, e *env, out io.Writer) error {
		msgs, err := e.results()
		if err != nil {
			return err
		}
		for {
			select {
			case <-ctx.Done():
				return nil
			case msg, ok := <-msgs:
				if !ok {
					return errors.New("results subscription closed")
				}
				if err := printEnvelope(out, msg.Body, summary); err != nil {
					return err
				}
			}
		}
	})
	return cmd
}

func printEnvelope(out io.Writer, body []byte, summary bool) error {
	if !summary {
		_, err := fmt.Fprintln(out, string(body))
		return err
	}

	var envelope messaging.ResultEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		_, err = fmt.Fprintf(out, "malformed envelope: %v\n", err)
		return err
	}
	job := envelope.JobID
	if job == "" {
		job = "-"
	}
	_, err := fmt.Fprintf(out, "%s chat=%d %q batch %d/%d messages=%d\n",
		job, envelope.ChatID, envelope.ChatTitle, envelope.BatchIndex+1, envelope.BatchCount, envelope.Batch.Count)
	return err
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
