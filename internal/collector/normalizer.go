package collector

import (
	"context"
	"log/slog"
	"time"

	"tg-chats-collector/internal/domain"
	"tg-chats-collector/internal/observability"
	"tg-chats-collector/internal/telegram"
)

// Mode selects how message text is derived.
type Mode int

const (
	// ModeDescriptive labels media and unknown content with a placeholder.
	// Used by history search.
	ModeDescriptive Mode = iota
	// ModeStrict keeps only text and captions; everything else is empty.
	// Used by public chat collection, whose callers drop empty messages.
	ModeStrict
)

func (m Mode) String() string {
	if m == ModeStrict {
		return "strict"
	}
	return "descriptive"
}

const (
	LabelPhoto     = "<photo attached>"
	LabelVideo     = "<video attached>"
	LabelAudio     = "<audio attached>"
	LabelDocument  = "<document attached>"
	LabelVoiceNote = "<voice note attached>"
	LabelVideoNote = "<video note attached>"
	LabelSticker   = "<sticker attached>"
	LabelAnimation = "<animation attached>"
	LabelUnknown   = "<unknown message type>"
)

// Normalizer maps raw backend messages to domain messages.
type Normalizer struct {
	client  telegram.Client
	zone    *time.Location
	timeout time.Duration
}

// NewNormalizer creates a Normalizer that resolves replies through client.
func NewNormalizer(client telegram.Client, cfg Config) *Normalizer {
	cfg = cfg.withDefaults()
	return &Normalizer{
		client:  client,
		zone:    cfg.DisplayZone(),
		timeout: cfg.RemoteCallTimeout,
	}
}

// Normalize converts msg. A reply to another message costs one GetMessage
// call; if it fails the reply fields stay nil and the error is only logged.
// Reply previews are always labelled, whatever mode is.
func (n *Normalizer) Normalize(ctx context.Context, msg *telegram.Message, mode Mode) domain.Message {
	out := domain.Message{
		ExternalID: msg.ID,
		SenderID:   senderID(msg.SenderID),
		Timestamp:  n.Timestamp(msg.Date),
		Type:       contentType(msg.Content),
		Text:       ExtractText(msg.Content, mode),
	}

	if reply, ok := msg.ReplyTo.(telegram.ReplyToMessage); ok {
		if replied := n.fetchReply(ctx, msg.ChatID, reply); replied != nil {
			text := ExtractText(replied.Content, ModeDescriptive)
			id := replied.ID
			out.ReplyToText = &text
			out.ReplyToMessageID = &id
		}
	}

	return out
}

// Timestamp converts a unix date to the display zone. The instant is kept.
func (n *Normalizer) Timestamp(date int32) time.Time {
	return time.Unix(int64(date), 0).UTC().In(n.zone)
}

func (n *Normalizer) fetchReply(ctx context.Context, chatID int64, reply telegram.ReplyToMessage) *telegram.Message {
	replyChatID := reply.ChatID
	if replyChatID == 0 {
		replyChatID = chatID
	}

	callCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	start := time.Now()
	replied, err := n.client.GetMessage(callCtx, replyChatID, reply.MessageID)
	observeRemoteCall("getMessage", start, err)
	if err != nil {
		observability.FromContext(ctx).Warn("failed to fetch replied message",
			slog.Int64("chat_id", replyChatID),
			slog.Int64("message_id", reply.MessageID),
			slog.String("error", err.Error()),
		)
		return nil
	}
	return replied
}

// ExtractText derives the display text of content under mode.
func ExtractText(content telegram.Content, mode Mode) string {
	switch c := content.(type) {
	case telegram.Text:
		return c.Text
	case telegram.Photo:
		return mediaText(mode, LabelPhoto, c.Caption)
	case telegram.Video:
		return mediaText(mode, LabelVideo, c.Caption)
	case telegram.Audio:
		return mediaText(mode, LabelAudio, c.Caption)
	case telegram.Document:
		return mediaText(mode, LabelDocument, c.Caption)
	case telegram.VoiceNote:
		return mediaText(mode, LabelVoiceNote, c.Caption)
	case telegram.Animation:
		return mediaText(mode, LabelAnimation, c.Caption)
	case telegram.VideoNote:
		return labelOnly(mode, LabelVideoNote)
	case telegram.Sticker:
		return labelOnly(mode, LabelSticker)
	default:
		return labelOnly(mode, LabelUnknown)
	}
}

func mediaText(mode Mode, label, caption string) string {
	if mode == ModeStrict {
		return caption
	}
	if caption == "" {
		return label
	}
	return label + "\n" + caption
}

func labelOnly(mode Mode, label string) string {
	if mode == ModeStrict {
		return ""
	}
	return label
}

func contentType(content telegram.Content) domain.MessageType {
	switch content.(type) {
	case telegram.Text:
		return domain.MessageTypeText
	case telegram.Photo:
		return domain.MessageTypePhoto
	case telegram.Video:
		return domain.MessageTypeVideo
	case telegram.Audio:
		return domain.MessageTypeAudio
	case telegram.Document:
		return domain.MessageTypeDocument
	case telegram.VoiceNote:
		return domain.MessageTypeVoiceNote
	case telegram.VideoNote:
		return domain.MessageTypeVideoNote
	case telegram.Sticker:
		return domain.MessageTypeSticker
	case telegram.Animation:
		return domain.MessageTypeAnimation
	default:
		return domain.MessageTypeUnknown
	}
}

func senderID(sender telegram.Sender) *int64 {
	var id int64
	switch s := sender.(type) {
	case telegram.SenderUser:
		id = s.UserID
	case telegram.SenderChat:
		id = s.ChatID
	default:
		return nil
	}
	return &id
}

// DropEmpty removes messages with empty text, in place.
func DropEmpty(messages []domain.Message) []domain.Message {
	out := messages[:0]
	for _, m := range messages {
		if m.Text != "" {
			out = append(out, m)
		}
	}
	return out
}
