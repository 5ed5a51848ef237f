package telegram

// Chat is the subset of a TDLib chat object the collector needs.
type Chat struct {
	ID    int64
	Title string
	Type  ChatType
}

// ChatType is a closed set of chat kinds. Implemented by the ChatType* structs.
type ChatType interface {
	isChatType()
}

type ChatTypePrivate struct {
	UserID int64
}

type ChatTypeBasicGroup struct {
	BasicGroupID int64
}

type ChatTypeSupergroup struct {
	SupergroupID int64
	IsChannel    bool
}

type ChatTypeSecret struct {
	SecretChatID int64
	UserID       int64
}

func (ChatTypePrivate) isChatType()    {}
func (ChatTypeBasicGroup) isChatType() {}
func (ChatTypeSupergroup) isChatType() {}
func (ChatTypeSecret) isChatType()     {}

// Supergroup carries the usernames of a supergroup or channel.
type Supergroup struct {
	ID              int64
	ActiveUsernames []string
}

// ChatList selects which chat list GetChats reads.
type ChatList string

const (
	ChatListMain    ChatList = "chatListMain"
	ChatListArchive ChatList = "chatListArchive"
)

// ForumTopic describes a forum thread of a supergroup.
type ForumTopic struct {
	MessageThreadID int64
	Name            string
	IsGeneral       bool
	LastMessageID   int64
}

// Messages is one page returned by a history call, newest first.
type Messages struct {
	TotalCount int32
	Messages   []*Message
}

// Message is a raw backend message.
type Message struct {
	ID             int64
	ChatID         int64
	SenderID       Sender
	Date           int32
	Content        Content
	ReplyTo        ReplyTo
	IsTopicMessage bool
}

// Sender identifies the author of a message.
type Sender interface {
	isSender()
}

type SenderUser struct {
	UserID int64
}

type SenderChat struct {
	ChatID int64
}

func (SenderUser) isSender() {}
func (SenderChat) isSender() {}

// ReplyTo describes what a message replies to. Only ReplyToMessage is resolved.
type ReplyTo interface {
	isReplyTo()
}

type ReplyToMessage struct {
	ChatID    int64
	MessageID int64
}

type ReplyToStory struct {
	StorySenderChatID int64
	StoryID           int32
}

func (ReplyToMessage) isReplyTo() {}
func (ReplyToStory) isReplyTo()   {}

// Content is the tagged union of message content kinds.
type Content interface {
	isContent()
}

type Text struct {
	Text string
}

type Photo struct {
	Caption string
}

type Video struct {
	Caption string
}

type Audio struct {
	Caption string
}

type Document struct {
	Caption string
}

type VoiceNote struct {
	Caption string
}

type Animation struct {
	Caption string
}

type VideoNote struct{}

type Sticker struct {
	Emoji string
}

// Unsupported holds any content kind the collector does not model.
type Unsupported struct {
	Type string
}

func (Text) isContent()        {}
func (Photo) isContent()       {}
func (Video) isContent()       {}
func (Audio) isContent()       {}
func (Document) isContent()    {}
func (VoiceNote) isContent()   {}
func (Animation) isContent()   {}
func (VideoNote) isContent()   {}
func (Sticker) isContent()     {}
func (Unsupported) isContent() {}

// User is returned by GetMe.
type User struct {
	ID        int64
	FirstName string
	LastName  string
}
