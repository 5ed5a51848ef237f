package telegram

// Wire shapes of the TDLib JSON objects the gateway returns. Unions are
// decoded into flat structs keyed by "@type" and then mapped onto the
// package's closed interfaces.

type wireObject struct {
	Type string `json:"@type"`
}

type wireError struct {
	Type    string `json:"@type"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type wireFormattedText struct {
	Text string `json:"text"`
}

type wireChatType struct {
	Type         string `json:"@type"`
	UserID       int64  `json:"user_id"`
	BasicGroupID int64  `json:"basic_group_id"`
	SupergroupID int64  `json:"supergroup_id"`
	IsChannel    bool   `json:"is_channel"`
	SecretChatID int64  `json:"secret_chat_id"`
}

type wireChat struct {
	ID    int64         `json:"id"`
	Title string        `json:"title"`
	Type  *wireChatType `json:"type"`
}

type wireChats struct {
	TotalCount int32   `json:"total_count"`
	ChatIDs    []int64 `json:"chat_ids"`
}

type wireUsernames struct {
	ActiveUsernames []string `json:"active_usernames"`
}

type wireSupergroup struct {
	ID        int64          `json:"id"`
	Usernames *wireUsernames `json:"usernames"`
}

type wireSender struct {
	Type   string `json:"@type"`
	UserID int64  `json:"user_id"`
	ChatID int64  `json:"chat_id"`
}

type wireReplyTo struct {
	Type              string `json:"@type"`
	ChatID            int64  `json:"chat_id"`
	MessageID         int64  `json:"message_id"`
	StorySenderChatID int64  `json:"story_sender_chat_id"`
	StoryID           int32  `json:"story_id"`
}

type wireSticker struct {
	Emoji string `json:"emoji"`
}

type wireContent struct {
	Type    string             `json:"@type"`
	Text    *wireFormattedText `json:"text"`
	Caption *wireFormattedText `json:"caption"`
	Sticker *wireSticker       `json:"sticker"`
}

type wireMessage struct {
	ID             int64        `json:"id"`
	ChatID         int64        `json:"chat_id"`
	SenderID       *wireSender  `json:"sender_id"`
	Date           int32        `json:"date"`
	Content        *wireContent `json:"content"`
	ReplyTo        *wireReplyTo `json:"reply_to"`
	IsTopicMessage bool         `json:"is_topic_message"`
}

type wireMessages struct {
	TotalCount int32          `json:"total_count"`
	Messages   []*wireMessage `json:"messages"`
}

type wireForumTopicInfo struct {
	MessageThreadID int64  `json:"message_thread_id"`
	Name            string `json:"name"`
	IsGeneral       bool   `json:"is_general"`
}

type wireForumTopic struct {
	Info        wireForumTopicInfo `json:"info"`
	LastMessage *wireMessage       `json:"last_message"`
}

type wireForumTopics struct {
	TotalCount int32            `json:"total_count"`
	Topics     []wireForumTopic `json:"topics"`
}

type wireUser struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (w *wireChat) toChat() *Chat {
	chat := &Chat{ID: w.ID, Title: w.Title}
	if w.Type == nil {
		return chat
	}
	switch w.Type.Type {
	case "chatTypePrivate":
		chat.Type = ChatTypePrivate{UserID: w.Type.UserID}
	case "chatTypeBasicGroup":
		chat.Type = ChatTypeBasicGroup{BasicGroupID: w.Type.BasicGroupID}
	case "chatTypeSupergroup":
		chat.Type = ChatTypeSupergroup{SupergroupID: w.Type.SupergroupID, IsChannel: w.Type.IsChannel}
	case "chatTypeSecret":
		chat.Type = ChatTypeSecret{SecretChatID: w.Type.SecretChatID, UserID: w.Type.UserID}
	}
	return chat
}

func (w *wireSupergroup) toSupergroup() *Supergroup {
	sg := &Supergroup{ID: w.ID}
	if w.Usernames != nil {
		sg.ActiveUsernames = w.Usernames.ActiveUsernames
	}
	return sg
}

func (w *wireMessage) toMessage() *Message {
	if w == nil {
		return nil
	}
	return &Message{
		ID:             w.ID,
		ChatID:         w.ChatID,
		SenderID:       w.SenderID.toSender(),
		Date:           w.Date,
		Content:        w.Content.toContent(),
		ReplyTo:        w.ReplyTo.toReplyTo(),
		IsTopicMessage: w.IsTopicMessage,
	}
}

func (w *wireMessages) toMessages() *Messages {
	out := &Messages{TotalCount: w.TotalCount, Messages: make([]*Message, 0, len(w.Messages))}
	for _, m := range w.Messages {
		if m == nil {
			continue
		}
		out.Messages = append(out.Messages, m.toMessage())
	}
	return out
}

func (w *wireForumTopic) toForumTopic() ForumTopic {
	topic := ForumTopic{
		MessageThreadID: w.Info.MessageThreadID,
		Name:            w.Info.Name,
		IsGeneral:       w.Info.IsGeneral,
	}
	if w.LastMessage != nil {
		topic.LastMessageID = w.LastMessage.ID
	}
	return topic
}

func (w *wireSender) toSender() Sender {
	if w == nil {
		return nil
	}
	switch w.Type {
	case "messageSenderUser":
		return SenderUser{UserID: w.UserID}
	case "messageSenderChat":
		return SenderChat{ChatID: w.ChatID}
	}
	return nil
}

func (w *wireReplyTo) toReplyTo() ReplyTo {
	if w == nil {
		return nil
	}
	switch w.Type {
	case "messageReplyToMessage":
		return ReplyToMessage{ChatID: w.ChatID, MessageID: w.MessageID}
	case "messageReplyToStory":
		return ReplyToStory{StorySenderChatID: w.StorySenderChatID, StoryID: w.StoryID}
	}
	return nil
}

func (w *wireContent) toContent() Content {
	if w == nil {
		return Unsupported{}
	}
	caption := ""
	if w.Caption != nil {
		caption = w.Caption.Text
	}
	switch w.Type {
	case "messageText":
		text := ""
		if w.Text != nil {
			text = w.Text.Text
		}
		return Text{Text: text}
	case "messagePhoto":
		return Photo{Caption: caption}
	case "messageVideo":
		return Video{Caption: caption}
	case "messageAudio":
		return Audio{Caption: caption}
	case "messageDocument":
		return Document{Caption: caption}
	case "messageVoiceNote":
		return VoiceNote{Caption: caption}
	case "messageAnimation":
		return Animation{Caption: caption}
	case "messageVideoNote":
		return VideoNote{}
	case "messageSticker":
		emoji := ""
		if w.Sticker != nil {
			emoji = w.Sticker.Emoji
		}
		return Sticker{Emoji: emoji}
	}
	return Unsupported{Type: w.Type}
}
