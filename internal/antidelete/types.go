package antidelete

import (
	"strings"
	"time"

	"github.com/lzyats/im-antidelete/pkg/event"
)

const (
	// StatusBroadcastJID is the status/stories channel. Its events are never
	// stored or processed.
	StatusBroadcastJID = "status@broadcast"

	groupSuffix = "@g.us"
)

// Kind names a content variant.
type Kind string

const (
	KindText         Kind = "text"
	KindExtendedText Kind = "extended_text"
	KindImage        Kind = "image"
	KindVideo        Kind = "video"
	KindAudio        Kind = "audio"
	KindSticker      Kind = "sticker"
	KindProtocol     Kind = "protocol"
	KindOther        Kind = "other"
)

// Content is the closed set of message bodies. Every variant dispatches
// through contentVisitor, so adding a variant without teaching the
// reconstructor about it does not compile.
type Content interface {
	Kind() Kind
	accept(v contentVisitor) (event.Alert, error)
}

type contentVisitor interface {
	visitText(Text) (event.Alert, error)
	visitExtendedText(ExtendedText) (event.Alert, error)
	visitImage(Image) (event.Alert, error)
	visitVideo(Video) (event.Alert, error)
	visitAudio(Audio) (event.Alert, error)
	visitSticker(Sticker) (event.Alert, error)
	visitProtocol(Protocol) (event.Alert, error)
	visitOther(Other) (event.Alert, error)
}

type Text struct {
	Body string
}

type ExtendedText struct {
	Text string
}

// Media is what the download capability needs to fetch a file again.
type Media struct {
	URL        string
	DirectPath string
	Mimetype   string
	Caption    string
	FileLength uint64
}

type Image struct{ Media }

type Video struct{ Media }

type Audio struct {
	Media
	PTT bool
}

type Sticker struct{ Media }

// Protocol is a control message. With Type == event.ProtocolRevoke it is a
// deletion marker referencing RefID in the same conversation.
type Protocol struct {
	Type  event.ProtocolType
	RefID string
}

// IsRevoke reports whether p announces the removal of an earlier message.
// Type code 0 is the only recognised deletion signal.
func (p Protocol) IsRevoke() bool {
	return p.Type == event.ProtocolRevoke && p.RefID != ""
}

// Other is any payload this service has no dedicated handling for.
type Other struct{}

func (Text) Kind() Kind         { return KindText }
func (ExtendedText) Kind() Kind { return KindExtendedText }
func (Image) Kind() Kind        { return KindImage }
func (Video) Kind() Kind        { return KindVideo }
func (Audio) Kind() Kind        { return KindAudio }
func (Sticker) Kind() Kind      { return KindSticker }
func (Protocol) Kind() Kind     { return KindProtocol }
func (Other) Kind() Kind        { return KindOther }

func (c Text) accept(v contentVisitor) (event.Alert, error)         { return v.visitText(c) }
func (c ExtendedText) accept(v contentVisitor) (event.Alert, error) { return v.visitExtendedText(c) }
func (c Image) accept(v contentVisitor) (event.Alert, error)        { return v.visitImage(c) }
func (c Video) accept(v contentVisitor) (event.Alert, error)        { return v.visitVideo(c) }
func (c Audio) accept(v contentVisitor) (event.Alert, error)        { return v.visitAudio(c) }
func (c Sticker) accept(v contentVisitor) (event.Alert, error)      { return v.visitSticker(c) }
func (c Protocol) accept(v contentVisitor) (event.Alert, error)     { return v.visitProtocol(c) }
func (c Other) accept(v contentVisitor) (event.Alert, error)        { return v.visitOther(c) }

// MessageRecord is one observed message.
type MessageRecord struct {
	ID             string
	ConversationID string
	// Sender is the participant for group chats and the conversation id
	// otherwise.
	Sender    string
	FromMe    bool
	PushName  string
	Timestamp time.Time
	Content   Content
}

// IsDeletionMarker reports whether r is a revoke notification.
func (r MessageRecord) IsDeletionMarker() bool {
	p, ok := r.Content.(Protocol)
	return ok && p.IsRevoke()
}

// IsGroup reports whether the conversation id denotes a group chat.
func IsGroup(conversationID string) bool {
	return strings.HasSuffix(conversationID, groupSuffix)
}

// RecordFromEvent converts a wire message to a record. It reports false for
// events that must be discarded before storage: the status channel, a
// missing conversation id, or no content at all.
func RecordFromEvent(m event.WebMessage) (MessageRecord, bool) {
	if m.Message == nil || m.Key.RemoteJID == "" || m.Key.RemoteJID == StatusBroadcastJID {
		return MessageRecord{}, false
	}
	sender := m.Key.Participant
	if sender == "" {
		sender = m.Key.RemoteJID
	}
	rec := MessageRecord{
		ID:             m.Key.ID,
		ConversationID: m.Key.RemoteJID,
		Sender:         sender,
		FromMe:         m.Key.FromMe,
		PushName:       m.PushName,
		Content:        contentFromPayload(m.Message),
	}
	if m.MessageTimestamp > 0 {
		rec.Timestamp = time.Unix(m.MessageTimestamp, 0)
	}
	return rec, true
}

func contentFromPayload(p *event.MessagePayload) Content {
	if p.ProtocolMessage != nil {
		c := Protocol{Type: p.ProtocolMessage.Type}
		if p.ProtocolMessage.Key != nil {
			c.RefID = p.ProtocolMessage.Key.ID
		}
		return c
	}
	switch {
	case p.Conversation != nil && *p.Conversation != "":
		return Text{Body: *p.Conversation}
	case p.ExtendedTextMessage != nil:
		return ExtendedText{Text: p.ExtendedTextMessage.Text}
	case p.ImageMessage != nil:
		return Image{Media: mediaFrom(p.ImageMessage)}
	case p.VideoMessage != nil:
		return Video{Media: mediaFrom(p.VideoMessage)}
	case p.AudioMessage != nil:
		return Audio{Media: mediaFrom(p.AudioMessage), PTT: p.AudioMessage.PTT}
	case p.StickerMessage != nil:
		return Sticker{Media: mediaFrom(p.StickerMessage)}
	default:
		return Other{}
	}
}

func mediaFrom(m *event.MediaMessage) Media {
	return Media{
		URL:        m.URL,
		DirectPath: m.DirectPath,
		Mimetype:   m.Mimetype,
		Caption:    m.Caption,
		FileLength: m.FileLength,
	}
}
