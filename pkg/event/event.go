package event

import "context"

// UpsertBatch is the envelope a protocol bridge emits for every
// "messages.upsert" notification. One batch may carry several messages.
// Treat this as a contract (version it when breaking changes are required).
type UpsertBatch struct {
	Type     string       `json:"type,omitempty"` // "notify" | "append"
	TraceID  string       `json:"trace_id,omitempty"`
	Messages []WebMessage `json:"messages"`
}

type WebMessage struct {
	Key              MessageKey      `json:"key"`
	Message          *MessagePayload `json:"message,omitempty"`
	PushName         string          `json:"pushName,omitempty"`
	MessageTimestamp int64           `json:"messageTimestamp,omitempty"` // unix seconds
}

type MessageKey struct {
	RemoteJID   string `json:"remoteJid"`
	FromMe      bool   `json:"fromMe,omitempty"`
	ID          string `json:"id"`
	Participant string `json:"participant,omitempty"`
}

// MessagePayload carries at most one populated content field in practice.
// Unknown fields are ignored by the decoder; a payload with none of the
// fields below still counts as content and maps to the unsupported variant.
type MessagePayload struct {
	Conversation        *string          `json:"conversation,omitempty"`
	ExtendedTextMessage *ExtendedText    `json:"extendedTextMessage,omitempty"`
	ImageMessage        *MediaMessage    `json:"imageMessage,omitempty"`
	VideoMessage        *MediaMessage    `json:"videoMessage,omitempty"`
	AudioMessage        *MediaMessage    `json:"audioMessage,omitempty"`
	StickerMessage      *MediaMessage    `json:"stickerMessage,omitempty"`
	ProtocolMessage     *ProtocolMessage `json:"protocolMessage,omitempty"`
}

type ExtendedText struct {
	Text        string `json:"text"`
	MatchedText string `json:"matchedText,omitempty"`
}

type MediaMessage struct {
	URL        string `json:"url,omitempty"`
	DirectPath string `json:"directPath,omitempty"`
	Mimetype   string `json:"mimetype,omitempty"`
	Caption    string `json:"caption,omitempty"`
	FileLength uint64 `json:"fileLength,omitempty"`
	Seconds    uint32 `json:"seconds,omitempty"`
	PTT        bool   `json:"ptt,omitempty"`
}

// ProtocolType is the control message type code. Only ProtocolRevoke is
// interpreted; every other code is passed through untouched.
type ProtocolType int

const ProtocolRevoke ProtocolType = 0

type ProtocolMessage struct {
	Key  *MessageKey  `json:"key,omitempty"`
	Type ProtocolType `json:"type"`
}

// BatchHandler consumes one decoded batch. Handlers own their error
// handling; nothing is reported back to the stream.
type BatchHandler func(ctx context.Context, batch UpsertBatch)
