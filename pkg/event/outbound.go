package event

// Alert is the outbound payload handed to the send capability.
// Exactly one of Text, Image, Video, Audio or Sticker is set.
type Alert struct {
	TraceID string `json:"trace_id,omitempty"`
	ChatID  string `json:"chat_id"`
	TS      int64  `json:"ts"`

	Text    string    `json:"text,omitempty"`
	Image   *MediaRef `json:"image,omitempty"`
	Video   *MediaRef `json:"video,omitempty"`
	Audio   *MediaRef `json:"audio,omitempty"`
	Sticker *MediaRef `json:"sticker,omitempty"`
	Caption string    `json:"caption,omitempty"`
	PTT     bool      `json:"ptt,omitempty"`

	Mentions    []string     `json:"mentions"`
	ContextInfo *ContextInfo `json:"contextInfo,omitempty"`
}

type MediaRef struct {
	URL string `json:"url"`
}

// ContextInfo links an alert to the participant whose action triggered it.
type ContextInfo struct {
	Title       string `json:"title"`
	Participant string `json:"participant"`
}

// Kind names the populated payload field, for logs and metrics.
func (a Alert) Kind() string {
	switch {
	case a.Image != nil:
		return "image"
	case a.Video != nil:
		return "video"
	case a.Audio != nil:
		return "audio"
	case a.Sticker != nil:
		return "sticker"
	default:
		return "text"
	}
}
