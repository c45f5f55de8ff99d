package antidelete

import (
	"context"
	"fmt"

	"github.com/lzyats/im-antidelete/pkg/event"
)

const (
	contextTitle = "Deleted Message Alert"

	labelDeletedText  = "📝 *Deleted Text:*"
	labelImageCaption = "📷 *Image Caption:*"
	labelVideoCaption = "🎥 *Video Caption:*"
	labelVoiceDeleted = "🎤 *Voice Message Deleted*"
	labelUnsupported  = "⚠️ *Unsupported message type was deleted*"
)

// MediaDownloader materialises media again so it can be re-sent.
// Release is called once the send attempt is over.
type MediaDownloader interface {
	DownloadMedia(ctx context.Context, kind Kind, m Media) (localPath string, err error)
	Release(localPath string) error
}

// Reconstruction is the outbound alert plus the local files it references.
type Reconstruction struct {
	Alert event.Alert
	Files []string
}

type Reconstructor struct {
	media MediaDownloader
}

func NewReconstructor(media MediaDownloader) *Reconstructor {
	return &Reconstructor{media: media}
}

// Reconstruct maps the original content to an outbound alert. Every alert
// mentions the deleter and the original sender and carries a context marker
// attributed to the deleter.
func (r *Reconstructor) Reconstruct(ctx context.Context, n Notification, original Content) (Reconstruction, error) {
	if original == nil {
		original = Other{}
	}
	b := &alertBuilder{ctx: ctx, media: r.media, note: n}
	alert, err := original.accept(b)
	if err != nil {
		return Reconstruction{Files: b.files}, err
	}
	alert.Mentions = n.Mentions()
	alert.ContextInfo = &event.ContextInfo{Title: contextTitle, Participant: n.Deleter}
	return Reconstruction{Alert: alert, Files: b.files}, nil
}

type alertBuilder struct {
	ctx   context.Context
	media MediaDownloader
	note  Notification
	files []string
}

func (b *alertBuilder) section(label, body string) string {
	return b.note.Text + "\n\n" + label + "\n" + body
}

func (b *alertBuilder) download(kind Kind, m Media) (*event.MediaRef, error) {
	if b.media == nil {
		return nil, fmt.Errorf("download %s: no media downloader configured", kind)
	}
	path, err := b.media.DownloadMedia(b.ctx, kind, m)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", kind, err)
	}
	b.files = append(b.files, path)
	return &event.MediaRef{URL: path}, nil
}

func (b *alertBuilder) visitText(c Text) (event.Alert, error) {
	return event.Alert{Text: b.section(labelDeletedText, c.Body)}, nil
}

func (b *alertBuilder) visitExtendedText(c ExtendedText) (event.Alert, error) {
	return event.Alert{Text: b.section(labelDeletedText, c.Text)}, nil
}

func (b *alertBuilder) visitImage(c Image) (event.Alert, error) {
	ref, err := b.download(KindImage, c.Media)
	if err != nil {
		return event.Alert{}, err
	}
	return event.Alert{Image: ref, Caption: b.section(labelImageCaption, c.Caption)}, nil
}

func (b *alertBuilder) visitVideo(c Video) (event.Alert, error) {
	ref, err := b.download(KindVideo, c.Media)
	if err != nil {
		return event.Alert{}, err
	}
	return event.Alert{Video: ref, Caption: b.section(labelVideoCaption, c.Caption)}, nil
}

// Audio is always re-sent as a voice note; its caption is not kept.
func (b *alertBuilder) visitAudio(c Audio) (event.Alert, error) {
	ref, err := b.download(KindAudio, c.Media)
	if err != nil {
		return event.Alert{}, err
	}
	return event.Alert{Audio: ref, PTT: true, Caption: b.note.Text + "\n\n" + labelVoiceDeleted}, nil
}

func (b *alertBuilder) visitSticker(c Sticker) (event.Alert, error) {
	ref, err := b.download(KindSticker, c.Media)
	if err != nil {
		return event.Alert{}, err
	}
	return event.Alert{Sticker: ref, Caption: b.note.Text}, nil
}

// Control messages are never correlated as originals; should one get here
// it is reported like any other unsupported payload.
func (b *alertBuilder) visitProtocol(Protocol) (event.Alert, error) {
	return b.unsupported(), nil
}

func (b *alertBuilder) visitOther(Other) (event.Alert, error) {
	return b.unsupported(), nil
}

func (b *alertBuilder) unsupported() event.Alert {
	return event.Alert{Text: b.note.Text + "\n\n" + labelUnsupported}
}
