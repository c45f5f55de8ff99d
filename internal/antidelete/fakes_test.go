package antidelete

import (
	"context"
	"errors"
	"sync"

	"github.com/lzyats/im-antidelete/pkg/event"
)

type sentAlert struct {
	chatID string
	alert  event.Alert
}

type fakeSender struct {
	mu    sync.Mutex
	sent  []sentAlert
	err   error
	panic bool
}

func (f *fakeSender) Send(ctx context.Context, chatID string, alert event.Alert) error {
	if f.panic {
		panic("sender exploded")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentAlert{chatID: chatID, alert: alert})
	return nil
}

func (f *fakeSender) Sent() []sentAlert {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentAlert, len(f.sent))
	copy(out, f.sent)
	return out
}

type fakeMedia struct {
	mu         sync.Mutex
	downloaded []Kind
	released   []string
	err        error
}

func (f *fakeMedia) DownloadMedia(ctx context.Context, kind Kind, m Media) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.downloaded = append(f.downloaded, kind)
	return "/tmp/media/" + string(kind), nil
}

func (f *fakeMedia) Release(localPath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released = append(f.released, localPath)
	return nil
}

type fakeStream struct {
	handler    event.BatchHandler
	subscribed int
	err        error
}

func (f *fakeStream) Subscribe(ctx context.Context, handler event.BatchHandler) error {
	if f.err != nil {
		return f.err
	}
	f.subscribed++
	f.handler = handler
	return nil
}

type fakeSettings struct {
	on  bool
	err error
}

func (f fakeSettings) Enabled(ctx context.Context) (bool, error) { return f.on, f.err }

var errBoom = errors.New("boom")

func strPtr(s string) *string { return &s }

func textEvent(conv, id, participant, body string) event.WebMessage {
	return event.WebMessage{
		Key:     event.MessageKey{RemoteJID: conv, ID: id, Participant: participant},
		Message: &event.MessagePayload{Conversation: strPtr(body)},
	}
}

func revokeEvent(conv, id, participant, ref string) event.WebMessage {
	return event.WebMessage{
		Key: event.MessageKey{RemoteJID: conv, ID: id, Participant: participant},
		Message: &event.MessagePayload{ProtocolMessage: &event.ProtocolMessage{
			Type: event.ProtocolRevoke,
			Key:  &event.MessageKey{RemoteJID: conv, ID: ref},
		}},
	}
}
