package push

import "errors"

// Sentinels shared by the Redis store, the RocketMQ producer and the
// settings switch. Callers wrap them with context and match with errors.Is.
var (
	// ErrInvalidArgument: an empty key or chat id.
	ErrInvalidArgument = errors.New("push: invalid argument")
	// ErrNotConfigured: the backing store is absent or read-only.
	ErrNotConfigured = errors.New("push: backend not configured")
)
