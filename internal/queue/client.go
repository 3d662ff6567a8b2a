package queue

import "context"

// Client enqueues analysis work items. The API server only sends; the
// worker binary consumes.
type Client interface {
	Enqueue(ctx context.Context, msg Message) error
}
