package eventstream

import "context"

// Publisher publishes memory events to an event stream backend.
type Publisher interface {
	PublishInteraction(ctx context.Context, event *InteractionRecordedEvent) error
	PublishRefresh(ctx context.Context, event *MemoryRefreshedEvent) error
	Close() error
}
