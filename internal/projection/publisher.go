package projection

import (
	"context"
	"log"

	"github.com/example/grocery-shop/internal/infrastructure/store"
)

// SyncPublisher projects each stored event before the append returns, then
// forwards it to next. It serves deployments without a bus consumer and keeps
// reads consistent with the writes of the same request.
type SyncPublisher struct {
	projector *Projector
	next      store.Publisher
}

var _ store.Publisher = (*SyncPublisher)(nil)

// NewSyncPublisher creates a publisher. next may be nil.
func NewSyncPublisher(projector *Projector, next store.Publisher) *SyncPublisher {
	return &SyncPublisher{projector: projector, next: next}
}

// Publish applies the event and forwards it. A projection failure is logged
// and does not fail the append; the event is already stored and a replay repairs the read model.
func (s *SyncPublisher) Publish(ctx context.Context, key string, event any) error {
	switch e := event.(type) {
	case store.Event:
		s.apply(e)
	case *store.Event:
		s.apply(*e)
	}

	if s.next == nil {
		return nil
	}
	return s.next.Publish(ctx, key, event)
}

func (s *SyncPublisher) apply(event store.Event) {
	if err := s.projector.Apply(event); err != nil {
		log.Printf("[Projector] Failed to apply %s inline: %v", event.EventType, err)
	}
}
