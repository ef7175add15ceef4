package messaging

import (
	"context"

	"github.com/nftmx/pack-ledger/internal/domain"
)

// Publisher defines the interface for publishing pack lifecycle events to the
// message broker
type Publisher interface {
	// PublishEvent publishes a pack lifecycle event
	PublishEvent(ctx context.Context, event *domain.PackEvent) error
	// Close closes the connection
	Close()
}
