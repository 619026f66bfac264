package repositories

import (
	"context"

	"github.com/satriahrh/soundalike/domain"
	"github.com/satriahrh/soundalike/domain/entities"
)

// AudioProcessor renders local variants of a source file
type AudioProcessor interface {
	Process(ctx context.Context, sourcePath string, variantCount int) ([]entities.GeneratedTrack, error)
}

// EventPublisher fans track events out to connected clients
type EventPublisher interface {
	Publish(event domain.Event)
}
