package repositories

import (
	"context"

	"github.com/satriahrh/soundalike/domain/entities"
)

// TrackRepository defines data access methods for tracks.
// Create assigns ID and CreatedAt. GetByID returns domain.ErrTrackNotFound
// when the track is absent.
type TrackRepository interface {
	Create(ctx context.Context, track *entities.Track) error
	GetByID(ctx context.Context, id string) (*entities.Track, error)
	GetAll(ctx context.Context) ([]*entities.Track, error)
	Delete(ctx context.Context, id string) error
}
