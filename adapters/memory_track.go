package adapters

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/satriahrh/soundalike/domain"
	"github.com/satriahrh/soundalike/domain/entities"
	"github.com/satriahrh/soundalike/domain/repositories"
)

// MemoryTrackRepository is an in-memory implementation of TrackRepository.
// Contents are lost on restart.
type MemoryTrackRepository struct {
	mu     sync.RWMutex
	tracks map[string]*entities.Track
	now    func() time.Time
}

var _ repositories.TrackRepository = (*MemoryTrackRepository)(nil)

// NewMemoryTrackRepository creates a new in-memory track repository
func NewMemoryTrackRepository() *MemoryTrackRepository {
	return &MemoryTrackRepository{
		tracks: make(map[string]*entities.Track),
		now:    time.Now,
	}
}

// Create assigns the ID and creation time and stores a copy of the track
func (m *MemoryTrackRepository) Create(ctx context.Context, track *entities.Track) error {
	if track == nil {
		return errors.New("track cannot be nil")
	}
	if err := track.Validate(); err != nil {
		return domain.Wrap(err, domain.KindInvalidInput, "invalid track: %v", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	track.ID = uuid.New().String()
	if track.CreatedAt.IsZero() {
		track.CreatedAt = m.now()
	}

	stored := *track
	m.tracks[track.ID] = &stored
	return nil
}

// GetByID implements TrackRepository
func (m *MemoryTrackRepository) GetByID(ctx context.Context, id string) (*entities.Track, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	track, exists := m.tracks[id]
	if !exists {
		return nil, domain.ErrTrackNotFound
	}

	result := *track
	return &result, nil
}

// GetAll returns every track, oldest first
func (m *MemoryTrackRepository) GetAll(ctx context.Context) ([]*entities.Track, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tracks := make([]*entities.Track, 0, len(m.tracks))
	for _, track := range m.tracks {
		t := *track
		tracks = append(tracks, &t)
	}

	sort.SliceStable(tracks, func(i, j int) bool {
		if tracks[i].CreatedAt.Equal(tracks[j].CreatedAt) {
			return tracks[i].ID < tracks[j].ID
		}
		return tracks[i].CreatedAt.Before(tracks[j].CreatedAt)
	})

	return tracks, nil
}

// Delete implements TrackRepository
func (m *MemoryTrackRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.tracks[id]; !exists {
		return domain.ErrTrackNotFound
	}
	delete(m.tracks, id)
	return nil
}
