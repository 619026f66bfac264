package adapters

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satriahrh/soundalike/domain"
	"github.com/satriahrh/soundalike/domain/entities"
)

func TestMemoryTrackRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTrackRepository()

	track := entities.NewTrack("song.mp3", "a.mp3", "3:00")
	require.NoError(t, repo.Create(ctx, track))
	assert.NotEmpty(t, track.ID)
	assert.False(t, track.CreatedAt.IsZero())

	got, err := repo.GetByID(ctx, track.ID)
	require.NoError(t, err)
	assert.Equal(t, "song.mp3", got.Name)

	// returned tracks are copies
	got.Name = "changed"
	again, _ := repo.GetByID(ctx, track.ID)
	assert.Equal(t, "song.mp3", again.Name)

	require.NoError(t, repo.Delete(ctx, track.ID))
	_, err = repo.GetByID(ctx, track.ID)
	assert.ErrorIs(t, err, domain.ErrTrackNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, track.ID), domain.ErrTrackNotFound)
}

func TestMemoryTrackRepository_CreateInvalid(t *testing.T) {
	repo := NewMemoryTrackRepository()

	assert.Error(t, repo.Create(context.Background(), nil))

	err := repo.Create(context.Background(), &entities.Track{Name: "x"})
	assert.Equal(t, domain.KindInvalidInput, domain.KindOf(err))
}

func TestMemoryTrackRepository_GetAllOrdered(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTrackRepository()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	repo.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	for _, name := range []string{"first", "second", "third"} {
		require.NoError(t, repo.Create(ctx, entities.NewTrack(name, name+".mp3", "0:10")))
	}

	tracks, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, tracks, 3)
	assert.Equal(t, "first", tracks[0].Name)
	assert.Equal(t, "second", tracks[1].Name)
	assert.Equal(t, "third", tracks[2].Name)
}

func TestMemoryTrackRepository_Concurrent(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTrackRepository()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = repo.Create(ctx, entities.NewTrack("t", "t.mp3", "0:01"))
			_, _ = repo.GetAll(ctx)
		}()
	}
	wg.Wait()

	tracks, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, tracks, 50)
}
