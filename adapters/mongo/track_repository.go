package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/satriahrh/soundalike/domain"
	"github.com/satriahrh/soundalike/domain/entities"
	"github.com/satriahrh/soundalike/domain/repositories"
)

const tracksCollection = "tracks"

type TrackRepository struct {
	collection *mongo.Collection
}

// NewTrackRepository creates a new MongoDB track repository
func NewTrackRepository(db *mongo.Database) repositories.TrackRepository {
	return &TrackRepository{
		collection: db.Collection(tracksCollection),
	}
}

// EnsureIndexes creates the created_at index used by GetAll
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(tracksCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "created_at", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create tracks index: %w", err)
	}
	return nil
}

// Create implements repositories.TrackRepository
func (r *TrackRepository) Create(ctx context.Context, track *entities.Track) error {
	if track == nil {
		return errors.New("track cannot be nil")
	}
	if err := track.Validate(); err != nil {
		return domain.Wrap(err, domain.KindInvalidInput, "invalid track: %v", err)
	}

	track.ID = uuid.New().String()
	if track.CreatedAt.IsZero() {
		// Mongo stores milliseconds
		track.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	}

	if _, err := r.collection.InsertOne(ctx, track); err != nil {
		return fmt.Errorf("failed to create track: %w", err)
	}
	return nil
}

// GetByID implements repositories.TrackRepository
func (r *TrackRepository) GetByID(ctx context.Context, id string) (*entities.Track, error) {
	if id == "" {
		return nil, domain.ErrTrackNotFound
	}

	var track entities.Track
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&track)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrTrackNotFound
		}
		return nil, fmt.Errorf("failed to get track: %w", err)
	}

	return &track, nil
}

// GetAll implements repositories.TrackRepository
func (r *TrackRepository) GetAll(ctx context.Context) ([]*entities.Track, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find tracks: %w", err)
	}
	defer cursor.Close(ctx)

	tracks := make([]*entities.Track, 0)
	if err := cursor.All(ctx, &tracks); err != nil {
		return nil, fmt.Errorf("failed to decode tracks: %w", err)
	}

	return tracks, nil
}

// Delete implements repositories.TrackRepository
func (r *TrackRepository) Delete(ctx context.Context, id string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete track: %w", err)
	}
	if result.DeletedCount == 0 {
		return domain.ErrTrackNotFound
	}
	return nil
}
