package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/Kazorio/translation-app/internal/models"
	"github.com/Kazorio/translation-app/internal/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const utteranceTTL = 24 * time.Hour

type UtteranceRepository interface {
	Insert(ctx context.Context, u *models.UtteranceAudio) error
	GetByUtteranceID(ctx context.Context, utteranceID string) (*models.UtteranceAudio, error)
	MarkArchived(ctx context.Context, utteranceID, objectPath string) error
	MarkFailed(ctx context.Context, utteranceID string) error
	ListByRoom(ctx context.Context, roomID string, limit int64) ([]models.UtteranceAudio, error)
}

type utteranceRepo struct {
	col *mongo.Collection
}

func NewUtteranceRepo(db *mongo.Database) UtteranceRepository {
	return &utteranceRepo{col: db.Collection("utterance_audio")}
}

func (r *utteranceRepo) Insert(ctx context.Context, u *models.UtteranceAudio) error {
	if u.Timestamp.IsZero() {
		u.Timestamp = time.Now().UTC()
	}
	if u.ExpiresAt.IsZero() {
		u.ExpiresAt = u.Timestamp.Add(utteranceTTL)
	}
	if u.Status == "" {
		u.Status = models.ArchivePending
	}
	_, err := r.col.InsertOne(ctx, u)
	return err
}

func (r *utteranceRepo) GetByUtteranceID(ctx context.Context, utteranceID string) (*models.UtteranceAudio, error) {
	var u models.UtteranceAudio
	err := r.col.FindOne(ctx, bson.M{"utterance_id": utteranceID}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.ErrNotFound
	}
	return &u, err
}

func (r *utteranceRepo) MarkArchived(ctx context.Context, utteranceID, objectPath string) error {
	// the audio lives in object storage from here on
	_, err := r.col.UpdateOne(ctx,
		bson.M{"utterance_id": utteranceID},
		bson.M{
			"$set": bson.M{
				"status":      models.ArchiveArchived,
				"object_path": objectPath,
			},
			"$unset": bson.M{"audio_wav": ""},
		},
	)
	return err
}

func (r *utteranceRepo) MarkFailed(ctx context.Context, utteranceID string) error {
	_, err := r.col.UpdateOne(ctx,
		bson.M{"utterance_id": utteranceID},
		bson.M{"$set": bson.M{"status": models.ArchiveFailed}},
	)
	return err
}

func (r *utteranceRepo) ListByRoom(ctx context.Context, roomID string, limit int64) ([]models.UtteranceAudio, error) {
	if limit <= 0 {
		limit = 50
	}

	cur, err := r.col.Find(ctx,
		bson.M{"room_id": roomID},
		options.Find().
			SetSort(bson.D{{Key: "timestamp", Value: -1}}).
			SetLimit(limit).
			SetProjection(bson.M{"audio_wav": 0}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.UtteranceAudio
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
