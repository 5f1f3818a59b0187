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

type PreferenceRepository interface {
	GetByDeviceID(ctx context.Context, deviceID string) (*models.DevicePreference, error)
	// EnsureSpeakerID stores speakerID for the device unless one exists and
	// returns the stored value.
	EnsureSpeakerID(ctx context.Context, deviceID, speakerID string) (string, error)
	SetLanguage(ctx context.Context, deviceID string, lang *models.LanguageOption) error
	SetAudioEnabled(ctx context.Context, deviceID string, enabled bool) error
}

type preferenceRepo struct {
	col *mongo.Collection
}

func NewPreferenceRepo(db *mongo.Database) PreferenceRepository {
	return &preferenceRepo{col: db.Collection("device_preferences")}
}

func (r *preferenceRepo) GetByDeviceID(ctx context.Context, deviceID string) (*models.DevicePreference, error) {
	var p models.DevicePreference
	err := r.col.FindOne(ctx, bson.M{"device_id": deviceID}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.ErrNotFound
	}
	return &p, err
}

func (r *preferenceRepo) EnsureSpeakerID(ctx context.Context, deviceID, speakerID string) (string, error) {
	var p models.DevicePreference
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{"device_id": deviceID},
		bson.M{
			"$setOnInsert": bson.M{
				"device_id":     deviceID,
				"speaker_id":    speakerID,
				"audio_enabled": false,
				"updated_at":    time.Now().UTC(),
			},
		},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&p)
	if err != nil {
		return "", err
	}
	return p.SpeakerID, nil
}

func (r *preferenceRepo) SetLanguage(ctx context.Context, deviceID string, lang *models.LanguageOption) error {
	return r.set(ctx, deviceID, bson.M{"language": lang})
}

func (r *preferenceRepo) SetAudioEnabled(ctx context.Context, deviceID string, enabled bool) error {
	return r.set(ctx, deviceID, bson.M{"audio_enabled": enabled})
}

func (r *preferenceRepo) set(ctx context.Context, deviceID string, fields bson.M) error {
	fields["updated_at"] = time.Now().UTC()
	_, err := r.col.UpdateOne(ctx,
		bson.M{"device_id": deviceID},
		bson.M{"$set": fields},
		options.Update().SetUpsert(true),
	)
	return err
}
