package config

import (
	"context"
	"errors"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDatabase is the database named by MONGO_DB.
func MongoDatabase() *mongo.Database {
	dbName := os.Getenv("MONGO_DB")
	if dbName == "" {
		dbName = "translation_app"
	}
	return MongoClient.Database(dbName)
}

func EnsureMongoIndexes() error {
	if MongoClient == nil {
		return errors.New("MongoClient is nil; call InitMongo() first")
	}
	db := MongoDatabase()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	prefs := db.Collection("device_preferences")
	_, err := prefs.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "device_id", Value: 1}},
		Options: options.Index().
			SetName("uniq_device_id").
			SetUnique(true),
	})
	if err != nil {
		return err
	}

	utterances := db.Collection("utterance_audio")
	_, err = utterances.Indexes().CreateMany(ctx, []mongo.IndexModel{
		// expire at ExpiresAt (must be Date)
		{
			Keys: bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().
				SetName("ttl_expires_at").
				SetExpireAfterSeconds(0),
		},
		{
			Keys: bson.D{{Key: "utterance_id", Value: 1}},
			Options: options.Index().
				SetName("uniq_utterance_id").
				SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "room_id", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("by_room_ts"),
		},
	})
	return err
}
