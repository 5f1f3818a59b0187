package config

import (
	"context"
	"crypto/tls"
	"errors"
	"os"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var MongoClient *mongo.Client

// InitMongo connects to MONGO_URI and pings it. Device preferences and
// pending utterance audio live here.
func InitMongo() error {
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		return errors.New("MONGO_URI environment variable is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	maxPool := uint64(10)
	if n, err := strconv.ParseUint(os.Getenv("MONGO_MAX_POOL"), 10, 64); err == nil && n > 0 {
		maxPool = n
	}

	clientOpts := options.Client().ApplyURI(uri).
		SetAppName("translation-app").
		SetServerSelectionTimeout(20 * time.Second).
		SetConnectTimeout(15 * time.Second).
		SetMaxPoolSize(maxPool).
		SetMinPoolSize(1)

	// Some Atlas clusters reject the default TLS negotiation of newer Go
	// releases; pin TLS 1.2 when asked to.
	if os.Getenv("MONGO_FORCE_TLS12") == "true" {
		clientOpts = clientOpts.SetTLSConfig(&tls.Config{
			MinVersion: tls.VersionTLS12,
			MaxVersion: tls.VersionTLS12,
		})
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return err
	}

	MongoClient = client
	return nil
}
