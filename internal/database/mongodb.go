package database

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lexdraft/lexdraft/backend/go-services/pkg/logger"
)

// ConnectMongo opens a connection and pings it. Caller should call client.Disconnect(ctx).
func ConnectMongo(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongo connect: empty uri")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

// ConnectMongoRetry calls ConnectMongo up to attempts times with exponential
// backoff between tries, to ride out containers that start in any order.
func ConnectMongoRetry(ctx context.Context, uri string, timeout time.Duration, attempts uint64) (*mongo.Client, error) {
	if attempts == 0 {
		attempts = 1
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxElapsedTime = 0

	var client *mongo.Client
	try := 0
	op := func() error {
		try++
		c, err := ConnectMongo(ctx, uri, timeout)
		if err != nil {
			return err
		}
		client = c
		return nil
	}
	notify := func(err error, wait time.Duration) {
		logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v (retrying in %s)", try, attempts, err, wait)
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(backoff.WithMaxRetries(b, attempts-1), ctx), notify); err != nil {
		return nil, fmt.Errorf("mongo: giving up after %d attempts: %w", try, err)
	}
	return client, nil
}
