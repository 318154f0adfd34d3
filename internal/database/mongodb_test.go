package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectMongoRejectsEmptyURI(t *testing.T) {
	_, err := ConnectMongo(context.Background(), "", time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty uri")
}

func TestConnectMongoRetryGivesUp(t *testing.T) {
	// malformed URIs fail before any network access
	_, err := ConnectMongoRetry(context.Background(), "not-a-mongo-uri", 100*time.Millisecond, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "giving up after 1 attempts")
}

func TestConnectMongoRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ConnectMongoRetry(ctx, "not-a-mongo-uri", 100*time.Millisecond, 5)
	require.Error(t, err)
}
