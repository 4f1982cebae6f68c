package database_test

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/homeroom/storage/database"
	"github.com/trezcool/homeroom/tests"
)

// readyLogger closes ready once the listener reports it is listening.
type readyLogger struct {
	ready chan struct{}
}

func (l readyLogger) Debug(string, ...interface{}) {}
func (l readyLogger) Info(msg string, _ ...interface{}) {
	if strings.HasPrefix(msg, "listening") {
		close(l.ready)
	}
}
func (l readyLogger) Warn(string, ...interface{})  {}
func (l readyLogger) Error(string, ...interface{}) {}
func (l readyLogger) Fatal(string, ...interface{}) {}

func TestListener_NotificationInserted(t *testing.T) {
	db := testutil.PrepareDB(t)

	payloads := make(chan []byte, 1)
	logger := readyLogger{ready: make(chan struct{})}
	l := database.NewListener(os.Getenv("TEST_DATABASE_URL"), "notification_inserted", func(_ context.Context, p []byte) error {
		payloads <- p
		return nil
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = l.Listen(ctx) }()

	select {
	case <-logger.ready:
	case <-time.After(10 * time.Second):
		t.Fatal("listener never started")
	}

	// well over the NOTIFY payload cap
	_, err := db.Exec("INSERT INTO notification (title, message, type) VALUES ($1, $2, $3)", "Bài tập", strings.Repeat("ế", 4000), "daily")
	require.NoError(t, err)

	select {
	case p := <-payloads:
		var got map[string]interface{}
		require.NoError(t, json.Unmarshal(p, &got))
		assert.EqualValues(t, 1, got["id"])
		assert.Equal(t, "Bài tập", got["title"])
		assert.Equal(t, "daily", got["type"])
		assert.NotContains(t, got, "message")
	case <-time.After(10 * time.Second):
		t.Fatal("no notification received")
	}
}
