//go:build integration

package messaging

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"tale-forge/internal/models"

	"github.com/docker/docker/client"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

func requireDocker(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}
	cli, err := client.NewClientWithOpts(client.FromEnv)
	if err != nil {
		t.Skipf("Docker client init error: %v", err)
	}
	defer cli.Close()
	if _, err := cli.Ping(context.Background()); err != nil {
		t.Skipf("Docker daemon is not running or accessible: %v", err)
	}
}

func TestMediaPublisher_RoutesByKind(t *testing.T) {
	requireDocker(t)
	ctx := context.Background()

	container, err := rabbitmq.Run(ctx,
		"rabbitmq:3-management-alpine",
		testcontainers.WithWaitStrategy(wait.ForLog("Server startup complete")),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	url, err := container.AmqpURL(ctx)
	require.NoError(t, err)

	conn, err := ConnectRabbitMQ(ctx, url, 5, time.Second, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	pub, err := NewRabbitMQMediaPublisher(conn, "test.media", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = pub.Close() })

	task := models.MediaTask{
		TaskID:    uuid.New(),
		Kind:      models.MediaKindAudio,
		UserID:    uuid.New(),
		StoryID:   uuid.New(),
		SegmentID: uuid.New(),
		Text:      "Once upon a time",
		TargetAge: "7-9",
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, pub.PublishMediaTask(ctx, task))

	ch, err := conn.Channel()
	require.NoError(t, err)
	defer ch.Close()

	var msg amqp.Delivery
	var ok bool
	require.Eventually(t, func() bool {
		msg, ok, err = ch.Get(QueueName("test.media", models.MediaKindAudio), true)
		return err == nil && ok
	}, 5*time.Second, 100*time.Millisecond)

	var got models.MediaTask
	require.NoError(t, json.Unmarshal(msg.Body, &got))
	assert.Equal(t, task.TaskID, got.TaskID)
	assert.Equal(t, models.MediaKindAudio, got.Kind)
	assert.Equal(t, task.TaskID.String(), msg.MessageId)
	assert.Equal(t, uint8(amqp.Persistent), msg.DeliveryMode)

	_, ok, err = ch.Get(QueueName("test.media", models.MediaKindImage), true)
	require.NoError(t, err)
	assert.False(t, ok, "image queue must stay empty")
}
