package messaging

import (
	"testing"

	"tale-forge/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestRoutingKeyAndQueueName(t *testing.T) {
	assert.Equal(t, "media.image", RoutingKey(models.MediaKindImage))
	assert.Equal(t, "media.audio", RoutingKey(models.MediaKindAudio))
	assert.Equal(t, "tale_forge.media.audio", QueueName(DefaultMediaExchange, models.MediaKindAudio))
}
