package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryPublisherRecordsPayloads(t *testing.T) {
	p := NewMemoryPublisher()

	event := ScreenshotCaptured{
		RequestID:     "req-1",
		URL:           "https://example.com",
		ScreenshotURL: "memory://screenshot-abc.png",
		FileSize:      1024,
		Format:        "png",
		CapturedAt:    time.Now().UTC(),
	}
	id, err := p.Publish(context.Background(), event)
	require.NoError(t, err)
	assert.Equal(t, "1", id)

	payloads := p.Payloads()
	require.Len(t, payloads, 1)
	assert.Equal(t, event, payloads[0])

	id, err = p.Publish(context.Background(), event)
	require.NoError(t, err)
	assert.Equal(t, "2", id)
}
