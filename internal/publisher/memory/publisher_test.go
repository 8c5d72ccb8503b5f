package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPublisherRecordsMessages(t *testing.T) {
	t.Parallel()

	p := New()
	ctx := context.Background()

	id, err := p.Publish(ctx, "discoveries", map[string]int64{"video_id": 1050})
	require.NoError(t, err)
	require.Equal(t, "memory-1", id)

	_, err = p.Publish(ctx, "discoveries", map[string]int64{"video_id": 1051})
	require.NoError(t, err)

	messages := p.Messages()
	require.Len(t, messages, 2)
	require.Equal(t, "discoveries", messages[0].Topic)
	require.Equal(t, map[string]int64{"video_id": 1050}, messages[0].Payload)
}
