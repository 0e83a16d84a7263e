package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPublishRecordsMessages(t *testing.T) {
	t.Parallel()
	pub := New()

	id, err := pub.Publish(context.Background(), "records", map[string]string{"sig": "ab12"})
	require.NoError(t, err)
	require.Equal(t, "memory-1", id)

	id, err = pub.Publish(context.Background(), "audit", "second")
	require.NoError(t, err)
	require.Equal(t, "memory-2", id)

	require.Len(t, pub.Messages(), 2)
	require.Len(t, pub.MessagesFor("records"), 1)
	require.Equal(t, "records", pub.MessagesFor("records")[0].Topic)
}

func TestPublishRequiresTopic(t *testing.T) {
	t.Parallel()
	pub := New()

	_, err := pub.Publish(context.Background(), "", "payload")
	require.Error(t, err)
	require.Empty(t, pub.Messages())
}
