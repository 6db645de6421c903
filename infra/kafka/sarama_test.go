package kafka

import (
	"context"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaramaPublisherSends(t *testing.T) {
	mp := mocks.NewSyncProducer(t, SaramaConfig())
	mp.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		assert.Equal(t, `{"breed":"Golden"}`, string(val))
		return nil
	})

	p := NewSaramaPublisherFrom(mp, "evictions")
	require.NoError(t, p.Publish(context.Background(), []byte("1"), []byte(`{"breed":"Golden"}`)))
	require.NoError(t, p.Close())
}

func TestSaramaPublisherPropagatesFailure(t *testing.T) {
	mp := mocks.NewSyncProducer(t, SaramaConfig())
	mp.ExpectSendMessageAndFail(sarama.ErrNotLeaderForPartition)

	p := NewSaramaPublisherFrom(mp, "evictions")
	err := p.Publish(context.Background(), nil, []byte("x"))
	assert.ErrorIs(t, err, sarama.ErrNotLeaderForPartition)
	require.NoError(t, p.Close())
}

func TestSaramaPublisherHonoursCancelledContext(t *testing.T) {
	mp := mocks.NewSyncProducer(t, SaramaConfig())
	p := NewSaramaPublisherFrom(mp, "evictions")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Publish(ctx, nil, nil), context.Canceled)
	require.NoError(t, p.Close())
}
