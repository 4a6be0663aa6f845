package ring

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRingCapacityRoundsToPowerOfTwo(t *testing.T) {
	r := New[int](8)
	require.Equal(t, 8, r.Cap())
}

func TestRingSaturationAndDrain(t *testing.T) {
	r := New[int](8)

	for i := 0; i < 8; i++ {
		require.NoError(t, r.TryEnqueue(i))
	}
	require.True(t, r.Full())

	err := r.TryEnqueue(99)
	require.ErrorIs(t, err, ErrFull)

	for i := 0; i < 4; i++ {
		v, err := r.TryDequeue()
		require.NoError(t, err)
		require.Equal(t, i, v)
	}
	require.Equal(t, 4, r.Size())

	for i := 8; i < 12; i++ {
		require.NoError(t, r.TryEnqueue(i))
	}
	require.True(t, r.Full())

	for i := 4; i < 12; i++ {
		v, err := r.TryDequeue()
		require.NoError(t, err)
		require.Equal(t, i, v)
	}
	require.True(t, r.Empty())

	_, err = r.TryDequeue()
	require.ErrorIs(t, err, ErrEmpty)
}

func TestRingSixteenEnqueuesOnCapacityEight(t *testing.T) {
	r := New[int](8)
	accepted := 0
	for i := 0; i < 16; i++ {
		if i == 10 {
			// Drain to make room partway through, mirroring a consumer
			// that keeps pace once backpressure appears.
			for !r.Empty() {
				_, _ = r.TryDequeue()
			}
		}
		if err := r.TryEnqueue(i); err == nil {
			accepted++
		}
	}
	require.Equal(t, 14, accepted)
}
