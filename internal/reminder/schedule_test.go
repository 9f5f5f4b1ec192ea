package reminder

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedules(t *testing.T) {
	t.Parallel()

	t.Run("interval", func(t *testing.T) {
		t.Parallel()

		s := EveryInterval(time.Hour)
		from := time.Date(2025, time.June, 10, 9, 30, 0, 0, time.UTC)
		assert.Equal(t, from.Add(time.Hour), s.Next(from))
	})

	t.Run("daily before trigger time", func(t *testing.T) {
		t.Parallel()

		s := DailyAt(8, 0)
		from := time.Date(2025, time.June, 10, 6, 0, 0, 0, time.UTC)
		assert.Equal(t, time.Date(2025, time.June, 10, 8, 0, 0, 0, time.UTC), s.Next(from))
	})

	t.Run("daily after trigger time rolls over", func(t *testing.T) {
		t.Parallel()

		s := DailyAt(8, 0)
		from := time.Date(2025, time.June, 10, 9, 0, 0, 0, time.UTC)
		assert.Equal(t, time.Date(2025, time.June, 11, 8, 0, 0, 0, time.UTC), s.Next(from))
	})

	t.Run("daily exactly at trigger time rolls over", func(t *testing.T) {
		t.Parallel()

		s := DailyAt(8, 0)
		from := time.Date(2025, time.June, 10, 8, 0, 0, 0, time.UTC)
		assert.Equal(t, time.Date(2025, time.June, 11, 8, 0, 0, 0, time.UTC), s.Next(from))
	})
}

func TestMemoryLock(t *testing.T) {
	t.Parallel()

	lock := NewMemoryLock()
	ctx := context.Background()

	ok, err := lock.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = lock.TryLock(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, lock.Unlock(ctx))

	ok, err = lock.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)
}
