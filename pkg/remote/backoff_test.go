package remote

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultBackoffIsValid(t *testing.T) {
	require.NoError(t, DefaultBackoff().Validate())
}

func TestBackoffValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Backoff)
	}{
		{"zero initial interval", func(b *Backoff) { b.InitialInterval = 0 }},
		{"max below initial", func(b *Backoff) { b.MaxInterval = time.Millisecond }},
		{"multiplier below one", func(b *Backoff) { b.Multiplier = 0.5 }},
		{"negative randomization", func(b *Backoff) { b.RandomizationFactor = -0.1 }},
		{"randomization above one", func(b *Backoff) { b.RandomizationFactor = 1.5 }},
		{"zero attempts", func(b *Backoff) { b.MaxAttempts = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := DefaultBackoff()
			tt.mutate(&b)
			require.Error(t, b.Validate())
		})
	}
}

func TestSequenceAttemptCap(t *testing.T) {
	b := DefaultBackoff()
	seq := b.NewSequence()

	delays := 0
	for {
		_, ok := seq.Next()
		if !ok {
			break
		}
		delays++
	}
	// 5 attempts means at most 4 delays between them.
	require.Equal(t, 4, delays)
	require.Equal(t, 5, seq.Attempts())
}

func TestSequenceDelayFormula(t *testing.T) {
	b := DefaultBackoff()
	b.RandomizationFactor = 0 // deterministic for the formula check

	seq := b.NewSequence()
	want := []time.Duration{
		200 * time.Millisecond,
		1000 * time.Millisecond,
		5000 * time.Millisecond,
		25000 * time.Millisecond,
	}
	for i, expected := range want {
		delay, ok := seq.Next()
		require.True(t, ok, "delay %d", i)
		require.Equal(t, expected, delay)
	}
	_, ok := seq.Next()
	require.False(t, ok)
}

func TestSequenceDelayBounds(t *testing.T) {
	b := DefaultBackoff()
	b.MaxAttempts = 10
	b.MaxElapsed = 0

	seq := b.NewSequence()
	for {
		delay, ok := seq.Next()
		if !ok {
			break
		}
		require.GreaterOrEqual(t, delay, time.Duration(0))
		// 30s cap plus the ±10% jitter allowance.
		require.LessOrEqual(t, delay, 33*time.Second)
	}
}

func TestSequenceJitterWithinFactor(t *testing.T) {
	b := DefaultBackoff()
	for range 50 {
		seq := b.NewSequence()
		delay, ok := seq.Next()
		require.True(t, ok)
		require.GreaterOrEqual(t, delay, 180*time.Millisecond)
		require.LessOrEqual(t, delay, 220*time.Millisecond)
	}
}

func TestSequenceStopsWhenElapsedBudgetSpent(t *testing.T) {
	b := DefaultBackoff()
	seq := b.NewSequence()

	// Simulate a clock far past the elapsed budget.
	seq.now = func() time.Time { return seq.started.Add(time.Minute) }

	_, ok := seq.Next()
	require.False(t, ok)
}

func TestConcurrentSequencesAreIndependent(t *testing.T) {
	b := DefaultBackoff()
	b.RandomizationFactor = 0

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seq := b.NewSequence()
			first, ok := seq.Next()
			require.True(t, ok)
			require.Equal(t, 200*time.Millisecond, first)
			second, ok := seq.Next()
			require.True(t, ok)
			require.Equal(t, time.Second, second)
		}()
	}
	wg.Wait()
}
