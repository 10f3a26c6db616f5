package reliability

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetOnAbsentKeyDefaultsToFullSuccessRate(t *testing.T) {
	tr := New()
	rec := tr.Get("openai", "gpt-4")
	require.Equal(t, 1.0, rec.SuccessRate)
	require.Equal(t, uint64(0), rec.TotalRequests)
}

func TestRecordSuccessDecrementsRecentErrors(t *testing.T) {
	tr := New()
	tr.Record("openai", "gpt-4", false, 100)
	tr.Record("openai", "gpt-4", false, 100)
	before := tr.Get("openai", "gpt-4")
	require.Equal(t, 2, before.RecentErrors)

	tr.Record("openai", "gpt-4", true, 100)
	after := tr.Get("openai", "gpt-4")
	require.Equal(t, 1, after.RecentErrors)
	require.Less(t, before.SuccessRate, after.SuccessRate)
}

func TestRecentErrorsCeiling(t *testing.T) {
	tr := New()
	for i := 0; i < 20; i++ {
		tr.Record("openai", "gpt-4", false, 50)
	}
	rec := tr.Get("openai", "gpt-4")
	require.Equal(t, recentErrorsCeil, rec.RecentErrors)
	require.Equal(t, minSuccessRate, rec.SuccessRate)
}

func TestRecentErrorsFloor(t *testing.T) {
	tr := New()
	for i := 0; i < 20; i++ {
		tr.Record("openai", "gpt-4", true, 50)
	}
	rec := tr.Get("openai", "gpt-4")
	require.Equal(t, 0, rec.RecentErrors)
	require.Equal(t, 1.0, rec.SuccessRate)
}

func TestSuccessRateInvariant(t *testing.T) {
	tr := New()
	tr.Record("openai", "gpt-4", false, 10)
	tr.Record("openai", "gpt-4", false, 10)
	tr.Record("openai", "gpt-4", false, 10)
	rec := tr.Get("openai", "gpt-4")
	expected := 1 - float64(rec.RecentErrors)/10
	if expected < 0.1 {
		expected = 0.1
	}
	require.InDelta(t, expected, rec.SuccessRate, 1e-9)
}

func TestAvgLatencyEMA(t *testing.T) {
	tr := New()
	tr.Record("openai", "gpt-4", true, 100)
	rec := tr.Get("openai", "gpt-4")
	require.InDelta(t, 10.0, rec.AvgLatencyMs, 1e-9)

	tr.Record("openai", "gpt-4", true, 100)
	rec = tr.Get("openai", "gpt-4")
	require.InDelta(t, 19.0, rec.AvgLatencyMs, 1e-9)
}

func TestRecordMonotonicityInvariant(t *testing.T) {
	tr := New()
	tr.Record("p", "m", true, 10)
	tr.Record("p", "m", true, 10)
	after2Success := tr.Get("p", "m").RecentErrors

	tr.Record("p", "m", false, 10)
	afterFailure := tr.Get("p", "m").RecentErrors

	require.LessOrEqual(t, after2Success, 0)
	require.Greater(t, afterFailure, after2Success)
}

func TestConcurrentRecordIsRaceFree(t *testing.T) {
	tr := New()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tr.Record("p", "m", i%2 == 0, float64(i))
		}(i)
	}
	wg.Wait()
	rec := tr.Get("p", "m")
	require.Equal(t, uint64(100), rec.TotalRequests)
}

func TestDistinctKeysAreIndependent(t *testing.T) {
	tr := New()
	tr.Record("openai", "gpt-4", false, 10)
	other := tr.Get("anthropic", "claude-3")
	require.Equal(t, 1.0, other.SuccessRate)
}
