package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/vettavista/internal/models"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestCache() (*JobCache, *clock) {
	clk := &clock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	return New(nil, WithClock(clk.Now)), clk
}

func TestFilterResultTypeIsolation(t *testing.T) {
	t.Parallel()

	c, clk := newTestCache()
	prelim := models.NewResponse(models.StatusLikelyMatch, models.FilterPreliminary, clk.Now(), "Title matches well")
	require.True(t, c.SetFilterResult("job-1", prelim))

	_, ok := c.FilterResult("job-1", models.FilterDetailed)
	assert.False(t, ok, "preliminary result must not satisfy a detailed lookup")

	got, ok := c.FilterResult("job-1", models.FilterPreliminary)
	require.True(t, ok)
	assert.Equal(t, models.StatusLikelyMatch, got.Status)

	detailed := models.NewResponse(models.StatusConfirmedMatch, models.FilterDetailed, clk.Now())
	require.True(t, c.SetFilterResult("job-1", detailed))

	_, ok = c.FilterResult("job-1", models.FilterPreliminary)
	assert.False(t, ok, "detailed result must not satisfy a preliminary lookup")
}

func TestFilterResultTTL(t *testing.T) {
	t.Parallel()

	c, clk := newTestCache()
	require.True(t, c.SetFilterResult("job-1", models.NewResponse(models.StatusNotLikely, models.FilterPreliminary, clk.Now())))

	clk.Advance(6 * 24 * time.Hour)
	_, ok := c.FilterResult("job-1", models.FilterPreliminary)
	assert.True(t, ok, "result should survive six days")

	clk.Advance(2 * 24 * time.Hour)
	_, ok = c.FilterResult("job-1", models.FilterPreliminary)
	assert.False(t, ok, "result should expire after eight days")

	c.mu.RLock()
	_, stored := c.results["job-1"]
	c.mu.RUnlock()
	assert.False(t, stored, "expired entry should be removed on read")
}

func TestErrorResultsAreNotCached(t *testing.T) {
	t.Parallel()

	c, clk := newTestCache()
	previous := models.NewResponse(models.StatusPossibleMatch, models.FilterDetailed, clk.Now())
	require.True(t, c.SetFilterResult("job-1", previous))

	failed := models.NewResponse(models.StatusError, models.FilterDetailed, clk.Now(), "Error in analysis: boom")
	assert.False(t, c.SetFilterResult("job-1", failed))
	assert.False(t, c.SetFilterResult("job-2", failed))

	got, ok := c.FilterResult("job-1", models.FilterDetailed)
	require.True(t, ok)
	assert.Equal(t, models.StatusPossibleMatch, got.Status)

	_, ok = c.FilterResult("job-2", models.FilterDetailed)
	assert.False(t, ok)
}

func TestValuesAreCopied(t *testing.T) {
	t.Parallel()

	c, clk := newTestCache()
	res := models.NewResponse(models.StatusNotLikely, models.FilterPreliminary, clk.Now(), "a")
	c.SetFilterResult("job-1", res)
	res.Reasons[0] = "mutated"

	got, _ := c.FilterResult("job-1", models.FilterPreliminary)
	assert.Equal(t, []string{"a"}, got.Reasons)

	analysis := &models.JobAnalysis{Skills: models.SkillSet{Categories: map[string][]string{"frameworks": {"React"}}}}
	c.SetAnalysis("job-1", analysis)
	analysis.Skills.Categories["frameworks"][0] = "Vue"

	cached, ok := c.Analysis("job-1")
	require.True(t, ok)
	assert.Equal(t, "React", cached.Skills.Categories["frameworks"][0])
}

func TestAnalysisOrComputeRunsOnce(t *testing.T) {
	t.Parallel()

	c, _ := newTestCache()
	var calls atomic.Int32
	compute := func(context.Context) (*models.JobAnalysis, error) {
		calls.Add(1)
		time.Sleep(10 * time.Millisecond)
		return &models.JobAnalysis{VisaSupport: models.VisaSupported}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a, err := c.AnalysisOrCompute(context.Background(), "job-1", compute)
			assert.NoError(t, err)
			assert.Equal(t, models.VisaSupported, a.VisaSupport)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestAnalysisOrComputeError(t *testing.T) {
	t.Parallel()

	c, _ := newTestCache()
	boom := errors.New("boom")
	_, err := c.AnalysisOrCompute(context.Background(), "job-1", func(context.Context) (*models.JobAnalysis, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)

	_, ok := c.Analysis("job-1")
	assert.False(t, ok)
}

func TestClear(t *testing.T) {
	t.Parallel()

	c, clk := newTestCache()
	c.SetJobInfo(models.JobDetailedInfo{JobInfo: models.JobInfo{JobID: "job-1"}})
	c.SetAnalysis("job-1", &models.JobAnalysis{})
	c.SetResume("job-1", &models.Resume{Website: "example.com"})
	c.SetCoverLetter("job-1", "body")
	c.SetFilterResult("job-1", models.NewResponse(models.StatusNotLikely, models.FilterPreliminary, clk.Now()))

	c.Clear()

	_, ok := c.JobInfo("job-1")
	assert.False(t, ok)
	_, ok = c.Analysis("job-1")
	assert.False(t, ok)
	_, ok = c.Resume("job-1")
	assert.False(t, ok)
	_, ok = c.CoverLetter("job-1")
	assert.False(t, ok)
	_, ok = c.FilterResult("job-1", models.FilterPreliminary)
	assert.False(t, ok)
}
