package processing

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"lambear/internal/logging"
	"lambear/internal/models"
	"lambear/processing/overlay"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClassifier struct {
	mu      sync.Mutex
	results [][]models.Prediction
	errs    []error
	calls   int
	block   bool
	closed  bool

	// answered runs once the result is ready, before it is returned.
	answered func()
}

func (c *fakeClassifier) Predict(ctx context.Context, _ image.Image) ([]models.Prediction, error) {
	c.mu.Lock()
	i := c.calls
	c.calls++
	block := c.block
	answered := c.answered
	c.mu.Unlock()

	if answered != nil {
		defer answered()
	}

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	if i < len(c.errs) && c.errs[i] != nil {
		return nil, c.errs[i]
	}
	if len(c.results) == 0 {
		return nil, nil
	}
	if i >= len(c.results) {
		i = len(c.results) - 1
	}
	return c.results[i], nil
}

func (c *fakeClassifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeClassifier) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func (c *fakeClassifier) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type fakeVideo struct {
	mu    sync.Mutex
	frame image.Image
}

func (v *fakeVideo) Latest() (image.Image, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.frame, v.frame != nil
}

func (v *fakeVideo) Ready() bool {
	_, ok := v.Latest()
	return ok
}

func (v *fakeVideo) set(frame image.Image) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.frame = frame
}

type stepScheduler struct {
	steps chan struct{}
}

func (s *stepScheduler) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.steps:
		return nil
	}
}

func preds(pairs ...any) []models.Prediction {
	var out []models.Prediction
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, models.Prediction{
			ClassName:   pairs[i].(string),
			Probability: float32(pairs[i+1].(float64)),
		})
	}
	return out
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name      string
		in        []models.Prediction
		wantLabel string
		wantShow  bool
	}{
		{"confident top class", preds("Lambe1", 0.95, "Lambe2", 0.40), "Lambe1", true},
		{"nothing above threshold", preds("Lambe1", 0.85, "Lambe2", 0.80), "", false},
		{"boundary is exclusive", preds("Lambe1", 0.9, "Lambe2", 0.1), "", false},
		{"top class not first", preds("Lambe1", 0.02, "Lambe3", 0.97, "Lambe4", 0.01), "Lambe3", true},
		{"empty set", nil, "", false},
		{"tie above threshold keeps first", preds("Lambe2", 0.95, "Lambe4", 0.95), "Lambe2", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label, show := Decide(tt.in)
			assert.Equal(t, tt.wantShow, show)
			assert.Equal(t, tt.wantLabel, label)
		})
	}
}

func newTestLoop(c *fakeClassifier, v *fakeVideo, sched Scheduler) (*Loop, *overlay.State) {
	state := overlay.NewState(nil)
	return NewLoop(c, v, state, sched, logging.Discard()), state
}

func TestTickVideoNotReady(t *testing.T) {
	c := &fakeClassifier{results: [][]models.Prediction{preds("Lambe1", 0.99)}}
	v := &fakeVideo{}
	loop, state := newTestLoop(c, v, nil)

	state.Show("Lambe4")
	require.NoError(t, loop.Tick(context.Background()))

	assert.Zero(t, c.callCount())
	label, shown := state.Current()
	assert.True(t, shown)
	assert.Equal(t, "Lambe4", label)
}

func TestTickNoHysteresis(t *testing.T) {
	c := &fakeClassifier{results: [][]models.Prediction{
		preds("Lambe1", 0.95, "Lambe2", 0.40),
		preds("Lambe1", 0.85, "Lambe2", 0.80),
		preds("Lambe2", 0.91),
	}}
	v := &fakeVideo{frame: image.NewRGBA(image.Rect(0, 0, 2, 2))}
	loop, state := newTestLoop(c, v, nil)
	ctx := context.Background()

	require.NoError(t, loop.Tick(ctx))
	label, shown := state.Current()
	assert.True(t, shown)
	assert.Equal(t, "Lambe1", label)

	require.NoError(t, loop.Tick(ctx))
	_, shown = state.Current()
	assert.False(t, shown)

	require.NoError(t, loop.Tick(ctx))
	label, shown = state.Current()
	assert.True(t, shown)
	assert.Equal(t, "Lambe2", label)
}

func TestTickSwallowsPredictionErrors(t *testing.T) {
	c := &fakeClassifier{
		results: [][]models.Prediction{preds("Lambe3", 0.99)},
		errs:    []error{nil, errors.New("gateway down"), errors.New("gateway down")},
	}
	v := &fakeVideo{frame: image.NewRGBA(image.Rect(0, 0, 2, 2))}
	loop, state := newTestLoop(c, v, nil)
	ctx := context.Background()

	require.NoError(t, loop.Tick(ctx))
	require.NoError(t, loop.Tick(ctx))
	require.NoError(t, loop.Tick(ctx))

	label, shown := state.Current()
	assert.True(t, shown, "a failed step leaves the overlay as it was")
	assert.Equal(t, "Lambe3", label)
	assert.Equal(t, 3, c.callCount())

	require.NoError(t, loop.Tick(ctx))
	assert.Equal(t, 4, c.callCount())
}

func TestTickIgnoresResultAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := &fakeClassifier{
		results:  [][]models.Prediction{preds("Lambe1", 0.95)},
		answered: cancel,
	}
	v := &fakeVideo{frame: image.NewRGBA(image.Rect(0, 0, 2, 2))}

	changes := 0
	state := overlay.NewState(func(string, bool) { changes++ })
	loop := NewLoop(c, v, state, nil, logging.Discard())

	assert.ErrorIs(t, loop.Tick(ctx), context.Canceled)
	assert.Zero(t, changes)
	_, shown := state.Current()
	assert.False(t, shown)
}

func TestRunWaitsForVideoAndStepsPerTick(t *testing.T) {
	c := &fakeClassifier{results: [][]models.Prediction{preds("Lambe1", 0.95)}}
	v := &fakeVideo{}
	sched := &stepScheduler{steps: make(chan struct{})}
	loop, state := newTestLoop(c, v, sched)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, c.callCount(), "no classification before the video has data")

	v.set(image.NewRGBA(image.Rect(0, 0, 2, 2)))
	require.Eventually(t, func() bool { return c.callCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	sched.steps <- struct{}{}
	require.Eventually(t, func() bool { return c.callCount() == 2 }, time.Second, 5*time.Millisecond)

	label, shown := state.Current()
	assert.True(t, shown)
	assert.Equal(t, "Lambe1", label)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}
}

func TestRunCancelsInFlightPrediction(t *testing.T) {
	c := &fakeClassifier{block: true}
	v := &fakeVideo{frame: image.NewRGBA(image.Rect(0, 0, 2, 2))}
	loop, _ := newTestLoop(c, v, &stepScheduler{steps: make(chan struct{})})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	require.Eventually(t, func() bool { return c.callCount() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("in-flight prediction was not cancelled")
	}
}
