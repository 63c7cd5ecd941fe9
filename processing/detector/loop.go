package processing

import (
	"context"
	"image"
	"log/slog"
	"sync"
	"time"

	"lambear/internal/models"
	"lambear/processing/classifier"
	"lambear/processing/overlay"
)

// Threshold is the exclusive lower bound on the top probability for an
// overlay to be shown.
const Threshold float32 = 0.9

const readinessPoll = 300 * time.Millisecond

// Video is the frame source the loop classifies.
type Video interface {
	Latest() (image.Image, bool)
	Ready() bool
}

// Decide picks the top prediction and reports whether its overlay is shown.
func Decide(predictions []models.Prediction) (string, bool) {
	best, ok := classifier.Best(predictions)
	if !ok || best.Probability <= Threshold {
		return "", false
	}

	return best.ClassName, true
}

type Loop struct {
	classifier classifier.Classifier
	video      Video
	state      *overlay.State
	sched      Scheduler
	log        *slog.Logger

	mu         sync.RWMutex
	latency    time.Duration
	fps        uint
	frameCount uint
	lastUpdate time.Time
}

func NewLoop(c classifier.Classifier, v Video, state *overlay.State, sched Scheduler, log *slog.Logger) *Loop {
	return &Loop{
		classifier: c,
		video:      v,
		state:      state,
		sched:      sched,
		log:        log,
		lastUpdate: time.Now(),
	}
}

// Run waits for the video to have data, then classifies once per scheduler
// tick until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.waitReady(ctx); err != nil {
		return err
	}

	l.log.Info("poll loop started")

	for {
		if err := l.Tick(ctx); err != nil {
			return err
		}

		if err := l.sched.Wait(ctx); err != nil {
			return err
		}
	}
}

func (l *Loop) waitReady(ctx context.Context) error {
	if l.video.Ready() {
		return nil
	}

	ticker := time.NewTicker(readinessPoll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if l.video.Ready() {
				return nil
			}
		}
	}
}

// Tick runs a single classify-and-decide step. It only fails when ctx is
// done; classification errors are logged and leave the overlay untouched.
func (l *Loop) Tick(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	frame, ok := l.video.Latest()
	if !ok {
		return nil
	}

	start := time.Now()

	predictions, err := l.classifier.Predict(ctx, frame)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		l.log.Warn("prediction failed", "err", err)
		return nil
	}

	l.record(time.Since(start))

	// teardown may land while the result is in flight
	if err := ctx.Err(); err != nil {
		return err
	}

	if label, show := Decide(predictions); show {
		l.state.Show(label)
	} else {
		l.state.Clear()
	}

	return nil
}

func (l *Loop) record(latency time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.latency = latency
	l.frameCount++

	if time.Since(l.lastUpdate) >= time.Second {
		l.fps = l.frameCount
		l.frameCount = 0
		l.lastUpdate = time.Now()
	}
}

// Stats reports the last classification latency and classifications per second.
func (l *Loop) Stats() (time.Duration, uint) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.latency, l.fps
}
