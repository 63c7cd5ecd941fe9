package processing

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"lambear/processing/capture"
	"lambear/processing/classifier"
	"lambear/processing/overlay"
)

const (
	ModelLoadError = "Could not load the model. Check the model path and files."
	CameraError    = "Could not access the camera. Check the device permissions."
)

// StreamOpener builds the video source for a session.
type StreamOpener func() (capture.VideoStreamer, error)

type SessionOptions struct {
	Loader       classifier.Loader
	OpenStream   StreamOpener
	State        *overlay.State
	NewScheduler func() Scheduler
	Logger       *slog.Logger

	// OnError receives user-visible failure messages.
	OnError func(msg string)
	// OnStream is called once the camera is delivering to the feed.
	OnStream func(feed *capture.Feed)

	DisplayBuffer int
}

// Session owns everything one camera screen mount needs: the classifier,
// the camera feed and the poll loop. Stop releases all of it.
type Session struct {
	opts SessionOptions
	log  *slog.Logger

	mu         sync.Mutex
	cancel     context.CancelFunc
	feed       *capture.Feed
	classifier classifier.Classifier
	loop       *Loop

	wg       sync.WaitGroup
	stopOnce sync.Once
}

func NewSession(opts SessionOptions) *Session {
	if opts.DisplayBuffer <= 0 {
		opts.DisplayBuffer = 1
	}
	if opts.NewScheduler == nil {
		opts.NewScheduler = func() Scheduler { return NewTickerScheduler(60) }
	}
	if opts.OnError == nil {
		opts.OnError = func(string) {}
	}
	if opts.OnStream == nil {
		opts.OnStream = func(*capture.Feed) {}
	}

	return &Session{opts: opts, log: opts.Logger}
}

// Start kicks off classifier load and camera acquisition concurrently. The
// poll loop starts once both have succeeded.
func (s *Session) Start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)

	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	loaded := make(chan classifier.Classifier, 1)
	streaming := make(chan *capture.Feed, 1)

	s.wg.Add(3)
	go s.loadClassifier(ctx, loaded)
	go s.acquireCamera(ctx, streaming)
	go s.run(ctx, loaded, streaming)
}

func (s *Session) loadClassifier(ctx context.Context, loaded chan<- classifier.Classifier) {
	defer s.wg.Done()

	s.log.Info("loading model")
	start := time.Now()

	c, err := s.opts.Loader(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.log.Error("failed to load model", "err", err)
			s.opts.OnError(ModelLoadError)
		}
		return
	}

	s.mu.Lock()
	s.classifier = c
	s.mu.Unlock()

	s.log.Info("model loaded", "took", time.Since(start))
	loaded <- c
}

func (s *Session) acquireCamera(ctx context.Context, streaming chan<- *capture.Feed) {
	defer s.wg.Done()

	streamer, err := s.opts.OpenStream()
	if err != nil {
		s.cameraFailed(ctx, err)
		return
	}

	feed := capture.NewFeed(streamer, s.opts.DisplayBuffer)

	s.mu.Lock()
	s.feed = feed
	s.mu.Unlock()

	if err := feed.Start(); err != nil {
		s.cameraFailed(ctx, err)
		return
	}

	if ctx.Err() != nil {
		return
	}

	s.opts.OnStream(feed)
	streaming <- feed
}

func (s *Session) cameraFailed(ctx context.Context, err error) {
	if ctx.Err() != nil {
		return
	}

	s.log.Error("failed to access camera", "err", err)
	s.opts.OnError(CameraError)
}

func (s *Session) run(ctx context.Context, loaded <-chan classifier.Classifier, streaming <-chan *capture.Feed) {
	defer s.wg.Done()

	var c classifier.Classifier
	select {
	case c = <-loaded:
	case <-ctx.Done():
		return
	}

	var feed *capture.Feed
	select {
	case feed = <-streaming:
	case <-ctx.Done():
		return
	}

	sched := s.opts.NewScheduler()
	if ts, ok := sched.(*TickerScheduler); ok {
		defer ts.Stop()
	}

	loop := NewLoop(c, feed, s.opts.State, sched, s.log)

	s.mu.Lock()
	s.loop = loop
	s.mu.Unlock()

	if err := loop.Run(ctx); err != nil && ctx.Err() == nil {
		s.log.Error("poll loop stopped", "err", err)
	}
}

// Stats reports the poll loop's latency and rate, zero before it starts.
func (s *Session) Stats() (time.Duration, uint) {
	s.mu.Lock()
	loop := s.loop
	s.mu.Unlock()

	if loop == nil {
		return 0, 0
	}

	return loop.Stats()
}

// Stop cancels the loop and any in-flight classification, then releases the
// camera and the classifier connection. It blocks until all session
// goroutines have exited.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		cancel := s.cancel
		s.mu.Unlock()

		if cancel == nil {
			return
		}

		cancel()
		s.wg.Wait()

		s.mu.Lock()
		defer s.mu.Unlock()

		if s.feed != nil {
			s.feed.Stop()
		}

		if s.classifier != nil {
			if err := s.classifier.Close(); err != nil {
				s.log.Warn("close classifier", "err", err)
			}
		}

		s.log.Info("camera session stopped")
	})
}
