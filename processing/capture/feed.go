package capture

import (
	"image"
	"sync"
)

// Feed pumps a VideoStreamer and keeps the most recent frame. It is ready
// once the first frame has arrived.
type Feed struct {
	streamer VideoStreamer

	mu     sync.RWMutex
	latest image.Image
	err    error

	ready     chan struct{}
	readyOnce sync.Once

	display  chan image.Image
	done     chan struct{}
	stopChan chan struct{}
	stopOnce sync.Once
}

func NewFeed(s VideoStreamer, displayBuffer int) *Feed {
	return &Feed{
		streamer: s,
		ready:    make(chan struct{}),
		display:  make(chan image.Image, displayBuffer),
		done:     make(chan struct{}),
		stopChan: make(chan struct{}),
	}
}

func (f *Feed) Start() error {
	if err := f.streamer.Start(); err != nil {
		close(f.done)
		return err
	}

	go f.pump()

	return nil
}

func (f *Feed) pump() {
	defer close(f.done)

	frames := f.streamer.FrameChan()
	errs := f.streamer.ErrorChan()

	for {
		select {
		case frame, ok := <-frames:
			if !ok {
				f.drainError(errs)
				return
			}
			if frame == nil {
				continue
			}

			f.mu.Lock()
			f.latest = frame
			f.mu.Unlock()

			f.readyOnce.Do(func() { close(f.ready) })

			select {
			case f.display <- frame:
			default:
			}

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}

			f.mu.Lock()
			f.err = err
			f.mu.Unlock()
			return

		case <-f.stopChan:
			return
		}
	}
}

// drainError keeps a failure the streamer reported just before closing
// its frame channel.
func (f *Feed) drainError(errs <-chan error) {
	if errs == nil {
		return
	}

	select {
	case err, ok := <-errs:
		if ok && err != nil {
			f.mu.Lock()
			f.err = err
			f.mu.Unlock()
		}
	default:
	}
}

// Latest returns the newest frame, or false while the feed has no data yet.
func (f *Feed) Latest() (image.Image, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.latest, f.latest != nil
}

func (f *Feed) Ready() bool {
	select {
	case <-f.ready:
		return true
	default:
		return false
	}
}

func (f *Feed) Display() <-chan image.Image { return f.display }

// Done is closed when the pump exits: the stream ended, failed or was stopped.
func (f *Feed) Done() <-chan struct{} { return f.done }

func (f *Feed) Err() error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.err
}

// Stop halts the pump and releases the device.
func (f *Feed) Stop() {
	f.stopOnce.Do(func() {
		close(f.stopChan)
		f.streamer.Stop()
	})
}
