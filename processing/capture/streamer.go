package capture

import (
	"image"
)

// VideoStreamer produces RGBA frames until stopped. Stop releases the
// underlying device or process and is safe to call more than once.
type VideoStreamer interface {
	Start() error
	Stop()
	FrameChan() <-chan image.Image
	ErrorChan() <-chan error
}
