package capture

import (
	"errors"
	"image"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"lambear/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectCamera(t *testing.T) {
	devices := []Device{
		{ID: "/dev/video0", Name: "Integrated Webcam"},
		{ID: "/dev/video2", Name: "USB Rear Camera"},
		{ID: "/dev/video4", Name: "Capture Card"},
	}

	tests := []struct {
		name     string
		deviceID string
		facing   config.Facing
		want     string
	}{
		{"configured id wins", "/dev/video4", config.FacingEnvironment, "/dev/video4"},
		{"configured name matches", "Capture Card", config.FacingUser, "/dev/video4"},
		{"environment hint", "", config.FacingEnvironment, "/dev/video2"},
		{"user hint", "", config.FacingUser, "/dev/video0"},
		{"missing id falls back to facing", "/dev/video9", config.FacingEnvironment, "/dev/video2"},
		{"unknown facing takes first", "", config.Facing("sideways"), "/dev/video0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SelectCamera(devices, tt.deviceID, tt.facing)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.ID)
		})
	}
}

func TestSelectCameraNone(t *testing.T) {
	_, err := SelectCamera(nil, "", config.FacingEnvironment)
	assert.ErrorIs(t, err, ErrNoCamera)
}

func TestParseDshowDevices(t *testing.T) {
	out := `[dshow @ 0000] "HD Webcam" (video)
[dshow @ 0000]   Alternative name "@device_pnp"
[dshow @ 0000] "Microphone" (audio)
[dshow @ 0000] "HD Webcam" (video)
[dshow @ 0000] "Rear Cam" (video)`

	got := parseDshowDevices(out)
	assert.Equal(t, []Device{
		{ID: "HD Webcam", Name: "HD Webcam"},
		{ID: "Rear Cam", Name: "Rear Cam"},
	}, got)
}

func TestParseAVFoundationDevices(t *testing.T) {
	out := `[AVFoundation indev @ 0x1] AVFoundation video devices:
[AVFoundation indev @ 0x1] [0] FaceTime HD Camera
[AVFoundation indev @ 0x1] [1] Capture screen 0
[AVFoundation indev @ 0x1] [2] Back Camera
[AVFoundation indev @ 0x1] AVFoundation audio devices:
[AVFoundation indev @ 0x1] [0] MacBook Microphone`

	got := parseAVFoundationDevices(out)
	assert.Equal(t, []Device{
		{ID: "0", Name: "FaceTime HD Camera"},
		{ID: "2", Name: "Back Camera"},
	}, got)
}

func TestListV4L2Devices(t *testing.T) {
	devDir := t.TempDir()
	sysDir := t.TempDir()

	for _, n := range []string{"video1", "video0"} {
		require.NoError(t, os.WriteFile(filepath.Join(devDir, n), nil, 0644))
	}
	require.NoError(t, os.MkdirAll(filepath.Join(sysDir, "video1"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(sysDir, "video1", "name"), []byte("Rear Camera\n"), 0644))

	got, err := listV4L2Devices(devDir, sysDir)
	require.NoError(t, err)
	assert.Equal(t, []Device{
		{ID: filepath.Join(devDir, "video0"), Name: "video0"},
		{ID: filepath.Join(devDir, "video1"), Name: "Rear Camera"},
	}, got)
}

func TestParseProbe(t *testing.T) {
	w, h, err := parseProbe([]byte(`{"streams":[{"width":1280,"height":720}]}`))
	require.NoError(t, err)
	assert.Equal(t, uint16(1280), w)
	assert.Equal(t, uint16(720), h)

	_, _, err = parseProbe([]byte(`{"streams":[]}`))
	assert.Error(t, err)
}

func TestNewStreamerNoCamera(t *testing.T) {
	orig := listCameras
	listCameras = func() ([]Device, error) { return nil, nil }
	defer func() { listCameras = orig }()

	_, err := NewStreamer(config.NewDefaultConfig())
	assert.ErrorIs(t, err, ErrNoCamera)
}

type fakeStreamer struct {
	startErr error
	frames   chan image.Image
	errs     chan error

	mu      sync.Mutex
	stopped bool
}

func newFakeStreamer() *fakeStreamer {
	return &fakeStreamer{frames: make(chan image.Image, 4), errs: make(chan error, 1)}
}

func (s *fakeStreamer) Start() error                   { return s.startErr }
func (s *fakeStreamer) FrameChan() <-chan image.Image { return s.frames }
func (s *fakeStreamer) ErrorChan() <-chan error       { return s.errs }

func (s *fakeStreamer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
}

func (s *fakeStreamer) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

func TestFeedBecomesReadyOnFirstFrame(t *testing.T) {
	s := newFakeStreamer()
	f := NewFeed(s, 1)
	require.NoError(t, f.Start())
	defer f.Stop()

	_, ok := f.Latest()
	assert.False(t, ok)
	assert.False(t, f.Ready())

	frame := image.NewRGBA(image.Rect(0, 0, 2, 2))
	s.frames <- frame

	require.Eventually(t, f.Ready, time.Second, 5*time.Millisecond)

	got, ok := f.Latest()
	require.True(t, ok)
	assert.Same(t, frame, got)

	select {
	case d := <-f.Display():
		assert.Same(t, frame, d)
	case <-time.After(time.Second):
		t.Fatal("frame not forwarded to display")
	}
}

func TestFeedStreamError(t *testing.T) {
	s := newFakeStreamer()
	f := NewFeed(s, 1)
	require.NoError(t, f.Start())

	s.errs <- errors.New("device unplugged")

	select {
	case <-f.Done():
	case <-time.After(time.Second):
		t.Fatal("feed did not stop after stream error")
	}
	assert.EqualError(t, f.Err(), "device unplugged")
}

func TestFeedKeepsErrorWhenStreamCloses(t *testing.T) {
	// a failing ffmpeg reader reports the error and then closes both channels
	for i := 0; i < 100; i++ {
		s := newFakeStreamer()
		s.frames <- image.NewRGBA(image.Rect(0, 0, 2, 2))
		s.errs <- errors.New("read error: EOF")
		close(s.errs)
		close(s.frames)

		f := NewFeed(s, 1)
		require.NoError(t, f.Start())

		select {
		case <-f.Done():
		case <-time.After(time.Second):
			t.Fatal("feed did not stop after the stream closed")
		}
		require.EqualError(t, f.Err(), "read error: EOF", "run %d", i)
	}
}

func TestFeedStartErrorAndStop(t *testing.T) {
	s := newFakeStreamer()
	s.startErr = errors.New("permission denied")
	f := NewFeed(s, 1)

	require.Error(t, f.Start())
	assert.False(t, f.Ready())

	f.Stop()
	f.Stop()
	assert.True(t, s.isStopped())
}
