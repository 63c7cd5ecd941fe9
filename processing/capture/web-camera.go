package capture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strings"
	"sync"

	"lambear/internal/config"
)

var ErrNoCamera = errors.New("no camera available")

// Device is a capture device as ffmpeg addresses it.
type Device struct {
	ID   string
	Name string
}

type FFmpegWebcamStreamer struct {
	stopOnce sync.Once

	deviceName string
	width      int
	height     int
	targetFPS  uint

	cmd       *exec.Cmd
	frameChan chan image.Image
	errChan   chan error

	stopChan chan struct{}
}

func NewFFmpegWebcam(deviceName string, targetFps uint, scaledWidth int, scaledHeight int) *FFmpegWebcamStreamer {
	return &FFmpegWebcamStreamer{
		deviceName: deviceName,
		width:      scaledWidth,
		height:     scaledHeight,
		targetFPS:  targetFps,

		frameChan: make(chan image.Image),
		errChan:   make(chan error, 1),
		stopChan:  make(chan struct{}),
	}
}

func (ws *FFmpegWebcamStreamer) inputArgs() []string {
	switch runtime.GOOS {
	case "windows":
		return []string{"-f", "dshow", "-i", fmt.Sprintf("video=%s", ws.deviceName)}
	case "darwin":
		return []string{"-f", "avfoundation", "-framerate", fmt.Sprint(ws.targetFPS), "-i", ws.deviceName}
	default:
		return []string{"-f", "v4l2", "-i", ws.deviceName}
	}
}

func (ws *FFmpegWebcamStreamer) Start() error {
	args := append(ws.inputArgs(),
		"-vf", fmt.Sprintf("fps=%d,scale=%d:%d", ws.targetFPS, ws.width, ws.height),
		"-f", "image2pipe",
		"-pix_fmt", "rgba",
		"-vcodec", "rawvideo",
		"-",
	)

	ws.cmd = exec.Command("ffmpeg", args...)

	var stderr bytes.Buffer
	ws.cmd.Stderr = &stderr

	stdout, err := ws.cmd.StdoutPipe()
	if err != nil {
		return err
	}

	if err := ws.cmd.Start(); err != nil {
		return fmt.Errorf("ffmpeg start error: %w. Details: %s", err, stderr.String())
	}

	go ws.readLoop(stdout)

	return nil
}

func (ws *FFmpegWebcamStreamer) readLoop(stdout io.ReadCloser) {
	defer close(ws.frameChan)
	defer close(ws.errChan)
	defer stdout.Close()
	defer ws.stopCmdOut()

	frameSize := ws.width * ws.height * 4
	buffer := make([]byte, frameSize)

	for {
		select {
		case <-ws.stopChan:
			return

		default:
			_, err := io.ReadFull(stdout, buffer)
			if err != nil {
				select {
				case <-ws.stopChan:
					return
				default:
					ws.errChan <- fmt.Errorf("read error: %w", err)
					return
				}
			}

			pixelData := make([]byte, len(buffer))
			copy(pixelData, buffer)

			img := &image.RGBA{
				Pix:    pixelData,
				Stride: ws.width * 4,
				Rect:   image.Rect(0, 0, ws.width, ws.height),
			}

			select {
			case ws.frameChan <- img:
			default:
			}
		}
	}
}

func (ws *FFmpegWebcamStreamer) stopCmdOut() {
	if ws.cmd != nil && ws.cmd.Process != nil {
		ws.cmd.Process.Kill()
		ws.cmd.Wait()
	}
}

func (ws *FFmpegWebcamStreamer) Stop() {
	ws.stopOnce.Do(func() {
		close(ws.stopChan)
		ws.stopCmdOut()
	})
}

func (ws *FFmpegWebcamStreamer) FrameChan() <-chan image.Image { return ws.frameChan }
func (ws *FFmpegWebcamStreamer) ErrorChan() <-chan error       { return ws.errChan }

var facingHints = map[config.Facing][]string{
	config.FacingEnvironment: {"back", "rear", "environment", "world"},
	config.FacingUser:        {"front", "user", "face", "integrated"},
}

// SelectCamera picks the configured device when it is present, otherwise the
// first device whose name hints at the requested facing, otherwise the first device.
func SelectCamera(devices []Device, deviceID string, facing config.Facing) (Device, error) {
	if len(devices) == 0 {
		return Device{}, ErrNoCamera
	}

	if deviceID != "" {
		for _, d := range devices {
			if d.ID == deviceID || d.Name == deviceID {
				return d, nil
			}
		}
	}

	for _, hint := range facingHints[facing] {
		for _, d := range devices {
			if strings.Contains(strings.ToLower(d.Name), hint) {
				return d, nil
			}
		}
	}

	return devices[0], nil
}

var (
	dshowDeviceRe = regexp.MustCompile(`"([^"]+)"\s+\(video\)`)
	avfDeviceRe   = regexp.MustCompile(`\]\s+\[(\d+)\]\s+(.+)$`)
)

func ListCameras() ([]Device, error) {
	switch runtime.GOOS {
	case "windows":
		return parseDshowDevices(listDevicesOutput("-list_devices", "true", "-f", "dshow", "-i", "dummy")), nil
	case "darwin":
		return parseAVFoundationDevices(listDevicesOutput("-f", "avfoundation", "-list_devices", "true", "-i", "")), nil
	default:
		return listV4L2Devices("/dev", "/sys/class/video4linux")
	}
}

// ffmpeg prints the device list to stderr and exits non-zero.
func listDevicesOutput(args ...string) string {
	cmd := exec.Command("ffmpeg", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.Run()

	return stderr.String()
}

func parseDshowDevices(output string) []Device {
	var cameras []Device

	seen := make(map[string]bool)
	for _, m := range dshowDeviceRe.FindAllStringSubmatch(output, -1) {
		name := m[1]
		if name != "dummy" && !seen[name] {
			cameras = append(cameras, Device{ID: name, Name: name})
			seen[name] = true
		}
	}

	return cameras
}

func parseAVFoundationDevices(output string) []Device {
	var cameras []Device

	for _, line := range strings.Split(output, "\n") {
		if strings.Contains(line, "audio devices") {
			break
		}

		m := avfDeviceRe.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}

		name := strings.TrimSpace(m[2])
		if strings.HasPrefix(name, "Capture screen") {
			continue
		}

		cameras = append(cameras, Device{ID: m[1], Name: name})
	}

	return cameras
}

func listV4L2Devices(devDir, sysDir string) ([]Device, error) {
	nodes, err := filepath.Glob(filepath.Join(devDir, "video*"))
	if err != nil {
		return nil, err
	}

	sort.Strings(nodes)

	cameras := make([]Device, 0, len(nodes))
	for _, node := range nodes {
		base := filepath.Base(node)
		name := base

		if raw, err := os.ReadFile(filepath.Join(sysDir, base, "name")); err == nil {
			name = strings.TrimSpace(string(raw))
		}

		cameras = append(cameras, Device{ID: node, Name: name})
	}

	return cameras, nil
}
