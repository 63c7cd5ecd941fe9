package capture

import (
	"fmt"

	config "lambear/internal/config"
)

var listCameras = ListCameras

func NewStreamer(t *config.Config) (VideoStreamer, error) {
	switch t.GetSource() {
	case config.SourceWebcam:
		wc := t.GetWebcam()

		devices, err := listCameras()
		if err != nil {
			return nil, fmt.Errorf("list cameras: %w", err)
		}

		dev, err := SelectCamera(devices, wc.DeviceID, wc.Facing)
		if err != nil {
			return nil, err
		}

		return NewFFmpegWebcam(dev.ID, t.GetFPS(), t.GetWidth(), t.GetHeight()), nil
	case config.SourceLocal:
		return NewLocalStreamer(t.GetLocal().Path, t.GetFPS(), t.GetWidth(), t.GetHeight())
	default:
		return nil, fmt.Errorf("unknown source: %s", t.GetSource())
	}
}
