package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFileMissing(t *testing.T) {
	cfg, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, SourceWebcam, cfg.GetSource())
	assert.Equal(t, FacingEnvironment, cfg.GetWebcam().Facing)
	assert.Equal(t, DefaultModelURL, cfg.GetClassifier().ModelURL)
	assert.Equal(t, DefaultMetadataURL, cfg.GetClassifier().MetadataURL)
}

func TestLoadConfigFilePartial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{"target_fps": 12, "webcam": {"device_id": "/dev/video2"}}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, uint(12), cfg.GetFPS())
	assert.Equal(t, uint(60), cfg.GetDisplayFPS())
	assert.Equal(t, "/dev/video2", cfg.GetWebcam().DeviceID)
	assert.Equal(t, FacingEnvironment, cfg.GetWebcam().Facing)
	assert.Equal(t, DefaultGatewayURL, cfg.GetClassifier().GatewayURL)
}

func TestLoadConfigFileMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0644))

	cfg, err := LoadConfigFile(path)
	require.Error(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, uint(24), cfg.GetFPS())
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := NewDefaultConfig()
	cfg.SetFPS(15)
	require.NoError(t, cfg.Save(path))

	// a shorter second write must not leave trailing bytes behind
	cfg.SetFPS(5)
	require.NoError(t, cfg.Save(path))

	loaded, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, uint(5), loaded.GetFPS())
}

func TestLoadGateway(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("INFERENCE_URL", "http://ml:5000/predict")
	t.Setenv("REQUEST_TIMEOUT_MS", "bogus")

	cfg := LoadGateway()
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "./model", cfg.ModelDir)
	assert.Equal(t, "http://ml:5000/predict", cfg.InferenceURL)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
}
