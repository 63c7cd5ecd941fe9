package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

type SourceType string

type Facing string

const (
	SourceLocal  SourceType = "Local"
	SourceWebcam SourceType = "Web-Camera"

	FacingEnvironment Facing = "environment"
	FacingUser        Facing = "user"

	DefaultConfigPath  string = "config.json"
	DefaultModelURL    string = "model/model.json"
	DefaultMetadataURL string = "model/metadata.json"
	DefaultGatewayURL  string = "ws://localhost:8080/ws"
)

type LocalConfig struct {
	Path string `json:"path"`
}

type WebcamConfig struct {
	DeviceID string `json:"device_id"`
	Facing   Facing `json:"facing"`
}

type ClassifierConfig struct {
	ModelURL    string `json:"model_url"`
	MetadataURL string `json:"metadata_url"`
	GatewayURL  string `json:"gateway_url"`
}

type Config struct {
	mu sync.RWMutex

	ActiveSource SourceType `json:"active_source"`
	TargetFPS    uint       `json:"target_fps"`
	DisplayFPS   uint       `json:"display_fps"`
	ScaledWidth  int        `json:"scaled_width"`
	ScaledHeight int        `json:"scaled_height"`
	LogLevel     string     `json:"log_level"`

	Local      LocalConfig      `json:"local"`
	Webcam     WebcamConfig     `json:"webcam"`
	Classifier ClassifierConfig `json:"classifier"`
}

func (c *Config) GetFPS() uint {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.TargetFPS
}

func (c *Config) SetFPS(fps uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.TargetFPS = fps
}

func (c *Config) GetDisplayFPS() uint {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.DisplayFPS
}

func (c *Config) GetWidth() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ScaledWidth
}

func (c *Config) GetHeight() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ScaledHeight
}

func (c *Config) GetSource() SourceType {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ActiveSource
}

func (c *Config) GetWebcam() WebcamConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Webcam
}

func (c *Config) GetLocal() LocalConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Local
}

func (c *Config) GetClassifier() ClassifierConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Classifier
}

func (c *Config) Save(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}

	defer f.Close()

	c.mu.RLock()
	defer c.mu.RUnlock()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")

	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	return nil
}

func (c *Config) SaveByDefault() error {
	return c.Save(DefaultConfigPath)
}

// LoadConfigFile reads path over the defaults. A missing file is not an error;
// an unreadable or malformed one is, and the defaults are returned alongside it.
func LoadConfigFile(path string) (*Config, error) {
	cfg := NewDefaultConfig()

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(cfg); err != nil {
		return NewDefaultConfig(), fmt.Errorf("decode config %s: %w", path, err)
	}

	cfg.fillDefaults()

	return cfg, nil
}

func (c *Config) fillDefaults() {
	def := NewDefaultConfig()

	if c.ActiveSource == "" {
		c.ActiveSource = def.ActiveSource
	}
	if c.TargetFPS == 0 {
		c.TargetFPS = def.TargetFPS
	}
	if c.DisplayFPS == 0 {
		c.DisplayFPS = def.DisplayFPS
	}
	if c.ScaledWidth <= 0 {
		c.ScaledWidth = def.ScaledWidth
	}
	if c.ScaledHeight <= 0 {
		c.ScaledHeight = def.ScaledHeight
	}
	if c.Webcam.Facing == "" {
		c.Webcam.Facing = def.Webcam.Facing
	}
	if c.Classifier.ModelURL == "" {
		c.Classifier.ModelURL = def.Classifier.ModelURL
	}
	if c.Classifier.MetadataURL == "" {
		c.Classifier.MetadataURL = def.Classifier.MetadataURL
	}
	if c.Classifier.GatewayURL == "" {
		c.Classifier.GatewayURL = def.Classifier.GatewayURL
	}
}

func NewDefaultConfig() *Config {
	return &Config{
		ActiveSource: SourceWebcam,
		Local:        LocalConfig{Path: ""},
		Webcam:       WebcamConfig{Facing: FacingEnvironment},
		Classifier: ClassifierConfig{
			ModelURL:    DefaultModelURL,
			MetadataURL: DefaultMetadataURL,
			GatewayURL:  DefaultGatewayURL,
		},
		TargetFPS:    24,
		DisplayFPS:   60,
		ScaledWidth:  640,
		ScaledHeight: 480,
		LogLevel:     "info",
	}
}
