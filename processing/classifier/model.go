package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
)

const defaultImageSize = 224

// Topology is the subset of model.json the viewer checks before connecting.
type Topology struct {
	Format          string            `json:"format"`
	GeneratedBy     string            `json:"generatedBy"`
	ModelTopology   json.RawMessage   `json:"modelTopology"`
	WeightsManifest []WeightsManifest `json:"weightsManifest"`
}

type WeightsManifest struct {
	Paths   []string `json:"paths"`
	Weights []struct {
		Name  string `json:"name"`
		Shape []int  `json:"shape"`
		Dtype string `json:"dtype"`
	} `json:"weights"`
}

// Metadata is metadata.json as exported by the model training tool.
type Metadata struct {
	ModelName      string   `json:"modelName"`
	Labels         []string `json:"labels"`
	ImageSize      int      `json:"imageSize"`
	TMVersion      string   `json:"tmVersion"`
	PackageName    string   `json:"packageName"`
	PackageVersion string   `json:"packageVersion"`
	TimeStamp      string   `json:"timeStamp"`
}

type Model struct {
	Topology Topology
	Metadata Metadata
}

func (m *Model) Labels() []string {
	out := make([]string, len(m.Metadata.Labels))
	copy(out, m.Metadata.Labels)
	return out
}

func (m *Model) ImageSize() int {
	if m.Metadata.ImageSize <= 0 {
		return defaultImageSize
	}
	return m.Metadata.ImageSize
}

// LoadModel reads the topology and metadata descriptors. Each location is a
// local path or an http(s) URL.
func LoadModel(ctx context.Context, modelURL, metadataURL string) (*Model, error) {
	var m Model

	if err := fetchJSON(ctx, modelURL, &m.Topology); err != nil {
		return nil, fmt.Errorf("load topology: %w", err)
	}

	if err := fetchJSON(ctx, metadataURL, &m.Metadata); err != nil {
		return nil, fmt.Errorf("load metadata: %w", err)
	}

	if err := m.validate(); err != nil {
		return nil, err
	}

	return &m, nil
}

func (m *Model) validate() error {
	if len(m.Topology.ModelTopology) == 0 || string(m.Topology.ModelTopology) == "null" {
		return fmt.Errorf("%w: missing modelTopology", ErrInvalidModel)
	}

	if len(m.Topology.WeightsManifest) == 0 {
		return fmt.Errorf("%w: empty weightsManifest", ErrInvalidModel)
	}

	if len(m.Metadata.Labels) == 0 {
		return fmt.Errorf("%w: no labels", ErrInvalidModel)
	}

	seen := make(map[string]bool, len(m.Metadata.Labels))
	for _, l := range m.Metadata.Labels {
		if l == "" || seen[l] {
			return fmt.Errorf("%w: bad label %q", ErrInvalidModel, l)
		}
		seen[l] = true
	}

	return nil
}

func fetchJSON(ctx context.Context, location string, v any) error {
	rc, err := open(ctx, location)
	if err != nil {
		return err
	}
	defer rc.Close()

	if err := json.NewDecoder(rc).Decode(v); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrInvalidModel, location, err)
	}

	return nil
}

func open(ctx context.Context, location string) (io.ReadCloser, error) {
	if !strings.HasPrefix(location, "http://") && !strings.HasPrefix(location, "https://") {
		return os.Open(location)
	}

	if _, err := url.Parse(location); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", location, err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: status %d", location, resp.StatusCode)
	}

	return resp.Body, nil
}
