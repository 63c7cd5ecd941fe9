// Package inference talks to the HTTP service that actually runs the model.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"lambear/internal/models"
)

type ModelAdapter struct {
	inferenceURL string
	client       *http.Client
}

func NewModelAdapter(inferenceURL string, client *http.Client) *ModelAdapter {
	if client == nil {
		client = &http.Client{}
	}

	return &ModelAdapter{
		inferenceURL: inferenceURL,
		client:       client,
	}
}

// Predict posts one JPEG frame and returns the class probabilities.
func (m *ModelAdapter) Predict(ctx context.Context, imageData []byte) ([]models.Prediction, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "frame.jpg")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}

	if _, err := io.Copy(part, bytes.NewReader(imageData)); err != nil {
		return nil, fmt.Errorf("copy image data: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.inferenceURL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inference failed with status: %d", resp.StatusCode)
	}

	var result struct {
		Predictions []models.Prediction `json:"predictions"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return result.Predictions, nil
}

// CheckHealth probes the service's /health endpoint next to the predict path.
func (m *ModelAdapter) CheckHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthURL(m.inferenceURL), nil)
	if err != nil {
		return err
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ml service unhealthy: %d", resp.StatusCode)
	}

	return nil
}

func healthURL(predictURL string) string {
	if i := strings.LastIndex(predictURL, "/"); i > len("https://") {
		return predictURL[:i] + "/health"
	}
	return strings.TrimSuffix(predictURL, "/") + "/health"
}
