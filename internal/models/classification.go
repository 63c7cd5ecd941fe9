package models

// Prediction is one (label, confidence) pair produced by the classifier.
type Prediction struct {
	ClassName   string  `json:"className"`
	Probability float32 `json:"probability"`
}

// ClassificationResult is the full prediction set for a single frame.
type ClassificationResult struct {
	ID          string       `json:"id"`
	Predictions []Prediction `json:"predictions"`
	Error       string       `json:"error,omitempty"`
}

// HandshakeID marks the gateway's reply to a Handshake.
const HandshakeID = "hello"

// Handshake opens a classification session on the gateway.
type Handshake struct {
	ModelName string   `json:"modelName"`
	Labels    []string `json:"labels"`
	ImageSize int      `json:"imageSize"`
}
