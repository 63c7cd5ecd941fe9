// Package classifier loads the image classification model and runs predictions
// against a remote classification gateway.
package classifier

import (
	"context"
	"errors"
	"image"

	"lambear/internal/models"
)

var (
	ErrClosed       = errors.New("classifier closed")
	ErrInvalidModel = errors.New("invalid model")
)

type Classifier interface {
	Predict(ctx context.Context, frame image.Image) ([]models.Prediction, error)
	Close() error
}

// Loader produces a ready Classifier. It runs once per camera session.
type Loader func(ctx context.Context) (Classifier, error)

// Best returns the prediction with the highest probability. Ties keep the
// first maximal entry in input order. It reports false for an empty set.
func Best(predictions []models.Prediction) (models.Prediction, bool) {
	if len(predictions) == 0 {
		return models.Prediction{}, false
	}

	best := predictions[0]
	for _, p := range predictions[1:] {
		if p.Probability > best.Probability {
			best = p
		}
	}

	return best, true
}
