package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"sync"
	"time"

	"lambear/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/image/draw"
)

const jpegQuality = 85

// Remote classifies frames through the gateway websocket. Calls are
// serialized: there is never more than one request in flight.
type Remote struct {
	serverURL string
	model     *Model
	log       *slog.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

func NewRemote(serverURL string, model *Model, log *slog.Logger) *Remote {
	return &Remote{
		serverURL: serverURL,
		model:     model,
		log:       log,
	}
}

// NewLoader reads the model descriptors and connects to the gateway.
func NewLoader(modelURL, metadataURL, serverURL string, log *slog.Logger) Loader {
	return func(ctx context.Context) (Classifier, error) {
		model, err := LoadModel(ctx, modelURL, metadataURL)
		if err != nil {
			return nil, err
		}

		r := NewRemote(serverURL, model, log)
		if err := r.Connect(ctx); err != nil {
			return nil, err
		}

		return r, nil
	}
}

func (r *Remote) Connect(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}

	return r.dial(ctx)
}

func (r *Remote) dial(ctx context.Context) error {
	r.log.Debug("connecting to classification gateway", "url", r.serverURL)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, r.serverURL, nil)
	if err != nil {
		return fmt.Errorf("dial gateway: %w", err)
	}

	hello := models.Handshake{
		ModelName: r.model.Metadata.ModelName,
		Labels:    r.model.Labels(),
		ImageSize: r.model.ImageSize(),
	}

	stop := abortOnDone(ctx, conn)

	if err := conn.WriteJSON(hello); err != nil {
		stop()
		conn.Close()
		return fmt.Errorf("send handshake: %w", err)
	}

	var ack models.ClassificationResult
	err = conn.ReadJSON(&ack)
	if !stop() && err == nil {
		err = ctx.Err()
	}
	if err != nil {
		conn.Close()
		return fmt.Errorf("read handshake: %w", err)
	}

	if ack.ID != models.HandshakeID || ack.Error != "" {
		conn.Close()
		return fmt.Errorf("gateway rejected model %q: %s", hello.ModelName, ack.Error)
	}

	r.conn = conn
	r.log.Info("connected to classification gateway", "url", r.serverURL, "model", hello.ModelName)

	return nil
}

func (r *Remote) Predict(ctx context.Context, frame image.Image) ([]models.Prediction, error) {
	payload, err := EncodeJPEG(frame, r.model.ImageSize())
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrClosed
	}

	if r.conn == nil {
		if err := r.dial(ctx); err != nil {
			return nil, err
		}
	}

	preds, err := r.roundTrip(ctx, payload)
	if err != nil {
		var gwErr *GatewayError
		if !errors.As(err, &gwErr) {
			// the connection state is unknown after a transport error or abort
			r.dropConn()
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}

	return preds, nil
}

// GatewayError is a per-request failure reported by the gateway. The
// connection stays usable.
type GatewayError struct {
	Message string
}

func (e *GatewayError) Error() string {
	return "gateway: " + e.Message
}

func (r *Remote) roundTrip(ctx context.Context, payload []byte) ([]models.Prediction, error) {
	stop := abortOnDone(ctx, r.conn)

	preds, err := r.exchange(payload)
	if !stop() && err == nil {
		// the abort fired after the result arrived and left a past deadline behind
		err = ctx.Err()
	}

	return preds, err
}

func (r *Remote) exchange(payload []byte) ([]models.Prediction, error) {
	conn := r.conn

	id := uuid.New()
	if err := conn.WriteMessage(websocket.BinaryMessage, models.EncodeFrame(id, payload)); err != nil {
		return nil, fmt.Errorf("send frame: %w", err)
	}

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("read result: %w", err)
		}

		var res models.ClassificationResult
		if err := json.Unmarshal(message, &res); err != nil {
			return nil, fmt.Errorf("decode result: %w", err)
		}

		if res.ID != id.String() {
			r.log.Debug("dropping stale result", "id", res.ID)
			continue
		}

		if res.Error != "" {
			return nil, &GatewayError{Message: res.Error}
		}

		return res.Predictions, nil
	}
}

func (r *Remote) dropConn() {
	if r.conn != nil {
		r.conn.Close()
		r.conn = nil
	}
}

func (r *Remote) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	if r.conn == nil {
		return nil
	}

	r.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))

	err := r.conn.Close()
	r.conn = nil

	return err
}

// abortOnDone unblocks pending reads and writes on conn when ctx is done.
func abortOnDone(ctx context.Context, conn *websocket.Conn) func() bool {
	return context.AfterFunc(ctx, func() {
		now := time.Now()
		conn.SetReadDeadline(now)
		conn.SetWriteDeadline(now)
	})
}

// EncodeJPEG center-crops frame to a square, scales it to size and encodes it.
func EncodeJPEG(frame image.Image, size int) ([]byte, error) {
	if frame == nil {
		return nil, errors.New("nil frame")
	}

	b := frame.Bounds()
	side := min(b.Dx(), b.Dy())
	if side <= 0 {
		return nil, errors.New("empty frame")
	}

	crop := image.Rect(0, 0, side, side).Add(image.Pt(
		b.Min.X+(b.Dx()-side)/2,
		b.Min.Y+(b.Dy()-side)/2,
	))

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), frame, crop, draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("jpeg encode: %w", err)
	}

	return buf.Bytes(), nil
}
