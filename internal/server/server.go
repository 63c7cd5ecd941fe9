// Package server is the classification gateway: it serves the model assets
// and bridges websocket classification requests to the inference service.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"lambear/internal/models"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

type Predictor interface {
	Predict(ctx context.Context, imageData []byte) ([]models.Prediction, error)
	CheckHealth(ctx context.Context) error
}

type Server struct {
	predictor Predictor
	modelDir  string
	timeout   time.Duration
	log       *slog.Logger
	upgrader  websocket.Upgrader
}

func New(p Predictor, modelDir string, timeout time.Duration, log *slog.Logger) *Server {
	return &Server{
		predictor: p,
		modelDir:  modelDir,
		timeout:   timeout,
		log:       log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1 << 16,
			WriteBufferSize: 1 << 12,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods("GET")
	r.HandleFunc("/model/{file}", s.handleModelFile).Methods("GET")
	r.HandleFunc("/ws", s.handleWS).Methods("GET")
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	if err := s.predictor.CheckHealth(ctx); err != nil {
		s.log.Warn("inference backend unhealthy", "err", err)
		http.Error(w, "inference backend unavailable", http.StatusServiceUnavailable)
		return
	}

	fmt.Fprintln(w, "OK")
}

func (s *Server) handleModelFile(w http.ResponseWriter, r *http.Request) {
	name := filepath.Base(mux.Vars(r)["file"])
	path := filepath.Join(s.modelDir, name)

	if _, err := os.Stat(path); err != nil {
		http.NotFound(w, r)
		return
	}

	http.ServeFile(w, r, path)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	log := s.log.With("remote", r.RemoteAddr)

	hello, err := s.handshake(conn)
	if err != nil {
		log.Warn("handshake failed", "err", err)
		return
	}

	log.Info("classification session opened", "model", hello.ModelName, "labels", len(hello.Labels))
	defer log.Info("classification session closed")

	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("read failed", "err", err)
			}
			return
		}

		if msgType != websocket.BinaryMessage {
			continue
		}

		res := s.classify(msg)
		if res.Error != "" {
			log.Warn("classification failed", "id", res.ID, "err", res.Error)
		}

		if err := conn.WriteJSON(res); err != nil {
			log.Debug("write failed", "err", err)
			return
		}
	}
}

var errBadHandshake = errors.New("handshake must name at least one label")

func (s *Server) handshake(conn *websocket.Conn) (models.Handshake, error) {
	var hello models.Handshake
	if err := conn.ReadJSON(&hello); err != nil {
		return hello, fmt.Errorf("read handshake: %w", err)
	}

	ack := models.ClassificationResult{ID: models.HandshakeID}
	if len(hello.Labels) == 0 {
		ack.Error = errBadHandshake.Error()
	}

	if err := conn.WriteJSON(ack); err != nil {
		return hello, fmt.Errorf("write handshake: %w", err)
	}

	if ack.Error != "" {
		return hello, errBadHandshake
	}

	return hello, nil
}

func (s *Server) classify(msg []byte) models.ClassificationResult {
	id, payload, err := models.DecodeFrame(msg)
	if err != nil {
		return models.ClassificationResult{Error: err.Error()}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	res := models.ClassificationResult{ID: id.String()}

	preds, err := s.predictor.Predict(ctx, payload)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	res.Predictions = preds

	return res
}
