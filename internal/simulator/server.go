package simulator

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kinesia/poseloop/pkg/logger"
)

// frameMessage mirrors the frame submission shape.
type frameMessage struct {
	SessionID     string    `json:"sessionId"`
	Image         []byte    `json:"image"`
	Timestamp     time.Time `json:"timestamp"`
	SequenceIndex int64     `json:"sequenceIndex"`
}

// finalizeMessage mirrors the finalize submission shape.
type finalizeMessage struct {
	SessionID   string  `json:"sessionId"`
	Score       float64 `json:"score"`
	TotalErrors int     `json:"totalErrors"`
}

// streamEnvelope frames every message on the scoring stream.
type streamEnvelope struct {
	Type     string           `json:"type"`
	Frame    *frameMessage    `json:"frame,omitempty"`
	Finalize *finalizeMessage `json:"finalize,omitempty"`
}

type finalizeAck struct {
	OK bool `json:"ok"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Register attaches the simulated scoring routes to mux: the
// request/response POST surface and the persistent stream.
func (s *Simulator) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /sessions/{id}/frames", s.handleFrames)
	mux.HandleFunc("POST /sessions/{id}/finalize", s.handleFinalize)
	mux.HandleFunc("/stream", s.handleStream)
}

func (s *Simulator) handleFrames(w http.ResponseWriter, r *http.Request) {
	var msg frameMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: "bad_request", Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, s.scoreFrame(r.PathValue("id")))
}

func (s *Simulator) handleFinalize(w http.ResponseWriter, r *http.Request) {
	var msg finalizeMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: "bad_request", Message: err.Error()})
		return
	}
	s.finalize(r.Context(), r.PathValue("id"), msg.Score, msg.TotalErrors)
	writeJSON(w, http.StatusOK, finalizeAck{OK: true})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// handleStream serves the persistent scoring stream: one response per
// frame envelope, one acknowledgement per finalize envelope.
func (s *Simulator) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn(r.Context(), "stream upgrade failed", logger.Error(err))
		return
	}
	defer func() { _ = conn.Close() }()

	for {
		var env streamEnvelope
		if err := conn.ReadJSON(&env); err != nil {
			return
		}

		switch {
		case env.Type == "frame" && env.Frame != nil:
			if err := conn.WriteJSON(s.scoreFrame(env.Frame.SessionID)); err != nil {
				return
			}
		case env.Type == "finalize" && env.Finalize != nil:
			s.finalize(r.Context(), env.Finalize.SessionID, env.Finalize.Score, env.Finalize.TotalErrors)
			if err := conn.WriteJSON(finalizeAck{OK: true}); err != nil {
				return
			}
		default:
			s.logger.Warn(r.Context(), "unknown stream envelope", logger.String("type", env.Type))
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
