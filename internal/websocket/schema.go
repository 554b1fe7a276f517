package websocket

import (
	"encoding/json"

	"github.com/mockielts/mockielts-backend/internal/model"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAutosave Action = "autosave"
	ActionSubmit   Action = "submit"
	ActionState    Action = "state"
	ActionPing     Action = "ping"
)

// RequestPayload is every client message. Autosave carries the same body as
// PUT /attempts/:id/answers; the section comes from the stream URL.
type RequestPayload struct {
	Action   Action                    `json:"action"`
	Answers  []model.ItemAnswerPayload `json:"answers,omitempty"`
	Writings []model.WritingPayload    `json:"writings,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError   Event = "error"
	EventSuccess Event = "success"
	EventState   Event = "state"
	EventGraded  Event = "graded"
	EventExpired Event = "expired"
	EventPong    Event = "pong"
)

// ResponsePayload wraps every server message.
type ResponsePayload struct {
	Event Event           `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error *ErrorBody      `json:"error,omitempty"`
}

// ErrorBody mirrors the REST error body.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SavedData acknowledges an autosave.
type SavedData struct {
	Status           string `json:"status"`
	RemainingSeconds int    `json:"remainingSeconds"`
}

// GradedData carries a section result. Next is the section the attempt moved on
// to, if any.
type GradedData struct {
	Result *model.SectionResult `json:"result"`
	Next   *model.SectionKind   `json:"next,omitempty"`
}
