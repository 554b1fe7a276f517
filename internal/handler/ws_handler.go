package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/mockielts/mockielts-backend/internal/middleware"
	"github.com/mockielts/mockielts-backend/internal/model"
	"github.com/mockielts/mockielts-backend/internal/response"
	"github.com/mockielts/mockielts-backend/internal/service"
	"github.com/mockielts/mockielts-backend/internal/validator"
	ws "github.com/mockielts/mockielts-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams one section of an attempt: autosave, submit and the
// server-side countdown.
type WSHandler struct {
	attemptService *service.AttemptService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
	now            func() time.Time
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(attemptService *service.AttemptService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		attemptService: attemptService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
		now:            time.Now,
	}
}

// SectionStream godoc
// WS /ws/v1/attempts/:id/sections/:section/stream
// Opens the section (starting its countdown), then accepts autosave, submit,
// state and ping actions. When the section's time runs out the server submits
// it and pushes an "expired" event.
func (h *WSHandler) SectionStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	attemptID, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	kind, ok := sectionParam(c)
	if !ok {
		return
	}

	// Ownership and section checks happen before the upgrade so that they
	// surface as plain HTTP errors.
	ctx := c.Request.Context()
	attempt, err := h.attemptService.Get(ctx, claims.UserID, attemptID)
	if err != nil {
		fail(c, err)
		return
	}
	view, err := h.attemptService.Section(ctx, attempt, kind)
	if err != nil {
		fail(c, err)
		return
	}

	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	conn := ws.Wrap(raw)
	defer conn.Close()

	wsLog := h.log.With().
		Str("user_id", claims.UserID).
		Str("attempt_id", attemptID.String()).
		Str("section", string(kind)).
		Logger()
	wsLog.Info().Msg("Candidate connected")

	ws.WriteJSON(conn, ws.EventState, view.Session)

	s := &streamSession{
		h:         h,
		conn:      conn,
		log:       wsLog,
		userID:    claims.UserID,
		attemptID: attemptID,
		kind:      kind,
		timer:     h.armTimer(conn, wsLog, attempt, kind),
	}
	defer s.stopTimer()

	for {
		var msg ws.RequestPayload
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		switch msg.Action {
		case ws.ActionAutosave:
			s.autosave(&msg)
		case ws.ActionSubmit:
			s.submit()
		case ws.ActionState:
			s.state()
		case ws.ActionPing:
			ws.WriteJSON(conn, ws.EventPong, nil)
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			ws.WriteError(conn, string(response.ErrInvalidPayload), "unknown action: "+string(msg.Action))
		}
	}
}

// armTimer schedules the server-side expiry of a timed section. The deadline
// worker covers candidates who are not connected.
func (h *WSHandler) armTimer(conn *ws.Conn, log zerolog.Logger, attempt *model.Attempt, kind model.SectionKind) *time.Timer {
	cd, started, err := h.attemptService.Countdown(context.Background(), attempt, kind)
	if err != nil || !started || !cd.Timed() {
		return nil
	}
	return time.AfterFunc(cd.Remaining(h.now()), func() {
		res, err := h.attemptService.ExpireSection(context.Background(), attempt.ID, kind)
		if err != nil {
			log.Error().Err(err).Msg("Expire on timer failed")
			writeServiceError(conn, err)
			return
		}
		log.Info().Msg("Section expired on timer")
		ws.WriteJSON(conn, ws.EventExpired, ws.GradedData{Result: res, Next: h.nextSection(attempt.ID, attempt.UserID)})
	})
}

func (h *WSHandler) nextSection(attemptID uuid.UUID, userID string) *model.SectionKind {
	a, err := h.attemptService.Get(context.Background(), userID, attemptID)
	if err != nil || a.Status != model.AttemptStatusInProgress {
		return nil
	}
	return a.CurrentSection
}

type streamSession struct {
	h         *WSHandler
	conn      *ws.Conn
	log       zerolog.Logger
	userID    string
	attemptID uuid.UUID
	kind      model.SectionKind
	timer     *time.Timer
}

func (s *streamSession) stopTimer() {
	if s.timer != nil {
		s.timer.Stop()
	}
}

// attempt reloads the attempt so each action sees the current section.
func (s *streamSession) attempt(ctx context.Context) (*model.Attempt, bool) {
	a, err := s.h.attemptService.Get(ctx, s.userID, s.attemptID)
	if err != nil {
		writeServiceError(s.conn, err)
		return nil, false
	}
	return a, true
}

func (s *streamSession) autosave(msg *ws.RequestPayload) {
	ctx := context.Background()
	req := model.UpsertAnswersRequest{
		Section:  string(s.kind),
		Answers:  msg.Answers,
		Writings: msg.Writings,
	}
	if fields := validator.Struct(&req); fields != nil {
		ws.WriteError(s.conn, string(response.ErrValidation), firstField(fields))
		return
	}

	a, ok := s.attempt(ctx)
	if !ok {
		return
	}
	state, err := s.h.attemptService.UpsertAnswers(ctx, a, req)
	if err != nil {
		if !errors.Is(err, service.ErrSectionExpired) && !errors.Is(err, service.ErrSectionSubmitted) {
			s.log.Error().Err(err).Msg("Autosave failed")
		}
		writeServiceError(s.conn, err)
		return
	}
	ws.WriteJSON(s.conn, ws.EventSuccess, ws.SavedData{Status: "saved", RemainingSeconds: state.RemainingSeconds})
}

func (s *streamSession) submit() {
	ctx := context.Background()
	a, ok := s.attempt(ctx)
	if !ok {
		return
	}

	var (
		res *model.SectionResult
		err error
	)
	if a.CurrentSection != nil && *a.CurrentSection == s.kind {
		a, res, err = s.h.attemptService.Advance(ctx, a)
	} else {
		res, err = s.h.attemptService.SubmitSection(ctx, a, s.kind, model.TriggerManual)
	}
	if err != nil {
		s.log.Error().Err(err).Msg("Submit failed")
		writeServiceError(s.conn, err)
		return
	}

	s.stopTimer()

	data := ws.GradedData{Result: res}
	if a.Status == model.AttemptStatusInProgress {
		data.Next = a.CurrentSection
	}
	s.log.Info().Str("trigger", string(res.Trigger)).Msg("Section submitted")
	ws.WriteJSON(s.conn, ws.EventGraded, data)
}

func (s *streamSession) state() {
	ctx := context.Background()
	a, ok := s.attempt(ctx)
	if !ok {
		return
	}
	state, err := s.h.attemptService.State(ctx, a, s.kind)
	if err != nil {
		writeServiceError(s.conn, err)
		return
	}
	ws.WriteJSON(s.conn, ws.EventState, state)
}

func writeServiceError(conn *ws.Conn, err error) {
	_, code := classify(err)
	ws.WriteError(conn, string(code), response.GetMessage(code))
}

func firstField(fields map[string]string) string {
	for _, msg := range fields {
		return msg
	}
	return response.GetMessage(response.ErrValidation)
}
