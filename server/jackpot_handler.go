package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/artdesignbySF/MadameSatoshi/pkg/jackpot"
)

// JackpotHandler bridges the jackpot service to HTTP routes: a
// snapshot endpoint plus SSE and WebSocket update streams.
type JackpotHandler struct {
	svc      *jackpot.Service
	logger   zerolog.Logger
	upgrader websocket.Upgrader
}

// NewJackpotHandler creates a jackpot handler.
func NewJackpotHandler(svc *jackpot.Service, logger zerolog.Logger) *JackpotHandler {
	return &JackpotHandler{
		svc:    svc,
		logger: logger.With().Str("handler", "jackpot").Logger(),
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// GetPool handles GET /api/jackpot
func (h *JackpotHandler) GetPool(c *gin.Context) {
	pool, err := h.svc.Pool(c.Request.Context())
	if err != nil {
		HandleAppError(c, err)
		return
	}
	OK(c, gin.H{"amount": pool})
}

// StreamUpdates opens an SSE connection and streams pool updates.
// Route: GET /api/jackpot/updates
func (h *JackpotHandler) StreamUpdates(c *gin.Context) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
	c.Writer.WriteHeader(http.StatusOK)

	sender := &sseSender{writer: c.Writer}
	h.stream(c, sender, nil)
}

// StreamUpdatesWebSocket opens a WebSocket connection and streams pool
// updates. Every new connection immediately receives the current pool
// value. Route: GET /api/jackpot/updates/ws
func (h *JackpotHandler) StreamUpdatesWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade to WebSocket")
		return
	}
	defer conn.Close() //nolint:errcheck

	writeDeadline := 10 * time.Second
	conn.SetWriteDeadline(time.Now().Add(writeDeadline)) //nolint:errcheck

	done := make(chan struct{})

	// Detect connection close
	go func() {
		defer close(done)
		conn.SetReadDeadline(time.Now().Add(10 * time.Minute)) //nolint:errcheck
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn().Err(err).Msg("WebSocket connection closed unexpectedly")
			} else {
				h.logger.Debug().Err(err).Msg("WebSocket closed normally")
			}
		}
	}()

	// Send ping to keep connection alive
	pingTicker := time.NewTicker(30 * time.Second)
	go func() {
		defer pingTicker.Stop()
		for {
			select {
			case <-done:
				return
			case <-pingTicker.C:
				deadline := time.Now().Add(5 * time.Second)
				if err := conn.WriteControl(websocket.PingMessage, []byte{}, deadline); err != nil {
					h.logger.Debug().Err(err).Msg("Failed to send ping")
					return
				}
			}
		}
	}()

	sender := &wsSender{
		conn:          conn,
		done:          done,
		logger:        h.logger,
		writeDeadline: writeDeadline,
	}
	h.stream(c, sender, done)
}

// stream pushes the current pool value followed by every broadcast
// update until the client disconnects.
func (h *JackpotHandler) stream(c *gin.Context, sender messageSender, done <-chan struct{}) {
	ctx := c.Request.Context()

	updates, cancel := h.svc.Listen(ctx)
	defer cancel()

	pool, err := h.svc.Pool(ctx)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to read pool for initial push")
	} else {
		initial := jackpot.Update{Type: jackpot.UpdateType, Amount: pool}
		if err := sender.Send(&initial); err != nil {
			h.logger.Warn().Err(err).Msg("Failed to send initial pool value, stopping stream")
			return
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			h.logger.Debug().Msg("Connection closed, stopping stream")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if err := sender.Send(&update); err != nil {
				h.logger.Warn().Err(err).Msg("Failed to send pool update, stopping stream")
				return
			}
		}
	}
}

// messageSender abstracts the transport (SSE or WebSocket).
type messageSender interface {
	Send(*jackpot.Update) error
}

// sseSender sends updates as SSE data events.
type sseSender struct {
	writer http.ResponseWriter
}

func (s *sseSender) Send(update *jackpot.Update) error {
	payload, err := json.Marshal(update)
	if err != nil {
		return err
	}
	if _, err := s.writer.Write([]byte("data: " + string(payload) + "\n\n")); err != nil {
		return err
	}
	s.writer.(http.Flusher).Flush()
	return nil
}

// wsSender sends updates as WebSocket text messages.
type wsSender struct {
	conn          *websocket.Conn
	done          <-chan struct{}
	logger        zerolog.Logger
	writeDeadline time.Duration
}

func (s *wsSender) Send(update *jackpot.Update) error {
	select {
	case <-s.done:
		s.logger.Debug().Msg("Connection already closed, skipping send")
		return io.EOF
	default:
	}

	deadline := time.Now().Add(s.writeDeadline)
	if err := s.conn.SetWriteDeadline(deadline); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to set write deadline")
	}

	payload, err := json.Marshal(update)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to marshal update")
		return err
	}

	if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			s.logger.Warn().Err(err).Msg("WebSocket write failed: connection closed")
		} else {
			s.logger.Warn().Err(err).Msg("WebSocket write failed")
		}
		return err
	}
	return nil
}
