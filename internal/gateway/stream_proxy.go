package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/bizmatters/design-research-gateway/internal/extract"
	"github.com/bizmatters/design-research-gateway/internal/models"
	"github.com/bizmatters/design-research-gateway/internal/relay"
)

const (
	firstMessageTimeout = 30 * time.Second
	socketWriteTimeout  = 10 * time.Second
)

// StreamProxy serves streaming invocations over WebSocket for clients that
// cannot consume an event stream from a POST.
type StreamProxy struct {
	handler  *Handler
	tracer   trace.Tracer
	upgrader websocket.Upgrader
}

// NewStreamProxy creates a WebSocket proxy sharing h's service and session store
func NewStreamProxy(h *Handler) *StreamProxy {
	return &StreamProxy{
		handler: h,
		tracer:  otel.Tracer("stream-proxy"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				h.logger.Debug("WebSocket connection", zap.String("origin", r.Header.Get("Origin")))
				return true
			},
			HandshakeTimeout: 10 * time.Second,
		},
	}
}

// StreamInvocation handles WebSocket /api/ws/dify
// @Summary Stream a workflow run over WebSocket
// @Description The first client message is an invocation request. Every upstream chunk is sent as a `chunk` event, followed by a `done` event carrying the normalized answer or an `error` event.
// @Tags dify
// @Param token query string false "Session token"
// @Success 101 "Switching Protocols"
// @Failure 401 {object} models.ErrorResponse
// @Router /ws/dify [get]
func (p *StreamProxy) StreamInvocation(c *gin.Context) {
	ctx, span := p.tracer.Start(c.Request.Context(), "stream_proxy.stream_invocation")
	defer span.End()

	h := p.handler
	sessionID, err := p.sessionFromRequest(ctx, c)
	if err != nil {
		span.RecordError(err)
		h.logger.Warn("WebSocket session token rejected", zap.Error(err))
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{
			Error: "Invalid or expired token",
			Code:  models.ErrCodeUnauthorized,
		})
		return
	}
	span.SetAttributes(attribute.Bool("session.present", sessionID != ""))

	conn, err := p.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to upgrade connection", zap.Error(err))
		return
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(firstMessageTimeout))
	_, message, err := conn.ReadMessage()
	if err != nil {
		h.logger.Warn("No invocation request received", zap.Error(err))
		return
	}
	conn.SetReadDeadline(time.Time{})

	req, err := h.orchestrationService.Decode(message)
	if err != nil {
		p.sendError(conn, err.Error())
		return
	}
	req.ResponseMode = models.ResponseModeStreaming
	span.SetAttributes(attribute.String("key_class", string(req.KeyType)))

	// the client closing its side cancels the upstream request
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					h.logger.Debug("Client connection read ended", zap.Error(err))
				}
				return
			}
		}
	}()

	start := time.Now()
	body, err := h.orchestrationService.OpenStream(ctx, req)
	if err != nil {
		span.RecordError(err)
		p.sendError(conn, err.Error())
		return
	}
	defer body.Close()

	acc := extract.NewAccumulator()
	if m := h.orchestrationService.Metrics(); m != nil {
		m.StreamStarted(ctx, string(req.KeyType))
	}

	w := &socketWriter{conn: conn}
	stats, relayErr := h.relay.Run(ctx, body, w, relay.Options{Debug: req.Debug, Observer: acc.Feed})
	if relayErr == nil {
		relayErr = w.flush()
	}

	result, err := h.finishStream(ctx, req, sessionID, acc, stats, relayErr, start)
	switch {
	case relayErr != nil:
		h.logger.Warn("WebSocket stream ended early", zap.Error(relayErr), zap.Int("chunks", stats.Chunks))
		return
	case errors.Is(err, extract.ErrEmptyStream):
		p.sendError(conn, models.MsgStreamEmpty)
	case err != nil:
		p.sendError(conn, acc.StreamError())
	default:
		p.send(conn, models.SocketEvent{
			EventType: models.SocketEventDone,
			Data: map[string]any{
				"answer":         result.Text,
				"originalAnswer": result.Original,
				"chunks":         stats.Chunks,
			},
		})
	}

	conn.SetWriteDeadline(time.Now().Add(socketWriteTimeout))
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// sessionFromRequest reads an optional session token from the token query
// parameter or the Authorization header. Browsers cannot set headers on
// WebSocket requests.
func (p *StreamProxy) sessionFromRequest(ctx context.Context, c *gin.Context) (string, error) {
	if !p.handler.sessionsEnabled() {
		return "", nil
	}
	token := c.Query("token")
	if token == "" {
		token, _ = bearerToken(c)
	}
	if token == "" {
		return "", nil
	}
	claims, err := p.handler.jwtManager.ValidateToken(ctx, token)
	if err != nil {
		return "", err
	}
	return claims.SessionID, nil
}

func (p *StreamProxy) send(conn *websocket.Conn, event models.SocketEvent) {
	conn.SetWriteDeadline(time.Now().Add(socketWriteTimeout))
	if err := conn.WriteJSON(event); err != nil {
		p.handler.logger.Warn("Failed to send event to client", zap.String("event", event.EventType), zap.Error(err))
	}
}

func (p *StreamProxy) sendError(conn *websocket.Conn, message string) {
	p.send(conn, models.SocketEvent{
		EventType: models.SocketEventError,
		Data:      map[string]any{"error": message},
	})
}

// socketWriter sends relayed bytes as chunk events. A multi-byte character
// split across reads is held back until it is complete.
type socketWriter struct {
	conn    *websocket.Conn
	pending []byte
}

func (w *socketWriter) Write(p []byte) (int, error) {
	w.pending = append(w.pending, p...)
	cut := completePrefix(w.pending)
	if cut == 0 {
		return len(p), nil
	}
	if err := w.send(w.pending[:cut]); err != nil {
		return 0, err
	}
	w.pending = append(w.pending[:0], w.pending[cut:]...)
	return len(p), nil
}

func (w *socketWriter) flush() error {
	if len(w.pending) == 0 {
		return nil
	}
	err := w.send(w.pending)
	w.pending = nil
	return err
}

func (w *socketWriter) send(b []byte) error {
	w.conn.SetWriteDeadline(time.Now().Add(socketWriteTimeout))
	return w.conn.WriteJSON(models.SocketEvent{
		EventType: models.SocketEventChunk,
		Data:      map[string]any{"data": string(b)},
	})
}

// completePrefix returns the length of b without a trailing incomplete rune
func completePrefix(b []byte) int {
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		if utf8.RuneStart(b[i]) {
			if utf8.FullRune(b[i:]) {
				return len(b)
			}
			return i
		}
	}
	return len(b)
}
