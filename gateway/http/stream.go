package http

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/YGNTECHSTARTUP/ecoquest/errors"
	"github.com/YGNTECHSTARTUP/ecoquest/gateway"
)

const (
	writeWait    = 10 * time.Second
	maxReadBytes = 512
)

// handleStream pushes one envelope or error frame per interval over a
// WebSocket. The first reading is taken before the upgrade so that caller
// mistakes (bad token, unknown brand) get a plain HTTP error.
func (s *Server) handleStream(c *gin.Context) {
	s.requestsTotal.Add(1)

	req, err := s.requestFromQuery(c)
	if err != nil {
		s.writeError(c, err)
		return
	}
	interval, err := s.streamInterval(c.Query("interval"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	limit, err := frameLimit(c.Query("limit"))
	if err != nil {
		s.writeError(c, err)
		return
	}

	first, firstErr := s.service.Handle(c.Request.Context(), req)
	if firstErr != nil && (errors.IsCallerAuth(firstErr) || errors.IsBadRequest(firstErr)) {
		s.writeError(c, firstErr)
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "request_id", req.RequestID, "error", err)
		return
	}
	defer conn.Close()

	s.logger.Debug("stream opened", "request_id", req.RequestID, "brand", req.Brand, "interval", interval)
	s.stream(c.Request.Context(), conn, req, interval, limit, first, firstErr)
}

func (s *Server) stream(parent context.Context, conn *websocket.Conn, req gateway.Request,
	interval time.Duration, limit int, first *gateway.Envelope, firstErr error) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	// The read pump only notices the client going away.
	conn.SetReadLimit(maxReadBytes)
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	if err := writeFrame(conn, first, firstErr); err != nil {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	baseID := req.RequestID
	for sent := 1; limit == 0 || sent < limit; sent++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		req.RequestID = fmt.Sprintf("%s-%d", baseID, sent)
		env, err := s.service.Handle(ctx, req)
		if ctx.Err() != nil {
			return
		}
		if err := writeFrame(conn, env, err); err != nil {
			return
		}
	}

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "limit reached"),
		time.Now().Add(writeWait))
}

func writeFrame(conn *websocket.Conn, env *gateway.Envelope, err error) error {
	if werr := conn.SetWriteDeadline(time.Now().Add(writeWait)); werr != nil {
		return werr
	}
	if err != nil {
		return conn.WriteJSON(batchResult(nil, err))
	}
	return conn.WriteJSON(env)
}

// streamInterval accepts a Go duration ("5s") or whole milliseconds and
// clamps it to the configured minimum.
func (s *Server) streamInterval(raw string) (time.Duration, error) {
	if raw == "" {
		return s.config.StreamDefaultInterval, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		ms, convErr := strconv.Atoi(raw)
		if convErr != nil || ms <= 0 {
			return 0, errors.BadRequest(fmt.Errorf("%w: interval=%q", errors.ErrMissingParameter, raw),
				"HTTPGateway", "streamInterval", "interval must be a duration such as 5s", "")
		}
		d = time.Duration(ms) * time.Millisecond
	}
	if d < s.config.StreamMinInterval {
		d = s.config.StreamMinInterval
	}
	return d, nil
}

func frameLimit(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.BadRequest(fmt.Errorf("%w: limit=%q", errors.ErrMissingParameter, raw),
			"HTTPGateway", "frameLimit", "limit must be a non-negative integer", "")
	}
	return n, nil
}
