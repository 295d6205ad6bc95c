package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"rms_pipeline/internal/service"
)

// Keepalive timing and the request size cap.
const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 8 << 20 // 8 MB, one process request
)

// Envelope types sent to WebSocket clients.
const (
	envelopeUnit  = "unit"
	envelopeDone  = "done"
	envelopeError = "error"
)

// wsEnvelope frames every server message; Data holds a UnitResponse or wsDone.
type wsEnvelope struct {
	Type  string      `json:"type"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

type wsDone struct {
	Units  int `json:"units"`
	Failed int `json:"failed"`
}

// Upgrader for HTTP -> WebSocket.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict origins once the UI host is fixed
}

// @Summary      Stream unit results
// @Description  WebSocket. The client sends one ProcessRequest; the server answers with one {"type":"unit"} envelope per finished unit, then {"type":"done"}.
// @Tags         pipeline
// @Router       /api/v1/ws/process [get]
// @Security     BearerAuth
func (h *Handler) wsProcess(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_upgrade_failed", "err", err)
		}
		return
	}
	defer func() { _ = conn.Close() }()

	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	var req ProcessRequest
	if err := conn.ReadJSON(&req); err != nil {
		h.sendError(conn, "invalid request: "+err.Error())
		return
	}
	p := h.paramsFor(req.Sensitivity, req.WindowHours, req.FailFast)
	if err := p.Validate(); err != nil {
		h.sendError(conn, err.Error())
		return
	}
	units, invalid := toRecords(req.Units)

	summary := wsDone{}
	for _, id := range sortedKeys(invalid) {
		summary.Units++
		summary.Failed++
		res := service.UnitResult{UnitID: id, Err: invalid[id]}
		if err := h.write(conn, wsEnvelope{Type: envelopeUnit, Data: toUnitResponse(res)}); err != nil {
			return
		}
	}
	if p.FailFast && len(invalid) > 0 {
		_ = h.write(conn, wsEnvelope{Type: envelopeDone, Data: summary})
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	results, err := h.services.Pipeline.Stream(ctx, units, p)
	if err != nil {
		h.sendError(conn, err.Error())
		return
	}

	// pongs and client close arrive through the reader
	done := make(chan struct{})
	go h.startReader(conn, done)

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				if h.log != nil {
					h.log.Infow("ws_ping_failed", "err", err)
				}
				return
			}
		case res, ok := <-results:
			if !ok {
				_ = h.write(conn, wsEnvelope{Type: envelopeDone, Data: summary})
				return
			}
			summary.Units++
			if res.Err != nil {
				summary.Failed++
			}
			if err := h.write(conn, wsEnvelope{Type: envelopeUnit, Data: toUnitResponse(res)}); err != nil {
				if h.log != nil {
					h.log.Infow("ws_write_failed", "unit", res.UnitID, "err", err)
				}
				return
			}
		}
	}
}

// startReader consumes frames after the request so pongs are processed. done
// closes when the client goes away.
func (h *Handler) startReader(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if h.log != nil {
				h.log.Infow("ws_read_closed", "err", err)
			}
			return
		}
	}
}

func (h *Handler) write(conn *websocket.Conn, env wsEnvelope) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(env)
}

func (h *Handler) sendError(conn *websocket.Conn, msg string) {
	if h.log != nil {
		h.log.Infow("ws_request_rejected", "err", msg)
	}
	_ = h.write(conn, wsEnvelope{Type: envelopeError, Error: msg})
}

func sortedKeys(m map[string]error) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
