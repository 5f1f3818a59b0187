package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/Kazorio/translation-app/internal/models"
	"github.com/Kazorio/translation-app/internal/session"
	"github.com/Kazorio/translation-app/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	wsReadLimit  = 1 << 20
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 25 * time.Second
	wsWriteWait  = 10 * time.Second
)

// WSHandler upgrades participants into room sessions.
type WSHandler struct {
	services session.Services
	base     session.Config
	log      *logrus.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler takes the per-session settings shared by every connection in
// base; room, device and speaker come from the request.
func NewWSHandler(svc session.Services, base session.Config, allowedOrigins []string) *WSHandler {
	log := svc.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &WSHandler{
		services: svc,
		base:     base,
		log:      log,
		upgrader: websocket.Upgrader{CheckOrigin: originChecker(allowedOrigins)},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(r *http.Request) bool { return true }
	}
	set := map[string]struct{}{}
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) WriteJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.c.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return w.c.WriteMessage(websocket.TextMessage, b)
}

func (w *wsConn) ping() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.c.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait))
}

func (h *WSHandler) RoomWS(c *gin.Context) {
	const op = "WSHandler.RoomWS"

	cfg := h.base
	cfg.RoomID = c.Param("room_id")
	cfg.DeviceID = c.Query("device_id")
	cfg.SpeakerID = callerSpeakerID(c)
	cfg.Role = models.SpeakerRole(c.DefaultQuery("role", string(models.SpeakerSelf)))

	if !models.ValidRoomID(cfg.RoomID) {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "a valid room_id is required", nil))
		return
	}
	if !models.ValidRoomID(cfg.DeviceID) {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "a valid device_id is required", nil))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote response in most cases
		return
	}
	defer conn.Close()
	conn.SetReadLimit(wsReadLimit)

	wc := &wsConn{c: conn}
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	sess, err := session.New(ctx, cfg, h.services, wc)
	if err != nil {
		_ = wc.WriteJSON(session.ServerMessage{Type: session.MsgError, Code: utils.CodeOf(err), Message: utils.UserMessage(err)})
		return
	}
	if err := sess.Start(ctx); err != nil {
		_ = wc.WriteJSON(session.ServerMessage{Type: session.MsgError, Code: utils.CodeOf(err), Message: utils.UserMessage(err)})
		sess.Close()
		return
	}

	log := h.log.WithFields(logrus.Fields{"session_id": sess.ID, "room_id": cfg.RoomID})

	// keepalive
	go func() {
		t := time.NewTicker(wsPingPeriod)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if err := wc.ping(); err != nil {
					return
				}
			}
		}
	}()

	// reader: WS -> session. Returns when the browser goes away.
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		_, data, rerr := conn.ReadMessage()
		if rerr != nil {
			if websocket.IsUnexpectedCloseError(rerr, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(rerr).Info("websocket closed")
			}
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))

		var msg session.ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			_ = wc.WriteJSON(session.ServerMessage{Type: session.MsgError, Code: utils.CodeInvalidArgument, Message: "invalid json"})
			continue
		}
		sess.HandleMessage(msg)
	}

	cancel()
	sess.Close()
}
