package ws

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/cwrk-planet/presence-relay/internal/domain"
	"github.com/cwrk-planet/presence-relay/internal/hub"
	"github.com/cwrk-planet/presence-relay/internal/metrics"
	"github.com/cwrk-planet/presence-relay/internal/protocol"
)

type Relay interface {
	Connect(c hub.Conn)
	Join(ctx context.Context, connID, roomID string, p domain.MemberPatch) error
	UpdateLocation(ctx context.Context, connID, roomID string, p domain.MemberPatch) error
	Leave(ctx context.Context, connID string) error
	Disconnect(ctx context.Context, connID string)
}

type Config struct {
	PingEvery      time.Duration
	WriteWait      time.Duration
	SendBuffer     int
	ReadLimit      int64
	AllowedOrigins []string
}

func (c *Config) withDefaults() {
	if c.PingEvery <= 0 {
		c.PingEvery = 15 * time.Second
	}
	if c.WriteWait <= 0 {
		c.WriteWait = 5 * time.Second
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = 32
	}
	if c.ReadLimit <= 0 {
		c.ReadLimit = 64 << 10
	}
}

type Server struct {
	upgrader websocket.Upgrader
	relay    Relay
	metrics  *metrics.Metrics
	cfg      Config
}

func NewServer(relay Relay, m *metrics.Metrics, cfg Config) *Server {
	cfg.withDefaults()
	return &Server{
		relay:   relay,
		metrics: m,
		cfg:     cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(cfg.AllowedOrigins),
		},
	}
}

// WS endpoint: GET /ws
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade уже ответил клиенту
		slog.Warn("ws upgrade failed", "err", err)
		return
	}

	c := newWsConn(uuid.NewString(), conn, s.cfg.SendBuffer)
	s.relay.Connect(c)
	slog.Debug("ws connected", "conn", c.id, "remote", r.RemoteAddr)

	ctx := context.WithoutCancel(r.Context())

	go s.writeLoop(c)
	s.readLoop(ctx, c)

	s.relay.Disconnect(ctx, c.id)

	if err := c.Close(); err != nil {
		slog.Debug("ws close failed", "conn", c.id, "err", err)
	}
	slog.Debug("ws disconnected", "conn", c.id)
}

func (s *Server) readLoop(ctx context.Context, c *wsConn) {
	pongWait := 2 * s.cfg.PingEvery

	c.conn.SetReadLimit(s.cfg.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("ws read failed", "conn", c.id, "err", err)
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))

		s.dispatch(ctx, c, data)
	}
}

// dispatch переводит кадр в переход состояния. Ошибки протокола
// только логируются, соединение остаётся открытым.
func (s *Server) dispatch(ctx context.Context, c *wsConn, data []byte) {
	msg, err := protocol.Decode(data)
	if err != nil {
		s.metrics.Dropped("invalid_payload")
		slog.Debug("ws malformed frame", "conn", c.id, "err", err)
		return
	}

	switch msg.Type {
	case protocol.TypeJoinSession:
		var p protocol.SessionPayload
		if p, err = protocol.DecodeSession(msg.Payload); err == nil {
			err = s.relay.Join(ctx, c.id, p.SessionID, p.User.Patch())
		} else {
			s.metrics.Dropped("invalid_payload")
		}
	case protocol.TypeUpdateLocation:
		var p protocol.SessionPayload
		if p, err = protocol.DecodeSession(msg.Payload); err == nil {
			err = s.relay.UpdateLocation(ctx, c.id, p.SessionID, p.User.Patch())
		} else {
			s.metrics.Dropped("invalid_payload")
		}
	case protocol.TypeLeaveSession:
		err = s.relay.Leave(ctx, c.id)
	default:
		s.metrics.Dropped("unknown_type")
		slog.Debug("ws unknown message type", "conn", c.id, "type", msg.Type)
		return
	}

	if err != nil {
		slog.Debug("ws event dropped", "conn", c.id, "type", msg.Type, "err", err)
	}
}

func (s *Server) writeLoop(c *wsConn) {
	ticker := time.NewTicker(s.cfg.PingEvery)
	defer ticker.Stop()

	for {
		select {
		case payload := <-c.send:
			if err := c.write(payload, s.cfg.WriteWait); err != nil {
				slog.Debug("ws write failed", "conn", c.id, "err", err)
				_ = c.Close()
				return
			}
		case <-ticker.C:
			if err := c.ping(s.cfg.WriteWait); err != nil {
				_ = c.Close()
				return
			}
		case <-c.closed:
			return
		}
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	for _, o := range allowed {
		if o == "*" {
			allowed = nil
			break
		}
	}
	if len(allowed) == 0 {
		return func(r *http.Request) bool { return true }
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}
