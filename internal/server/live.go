package server

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	livePushInterval = 250 * time.Millisecond
	liveWriteTimeout = 5 * time.Second
)

var liveUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		host := strings.ToLower(strings.TrimSpace(r.Host))
		originHost := strings.ToLower(strings.TrimSpace(u.Host))
		return host == originHost
	},
}

type liveFrame struct {
	Revision    uint64        `json:"revision"`
	GeneratedAt time.Time     `json:"generated_at"`
	SVG         string        `json:"svg"`
	Stats       statsResponse `json:"stats"`
}

func (s *Server) buildLiveFrame() liveFrame {
	c := s.view.Chart()
	return liveFrame{
		Revision:    c.Revision(),
		GeneratedAt: time.Now().UTC(),
		SVG:         c.SVG(),
		Stats:       newStatsResponse(s.view.Stats()),
	}
}

func (s *Server) handleLiveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := liveUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.serveLiveConnection(conn)
}

// serveLiveConnection pushes a frame on connect and then whenever the chart
// revision or the statistics change.
func (s *Server) serveLiveConnection(conn *websocket.Conn) {
	defer conn.Close()

	logger := s.logger.With(zap.String("conn", uuid.NewString()))
	logger.Debug("live client connected", zap.String("remote", conn.RemoteAddr().String()))
	defer logger.Debug("live client disconnected")

	last := s.buildLiveFrame()
	if err := writeLiveFrame(conn, last); err != nil {
		return
	}

	ticker := time.NewTicker(s.pushInterval)
	defer ticker.Stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ticker.C:
			frame := s.buildLiveFrame()
			if frame.Revision == last.Revision && frame.Stats.Stats == last.Stats.Stats {
				continue
			}
			if err := writeLiveFrame(conn, frame); err != nil {
				logger.Debug("live write failed", zap.Error(err))
				return
			}
			last = frame
		case <-done:
			return
		}
	}
}

func writeLiveFrame(conn *websocket.Conn, frame liveFrame) error {
	_ = conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout))
	return conn.WriteJSON(frame)
}
