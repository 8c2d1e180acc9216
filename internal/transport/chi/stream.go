package chi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	domview "github.com/kailas-cloud/livetable/internal/domain/view"
	"github.com/kailas-cloud/livetable/internal/logger"
	"github.com/kailas-cloud/livetable/internal/transport/wire"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPingPeriod = 30 * time.Second
)

// StreamView handles GET /v1/views/{id}/stream.
//
// The connection receives the current state, then every committed state. A slow reader only
// sees the latest state; intermediate ones are skipped. Closing the stream leaves the view open.
func (s *Server) StreamView(w http.ResponseWriter, r *http.Request) {
	id, ok := viewID(w, r)
	if !ok {
		return
	}
	v, err := s.views.Get(id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied.
		logger.FromContext(r.Context()).Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer func() { _ = conn.Close() }()

	latest := make(chan domview.State, 1)
	cancel := v.Follow(func(st domview.State) {
		// Deliveries are serialised, so after draining there is room for st.
		select {
		case <-latest:
		default:
		}
		latest <- st
	})
	defer cancel()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(streamPingPeriod)
	defer ping.Stop()

	settings := v.Settings()
	for {
		select {
		case <-closed:
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
				return
			}
		case st := <-latest:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteJSON(wire.FromState(st, settings)); err != nil {
				logger.FromContext(r.Context()).Debug("stream write failed", zap.Error(err))
				return
			}
		}
	}
}
