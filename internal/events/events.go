// Package events pushes registry change notifications to subscribed
// clients over a websocket endpoint on a dedicated unix socket.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/hearthdesk/hearthd/internal/registry"
)

const writeTimeout = 5 * time.Second

// Event is the wire form of a registry change notification.
type Event struct {
	Type       string   `json:"type"`
	Source     string   `json:"source"`
	Categories []string `json:"categories,omitempty"`
	EmittedMS  int64    `json:"emitted_ms"`
}

// Hub serves the event stream. Each connected client gets its own store
// subscription so a slow client only drops its own updates.
type Hub struct {
	store    *registry.Store
	logger   *logrus.Entry
	upgrader websocket.Upgrader
	server   *http.Server

	// root is the serve context; upgraded connections are hijacked from
	// the http.Server, so shutdown has to reach them through this.
	root context.Context
}

// NewHub creates a Hub streaming changes from store.
func NewHub(store *registry.Store, logger *logrus.Entry) *Hub {
	return &Hub{
		store:  store,
		logger: logger,
		upgrader: websocket.Upgrader{
			// Local unix socket, no cross-origin concerns.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ListenAndServe binds the events socket and serves until the context is
// cancelled.
func (h *Hub) ListenAndServe(ctx context.Context, socketPath string) error {
	if _, err := os.Stat(socketPath); err == nil {
		if err := os.Remove(socketPath); err != nil {
			return fmt.Errorf("failed to remove stale events socket: %w", err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(socketPath), 0755); err != nil {
		return fmt.Errorf("failed to create socket directory: %w", err)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on events socket: %w", err)
	}
	if err := os.Chmod(socketPath, 0600); err != nil {
		_ = listener.Close()
		return fmt.Errorf("failed to set events socket permissions: %w", err)
	}

	h.root = ctx
	mux := http.NewServeMux()
	mux.HandleFunc("/events", h.handleStream)

	h.server = &http.Server{Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = h.server.Shutdown(shutdownCtx)
	}()

	h.logger.WithField("socket", socketPath).Info("Event stream listening")
	if err := h.server.Serve(listener); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (h *Hub) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Debug("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	ch := h.store.Subscribe()
	defer h.store.Unsubscribe(ch)

	h.logger.Debug("Event client connected")

	// Drain client reads so close frames are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-h.root.Done():
			h.logger.Debug("Shutting down event client")
			return
		case <-r.Context().Done():
			h.logger.Debug("Event client disconnected")
			return
		case update, ok := <-ch:
			if !ok {
				return
			}
			event := Event{
				Type:       "registry_update",
				Source:     update.Source,
				Categories: update.Categories,
				EmittedMS:  time.Now().UnixMilli(),
			}
			payload, err := json.Marshal(event)
			if err != nil {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				h.logger.WithError(err).Debug("Event write failed, dropping client")
				return
			}
		}
	}
}
