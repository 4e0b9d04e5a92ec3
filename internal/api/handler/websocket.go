package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/spigell/vettavista/internal/ws"
)

// SocketServer serves one upgraded connection until it closes.
type SocketServer interface {
	Serve(ctx context.Context, id string, conn *websocket.Conn)
}

// NewWebsocketHandler upgrades the request and hands the connection to srv
// under the id taken from the param URL parameter.
func NewWebsocketHandler(srv SocketServer, param string, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, param)
		conn, err := ws.Upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn("websocket upgrade failed", zap.String(param, id), zap.Error(err))
			return
		}
		srv.Serve(r.Context(), id, conn)
	}
}
