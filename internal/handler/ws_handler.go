/*
Package handler provides the HTTP handler function for WebSocket connection upgrading.

HandleWebSocket upgrades the request and hands the connection, together with the credential
taken from the "token" query parameter, to the relay hub. Authentication happens after the
upgrade so that failures can be reported with WebSocket close codes.
*/
package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"plaza/internal/app/relay"
	"plaza/internal/pkg/logx"
)

// HandleWebSocket creates an HTTP HandlerFunc to process WebSocket connection requests.
func HandleWebSocket(hub *relay.Hub, upgrader websocket.Upgrader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		logx.Debug("WebSocket connection upgraded", "has_token", token != "")

		hub.Serve(r.Context(), conn, token)
	}
}
