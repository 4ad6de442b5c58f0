/*
Package handler provides the HTTP handler function for WebSocket connection upgrading and initialization.

HandleWebSocket refuses upgrades while the coordinator is shutting down, binds the identity carried by a
verified token when there is one, and then hands the connection to the coordinator for its whole lifetime.
*/
package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"collabhub/internal/app/user"
	"collabhub/internal/pkg/auth/jwt"
	"collabhub/internal/pkg/errs"
	"collabhub/internal/pkg/logx"
	"collabhub/internal/pkg/resp"
)

// HandleWebSocket creates an HTTP HandlerFunc to process WebSocket connection requests.
func HandleWebSocket(deps *AppDeps, upgrader websocket.Upgrader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !deps.Manager.Accepting() {
			resp.RespondError(w, r, errs.NewError(errs.ErrServerShuttingDown))
			return
		}

		var identity *user.User
		if payload := jwt.GetPayloadFromContext(r); payload != nil {
			u := payload.ToUser()
			identity = &u
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		client := deps.Manager.Attach(conn, identity)

		go client.WritePump()

		client.ReadPump()
	}
}
