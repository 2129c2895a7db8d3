package websocket

import (
	"net/http"

	"github.com/gorilla/websocket"
)

// NewUpgrader returns the upgrader used for /ws. Origins are not checked here: the
// connection is authorised by its token, and browser origins are governed by CORS on the REST API.
func NewUpgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}
