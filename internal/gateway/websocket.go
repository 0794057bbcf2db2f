package gateway

import (
	"net/http"

	"github.com/gorilla/websocket"
)

// GorillaUpgrader adapts gorilla/websocket to the gateway's Upgrader/Conn
// interfaces, the same wrapping the pack favors so handler code never
// imports a transport library directly.
type GorillaUpgrader struct {
	upgrader websocket.Upgrader
}

// NewGorillaUpgrader returns an Upgrader that accepts any origin, matching
// this workbench's single-operator deployment model (§1).
func NewGorillaUpgrader() *GorillaUpgrader {
	return &GorillaUpgrader{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (u *GorillaUpgrader) Upgrade(w http.ResponseWriter, r *http.Request) (Conn, error) {
	conn, err := u.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	return &gorillaConn{conn: conn}, nil
}

type gorillaConn struct {
	conn *websocket.Conn
}

func (c *gorillaConn) WriteJSON(v any) error { return c.conn.WriteJSON(v) }
func (c *gorillaConn) Close() error          { return c.conn.Close() }
func (c *gorillaConn) ReadMessage() (int, []byte, error) {
	return c.conn.ReadMessage()
}
