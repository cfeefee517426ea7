package client

import "time"

// Connection is an interface that abstracts the websocket connection.
type Connection interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (int, []byte, error)
	Close() error
}

// Client is one browser (or terminal) attached to a game room. In multi mode
// both humans share a single client.
type Client struct {
	ID          string
	Conn        Connection
	ConnectedAt time.Time
}

// New wraps conn as a client.
func New(id string, conn Connection) *Client {
	return &Client{ID: id, Conn: conn, ConnectedAt: time.Now()}
}
