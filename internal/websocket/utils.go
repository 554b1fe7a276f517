package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second
	readWait  = 5 * time.Minute
)

// Conn serialises writes to a gorilla connection, which allows at most one
// concurrent writer.
type Conn struct {
	*websocket.Conn
	mu sync.Mutex
}

// Wrap adopts an upgraded connection.
func Wrap(conn *websocket.Conn) *Conn {
	return &Conn{Conn: conn}
}

func (c *Conn) write(payload ResponsePayload) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SetWriteDeadline(time.Now().Add(writeWait))
	return c.Conn.WriteJSON(payload)
}

// WriteJSON sends an event with a JSON-encoded data payload.
func WriteJSON(conn *Conn, event Event, data interface{}) error {
	payload := ResponsePayload{Event: event}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return err
		}
		payload.Data = raw
	}
	return conn.write(payload)
}

// WriteError sends an error event.
func WriteError(conn *Conn, code, message string) error {
	return conn.write(ResponsePayload{
		Event: EventError,
		Error: &ErrorBody{Code: code, Message: message},
	})
}

// ReadJSON reads and decodes a message into the provided structure.
// It sets a read deadline.
func ReadJSON(conn *Conn, v interface{}) error {
	conn.SetReadDeadline(time.Now().Add(readWait))
	return conn.ReadJSON(v)
}
