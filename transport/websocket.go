package transport

import (
	"context"
	"io"

	"github.com/coder/websocket"
)

// WebsocketDuplex adapts a github.com/coder/websocket connection into a
// pump.ChunkReader + pump.ChunkWriter pair, one binary message per chunk,
// for the edge-compute scenario where HTML chunks arrive and leave over a
// persistent duplex connection rather than a plain chunked HTTP body.
// Grounded in the teacher's WebSocketHandler.Bridge message pump
// (websocket.go), minus the JS-dispatch bridge.
type WebsocketDuplex struct {
	ctx  context.Context
	conn *websocket.Conn
}

// NewWebsocketDuplex wraps conn for use as both ends of a pump.Run call.
// ctx bounds every Read/Write; cancel it to unblock a stalled peer.
func NewWebsocketDuplex(ctx context.Context, conn *websocket.Conn) *WebsocketDuplex {
	return &WebsocketDuplex{ctx: ctx, conn: conn}
}

// Next reads the next message as one chunk, translating the peer's normal
// close into io.EOF.
func (d *WebsocketDuplex) Next() ([]byte, error) {
	_, data, err := d.conn.Read(d.ctx)
	if err != nil {
		if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
			return nil, io.EOF
		}
		return nil, err
	}
	return data, nil
}

// Write sends chunk as one binary message.
func (d *WebsocketDuplex) Write(chunk []byte) error {
	return d.conn.Write(d.ctx, websocket.MessageBinary, chunk)
}

// Close closes the underlying connection with a normal closure status.
func (d *WebsocketDuplex) Close() error {
	return d.conn.Close(websocket.StatusNormalClosure, "")
}
