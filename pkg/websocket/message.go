package websocket

import "time"

// Envelope - конверт сообщения: по Type клиент решает, что делать с Payload.
type Envelope struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}
