package ws

import (
	"github.com/goccy/go-json"

	"whatsapp-lite/internal/events"
)

// Frame is the envelope of every websocket text message in both directions.
type Frame struct {
	Event events.Name     `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func encodeFrame(name events.Name, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Event: name, Data: data})
}

func decodeFrame(raw []byte) (Frame, error) {
	var f Frame
	err := json.Unmarshal(raw, &f)
	return f, err
}
