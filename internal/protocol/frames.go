// Package protocol defines the JSON message protocol between the client and
// the answer-generation backend.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Frame types from backend to client
const (
	TypeToken  = "token"
	TypeSource = "source"
)

// Frame is an inbound streaming event. The set of implementations is closed:
// TokenFrame and SourceFrame. Consumers type-switch over it so an unhandled
// kind is a compile-time visible gap, not a stray string comparison.
type Frame interface {
	frameType() string
}

// TokenFrame carries one incremental piece of answer text.
type TokenFrame struct {
	Token string
}

func (TokenFrame) frameType() string { return TypeToken }

// SourceFrame carries one source reference (URL or plain label).
type SourceFrame struct {
	Source string
}

func (SourceFrame) frameType() string { return TypeSource }

// QueryPayload is the outbound message sent on submit.
type QueryPayload struct {
	Query           string `json:"query"`
	Collection      string `json:"collection"`
	ProductFullName string `json:"product_full_name"`
	Version         string `json:"version"`
}

// ErrUnparseable is returned when an inbound frame is not a valid JSON object.
var ErrUnparseable = errors.New("unparseable frame")

// UnknownTypeError is returned when an inbound frame carries a type the
// protocol does not define.
type UnknownTypeError struct {
	Type string
}

func (e *UnknownTypeError) Error() string {
	return "unknown frame type: " + e.Type
}

// rawFrame mirrors the wire shape before type dispatch.
type rawFrame struct {
	Type   string `json:"type"`
	Token  string `json:"token"`
	Source string `json:"source"`
}

// DecodeFrame parses an inbound wire frame into its typed form.
func DecodeFrame(data []byte) (Frame, error) {
	var raw rawFrame
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}

	switch raw.Type {
	case TypeToken:
		return TokenFrame{Token: raw.Token}, nil
	case TypeSource:
		return SourceFrame{Source: raw.Source}, nil
	default:
		return nil, &UnknownTypeError{Type: raw.Type}
	}
}

// EncodeFrame renders a typed frame back to its wire shape. The stub backend
// uses it to produce the same JSON the production backend emits.
func EncodeFrame(f Frame) ([]byte, error) {
	switch frame := f.(type) {
	case TokenFrame:
		return json.Marshal(map[string]string{"type": TypeToken, "token": frame.Token})
	case SourceFrame:
		return json.Marshal(map[string]string{"type": TypeSource, "source": frame.Source})
	default:
		return nil, &UnknownTypeError{Type: f.frameType()}
	}
}
