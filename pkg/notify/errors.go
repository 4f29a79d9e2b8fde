package notify

import "errors"

var (
	ErrUnknownMessageType = errors.New("unknown message type")
	ErrEncodePayload      = errors.New("failed to encode payload")
	ErrHubClosed          = errors.New("hub is closed")
)
