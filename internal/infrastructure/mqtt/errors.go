package mqtt

import "errors"

// Sentinel errors; match with errors.Is. Broker failures wrap the
// operation's sentinel around paho's error.
var (
	ErrNotConnected      = errors.New("mqtt: client not connected")
	ErrConnectionFailed  = errors.New("mqtt: connection failed")
	ErrPublishFailed     = errors.New("mqtt: publish failed")
	ErrSubscribeFailed   = errors.New("mqtt: subscribe failed")
	ErrUnsubscribeFailed = errors.New("mqtt: unsubscribe failed")

	// ErrInvalidQoS rejects levels above 2.
	ErrInvalidQoS = errors.New("mqtt: invalid QoS level (must be 0, 1, or 2)")
	// ErrInvalidTopic rejects the empty topic.
	ErrInvalidTopic = errors.New("mqtt: topic cannot be empty")
	// ErrInvalidPayload is returned when PublishJSON cannot marshal its value.
	ErrInvalidPayload = errors.New("mqtt: payload cannot be encoded")
)
