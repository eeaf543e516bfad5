package advisory

import "errors"

var (
	// ErrPayloadTooLarge is returned for advice above MaxPayloadSize.
	ErrPayloadTooLarge = errors.New("advisory: payload too large")

	// ErrUnknownVessel is returned for advice addressed to an unwatched vessel.
	ErrUnknownVessel = errors.New("advisory: unknown vessel")

	// ErrInvalidTopic is returned when a message arrives on a non-advice topic.
	ErrInvalidTopic = errors.New("advisory: not an advice topic")
)
