package safety

import "errors"

// Domain errors for the safety package.
//
// The engine itself never returns errors to its caller; these are produced
// while decoding externally supplied values and actions and end up as Drop
// details or configuration validation failures.
var (
	// ErrImpossibleValue is returned when a state is not null, bool, number or string.
	ErrImpossibleValue = errors.New("safety: impossible state value")

	// ErrMalformedAction is returned when an advisory action cannot be decoded.
	ErrMalformedAction = errors.New("safety: malformed action")

	// ErrUnknownActionType is returned for action types outside the closed set.
	ErrUnknownActionType = errors.New("safety: unknown action type")

	// ErrInvalidAIControl is returned when an AI control level cannot be parsed.
	ErrInvalidAIControl = errors.New("safety: invalid ai_control level")

	// ErrInvalidPolicy is returned when a Policy fails validation.
	ErrInvalidPolicy = errors.New("safety: invalid policy")
)
