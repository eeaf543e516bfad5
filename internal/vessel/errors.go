package vessel

import "errors"

var (
	// ErrUnknownVessel is returned for a vessel ID the tracker was not given.
	ErrUnknownVessel = errors.New("vessel: unknown vessel")

	// ErrVesselExists is returned when a vessel ID is registered twice.
	ErrVesselExists = errors.New("vessel: already registered")

	// ErrUnknownDevice is returned for a device ID not in the vessel's profile.
	ErrUnknownDevice = errors.New("vessel: unknown device")

	// ErrInvalidProfile is returned when a profile fails to parse or validate.
	ErrInvalidProfile = errors.New("vessel: invalid profile")

	// ErrInvalidState is returned when a state payload cannot be decoded.
	ErrInvalidState = errors.New("vessel: invalid state payload")
)
