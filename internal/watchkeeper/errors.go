package watchkeeper

import "errors"

// Domain errors for the poll loop.
var (
	// ErrSnapshotUnavailable is returned when a cycle is skipped because
	// the vessel snapshot could not be fetched.
	ErrSnapshotUnavailable = errors.New("watchkeeper: snapshot unavailable")

	// ErrMissingDependency is returned by NewWatch when a required
	// collaborator is nil.
	ErrMissingDependency = errors.New("watchkeeper: missing dependency")

	// ErrNoVessels is returned by NewFleet with nothing to watch.
	ErrNoVessels = errors.New("watchkeeper: no vessels")
)
