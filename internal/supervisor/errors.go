package supervisor

// Per-service failure reasons carried inside Outcome. Only configuration
// faults abort a supervision pass; everything below is recorded in the
// affected service's outcome and the pass continues.
const (
	ReasonDirectoryMissing = "directory not found"
	ReasonPortRelease      = "port release failed"
	ReasonLaunch           = "launch failed"
)
