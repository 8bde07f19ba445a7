package bam

import "errors"

// Configuration errors. These surface before an operation starts; nothing has
// been touched when they are returned.
var (
	// ErrCodecNotFound means the external codec tool is missing or not
	// invocable at the configured path.
	ErrCodecNotFound = errors.New("archive codec tool not found")

	// ErrGameDirNotFound means the base installation tree is missing.
	ErrGameDirNotFound = errors.New("base installation directory not found")

	// ErrNoSources means no archives were found to operate on.
	ErrNoSources = errors.New("no archives found to merge")
)
