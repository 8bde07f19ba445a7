package bam

import "context"

// StagingTree is the shared mutable file tree used as the merge mechanism:
// sources are extracted into it in ascending-precedence order so that
// physically later writes supersede earlier ones, matching the consuming
// runtime's own precedence rule. The tree is owned exclusively by the
// currently running merge operation and accumulates monotonically; no
// deletions occur mid-resolution.
//
// The interface is deliberately narrow so an in-memory path-to-bytes map can
// stand in for the real filesystem tree in tests without invoking the codec.
type StagingTree interface {
	// Apply extracts one source into the tree, routing texture-tagged
	// sources to the texture root and everything else to the general root.
	Apply(ctx context.Context, source ContentSource) error

	// SeparateAudio moves files whose extension is in exts from the general
	// stream into the audio stream, preserving relative paths. Returns the
	// number of files moved.
	SeparateAudio(exts []string) (int, error)

	// Files lists the stream's files in deterministic (lexical) order.
	Files(stream StreamKind) ([]StagedFile, error)

	// Root returns the stream's directory, suitable for handing to the
	// codec's pack call.
	Root(stream StreamKind) string

	// Materialize produces a directory containing exactly the given subset
	// of a stream's files, preserving relative paths. Used to pack one
	// partition at a time.
	Materialize(stream StreamKind, files []StagedFile) (string, error)

	// Discard removes the entire staging tree. Safe to call more than once.
	Discard() error
}

// StagingFactory creates a fresh StagingTree per merge operation.
type StagingFactory interface {
	New() (StagingTree, error)
}
