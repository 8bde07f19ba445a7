package bam

import "context"

// Format is the content-format tag passed to the external codec when packing.
type Format string

const (
	FormatGeneral Format = "General"
	FormatDDS     Format = "DDS"
)

// Compression is an optional compression override for the external codec.
type Compression string

const (
	CompressionDefault Compression = ""
	CompressionNone    Compression = "None"
)

// Codec is the boundary to the external archive codec tool. The engine never
// assumes anything about the codec's internal format beyond "directory of
// files in, single archive file out, or failure". Each call blocks until
// completion or until the context's deadline elapses; a timeout is equivalent
// to the call failing.
type Codec interface {
	// Extract unpacks an archive into destDir. Existing files in destDir
	// with the same relative path are overwritten.
	Extract(ctx context.Context, archivePath, destDir string) error

	// Pack builds a single archive at destPath from the contents of srcDir
	// using the given content-format tag and optional compression override.
	Pack(ctx context.Context, srcDir, destPath string, format Format, compression Compression) error

	// Validate verifies the codec tool is present and invocable. Called
	// before an operation starts; a failure here is a configuration error.
	Validate() error
}
