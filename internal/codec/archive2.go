package codec

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"bam-go/internal/bam"
)

// Archive2 drives the vendor's Archive2.exe as a black-box process. The tool
// is treated as opaque: directory of files in, single archive file out, or a
// nonzero exit. All knowledge of the archive byte format stays inside the
// tool.
type Archive2 struct {
	toolPath string
	logger   bam.Logger
}

var _ bam.Codec = (*Archive2)(nil)

// NewArchive2 creates a codec invoking the tool at toolPath.
func NewArchive2(toolPath string, logger bam.Logger) *Archive2 {
	return &Archive2{toolPath: toolPath, logger: logger}
}

// Validate verifies the tool exists and is a regular file.
func (c *Archive2) Validate() error {
	info, err := os.Stat(c.toolPath)
	if err != nil {
		return fmt.Errorf("%w: %s", bam.ErrCodecNotFound, c.toolPath)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", bam.ErrCodecNotFound, c.toolPath)
	}
	return nil
}

// Extract unpacks an archive into destDir. Files already present under
// destDir keep losing to same-path files from the archive, which is exactly
// the overwrite behavior the staging tree relies on.
func (c *Archive2) Extract(ctx context.Context, archivePath, destDir string) error {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("creating destination: %w", err)
	}

	cmd := exec.CommandContext(ctx, c.toolPath, archivePath, "-e="+destDir)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return c.runError(ctx, "extract", filepath.Base(archivePath), output, err)
	}
	if len(output) > 0 {
		c.logger.Debug("archive2 extract output", "archive", filepath.Base(archivePath), "output", trimOutput(output))
	}
	return nil
}

// Pack builds destPath from the contents of srcDir. The -r flag roots the
// archived paths at srcDir so staged relative paths survive unchanged.
func (c *Archive2) Pack(ctx context.Context, srcDir, destPath string, format bam.Format, compression bam.Compression) error {
	args := []string{srcDir, "-c=" + destPath, "-f=" + string(format)}
	if compression != bam.CompressionDefault {
		args = append(args, "-compression="+string(compression))
	}
	args = append(args, "-r="+srcDir)

	cmd := exec.CommandContext(ctx, c.toolPath, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return c.runError(ctx, "pack", filepath.Base(destPath), output, err)
	}
	if len(output) > 0 {
		c.logger.Debug("archive2 pack output", "archive", filepath.Base(destPath), "output", trimOutput(output))
	}
	return nil
}

// runError distinguishes a timeout from a tool failure and carries the
// tool's output in the error, which is the only diagnostic the tool offers.
func (c *Archive2) runError(ctx context.Context, verb, target string, output []byte, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("archive2 %s %s: timed out", verb, target)
	}
	if len(output) > 0 {
		return fmt.Errorf("archive2 %s %s: %v: %s", verb, target, err, trimOutput(output))
	}
	return fmt.Errorf("archive2 %s %s: %w", verb, target, err)
}

func trimOutput(output []byte) string {
	return strings.TrimSpace(string(output))
}
