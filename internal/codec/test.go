package codec

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"bam-go/internal/bam"
)

// TestCodec is a deterministic stand-in for the external tool: archives are
// plain tar files. It exercises the whole merge pipeline, including overwrite
// resolution and post-build verification, without the vendor binary.
type TestCodec struct{}

var _ bam.Codec = (*TestCodec)(nil)

// NewTestCodec creates a TestCodec.
func NewTestCodec() *TestCodec {
	return &TestCodec{}
}

func (c *TestCodec) Validate() error { return nil }

// Extract unpacks a tar archive into destDir, overwriting same-path files.
func (c *TestCodec) Extract(ctx context.Context, archivePath, destDir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close()

	tr := tar.NewReader(f)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading archive: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}

		dest := filepath.Join(destDir, filepath.FromSlash(hdr.Name))
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return fmt.Errorf("creating directory: %w", err)
		}
		out, err := os.Create(dest)
		if err != nil {
			return fmt.Errorf("creating file: %w", err)
		}
		if _, err := io.Copy(out, tr); err != nil {
			out.Close()
			return fmt.Errorf("writing %s: %w", hdr.Name, err)
		}
		if err := out.Close(); err != nil {
			return err
		}
	}
}

// Pack writes a tar archive of srcDir's files in lexical walk order. The
// format and compression tags are accepted and ignored.
func (c *TestCodec) Pack(ctx context.Context, srcDir, destPath string, format bam.Format, compression bam.Compression) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("creating archive: %w", err)
	}
	defer out.Close()

	tw := tar.NewWriter(out)
	err = filepath.WalkDir(srcDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(srcDir, p)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}

		hdr := &tar.Header{
			Name: filepath.ToSlash(rel),
			Mode: 0644,
			Size: info.Size(),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("writing header for %s: %w", rel, err)
		}
		in, err := os.Open(p)
		if err != nil {
			return err
		}
		defer in.Close()
		if _, err := io.Copy(tw, in); err != nil {
			return fmt.Errorf("archiving %s: %w", rel, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("packing %s: %w", srcDir, err)
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("finalizing archive: %w", err)
	}
	return nil
}
