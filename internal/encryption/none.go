package encryption

import (
	"fmt"
	"io"

	"bam-go/internal/bam"
)

// NoneEncryptor is the default: bundles are stored as written.
type NoneEncryptor struct{}

var _ bam.Encryptor = (*NoneEncryptor)(nil)

// NewNoneEncryptor creates a pass-through encryptor.
func NewNoneEncryptor() *NoneEncryptor {
	return &NoneEncryptor{}
}

func (e *NoneEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

func (e *NoneEncryptor) Decrypt(r io.Reader, w io.Writer) error {
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

func (e *NoneEncryptor) Configured() bool { return true }
