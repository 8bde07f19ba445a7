package bam

import "io"

// Encryptor encrypts snapshot bundles at rest. Implementations must be
// symmetric: Decrypt(Encrypt(x)) == x.
type Encryptor interface {
	// Encrypt reads plaintext from r and writes ciphertext to w.
	Encrypt(r io.Reader, w io.Writer) error

	// Decrypt reads ciphertext from r and writes plaintext to w.
	Decrypt(r io.Reader, w io.Writer) error

	// Configured reports whether the encryptor is ready for use. An
	// unconfigured encryptor fails Encrypt and Decrypt.
	Configured() bool
}
