package encryption

import (
	"bytes"
	"path/filepath"
	"testing"

	"bam-go/internal/config"
)

func newTestAgeEncryptor(t *testing.T) *AgeEncryptor {
	t.Helper()
	dir := t.TempDir()
	cfg := config.EncryptionConfig{
		PublicKeyPath:  filepath.Join(dir, "keys", "bam.pub"),
		PrivateKeyPath: filepath.Join(dir, "keys", "bam.key"),
	}
	return NewAgeEncryptor(cfg)
}

func TestAgeEncryptor_Configured_BeforeSetup(t *testing.T) {
	t.Parallel()
	e := newTestAgeEncryptor(t)
	if e.Configured() {
		t.Error("Configured() = true before Setup, want false")
	}
}

func TestAgeEncryptor_Setup_Configured(t *testing.T) {
	t.Parallel()
	e := newTestAgeEncryptor(t)

	if err := e.Setup(); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	if !e.Configured() {
		t.Error("Configured() = false after Setup, want true")
	}
}

func TestAgeEncryptor_EncryptDecryptRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input []byte
	}{
		{name: "simple text", input: []byte("hello world")},
		{name: "empty", input: []byte{}},
		{name: "binary data", input: []byte{0x00, 0xff, 0x01, 0xfe}},
		{name: "large data", input: bytes.Repeat([]byte("abcdef"), 10000)},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := newTestAgeEncryptor(t)
			if err := e.Setup(); err != nil {
				t.Fatalf("Setup() error = %v", err)
			}

			var encrypted bytes.Buffer
			if err := e.Encrypt(bytes.NewReader(tt.input), &encrypted); err != nil {
				t.Fatalf("Encrypt() error = %v", err)
			}

			if len(tt.input) > 0 && bytes.Equal(encrypted.Bytes(), tt.input) {
				t.Error("encrypted output is identical to plaintext")
			}

			var decrypted bytes.Buffer
			if err := e.Decrypt(bytes.NewReader(encrypted.Bytes()), &decrypted); err != nil {
				t.Fatalf("Decrypt() error = %v", err)
			}

			if !bytes.Equal(decrypted.Bytes(), tt.input) {
				t.Errorf("round-trip failed: got %d bytes, want %d bytes", decrypted.Len(), len(tt.input))
			}
		})
	}
}

func TestAgeEncryptor_DecryptWithWrongKey(t *testing.T) {
	t.Parallel()

	e1 := newTestAgeEncryptor(t)
	if err := e1.Setup(); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	e2 := newTestAgeEncryptor(t)
	if err := e2.Setup(); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	var encrypted bytes.Buffer
	if err := e1.Encrypt(bytes.NewReader([]byte("secret")), &encrypted); err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	var decrypted bytes.Buffer
	if err := e2.Decrypt(bytes.NewReader(encrypted.Bytes()), &decrypted); err == nil {
		t.Error("Decrypt() with wrong key should return error")
	}
}

func TestAgeEncryptor_EncryptWithoutKeys(t *testing.T) {
	t.Parallel()

	e := newTestAgeEncryptor(t)
	var out bytes.Buffer
	if err := e.Encrypt(bytes.NewReader([]byte("data")), &out); err == nil {
		t.Error("Encrypt() without keys should return error")
	}
}
