package encryption

import (
	"testing"

	"bam-go/internal/config"
)

func TestNewEncryptorFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.EncryptionConfig
		want    string
		wantErr bool
	}{
		{name: "empty type defaults to none", cfg: config.EncryptionConfig{}, want: "*encryption.NoneEncryptor"},
		{name: "none", cfg: config.EncryptionConfig{Type: "none"}, want: "*encryption.NoneEncryptor"},
		{name: "age", cfg: config.EncryptionConfig{Type: "age"}, want: "*encryption.AgeEncryptor"},
		{name: "test", cfg: config.EncryptionConfig{Type: "test"}, want: "*encryption.TestEncryptor"},
		{name: "unknown type", cfg: config.EncryptionConfig{Type: "rot13"}, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			enc, err := NewEncryptorFromConfig(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewEncryptorFromConfig() error = %v", err)
			}
			switch enc.(type) {
			case *NoneEncryptor:
				if tt.want != "*encryption.NoneEncryptor" {
					t.Errorf("got NoneEncryptor, want %s", tt.want)
				}
			case *AgeEncryptor:
				if tt.want != "*encryption.AgeEncryptor" {
					t.Errorf("got AgeEncryptor, want %s", tt.want)
				}
			case *TestEncryptor:
				if tt.want != "*encryption.TestEncryptor" {
					t.Errorf("got TestEncryptor, want %s", tt.want)
				}
			}
		})
	}
}
