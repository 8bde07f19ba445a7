package bam

import (
	"bytes"
	"testing"
)

func TestLoaderStub(t *testing.T) {
	t.Parallel()

	stub := LoaderStub()

	t.Run("fixed size", func(t *testing.T) {
		if len(stub) != LoaderStubSize {
			t.Errorf("len = %d, want %d", len(stub), LoaderStubSize)
		}
		if LoaderStubSize != 49 {
			t.Errorf("LoaderStubSize = %d, want 49", LoaderStubSize)
		}
	})

	t.Run("deterministic output", func(t *testing.T) {
		if !bytes.Equal(stub, LoaderStub()) {
			t.Error("consecutive calls differ")
		}
	})

	t.Run("record layout", func(t *testing.T) {
		if string(stub[0:4]) != "TES4" {
			t.Errorf("record tag = %q, want TES4", stub[0:4])
		}
		// little-endian payload size follows the tag
		if stub[4] != 25 || stub[5] != 0 || stub[6] != 0 || stub[7] != 0 {
			t.Errorf("payload size bytes = % x, want 19 00 00 00", stub[4:8])
		}
		if string(stub[24:28]) != "HEDR" {
			t.Errorf("first subrecord tag = %q, want HEDR", stub[24:28])
		}
		if !bytes.Equal(stub[30:34], []byte{0x3f, 0x99, 0x99, 0x9a}) {
			t.Errorf("version bytes = % x, want 3f 99 99 9a", stub[30:34])
		}
		if string(stub[42:46]) != "CNAM" {
			t.Errorf("second subrecord tag = %q, want CNAM", stub[42:46])
		}
		if stub[48] != 0x00 {
			t.Errorf("author byte = %#x, want 0x00", stub[48])
		}
	})
}
