package bam

import (
	"bytes"
	"encoding/binary"
)

// LoaderStub returns the minimal plugin descriptor that makes the consuming
// runtime enumerate and load a merged unit's archives. The layout is fixed
// and the output is byte-identical across calls:
//
//	TES4 record header: 4-byte tag, LE uint32 payload size (25), zero flag,
//	identifier, timestamp and version-control fields.
//	HEDR subrecord: 4-byte tag, LE uint16 size (12), fixed version float,
//	two zero counters.
//	CNAM subrecord: 4-byte tag, LE uint16 size (1), one zero byte.
func LoaderStub() []byte {
	var buf bytes.Buffer

	buf.WriteString("TES4")
	binary.Write(&buf, binary.LittleEndian, uint32(25)) // payload: HEDR (18) + CNAM (7)
	buf.Write(make([]byte, 16))                         // flags, form ID, timestamp, version control

	buf.WriteString("HEDR")
	binary.Write(&buf, binary.LittleEndian, uint16(12))
	buf.Write([]byte{0x3f, 0x99, 0x99, 0x9a}) // fixed version float
	buf.Write(make([]byte, 8))                // record count, next object ID

	buf.WriteString("CNAM")
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	buf.WriteByte(0x00) // empty author string

	return buf.Bytes()
}

// LoaderStubSize is the fixed total size of a loader stub in bytes.
const LoaderStubSize = 24 + 18 + 7
