// Package archive reads and writes cooked shader map archives.
//
// An archive holds the finalized shader maps of one material for several
// (feature level, quality level) combinations in a single blob, laid out so
// a runtime can extract exactly one artifact without parsing the rest:
//
//	magic, version
//	name table        (deduplicated strings, referenced by index)
//	offset table      (one entry per feature/quality slot)
//	artifact blobs
//
// Strings inside artifact blobs are written as name-table indices, so a
// shader type name shared by every quality level is stored once. Each
// offset-table entry carries a validity flag; a slot written without an
// artifact decodes to no artifact rather than to an error.
package archive

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

const (
	magic   = "GSMA"
	version = uint32(1)
)

// entryKey identifies one offset-table slot.
type entryKey struct {
	feature int32
	quality int32
}

// entry is one offset-table record. Offsets are absolute file positions.
type entry struct {
	key    entryKey
	offset uint64
	length uint64
	valid  bool
}

// Expression tags inside artifact blobs.
const (
	tagVectorConstant  = byte(1)
	tagVectorParameter = byte(2)
	tagScalarConstant  = byte(3)
	tagScalarParameter = byte(4)
	tagTextureParam    = byte(5)
)

func writeU8(w io.Writer, v byte) error {
	_, err := w.Write([]byte{v})
	return err
}

func writeU32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func writeU64(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func writeF32(w io.Writer, v float32) error {
	return writeU32(w, math.Float32bits(v))
}

func readU8(r io.Reader) (byte, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func readU32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func readU64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func readF32(r io.Reader) (float32, error) {
	v, err := readU32(r)
	return math.Float32frombits(v), err
}

// sanityCap bounds decoded counts so a corrupt length field fails cleanly
// instead of attempting a huge allocation.
const sanityCap = 1 << 24

func checkCount(n uint32, what string) error {
	if n > sanityCap {
		return fmt.Errorf("archive: implausible %s count %d", what, n)
	}
	return nil
}
