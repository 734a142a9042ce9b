// Package ipc implements the fixed-size binary record bridge between the
// simulation core and external AVN-billing / payment-processing
// collaborators (spec §4.8). The wire format is a normative, fixed byte
// layout with no version field — not a schema-driven RPC protocol — so readers on either
// side never need to agree on anything beyond this file.
package ipc

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// RecordType enumerates the five record kinds that cross the bridge
// (spec §4.8).
type RecordType uint32

const (
	AVNCreated RecordType = iota
	PaymentRequest
	PaymentConfirmation
	QueryAVN
	QueryAirline
)

// String returns the human-readable name of the record type.
func (t RecordType) String() string {
	switch t {
	case AVNCreated:
		return "AVN_CREATED"
	case PaymentRequest:
		return "PAYMENT_REQUEST"
	case PaymentConfirmation:
		return "PAYMENT_CONFIRMATION"
	case QueryAVN:
		return "QUERY_AVN"
	case QueryAirline:
		return "QUERY_AIRLINE"
	default:
		return "UNKNOWN"
	}
}

// Field widths, in bytes, of the normative on-wire record (spec §4.8).
const (
	typeWidth    = 4
	avnIDWidth   = 4
	airlineWidth = 32
	flightWidth  = 16
	amountWidth  = 8
	detailsWidth = 64
	minSpdWidth  = 4
	maxSpdWidth  = 4

	RecordSize = typeWidth + avnIDWidth + airlineWidth + flightWidth + amountWidth + detailsWidth + minSpdWidth + maxSpdWidth
)

// ErrShortRecord is returned when a reader receives fewer than RecordSize
// bytes before EOF — the bridge never accepts partial records (spec §4.8:
// "readers MUST read whole records or fail").
var ErrShortRecord = errors.New("ipc: short record")

// ErrFieldTooLong is returned by Encode when a string field does not fit
// in its fixed-width slot.
var ErrFieldTooLong = errors.New("ipc: field exceeds fixed width")

// Record is one decoded on-wire message.
type Record struct {
	Type     RecordType
	AVNID    int32
	Airline  string
	Flight   string
	Amount   float64
	Details  string
	MinSpeed int32
	MaxSpeed int32
}

func putFixedString(buf []byte, s string) error {
	if len(s) > len(buf)-1 {
		return fmt.Errorf("%w: %q wants %d bytes, have %d", ErrFieldTooLong, s, len(s), len(buf)-1)
	}
	clear(buf)
	copy(buf, s)
	return nil
}

func readFixedString(buf []byte) string {
	n := bytes.IndexByte(buf, 0)
	if n < 0 {
		n = len(buf)
	}
	return string(buf[:n])
}

// Encode serializes r into the fixed RecordSize-byte wire layout.
func (r Record) Encode() ([]byte, error) {
	buf := make([]byte, RecordSize)
	off := 0

	binary.LittleEndian.PutUint32(buf[off:], uint32(r.Type))
	off += typeWidth

	binary.LittleEndian.PutUint32(buf[off:], uint32(r.AVNID))
	off += avnIDWidth

	if err := putFixedString(buf[off:off+airlineWidth], r.Airline); err != nil {
		return nil, err
	}
	off += airlineWidth

	if err := putFixedString(buf[off:off+flightWidth], r.Flight); err != nil {
		return nil, err
	}
	off += flightWidth

	binary.LittleEndian.PutUint64(buf[off:], math.Float64bits(r.Amount))
	off += amountWidth

	if err := putFixedString(buf[off:off+detailsWidth], r.Details); err != nil {
		return nil, err
	}
	off += detailsWidth

	binary.LittleEndian.PutUint32(buf[off:], uint32(r.MinSpeed))
	off += minSpdWidth

	binary.LittleEndian.PutUint32(buf[off:], uint32(r.MaxSpeed))
	off += maxSpdWidth

	return buf, nil
}

// Decode parses exactly RecordSize bytes into a Record.
func Decode(buf []byte) (Record, error) {
	if len(buf) < RecordSize {
		return Record{}, ErrShortRecord
	}
	off := 0

	var r Record
	r.Type = RecordType(binary.LittleEndian.Uint32(buf[off:]))
	off += typeWidth

	r.AVNID = int32(binary.LittleEndian.Uint32(buf[off:]))
	off += avnIDWidth

	r.Airline = readFixedString(buf[off : off+airlineWidth])
	off += airlineWidth

	r.Flight = readFixedString(buf[off : off+flightWidth])
	off += flightWidth

	r.Amount = math.Float64frombits(binary.LittleEndian.Uint64(buf[off:]))
	off += amountWidth

	r.Details = readFixedString(buf[off : off+detailsWidth])
	off += detailsWidth

	r.MinSpeed = int32(binary.LittleEndian.Uint32(buf[off:]))
	off += minSpdWidth

	r.MaxSpeed = int32(binary.LittleEndian.Uint32(buf[off:]))
	off += maxSpdWidth

	return r, nil
}

// WriteRecord writes r to w as a single atomic RecordSize-byte write
// (spec §4.8: "writes are atomic at record granularity").
func WriteRecord(w io.Writer, r Record) error {
	buf, err := r.Encode()
	if err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}

// ReadRecord reads exactly one record from r. It returns io.EOF cleanly
// when the stream ends exactly on a record boundary, and ErrShortRecord if
// the stream ends mid-record.
func ReadRecord(r io.Reader) (Record, error) {
	buf := make([]byte, RecordSize)
	n, err := io.ReadFull(r, buf)
	if err == io.ErrUnexpectedEOF || (err == nil && n < RecordSize) {
		return Record{}, ErrShortRecord
	}
	if err != nil {
		return Record{}, err
	}
	return Decode(buf)
}
