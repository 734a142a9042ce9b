package ipc

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	want := Record{
		Type:     AVNCreated,
		AVNID:    1042,
		Airline:  "PIA",
		Flight:   "PIA-701",
		Amount:   12345.67,
		Details:  "Commercial",
		MinSpeed: 240,
		MaxSpeed: 290,
	}

	buf, err := want.Encode()
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	if len(buf) != RecordSize {
		t.Fatalf("Encode() len = %d, want %d", len(buf), RecordSize)
	}

	got, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if got != want {
		t.Fatalf("Decode() = %+v, want %+v", got, want)
	}
}

func TestDecodeShortBufferFails(t *testing.T) {
	_, err := Decode(make([]byte, RecordSize-1))
	if !errors.Is(err, ErrShortRecord) {
		t.Fatalf("Decode(short) error = %v, want ErrShortRecord", err)
	}
}

func TestEncodeFieldTooLongFails(t *testing.T) {
	rec := Record{Type: AVNCreated, Airline: strings.Repeat("X", 64)}
	if _, err := rec.Encode(); !errors.Is(err, ErrFieldTooLong) {
		t.Fatalf("Encode(oversized field) error = %v, want ErrFieldTooLong", err)
	}
}

func TestFixedStringFieldsAreNullPadded(t *testing.T) {
	rec := Record{Type: QueryAirline, Airline: "FedEx"}
	buf, err := rec.Encode()
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	airlineOff := typeWidth + avnIDWidth
	field := buf[airlineOff : airlineOff+airlineWidth]
	if !bytes.HasPrefix(field, []byte("FedEx")) {
		t.Fatalf("airline field = %q, want prefix FedEx", field)
	}
	if field[len("FedEx")] != 0 {
		t.Fatalf("airline field not null-padded after content: %v", field)
	}
}

func TestWriteRecordThenReadRecordRoundTrip(t *testing.T) {
	want := Record{Type: PaymentConfirmation, AVNID: 7, Airline: "Emirates", Flight: "EK-1"}

	var buf bytes.Buffer
	if err := WriteRecord(&buf, want); err != nil {
		t.Fatalf("WriteRecord() error: %v", err)
	}

	got, err := ReadRecord(&buf)
	if err != nil {
		t.Fatalf("ReadRecord() error: %v", err)
	}
	if got != want {
		t.Fatalf("ReadRecord() = %+v, want %+v", got, want)
	}
}

func TestReadRecordCleanEOFOnEmptyStream(t *testing.T) {
	_, err := ReadRecord(bytes.NewReader(nil))
	if !errors.Is(err, io.EOF) {
		t.Fatalf("ReadRecord(empty) error = %v, want io.EOF", err)
	}
}

func TestReadRecordShortStreamFails(t *testing.T) {
	_, err := ReadRecord(bytes.NewReader(make([]byte, RecordSize-3)))
	if !errors.Is(err, ErrShortRecord) {
		t.Fatalf("ReadRecord(short stream) error = %v, want ErrShortRecord", err)
	}
}

func TestRecordTypeStringNames(t *testing.T) {
	cases := map[RecordType]string{
		AVNCreated:           "AVN_CREATED",
		PaymentRequest:       "PAYMENT_REQUEST",
		PaymentConfirmation:  "PAYMENT_CONFIRMATION",
		QueryAVN:             "QUERY_AVN",
		QueryAirline:         "QUERY_AIRLINE",
		RecordType(99):       "UNKNOWN",
	}
	for rt, want := range cases {
		if got := rt.String(); got != want {
			t.Errorf("RecordType(%d).String() = %q, want %q", rt, got, want)
		}
	}
}
