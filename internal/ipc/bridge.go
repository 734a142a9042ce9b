package ipc

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/atcsim/atcsim/internal/monitor"
)

// maxWriteRetries bounds how many times a single AVN is retried before
// giving up and logging (spec §4.9 IpcTransportError: "record-granular
// retry up to a bound").
const maxWriteRetries = 5

// retryBackoff is the pause between successive write retries of the same
// record.
const retryBackoff = 50 * time.Millisecond

// Bridge is one unidirectional-pair connection to an external
// collaborator: an outbound stream of AVN_CREATED / PAYMENT_REQUEST
// records and an inbound stream of PAYMENT_CONFIRMATION / query
// responses. It implements control.AVNSink structurally, without either
// package importing the other.
type Bridge struct {
	mu   sync.Mutex
	conn net.Conn

	sessionID uuid.UUID
	logger    *slog.Logger

	retained []Record // AVNs that exhausted their write retries, for a later pass

	// OnPaymentConfirmed is invoked with an AVN id whenever a
	// PAYMENT_CONFIRMATION record is read off the inbound stream.
	OnPaymentConfirmed func(avnID int) error
}

// NewBridge wraps an established connection (already dialed or accepted by
// the caller) as a Bridge.
func NewBridge(conn net.Conn, logger *slog.Logger) *Bridge {
	return &Bridge{
		conn:      conn,
		sessionID: uuid.New(),
		logger:    logger,
	}
}

// SessionID returns the bridge's correlation id for logging.
func (b *Bridge) SessionID() uuid.UUID { return b.sessionID }

// PushAVN pushes avn as an AVN_CREATED record, satisfying the control
// package's AVNSink interface. On exhausted retries the record is
// retained (not dropped) for the bounded retry the spec requires.
func (b *Bridge) PushAVN(avn *monitor.AVN) error {
	details := avn.Kind.String()
	rec := Record{
		Type:     AVNCreated,
		AVNID:    int32(avn.ID),
		Airline:  avn.AirlineName,
		Flight:   avn.FlightID,
		Amount:   avn.RecordedSpeed,
		Details:  details,
		MinSpeed: int32(avn.PermittedMin),
		MaxSpeed: int32(avn.PermittedMax),
	}
	return b.writeWithRetry(rec)
}

// PushPaymentRequest sends a PAYMENT_REQUEST record for the given AVN.
func (b *Bridge) PushPaymentRequest(avn *monitor.AVN, amount float64) error {
	rec := Record{
		Type:    PaymentRequest,
		AVNID:   int32(avn.ID),
		Airline: avn.AirlineName,
		Flight:  avn.FlightID,
		Amount:  amount,
		Details: avn.Status.String(),
	}
	return b.writeWithRetry(rec)
}

func (b *Bridge) writeWithRetry(rec Record) error {
	var lastErr error
	for attempt := 0; attempt < maxWriteRetries; attempt++ {
		b.mu.Lock()
		err := WriteRecord(b.conn, rec)
		b.mu.Unlock()
		if err == nil {
			return nil
		}
		lastErr = err
		b.logger.Warn("ipc write failed, retrying", "session", b.sessionID, "avn_id", rec.AVNID, "attempt", attempt+1, "error", err)
		time.Sleep(retryBackoff)
	}

	b.mu.Lock()
	b.retained = append(b.retained, rec)
	b.mu.Unlock()
	b.logger.Error("ipc write exhausted retries, record retained", "session", b.sessionID, "avn_id", rec.AVNID, "error", lastErr)
	return lastErr
}

// FlushRetained resends every retained record through the same bounded
// retry as PushAVN; records that fail again are retained again.
func (b *Bridge) FlushRetained() {
	b.mu.Lock()
	pending := b.retained
	b.retained = nil
	b.mu.Unlock()

	for _, rec := range pending {
		if err := b.writeWithRetry(rec); err != nil {
			continue
		}
	}
}

// Listen reads inbound records until EOF or ctx cancellation, dispatching
// PAYMENT_CONFIRMATION records to OnPaymentConfirmed. It exits cleanly on
// EOF (spec §4.8: "on EOF the reader exits cleanly").
func (b *Bridge) Listen(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		rec, err := ReadRecord(b.conn)
		if errors.Is(err, io.EOF) {
			b.logger.Info("ipc stream closed", "session", b.sessionID)
			return nil
		}
		if err != nil {
			b.logger.Error("ipc read failed", "session", b.sessionID, "error", err)
			return err
		}

		switch rec.Type {
		case PaymentConfirmation:
			if b.OnPaymentConfirmed != nil {
				if err := b.OnPaymentConfirmed(int(rec.AVNID)); err != nil {
					b.logger.Error("payment confirmation handling failed", "avn_id", rec.AVNID, "error", err)
				}
			}
		default:
			b.logger.Debug("ipc record received", "type", rec.Type.String(), "avn_id", rec.AVNID)
		}
	}
}

// Close closes the underlying connection, signaling EOF to the peer.
func (b *Bridge) Close() error {
	return b.conn.Close()
}
