package payments

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Error describes a failed call to the payment collaborator.
// Recoverable failures (hold, release, transfer) may be retried or
// ignored later; a non-recoverable failure (capture) aborts the
// transition that requested it.
type Error struct {
	Op          string
	Recoverable bool
	Err         error
}

func (e *Error) Error() string {
	return fmt.Sprintf("payment %s failed: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRecoverable reports whether err is a recoverable payment failure.
func IsRecoverable(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Recoverable
}

var (
	ErrUnknownHold   = errors.New("unknown hold reference")
	ErrHoldNotActive = errors.New("hold is not active")
)

type holdState string

const (
	holdActive   holdState = "active"
	holdReleased holdState = "released"
	holdCaptured holdState = "captured"
)

type hold struct {
	amount      int64
	destination int64
	state       holdState
}

// Sandbox is an in-memory payment provider for development and tests.
// It enforces the hold lifecycle (hold -> capture | release) so the
// service's call ordering is exercised for real.
type Sandbox struct {
	mu    sync.Mutex
	holds map[string]*hold
	log   zerolog.Logger

	// FailCapture/FailTransfer switch failure injection on for tests.
	FailCapture  bool
	FailTransfer bool
	FailRelease  bool
}

func NewSandbox(logger *zerolog.Logger) *Sandbox {
	var log zerolog.Logger
	if logger != nil {
		log = logger.With().Str("component", "payments").Logger()
	}
	return &Sandbox{holds: make(map[string]*hold), log: log}
}

func (s *Sandbox) Hold(ctx context.Context, amount int64, destinationAccount int64, metadata map[string]string) (string, error) {
	if amount <= 0 {
		return "", &Error{Op: "hold", Recoverable: true, Err: fmt.Errorf("non-positive amount %d", amount)}
	}

	ref := "hold_" + uuid.NewString()
	s.mu.Lock()
	s.holds[ref] = &hold{amount: amount, destination: destinationAccount, state: holdActive}
	s.mu.Unlock()

	s.log.Debug().Str("hold_ref", ref).Int64("amount", amount).Msg("hold placed")
	return ref, nil
}

func (s *Sandbox) ReleaseHold(ctx context.Context, holdRef string) error {
	if s.FailRelease {
		return &Error{Op: "release", Recoverable: true, Err: errors.New("injected release failure")}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.holds[holdRef]
	if !ok {
		return &Error{Op: "release", Recoverable: true, Err: ErrUnknownHold}
	}
	if h.state != holdActive {
		return &Error{Op: "release", Recoverable: true, Err: ErrHoldNotActive}
	}
	h.state = holdReleased
	return nil
}

func (s *Sandbox) Capture(ctx context.Context, holdRef string) error {
	if s.FailCapture {
		return &Error{Op: "capture", Recoverable: false, Err: errors.New("injected capture failure")}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.holds[holdRef]
	if !ok {
		return &Error{Op: "capture", Recoverable: false, Err: ErrUnknownHold}
	}
	if h.state != holdActive {
		return &Error{Op: "capture", Recoverable: false, Err: ErrHoldNotActive}
	}
	h.state = holdCaptured
	return nil
}

func (s *Sandbox) Transfer(ctx context.Context, amount int64, destinationAccount int64, metadata map[string]string) (string, error) {
	if s.FailTransfer {
		return "", &Error{Op: "transfer", Recoverable: true, Err: errors.New("injected transfer failure")}
	}
	if amount <= 0 {
		return "", &Error{Op: "transfer", Recoverable: true, Err: fmt.Errorf("non-positive amount %d", amount)}
	}

	ref := "tr_" + uuid.NewString()
	s.log.Debug().Str("transfer_ref", ref).Int64("amount", amount).Int64("account", destinationAccount).Msg("transfer sent")
	return ref, nil
}

// HoldState returns the sandbox-internal state of a hold, for tests.
func (s *Sandbox) HoldState(holdRef string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.holds[holdRef]
	if !ok {
		return "", false
	}
	return string(h.state), true
}
