package conversation

import (
	"errors"
	"fmt"
)

// ErrEmptyInput is returned for blank user input; no turn is started.
var ErrEmptyInput = errors.New("empty input")

// ErrTurnInProgress is returned when Turn is called before the previous turn
// has returned to Idle.
var ErrTurnInProgress = errors.New("a turn is already in progress")

// Kind classifies a failed turn.
type Kind string

const (
	KindTransport    Kind = "transport"     // chat call failed
	KindStorage      Kind = "storage"       // session or plan directory read/write failed
	KindVersionWrite Kind = "version_write" // plan files could not be written
)

// TurnError wraps a turn failure with the operation that failed.
type TurnError struct {
	Kind Kind
	Op   string // "append_user", "chat", "append_assistant", "next_version", "write_plan", "save_session"
	Err  error
}

func (e *TurnError) Error() string {
	return fmt.Sprintf("[%s op=%s] %v", e.Kind, e.Op, e.Err)
}

func (e *TurnError) Unwrap() error {
	return e.Err
}

func wrap(kind Kind, op string, err error) error {
	return &TurnError{Kind: kind, Op: op, Err: err}
}

func isKind(err error, kind Kind) bool {
	var turnErr *TurnError
	return errors.As(err, &turnErr) && turnErr.Kind == kind
}

// IsTransport reports whether err is a failed chat call.
func IsTransport(err error) bool { return isKind(err, KindTransport) }

// IsStorage reports whether err is a session or plan-root storage failure.
func IsStorage(err error) bool { return isKind(err, KindStorage) }

// IsVersionWrite reports whether err is a failed plan write.
func IsVersionWrite(err error) bool { return isKind(err, KindVersionWrite) }
