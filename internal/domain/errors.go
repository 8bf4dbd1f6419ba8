package domain

import (
	"errors"
	"strings"
)

// Error kinds. Every failure surfaced by the engine matches exactly one of these via errors.Is.
var (
	ErrValidation       = errors.New("validation failure")
	ErrNoRoomsAvailable = errors.New("no rooms available")
	ErrDatasetNotFound  = errors.New("dataset not found")
	ErrRecordNotFound   = errors.New("record not found")
	ErrOccupantNotFound = errors.New("occupant not found")
	ErrPersistence      = errors.New("persistence failure")
)

var kinds = []error{
	ErrValidation,
	ErrNoRoomsAvailable,
	ErrDatasetNotFound,
	ErrRecordNotFound,
	ErrOccupantNotFound,
	ErrPersistence,
}

// Error carries the kind plus the dataset / room / identifier context needed to act on it.
type Error struct {
	Kind       error
	Message    string
	Dataset    string
	RoomID     string
	Identifier string
	Err        error
}

// NewError builds an Error of the given kind.
func NewError(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func (e *Error) WithDataset(name string) *Error {
	e.Dataset = name
	return e
}

func (e *Error) WithRoom(roomID string) *Error {
	e.RoomID = roomID
	return e
}

func (e *Error) WithIdentifier(identifier string) *Error {
	e.Identifier = identifier
	return e
}

// Wrap attaches the underlying cause.
func (e *Error) Wrap(err error) *Error {
	e.Err = err
	return e
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	var ctx []string
	if e.Dataset != "" {
		ctx = append(ctx, "dataset="+e.Dataset)
	}
	if e.RoomID != "" {
		ctx = append(ctx, "room="+e.RoomID)
	}
	if e.Identifier != "" {
		ctx = append(ctx, "identifier="+e.Identifier)
	}
	if len(ctx) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(ctx, ", "))
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindOf returns the error kind matched by err, or nil for errors outside the taxonomy.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// KindName is a stable snake_case label for metrics and logs.
func KindName(kind error) string {
	switch kind {
	case ErrValidation:
		return "validation_failure"
	case ErrNoRoomsAvailable:
		return "no_rooms_available"
	case ErrDatasetNotFound:
		return "dataset_not_found"
	case ErrRecordNotFound:
		return "record_not_found"
	case ErrOccupantNotFound:
		return "occupant_not_found"
	case ErrPersistence:
		return "persistence_failure"
	case nil:
		return "none"
	default:
		return "unknown"
	}
}
