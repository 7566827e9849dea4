// Package domain holds the workspace snapshot model: the desktop document
// (widgets, navigation, settings) and the file index document. A snapshot is
// always persisted and transferred as a whole.
package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// SchemaVersion is written into every snapshot. Reserved for migrations.
const SchemaVersion = 1

// Document is what the sync engine needs to know about a snapshot kind.
type Document interface {
	// Timestamp returns the snapshot's updatedAt in unix milliseconds.
	Timestamp() int64
	// Stamp sets the snapshot's updatedAt.
	Stamp(ms int64)
	// IsEmpty reports whether every guarded collection is empty.
	IsEmpty() bool
}

var (
	ErrUnknownWidgetKind = errors.New("unknown widget kind")
	ErrWidgetNotFound    = errors.New("widget not found")
	ErrWrongWidgetKind   = errors.New("operation not supported for widget kind")
	ErrItemNotFound      = errors.New("item not found")
	ErrInvalidTheme      = errors.New("invalid theme mode")
	ErrFolderNotFound    = errors.New("folder not found")
	ErrFileNotFound      = errors.New("file not found")
)

// NewID generates identifiers for widgets, items and navigation entries.
// UUIDv7 keeps them roughly time ordered.
var NewID = func() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Millis converts t to the unix millisecond representation used on the wire.
func Millis(t time.Time) int64 {
	return t.UnixMilli()
}
