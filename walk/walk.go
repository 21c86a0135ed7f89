package walk

import (
	"context"

	internal "github.com/TFMV/treewalk/internal/walk"
)

// Re-export the types from the internal package.
type (
	// Entry is one classified node of the tree.
	Entry = internal.Entry

	// EntryType is the classification of a single filesystem entry.
	EntryType = internal.EntryType

	// TypeSet is the set of entry types selected for output.
	TypeSet = internal.TypeSet

	// Options configures a single run.
	Options = internal.Options

	// Stats holds counters accumulated over one walk.
	Stats = internal.Stats

	// Sink receives matching paths from the walk.
	Sink = internal.Sink

	// StatError reports a failed status lookup for a single entry.
	StatError = internal.StatError

	// LogLevel defines the verbosity of logging.
	LogLevel = internal.LogLevel

	// WatchOptions configures a watch session over a subtree.
	WatchOptions = internal.WatchOptions

	// WatchHandler processes one newly created entry that passed the filter.
	WatchHandler = internal.WatchHandler
)

// Re-export the constants.
const (
	// Entry types
	TypeOther     = internal.TypeOther
	TypeRegular   = internal.TypeRegular
	TypeDirectory = internal.TypeDirectory
	TypeSymlink   = internal.TypeSymlink

	// Log levels
	LogLevelError = internal.LogLevelError
	LogLevelWarn  = internal.LogLevelWarn
	LogLevelInfo  = internal.LogLevelInfo
	LogLevelDebug = internal.LogLevelDebug

	// DefaultMaxOpenDirs caps the open-directory-handle count of a walk.
	DefaultMaxOpenDirs = internal.DefaultMaxOpenDirs
)

// Re-export the sentinel errors.
var (
	// ErrClosedPipe marks a write that failed because the consumer closed
	// the output stream.
	ErrClosedPipe = internal.ErrClosedPipe

	// ErrTooDeep marks a walk that exceeded the open-directory ceiling.
	ErrTooDeep = internal.ErrTooDeep
)

// NewTypeSet builds a set from the given types. An empty set matches every
// entry type, including TypeOther.
func NewTypeSet(types ...EntryType) TypeSet {
	return internal.NewTypeSet(types...)
}

// Classify determines the type of the entry at path without following
// symbolic links.
func Classify(path string) (EntryType, error) {
	return internal.Classify(path)
}

// Run walks the subtree rooted at opts.Root, writing matching paths to the
// configured output stream, one per line.
func Run(ctx context.Context, opts Options) (Stats, error) {
	return internal.Run(ctx, opts)
}

// Watch reports entries created under root until the context is canceled or
// the configured timeout elapses.
func Watch(ctx context.Context, root string, opts WatchOptions, handler WatchHandler) error {
	return internal.Watch(ctx, root, opts, handler)
}
