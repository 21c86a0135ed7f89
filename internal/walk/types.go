// Package treewalk lists the entries of a filesystem subtree, classified by
// type and optionally sorted by locale collation.
package treewalk

import (
	"io"
	"time"

	"go.uber.org/zap"
)

// DefaultMaxOpenDirs caps the number of directory handles held open at once,
// which equals the recursion depth of the walk.
const DefaultMaxOpenDirs = 64

// --------------------------------------------------------------------------
// Entry classification
// --------------------------------------------------------------------------

// EntryType is the classification of a single filesystem entry. A symbolic
// link is always classified as TypeSymlink, never as its target's type.
type EntryType int

const (
	TypeOther     EntryType = iota // sockets, FIFOs, devices, anything unlisted
	TypeRegular                    // regular files only
	TypeDirectory                  // directories
	TypeSymlink                    // symbolic links, including dangling ones
)

var entryTypeNames = [...]string{
	"other",
	"file",
	"directory",
	"symlink",
}

func (t EntryType) String() string {
	if t < TypeOther || t > TypeSymlink {
		return "unknown"
	}
	return entryTypeNames[t]
}

// Entry is one classified node of the tree. The path is fully built from the
// root as given; depth is 0 for the root itself.
type Entry struct {
	Path  string
	Type  EntryType
	Depth int
}

// --------------------------------------------------------------------------
// Type filtering
// --------------------------------------------------------------------------

// TypeSet is the set of entry types selected for output. The zero value is
// the unrestricted set: every type matches, including TypeOther.
type TypeSet uint8

const (
	maskSymlinks TypeSet = 1 << iota
	maskDirs
	maskFiles
)

// NewTypeSet builds a set from the given types. TypeOther is never a member
// of an explicit set; it only matches through the empty (unrestricted) set.
func NewTypeSet(types ...EntryType) TypeSet {
	var s TypeSet
	for _, t := range types {
		switch t {
		case TypeSymlink:
			s |= maskSymlinks
		case TypeDirectory:
			s |= maskDirs
		case TypeRegular:
			s |= maskFiles
		}
	}
	return s
}

// Matches reports whether an entry of type t is selected by the set.
func (s TypeSet) Matches(t EntryType) bool {
	if s == 0 {
		return true
	}
	switch t {
	case TypeSymlink:
		return s&maskSymlinks != 0
	case TypeDirectory:
		return s&maskDirs != 0
	case TypeRegular:
		return s&maskFiles != 0
	}
	return false
}

// IsEmpty reports whether the set is unrestricted.
func (s TypeSet) IsEmpty() bool { return s == 0 }

// --------------------------------------------------------------------------
// Configuration
// --------------------------------------------------------------------------

// LogLevel defines the verbosity of logging.
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
)

// Options configures a single run. It is immutable once the walk starts.
type Options struct {
	Root   string  // start path; "." when empty
	Types  TypeSet // selected entry types; zero value selects everything
	Sort   bool    // buffer results and sort by locale collation
	Locale string  // collation locale; "" resolves from the environment

	MaxOpenDirs int // recursion ceiling; DefaultMaxOpenDirs when <= 0

	Logger   *zap.Logger // optional; created from LogLevel when nil
	LogLevel LogLevel

	Stdout io.Writer // result stream; os.Stdout when nil
	Stderr io.Writer // diagnostic stream; os.Stderr when nil
}

// Stats holds counters accumulated over one walk.
type Stats struct {
	Dirs     int64 // directories visited
	Files    int64 // regular files visited
	Symlinks int64 // symbolic links visited
	Others   int64 // sockets, FIFOs, devices
	Matched  int64 // entries forwarded to the sink
	Errors   int64 // recovered per-entry and per-directory errors
	Elapsed  time.Duration
}

func (s *Stats) note(t EntryType) {
	switch t {
	case TypeDirectory:
		s.Dirs++
	case TypeRegular:
		s.Files++
	case TypeSymlink:
		s.Symlinks++
	default:
		s.Others++
	}
}
