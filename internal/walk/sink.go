package treewalk

import (
	"bufio"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Sink receives matching paths from the walk. Exactly one sink is selected
// before the walk starts and it is never switched mid-run.
type Sink interface {
	// Emit hands one matching path to the sink.
	Emit(path string) error
	// Flush completes the run: it drains any buffered results and forces
	// pending bytes out to the underlying stream.
	Flush() error
}

// --------------------------------------------------------------------------
// Streaming sink
// --------------------------------------------------------------------------

// streamSink writes each path the moment it is emitted, in walk order.
type streamSink struct {
	w *bufio.Writer
}

func newStreamSink(w *bufio.Writer) *streamSink {
	return &streamSink{w: w}
}

func (s *streamSink) Emit(path string) error {
	if _, err := s.w.WriteString(path); err != nil {
		return wrapWriteError(err)
	}
	return wrapWriteError(s.w.WriteByte('\n'))
}

func (s *streamSink) Flush() error {
	return wrapWriteError(s.w.Flush())
}

// --------------------------------------------------------------------------
// Buffer-and-sort sink
// --------------------------------------------------------------------------

// sortSink accumulates every match, sorts the buffer once at Flush by locale
// collation, then writes all lines. A nil collator means byte order.
type sortSink struct {
	w     *bufio.Writer
	coll  *collate.Collator
	paths []string
}

func newSortSink(w *bufio.Writer, coll *collate.Collator) *sortSink {
	return &sortSink{w: w, coll: coll}
}

func (s *sortSink) Emit(path string) error {
	s.paths = append(s.paths, path)
	return nil
}

func (s *sortSink) Flush() error {
	if s.coll != nil {
		s.coll.SortStrings(s.paths)
	} else {
		sort.Strings(s.paths)
	}
	for _, p := range s.paths {
		if _, err := s.w.WriteString(p); err != nil {
			return wrapWriteError(err)
		}
		if err := s.w.WriteByte('\n'); err != nil {
			return wrapWriteError(err)
		}
	}
	s.paths = nil
	return wrapWriteError(s.w.Flush())
}

// newSink selects the sink for a run from the resolved options.
func newSink(opts Options, w *bufio.Writer, logger *zap.Logger) Sink {
	if !opts.Sort {
		return newStreamSink(w)
	}
	return newSortSink(w, collatorForLocale(opts.Locale, logger))
}

// --------------------------------------------------------------------------
// Locale collation
// --------------------------------------------------------------------------

// collatorForLocale resolves a collator for the given locale name, falling
// back to the process environment when the name is empty. The C and POSIX
// locales, and anything unparseable, collate in raw byte order (nil).
func collatorForLocale(locale string, logger *zap.Logger) *collate.Collator {
	if locale == "" {
		locale = envLocale()
	}
	if locale == "" || locale == "C" || locale == "POSIX" {
		return nil
	}
	// Strip a charset suffix such as ".UTF-8" and map the POSIX form
	// "en_US" to the BCP 47 form "en-US".
	if i := strings.IndexByte(locale, '.'); i >= 0 {
		locale = locale[:i]
	}
	locale = strings.ReplaceAll(locale, "_", "-")

	tag, err := language.Parse(locale)
	if err != nil {
		logger.Warn("unrecognized collation locale, using byte order",
			zap.String("locale", locale),
			zap.Error(err),
		)
		return nil
	}
	return collate.New(tag)
}

// envLocale picks the collation locale from the environment in the usual
// precedence order.
func envLocale() string {
	for _, key := range []string{"LC_ALL", "LC_COLLATE", "LANG"} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}
