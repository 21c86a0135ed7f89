package treewalk

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/karrick/godirwalk"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Run walks the subtree rooted at opts.Root, forwarding every matching entry
// to the selected sink. Recoverable per-entry failures are reported on the
// diagnostic stream and absorbed; the returned error is non-nil only for
// fatal conditions (unreachable root, output failure, resource ceiling).
func Run(ctx context.Context, opts Options) (Stats, error) {
	logger := opts.Logger
	if logger == nil {
		logger = createLogger(opts.LogLevel)
		defer logger.Sync()
	}

	root := opts.Root
	if root == "" {
		root = "."
	}
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	maxOpen := opts.MaxOpenDirs
	if maxOpen <= 0 {
		maxOpen = DefaultMaxOpenDirs
	}

	logger.Debug("starting walk",
		zap.String("root", root),
		zap.Bool("sort", opts.Sort),
		zap.Int("max_open_dirs", maxOpen),
	)

	out := bufio.NewWriter(stdout)
	w := &walker{
		types:   opts.Types,
		sink:    newSink(opts, out, logger),
		maxOpen: maxOpen,
		errw:    stderr,
		logger:  logger,
	}

	start := time.Now()
	err := w.walk(ctx, root)
	if err == nil {
		err = w.sink.Flush()
	} else if !errors.Is(err, ErrClosedPipe) {
		// Results gathered before the fatal condition are still delivered.
		if ferr := w.sink.Flush(); ferr != nil && !errors.Is(ferr, ErrClosedPipe) {
			err = errors.Join(err, ferr)
		}
	}
	w.stats.Elapsed = time.Since(start)

	logger.Debug("walk finished",
		zap.Int64("dirs", w.stats.Dirs),
		zap.Int64("files", w.stats.Files),
		zap.Int64("symlinks", w.stats.Symlinks),
		zap.Int64("others", w.stats.Others),
		zap.Int64("matched", w.stats.Matched),
		zap.Int64("errors", w.stats.Errors),
		zap.Duration("elapsed", w.stats.Elapsed),
		zap.Error(err),
	)
	return w.stats, err
}

// walker carries the per-run state of one traversal. It is strictly
// single-threaded: recursion is the only stacking of work.
type walker struct {
	types   TypeSet
	sink    Sink
	maxOpen int
	errw    io.Writer
	logger  *zap.Logger
	stats   Stats
}

// walk classifies the root and dispatches. A root that cannot be classified
// is fatal; a non-directory root is filtered as a single entry and the run
// ends without recursion.
func (w *walker) walk(ctx context.Context, root string) error {
	typ, err := Classify(root)
	if err != nil {
		return fmt.Errorf("cannot access %q: %w", root, err)
	}
	// The root is subject to the type filter like any other entry.
	if err := w.visit(Entry{Path: root, Type: typ, Depth: 0}); err != nil {
		return err
	}
	if typ != TypeDirectory {
		return nil
	}
	return w.walkDir(ctx, root, 1)
}

// walkDir lists one directory and recurses into its subdirectories in
// pre-order. The directory handle stays open for the duration of the loop,
// so depth equals the number of simultaneously open handles.
func (w *walker) walkDir(ctx context.Context, dir string, depth int) error {
	if depth > w.maxOpen {
		return fmt.Errorf("%w: %q at depth %d", ErrTooDeep, dir, depth)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	scanner, err := godirwalk.NewScanner(dir)
	if err != nil {
		w.diag("cannot open directory %s: %v", dir, errCause(err))
		return nil
	}

	for scanner.Scan() {
		name := scanner.Name()
		if name == "." || name == ".." {
			continue
		}
		child := joinPath(dir, name)

		typ, err := Classify(child)
		if err != nil {
			w.diag("%v", err)
			continue
		}
		if err := w.visit(Entry{Path: child, Type: typ, Depth: depth}); err != nil {
			return err
		}
		// Recurse into real directories only; a symlink to a directory is
		// reported but never entered.
		if typ == TypeDirectory {
			if err := w.walkDir(ctx, child, depth+1); err != nil {
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		w.diag("error reading directory %s: %v", dir, errCause(err))
	}
	return nil
}

// visit counts the entry and forwards it to the sink when it passes the
// type filter. Sink failures are fatal and unwind the whole walk.
func (w *walker) visit(e Entry) error {
	w.stats.note(e.Type)
	if !w.types.Matches(e.Type) {
		return nil
	}
	w.stats.Matched++
	return w.sink.Emit(e.Path)
}

// diag reports one recoverable failure as a human-readable line on the
// diagnostic stream. It never interrupts the walk.
func (w *walker) diag(format string, args ...any) {
	w.stats.Errors++
	fmt.Fprintf(w.errw, format+"\n", args...)
	w.logger.Debug("recovered walk error", zap.String("detail", fmt.Sprintf(format, args...)))
}

// errCause unwraps *os.PathError noise so diagnostics read like the
// underlying condition ("permission denied") rather than a doubled path.
func errCause(err error) error {
	var perr *os.PathError
	if errors.As(err, &perr) {
		return perr.Err
	}
	return err
}

// joinPath appends a child name to a parent path, inserting a separator only
// when needed. Unlike filepath.Join it never cleans the parent, so a walk
// started at "./x" reports paths under "./x" byte for byte.
func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	if parent[len(parent)-1] == os.PathSeparator {
		return parent + name
	}
	return parent + string(os.PathSeparator) + name
}

// createLogger creates a zap logger with the specified log level.
func createLogger(level LogLevel) *zap.Logger {
	var config zap.Config
	switch level {
	case LogLevelWarn:
		config = zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case LogLevelInfo:
		config = zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case LogLevelDebug:
		config = zap.NewDevelopmentConfig()
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		config = zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}
	logger, _ := config.Build()
	return logger
}
