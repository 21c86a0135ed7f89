package treewalk

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/karrick/godirwalk"
	"go.uber.org/zap"
)

// WatchOptions configures a watch session over a subtree.
type WatchOptions struct {
	Types     TypeSet       // same type filter as the walk
	Recursive bool          // watch subdirectories as well
	Timeout   time.Duration // stop after this long; 0 means run until canceled

	Logger   *zap.Logger
	LogLevel LogLevel
}

// WatchHandler processes one newly created entry that passed the filter.
type WatchHandler func(ctx context.Context, e Entry) error

// defaultWatchHandler prints the path of each entry, matching the output
// contract of the walk.
func defaultWatchHandler() WatchHandler {
	return func(ctx context.Context, e Entry) error {
		_, err := fmt.Println(e.Path)
		return err
	}
}

// Watch reports entries created under root for as long as the context (and
// optional timeout) allows. Created entries are classified and filtered
// exactly like walked ones; newly created directories are added to the
// watch when Recursive is set.
func Watch(ctx context.Context, root string, opts WatchOptions, handler WatchHandler) error {
	logger := opts.Logger
	if logger == nil {
		logger = createLogger(opts.LogLevel)
		defer logger.Sync()
	}
	if handler == nil {
		handler = defaultWatchHandler()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if opts.Recursive {
		if err := watchTree(watcher, root); err != nil {
			return err
		}
	} else {
		if err := watcher.Add(root); err != nil {
			return fmt.Errorf("watch %q: %w", root, err)
		}
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	logger.Debug("watching", zap.String("root", root), zap.Bool("recursive", opts.Recursive))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create == 0 {
				continue
			}
			typ, err := Classify(event.Name)
			if err != nil {
				// Created and removed before we could look; not an event.
				logger.Debug("skipping transient entry", zap.String("path", event.Name))
				continue
			}
			e := Entry{Path: event.Name, Type: typ, Depth: entryDepth(root, event.Name)}
			if opts.Types.Matches(typ) {
				if err := handler(ctx, e); err != nil {
					return err
				}
			}
			if typ == TypeDirectory && opts.Recursive {
				if err := watcher.Add(event.Name); err != nil {
					logger.Warn("cannot watch new directory",
						zap.String("path", event.Name),
						zap.Error(err),
					)
				}
			}
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", zap.Error(werr))
		}
	}
}

// watchTree registers root and every directory below it. Unreadable
// subtrees are skipped, mirroring the walk's recovery policy.
func watchTree(watcher *fsnotify.Watcher, dir string) error {
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %q: %w", dir, err)
	}
	names, err := godirwalk.ReadDirnames(dir, nil)
	if err != nil {
		return nil
	}
	for _, name := range names {
		child := joinPath(dir, name)
		if typ, err := Classify(child); err == nil && typ == TypeDirectory {
			if err := watchTree(watcher, child); err != nil {
				return err
			}
		}
	}
	return nil
}

// entryDepth computes the depth of path relative to root, root itself
// being 0.
func entryDepth(root, path string) int {
	rel := strings.TrimPrefix(path, root)
	rel = strings.Trim(rel, string(os.PathSeparator))
	if rel == "" {
		return 0
	}
	return strings.Count(rel, string(os.PathSeparator)) + 1
}
