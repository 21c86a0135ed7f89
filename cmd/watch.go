package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/TFMV/treewalk/walk"
	"github.com/spf13/cobra"
)

var (
	// Watch command options
	watchLinks     bool
	watchDirs      bool
	watchFiles     bool
	watchRecursive bool
	watchTimeout   time.Duration
	watchVerbose   bool
)

// watchCmd represents the watch command.
var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Report entries as they are created",
	Long: `Watch a directory tree and print the path of each newly created entry
that passes the type filter, one per line.

Examples:
  treewalk watch /tmp
  treewalk watch --files --recursive /var/spool
  treewalk watch --timeout=30s .`,
	Args:          cobra.MaximumNArgs(1),
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE: func(cmd *cobra.Command, args []string) error {
		root := "."
		if len(args) > 0 {
			root = args[0]
		}
		return runWatch(cmd.Context(), root)
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().BoolVarP(&watchLinks, "links", "l", false, "Report symbolic links")
	watchCmd.Flags().BoolVarP(&watchDirs, "dirs", "d", false, "Report directories")
	watchCmd.Flags().BoolVarP(&watchFiles, "files", "f", false, "Report regular files")
	watchCmd.Flags().BoolVarP(&watchRecursive, "recursive", "r", true, "Watch subdirectories recursively")
	watchCmd.Flags().DurationVar(&watchTimeout, "timeout", 0, "Stop watching after this duration (0 = run until interrupted)")
	watchCmd.Flags().BoolVarP(&watchVerbose, "verbose", "v", false, "Enable verbose logging")
}

func runWatch(ctx context.Context, root string) error {
	var types []walk.EntryType
	if watchLinks {
		types = append(types, walk.TypeSymlink)
	}
	if watchDirs {
		types = append(types, walk.TypeDirectory)
	}
	if watchFiles {
		types = append(types, walk.TypeRegular)
	}

	opts := walk.WatchOptions{
		Types:     walk.NewTypeSet(types...),
		Recursive: watchRecursive,
		Timeout:   watchTimeout,
	}
	if watchVerbose {
		opts.LogLevel = walk.LogLevelDebug
	}

	err := walk.Watch(ctx, root, opts, func(ctx context.Context, e walk.Entry) error {
		_, werr := fmt.Fprintln(os.Stdout, e.Path)
		return werr
	})
	// Running out the clock or being interrupted is a normal stop.
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
