package cmd

import (
	"context"
	"fmt"
	"os"

	treewalk "github.com/TFMV/treewalk/internal/walk"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	version = "0.1.0"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "treewalk [options] [path]",
	Short: "List a directory tree filtered by entry type",
	Long: `treewalk recursively lists the entries of a directory tree, one path per
line, classified as symbolic links, directories, or regular files.

With no type options every entry is listed, including sockets, FIFOs, and
devices. With one or more of -l, -d, -f only entries of the selected types
are listed. With -s the output is sorted by the collation order of the
active locale instead of traversal order.

Examples:
  treewalk /var/log -f
  treewalk -lds
  treewalk --sort --locale=en_US.UTF-8 /usr/share`,
	Version:       version,
	Args:          cobra.MaximumNArgs(1),
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE: func(cmd *cobra.Command, args []string) error {
		root := "."
		if len(args) > 0 {
			root = args[0]
		}
		return runWalk(cmd.Context(), root)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.treewalk.yaml)")

	// Flags
	rootCmd.Flags().BoolP("links", "l", false, "List symbolic links")
	rootCmd.Flags().BoolP("dirs", "d", false, "List directories")
	rootCmd.Flags().BoolP("files", "f", false, "List regular files")
	rootCmd.Flags().BoolP("sort", "s", false, "Sort output by locale collation")
	rootCmd.Flags().String("locale", "", "Collation locale (default: LC_ALL/LC_COLLATE/LANG)")
	rootCmd.Flags().Int("max-open-dirs", treewalk.DefaultMaxOpenDirs, "Maximum simultaneously open directory handles")
	rootCmd.Flags().BoolP("verbose", "v", false, "Enable verbose logging")
	rootCmd.Flags().Bool("silent", false, "Disable all logging except errors")
	rootCmd.Flags().Bool("stats", false, "Print walk statistics to stderr")

	// Bind flags to viper
	viper.BindPFlag("links", rootCmd.Flags().Lookup("links"))
	viper.BindPFlag("dirs", rootCmd.Flags().Lookup("dirs"))
	viper.BindPFlag("files", rootCmd.Flags().Lookup("files"))
	viper.BindPFlag("sort", rootCmd.Flags().Lookup("sort"))
	viper.BindPFlag("locale", rootCmd.Flags().Lookup("locale"))
	viper.BindPFlag("max-open-dirs", rootCmd.Flags().Lookup("max-open-dirs"))
	viper.BindPFlag("verbose", rootCmd.Flags().Lookup("verbose"))
	viper.BindPFlag("silent", rootCmd.Flags().Lookup("silent"))
	viper.BindPFlag("stats", rootCmd.Flags().Lookup("stats"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		// Search config in home directory with name ".treewalk" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".treewalk")
	}

	viper.AutomaticEnv() // read in environment variables that match

	// A config file is optional; ignore the error when none is found.
	_ = viper.ReadInConfig()
}

func runWalk(ctx context.Context, root string) error {
	var types []treewalk.EntryType
	if viper.GetBool("links") {
		types = append(types, treewalk.TypeSymlink)
	}
	if viper.GetBool("dirs") {
		types = append(types, treewalk.TypeDirectory)
	}
	if viper.GetBool("files") {
		types = append(types, treewalk.TypeRegular)
	}

	opts := treewalk.Options{
		Root:        root,
		Types:       treewalk.NewTypeSet(types...),
		Sort:        viper.GetBool("sort"),
		Locale:      viper.GetString("locale"),
		MaxOpenDirs: viper.GetInt("max-open-dirs"),
	}

	if viper.GetBool("verbose") {
		opts.LogLevel = treewalk.LogLevelDebug
	} else if viper.GetBool("silent") {
		opts.LogLevel = treewalk.LogLevelError
	} else {
		opts.LogLevel = treewalk.LogLevelWarn
	}

	stats, err := treewalk.Run(ctx, opts)

	if viper.GetBool("stats") {
		fmt.Fprintf(os.Stderr, "%d directories, %d files, %d symlinks, %d other, %d matched, %d errors in %s\n",
			stats.Dirs, stats.Files, stats.Symlinks, stats.Others, stats.Matched, stats.Errors, stats.Elapsed)
	}

	return err
}
