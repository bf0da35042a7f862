// treegrid: directory browser built on the treegrid package.
//
// Directories expand lazily (children are listed off the event loop), the
// root listing is paged in as you scroll, "/" filters with fzf syntax
// without losing expansion, and expanded directories are watched for
// changes.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bdlm/log"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

type flags struct {
	config   string
	logFile  string
	logLevel string
	dump     bool
	depth    int
	pageSize int
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:          "treegrid [dir]",
		Short:        "Browse a directory tree in a virtualized grid",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			return run(cmd.Context(), dir, f, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&f.config, "config", "c", "", "layout file (HCL); built-in layout if empty")
	cmd.Flags().StringVar(&f.logFile, "log-file", "", "write logs to this file")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "info", "log level")
	cmd.Flags().BoolVar(&f.dump, "dump", false, "print the grid once and exit")
	cmd.Flags().IntVar(&f.depth, "depth", 0, "with --dump, expand directories this many levels deep")
	cmd.Flags().IntVar(&f.pageSize, "page-size", 0, "root entries per page (overrides the layout)")
	return cmd
}

func run(ctx context.Context, dir string, f flags, out io.Writer) error {
	closeLog, err := setupLogging(f)
	if err != nil {
		return err
	}
	defer closeLog()

	root, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", dir, err)
	}
	cfg, err := LoadConfig(f.config)
	if err != nil {
		return err
	}
	if f.pageSize > 0 {
		cfg.PageSize = f.pageSize
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if f.dump {
		return dump(ctx, out, root, cfg, f.depth)
	}

	w, err := newWatcher()
	if err != nil {
		log.WithFields(log.Fields{"err": err}).Warn("directory watching disabled")
	}
	defer w.close()

	m, err := newModel(ctx, root, cfg, w)
	if err != nil {
		return err
	}
	defer m.lister.close()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	m.send = p.Send
	if w != nil {
		go w.run(func(dir string) { p.Send(dirChangedMsg{dir: dir}) })
	}

	log.WithFields(log.Fields{"root": root}).Info("starting")
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run: %w", err)
	}
	return nil
}

// setupLogging routes logs to --log-file. The terminal belongs to the UI,
// so without a file interactive runs discard logs.
func setupLogging(f flags) (func(), error) {
	level, err := log.ParseLevel(f.logLevel)
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", f.logLevel, err)
	}
	log.SetLevel(level)
	log.SetFormatter(&log.TextFormatter{})

	switch {
	case f.logFile != "":
		file, err := os.OpenFile(f.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		log.SetOutput(file)
		return func() { file.Close() }, nil
	case f.dump:
		log.SetOutput(os.Stderr)
	default:
		log.SetOutput(io.Discard)
	}
	return func() {}, nil
}
