package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/phuslu/log"
	"github.com/spf13/cobra"

	"github.com/dshills/docsearch/internal/app"
	"github.com/dshills/docsearch/internal/config"
	"github.com/dshills/docsearch/internal/logging"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

// globalOptions are the persistent flags shared by every subcommand
type globalOptions struct {
	configPath string
	dataDir    string
	verbose    bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "docsearch",
		Short: "Metadata extraction and semantic search for local documents",
		Long: `docsearch extracts metadata from .txt, .md and .pdf files, stores it in
SQLite, indexes the documents as vectors and answers natural-language
queries with an optional document type filter.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "docsearch.yaml", "configuration file")
	root.PersistentFlags().StringVar(&opts.dataDir, "data-dir", "", "directory holding the databases (overrides config)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newIngestCmd(opts),
		newSearchCmd(opts),
		newGetCmd(opts),
		newTagsCmd(opts),
		newReconcileCmd(opts),
		newInspectPDFCmd(opts),
		newServeCmd(opts),
		newVersionCmd(),
	)
	return root
}

// loadConfig resolves the configuration and logger for a command
func (o *globalOptions) loadConfig() (*config.Config, *log.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, err
	}
	if o.dataDir != "" {
		cfg.BaseDir = o.dataDir
	}

	level := cfg.LogLevel
	if o.verbose {
		level = "debug"
	}
	logger := logging.New(logging.Options{Level: level, Console: true})
	return cfg, logger, nil
}

// openApp loads the configuration and opens every component
func (o *globalOptions) openApp() (*app.App, error) {
	cfg, logger, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	return app.Open(cfg, logger)
}
