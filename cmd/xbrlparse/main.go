package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"tidyxbrl/pkg/core/config"
	"tidyxbrl/pkg/core/export"
	"tidyxbrl/pkg/core/pipeline"
)

type options struct {
	configPath string
	format     string
	contexts   []string
	timeout    int
	userAgent  string
	unqualify  []string
	save       bool
	verbose    bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "xbrlparse <path-or-url>...",
		Short: "Flatten XBRL instance documents into a tidy fact table",
		Long: `xbrlparse reads XBRL instance or inline XBRL documents from URLs or local
files and prints one row per fact: the context's descriptive fields, then
datacode and datavalue.

SEC EDGAR requires a descriptive User-Agent ("Company Name admin@company.com");
set it with --user-agent or TIDYXBRL_USER_AGENT.`,
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), opts, args)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", config.DefaultPath, "settings file")
	f.StringVarP(&opts.format, "format", "f", export.FormatCSV, "output format: csv, json or text")
	f.StringSliceVarP(&opts.contexts, "context", "c", nil, "only keep rows for these context ids")
	f.IntVar(&opts.timeout, "timeout", 0, "per-fetch timeout in seconds (default from config)")
	f.StringVar(&opts.userAgent, "user-agent", "", "User-Agent sent with HTTP requests")
	f.StringSliceVar(&opts.unqualify, "unqualify", nil, "namespace prefixes to treat as default (e.g. xbrli)")
	f.BoolVar(&opts.save, "save", false, "persist each run to the configured store")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "log progress and warnings to stderr")

	return cmd
}

func run(ctx context.Context, out, errOut io.Writer, opts *options, paths []string) error {
	if opts.verbose {
		log.SetOutput(errOut)
	} else {
		log.SetOutput(io.Discard)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	switch strings.ToLower(opts.format) {
	case export.FormatCSV, export.FormatJSON, export.FormatText:
	default:
		return fmt.Errorf("unknown format %q (want csv, json or text)", opts.format)
	}

	// .env is optional
	godotenv.Load()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.userAgent != "" {
		cfg.Fetch.UserAgent = opts.userAgent
	}
	if opts.timeout > 0 {
		cfg.Fetch.TimeoutSeconds = opts.timeout
	}
	if len(opts.unqualify) > 0 {
		cfg.Flatten.Unqualify = opts.unqualify
	}

	orch := pipeline.NewFromConfig(cfg)
	if opts.save {
		repo, err := pipeline.OpenRepository(ctx, cfg.Store)
		if err != nil {
			return err
		}
		orch.SetRepository(repo)
	}

	for _, path := range paths {
		res, err := orch.Run(ctx, pipeline.Request{Path: path, Contexts: opts.contexts, Save: opts.save})
		if err != nil {
			return err
		}
		if err := export.Write(out, res.Table, opts.format); err != nil {
			return err
		}
		if res.Table.Stats.Orphans > 0 {
			fmt.Fprintf(errOut, "%s: %d fact(s) referenced unknown contexts %v\n",
				path, res.Table.Stats.Orphans, res.Table.Stats.OrphanRefs)
		}
		if res.Saved {
			fmt.Fprintf(errOut, "%s: saved as run %s\n", path, res.ID)
		}
	}
	return nil
}
