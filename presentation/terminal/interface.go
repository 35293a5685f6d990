package terminal

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"catalog_scraper/application/pipeline"
	"catalog_scraper/domain/entities"
	"catalog_scraper/domain/interfaces"
	"catalog_scraper/infrastructure/browser"
	"catalog_scraper/infrastructure/config"
	"catalog_scraper/infrastructure/storage"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var version = "dev"

type options struct {
	configPath string
	envFile    string
	session    string
	output     string
	archive    string
	headless   bool
	timeout    time.Duration
	table      bool
	verbose    bool
}

type TerminalInterface struct {
	cmd    *cobra.Command
	opts   options
	logger *logrus.Logger
	out    io.Writer
}

func NewTerminalInterface() *TerminalInterface {
	// Setup logger
	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	t := &TerminalInterface{
		logger: logger,
		out:    os.Stdout,
	}

	cmd := &cobra.Command{
		Use:     "catalog_scraper",
		Short:   "Extract the product catalog behind the inventory login",
		Version: version,
		Long: `catalog_scraper signs in to the inventory application (reusing the saved
session when it is still valid), walks the menu to the full product catalog,
scrolls until every product is loaded and writes them as a JSON array.

Credentials are read from USERNAME and PASSWORD, a .env file is loaded first.`,
		Example: `  # Headed run with defaults, writes product_data.json and session.json
  catalog_scraper

  # Headless, with a SQLite archive of every run and a summary table
  catalog_scraper --headless --archive runs.db --table`,
		Args:          cobra.NoArgs,
		RunE:          t.run,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.Flags()
	flags.StringVarP(&t.opts.configPath, "config", "c", "catalog.json5", "Config file (a .local variant is merged over it)")
	flags.StringVar(&t.opts.envFile, "env-file", ".env", "Environment file with USERNAME and PASSWORD")
	flags.StringVar(&t.opts.session, "session", "", "Session file (default from config: session.json)")
	flags.StringVarP(&t.opts.output, "output", "o", "", "Output file (default from config: product_data.json)")
	flags.StringVar(&t.opts.archive, "archive", "", "SQLite file that keeps the records of every run")
	flags.BoolVar(&t.opts.headless, "headless", false, "Run the browser without a window")
	flags.DurationVarP(&t.opts.timeout, "timeout", "t", 0, "Default timeout for waits without their own bound")
	flags.BoolVar(&t.opts.table, "table", false, "Print the extracted records as a table")
	flags.BoolVarP(&t.opts.verbose, "verbose", "v", false, "Debug logging")

	t.cmd = cmd
	return t
}

// Execute - runs the command with os.Args
func (t *TerminalInterface) Execute() error {
	return t.cmd.Execute()
}

func (t *TerminalInterface) run(cmd *cobra.Command, args []string) error {
	if t.opts.verbose {
		t.logger.SetLevel(logrus.DebugLevel)
	}

	cfg, err := t.loadConfig(cmd)
	if err != nil {
		t.logger.WithError(err).Error("invalid configuration")
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	var sinks []interfaces.RecordSink
	if cfg.Paths.Archive != "" {
		archive, err := storage.OpenArchive(cfg.Paths.Archive)
		if err != nil {
			t.logger.WithError(err).Error("failed to open archive")
			return err
		}
		defer archive.Close()
		sinks = append(sinks, archive)
	}
	// output file last, a failed archive write leaves it untouched
	sinks = append(sinks, storage.JSONFile{Path: cfg.Paths.Output})

	launch := func(ctx context.Context) (interfaces.Browser, error) {
		return browser.NewBrowserController(t.logger, browser.Options{
			Headless:       cfg.Browser.Headless,
			Args:           cfg.Browser.Args,
			DefaultTimeout: cfg.Timeouts.Default.Duration(),
		})
	}
	sessions := storage.NewSessionStore(cfg.Paths.Session, cfg.Target.Hostname, t.logger)

	result, err := pipeline.New(&cfg, launch, sessions, sinks, t.logger).Run(ctx)
	if err != nil {
		t.logger.WithError(err).Error("extraction failed")
		return err
	}

	t.logger.WithFields(logrus.Fields{
		"path":     cfg.Paths.Output,
		"records":  len(result.Records),
		"expected": result.State.ExpectedTotal,
	}).Info("data saved")

	if t.opts.table {
		renderTable(t.out, result.Records)
	}
	return nil
}

// loadConfig - reads the config and applies the flags the user set
func (t *TerminalInterface) loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(t.logger, t.opts.configPath, t.opts.envFile)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("session") {
		cfg.Paths.Session = t.opts.session
	}
	if flags.Changed("output") {
		cfg.Paths.Output = t.opts.output
	}
	if flags.Changed("archive") {
		cfg.Paths.Archive = t.opts.archive
	}
	if flags.Changed("headless") {
		cfg.Browser.Headless = t.opts.headless
	}
	if flags.Changed("timeout") {
		cfg.Timeouts.Default = config.Millis(t.opts.timeout.Milliseconds())
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func renderTable(w io.Writer, records []entities.ProductRecord) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"#", "Product Name", "ID", "Shade", "Details", "Guarantee"})
	for i, r := range records {
		tw.AppendRow(table.Row{i + 1, r.Name, r.ID, r.Shade, r.Details, r.Guarantee})
	}
	tw.AppendFooter(table.Row{"", fmt.Sprintf("%d products", len(records))})
	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Footer = text.FormatDefault
	tw.Render()
}
