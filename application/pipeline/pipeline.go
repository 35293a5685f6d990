package pipeline

import (
	"catalog_scraper/application/auth"
	"catalog_scraper/application/collector"
	"catalog_scraper/application/navigation"
	"catalog_scraper/application/parser"
	"catalog_scraper/domain/entities"
	"catalog_scraper/domain/interfaces"
	"catalog_scraper/infrastructure/config"
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Launcher acquires the browser for one run
type Launcher func(ctx context.Context) (interfaces.Browser, error)

// Result is what a successful run produced
type Result struct {
	Records []entities.ProductRecord
	State   entities.ExtractionState
}

// Pipeline runs restore, login, navigation, collection, parsing, output and
// session save strictly in order against a single browser
type Pipeline struct {
	launch     Launcher
	sessions   interfaces.SessionStore
	auth       *auth.Controller
	navigation *navigation.Controller
	collector  *collector.Collector
	parser     *parser.Parser
	sinks      []interfaces.RecordSink
	logger     *logrus.Logger
}

// New - wires the components from cfg. Records go to sinks in order and the
// first failure stops the run, so the primary output belongs last.
func New(cfg *config.Config, launch Launcher, sessions interfaces.SessionStore, sinks []interfaces.RecordSink, logger *logrus.Logger) *Pipeline {
	return &Pipeline{
		launch:     launch,
		sessions:   sessions,
		auth:       auth.NewController(&cfg.Credentials, cfg.Target, cfg.Timeouts, logger),
		navigation: navigation.NewController(cfg.Target, cfg.Timeouts, logger),
		collector:  collector.NewCollector(cfg.Target, cfg.Timeouts, logger),
		parser:     parser.NewParser(cfg.Target, logger),
		sinks:      sinks,
		logger:     logger,
	}
}

// Run - executes one extraction. The browser is closed on every path and
// nothing is written unless every step succeeded.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	view, err := p.launch(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("launch: %w", err)
	}
	defer func() {
		if err := view.Close(); err != nil {
			p.logger.WithError(err).Warn("failed to close browser")
		}
	}()

	p.sessions.Restore(ctx, view)

	if err := p.auth.EnsureAuthenticated(ctx, view); err != nil {
		return Result{}, fmt.Errorf("login: %w", err)
	}

	if err := p.navigation.ReachCatalogView(ctx, view); err != nil {
		return Result{}, fmt.Errorf("navigation: %w", err)
	}

	items, state, err := p.collector.CollectAll(ctx, view)
	if err != nil {
		return Result{}, fmt.Errorf("collect: %w", err)
	}

	records, err := p.parser.ParseAll(ctx, items)
	if err != nil {
		return Result{}, fmt.Errorf("parse: %w", err)
	}

	for _, sink := range p.sinks {
		if err := sink.WriteRecords(ctx, records); err != nil {
			return Result{}, fmt.Errorf("write: %w", err)
		}
	}

	p.sessions.Save(ctx, view)

	return Result{Records: records, State: state}, nil
}
