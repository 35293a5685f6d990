package collector

import (
	"catalog_scraper/domain/entities"
	"catalog_scraper/domain/interfaces"
	"catalog_scraper/infrastructure/config"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Collector loads every item of a lazily rendered list by scrolling until the
// advertised total is visible or the list stops growing
type Collector struct {
	summarySelector  string
	summaryDelimiter string
	itemSelector     string
	scrollDelta      float64
	maxTriggers      int
	readWait         time.Duration
	growthWait       time.Duration
	logger           *logrus.Logger
}

// NewCollector - creates a collector for target's item list
func NewCollector(target config.Target, timeouts config.Timeouts, logger *logrus.Logger) *Collector {
	return &Collector{
		summarySelector:  target.SummarySelector,
		summaryDelimiter: target.SummaryDelimiter,
		itemSelector:     target.ItemSelector,
		scrollDelta:      target.ScrollDelta,
		maxTriggers:      target.MaxGrowthTriggers,
		readWait:         timeouts.Default.Duration(),
		growthWait:       timeouts.Growth.Duration(),
		logger:           logger,
	}
}

// CollectAll - returns the handles of all loaded items in DOM order
func (c *Collector) CollectAll(ctx context.Context, view interfaces.View) ([]interfaces.Element, entities.ExtractionState, error) {
	state := entities.ExtractionState{PreviousVisibleCount: -1}

	summary, err := view.Text(ctx, c.summarySelector, c.readWait)
	if err != nil {
		return nil, state, fmt.Errorf("%w: item count summary not found: %v", entities.ErrDataIntegrity, err)
	}
	total, err := ParseExpectedTotal(summary, c.summaryDelimiter)
	if err != nil {
		return nil, state, err
	}
	state.ExpectedTotal = total

	c.logger.WithField("expected", total).Info("extracting products")

	var items []interfaces.Element
	for {
		items, err = view.Elements(ctx, c.itemSelector)
		if err != nil {
			return nil, state, fmt.Errorf("%w: failed to list items: %v", entities.ErrNavigation, err)
		}
		state.VisibleCount = len(items)

		if state.Stalled() {
			c.logger.WithFields(logrus.Fields{
				"visible":  state.VisibleCount,
				"expected": state.ExpectedTotal,
			}).Warn("list stopped growing before reaching the expected total")
			break
		}
		state.PreviousVisibleCount = state.VisibleCount

		if state.Reached() {
			break
		}

		if c.maxTriggers > 0 && state.Triggers >= c.maxTriggers {
			return nil, state, fmt.Errorf("%w: list still growing after %d scrolls (%d of %d items)",
				entities.ErrDataIntegrity, state.Triggers, state.VisibleCount, state.ExpectedTotal)
		}

		var last interfaces.Element
		if len(items) > 0 {
			last = items[len(items)-1]
		}
		if err := c.grow(ctx, view, last, state.VisibleCount); err != nil {
			return nil, state, err
		}
		state.Triggers++

		c.logger.WithFields(logrus.Fields{
			"visible":  state.VisibleCount,
			"expected": state.ExpectedTotal,
		}).Debug("loaded more items")
	}

	return items, state, nil
}

// grow - hovers the last item, scrolls and waits for the list to pass count.
// last is nil while the list is still empty.
func (c *Collector) grow(ctx context.Context, view interfaces.View, last interfaces.Element, count int) error {
	if last != nil {
		if err := last.Hover(ctx); err != nil {
			return fmt.Errorf("%w: failed to hover last item: %v", entities.ErrNavigation, err)
		}
	}
	if err := view.Scroll(ctx, 0, c.scrollDelta); err != nil {
		return fmt.Errorf("%w: %v", entities.ErrNavigation, err)
	}
	if err := view.WaitForCountAbove(ctx, c.itemSelector, count, c.growthWait); err != nil {
		return fmt.Errorf("%w: no new items after scrolling past %d: %v", entities.ErrNavigation, count, err)
	}
	return nil
}

// ParseExpectedTotal - reads the integer after delimiter in a summary such as
// "Showing 1-24 of 24 products"
func ParseExpectedTotal(summary, delimiter string) (int, error) {
	_, after, found := strings.Cut(summary, delimiter)
	if !found {
		return 0, fmt.Errorf("%w: summary %q has no %q", entities.ErrDataIntegrity, summary, delimiter)
	}

	fields := strings.Fields(after)
	if len(fields) == 0 {
		return 0, fmt.Errorf("%w: summary %q has no total", entities.ErrDataIntegrity, summary)
	}

	total, err := strconv.Atoi(strings.ReplaceAll(fields[0], ",", ""))
	if err != nil || total < 0 {
		return 0, fmt.Errorf("%w: summary %q has no valid total", entities.ErrDataIntegrity, summary)
	}
	return total, nil
}
