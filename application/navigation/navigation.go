package navigation

import (
	"catalog_scraper/domain/entities"
	"catalog_scraper/domain/interfaces"
	"catalog_scraper/infrastructure/config"
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Controller walks the fixed menu path from the landing page to the catalog
type Controller struct {
	landmarks  []config.Landmark
	viewMarker config.Landmark
	stepWait   time.Duration
	markerWait time.Duration
	logger     *logrus.Logger
}

// NewController - creates a controller for target's landmark path
func NewController(target config.Target, timeouts config.Timeouts, logger *logrus.Logger) *Controller {
	return &Controller{
		landmarks:  target.Landmarks,
		viewMarker: target.ViewMarker,
		stepWait:   timeouts.Navigation.Duration(),
		markerWait: timeouts.ViewMarker.Duration(),
		logger:     logger,
	}
}

// ReachCatalogView - clicks every landmark in order, then waits for the catalog marker.
// There is no backtracking: the first step that fails aborts navigation.
func (c *Controller) ReachCatalogView(ctx context.Context, view interfaces.View) error {
	c.logger.Info("navigating to product table")

	for i, landmark := range c.landmarks {
		c.logger.WithFields(logrus.Fields{
			"step":     i + 1,
			"landmark": landmark.String(),
		}).Debug("clicking landmark")

		if err := view.Click(ctx, landmark.Selector(), c.stepWait); err != nil {
			return fmt.Errorf("%w: step %d %q: %v", entities.ErrNavigation, i+1, landmark.String(), err)
		}
	}

	if err := view.WaitFor(ctx, c.viewMarker.Selector(), c.markerWait); err != nil {
		return fmt.Errorf("%w: catalog view %q did not appear: %v", entities.ErrNavigation, c.viewMarker.String(), err)
	}

	c.logger.Info("reached product table")
	return nil
}
