package auth

import (
	"catalog_scraper/domain/entities"
	"catalog_scraper/domain/interfaces"
	"catalog_scraper/infrastructure/config"
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// State is a step of the login state machine
type State string

const (
	StateUnknown        State = "unknown"
	StateNeedsLogin     State = "needs_login"
	StateAuthenticating State = "authenticating"
	StateAuthenticated  State = "authenticated"
)

// Controller makes sure the view is signed in before navigation starts
type Controller struct {
	credentials *config.Credentials
	target      config.Target
	timeouts    config.Timeouts
	logger      *logrus.Logger
	state       State
}

// NewController - creates a controller for the given credentials and target
func NewController(credentials *config.Credentials, target config.Target, timeouts config.Timeouts, logger *logrus.Logger) *Controller {
	return &Controller{
		credentials: credentials,
		target:      target,
		timeouts:    timeouts,
		logger:      logger,
		state:       StateUnknown,
	}
}

// State returns the state reached by the last EnsureAuthenticated call
func (c *Controller) State() State {
	return c.state
}

// EnsureAuthenticated - opens the entry page and logs in only if the sign-in form is shown
func (c *Controller) EnsureAuthenticated(ctx context.Context, view interfaces.View) error {
	c.state = StateUnknown

	if c.credentials == nil {
		return fmt.Errorf("%w: no credentials", entities.ErrConfiguration)
	}
	if err := c.credentials.Validate(); err != nil {
		return err
	}

	c.logger.Info("checking login status")
	if err := view.Navigate(ctx, c.target.EntryURL, c.timeouts.Entry.Duration()); err != nil {
		if errors.Is(err, entities.ErrTimeout) {
			return fmt.Errorf("%w: page unreachable, login page load timeout: %v", entities.ErrNavigation, err)
		}
		return fmt.Errorf("%w: error during login: %v", entities.ErrNavigation, err)
	}

	needsLogin, err := c.NeedsLogin(ctx, view)
	if err != nil {
		return fmt.Errorf("%w: error during login: %v", entities.ErrNavigation, err)
	}
	if !needsLogin {
		c.state = StateAuthenticated
		c.logger.Info("already logged in")
		return nil
	}

	c.state = StateNeedsLogin
	if err := c.login(ctx, view); err != nil {
		return err
	}
	c.state = StateAuthenticated
	c.logger.Info("login successful")
	return nil
}

// NeedsLogin - probes the page for the sign-in marker
func (c *Controller) NeedsLogin(ctx context.Context, view interfaces.View) (bool, error) {
	visible, err := view.IsVisible(ctx, c.target.SignInMarker)
	if err != nil {
		return false, fmt.Errorf("failed to check sign-in marker: %w", err)
	}
	return visible, nil
}

func (c *Controller) login(ctx context.Context, view interfaces.View) error {
	c.state = StateAuthenticating
	c.logger.Info("logging in")

	if err := view.Fill(ctx, c.target.IdentifierInput, c.credentials.Username); err != nil {
		return fmt.Errorf("%w: error during login: %v", entities.ErrNavigation, err)
	}
	if err := view.Fill(ctx, c.target.SecretInput, c.credentials.Password); err != nil {
		return fmt.Errorf("%w: error during login: %v", entities.ErrNavigation, err)
	}
	if err := view.Click(ctx, c.target.SubmitButton, c.timeouts.Login.Duration()); err != nil {
		return fmt.Errorf("%w: error during login: %v", entities.ErrNavigation, err)
	}

	if err := view.WaitFor(ctx, c.target.SignedInMarker, c.timeouts.Login.Duration()); err != nil {
		if errors.Is(err, entities.ErrTimeout) {
			return fmt.Errorf("%w: login did not complete: %v", entities.ErrNavigation, err)
		}
		return fmt.Errorf("%w: error during login: %v", entities.ErrNavigation, err)
	}
	return nil
}
