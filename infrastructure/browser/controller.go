package browser

import (
	"catalog_scraper/domain/entities"
	"catalog_scraper/domain/interfaces"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/sirupsen/logrus"
)

// Options configures the launched browser
type Options struct {
	Headless       bool
	Args           []string
	DefaultTimeout time.Duration
}

type browserController struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
	logger  *logrus.Logger
}

var _ interfaces.Browser = (*browserController)(nil)

// NewBrowserController - starts playwright, launches chromium and opens one page
func NewBrowserController(logger *logrus.Logger, opts Options) (interfaces.Browser, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args:     opts.Args,
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	contextOptions := playwright.BrowserNewContextOptions{}
	if !opts.Headless {
		// the window is maximized, let the page take its size
		contextOptions.NoViewport = playwright.Bool(true)
	}

	browserContext, err := browser.NewContext(contextOptions)
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	page, err := browserContext.NewPage()
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	if opts.DefaultTimeout > 0 {
		page.SetDefaultTimeout(millis(opts.DefaultTimeout))
	}

	logger.WithFields(logrus.Fields{
		"headless": opts.Headless,
		"timeout":  opts.DefaultTimeout,
	}).Debug("browser launched")

	return &browserController{
		pw:      pw,
		browser: browser,
		context: browserContext,
		page:    page,
		logger:  logger,
	}, nil
}

// Navigate - navigates to url, then gives the network a chance to settle
func (b *browserController) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := b.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
		Timeout:   playwright.Float(millis(timeout)),
	})
	if err != nil {
		return wrapErr(err, "failed to load %s", url)
	}

	if err := b.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateNetworkidle,
		Timeout: playwright.Float(millis(timeout)),
	}); err != nil {
		b.logger.WithError(err).Debug("network did not go idle")
	}

	return nil
}

// IsVisible - checks if the first element matching selector is visible
func (b *browserController) IsVisible(ctx context.Context, selector string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	visible, err := b.page.Locator(selector).First().IsVisible()
	if err != nil {
		return false, wrapErr(err, "failed to check %s", selector)
	}
	return visible, nil
}

// WaitFor - waits for an element to become visible
func (b *browserController) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := b.page.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(millis(timeout)),
	})
	if err != nil {
		return wrapErr(err, "element %s not visible", selector)
	}
	return nil
}

// Click - waits for the element and clicks it
func (b *browserController) Click(ctx context.Context, selector string, timeout time.Duration) error {
	if err := b.WaitFor(ctx, selector, timeout); err != nil {
		return err
	}

	if err := b.page.Locator(selector).First().Click(playwright.LocatorClickOptions{
		Timeout: playwright.Float(millis(timeout)),
	}); err != nil {
		return wrapErr(err, "failed to click %s", selector)
	}
	return nil
}

// Fill - types text into an input field
func (b *browserController) Fill(ctx context.Context, selector string, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := b.page.Locator(selector).First().Fill(value); err != nil {
		return wrapErr(err, "failed to fill %s", selector)
	}
	return nil
}

// Text - returns the text content of the first match
func (b *browserController) Text(ctx context.Context, selector string, timeout time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	text, err := b.page.Locator(selector).First().TextContent(playwright.LocatorTextContentOptions{
		Timeout: playwright.Float(millis(timeout)),
	})
	if err != nil {
		return "", wrapErr(err, "failed to read %s", selector)
	}
	return text, nil
}

// Elements - returns a handle for each current match
func (b *browserController) Elements(ctx context.Context, selector string) ([]interfaces.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	locators, err := b.page.Locator(selector).All()
	if err != nil {
		return nil, wrapErr(err, "failed to list %s", selector)
	}
	return wrapLocators(locators), nil
}

// Scroll - scrolls with the mouse wheel
func (b *browserController) Scroll(ctx context.Context, deltaX, deltaY float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := b.page.Mouse().Wheel(deltaX, deltaY); err != nil {
		return wrapErr(err, "failed to scroll")
	}
	return nil
}

// WaitForCountAbove - waits until more than n elements match the css selector
func (b *browserController) WaitForCountAbove(ctx context.Context, selector string, n int, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := b.page.WaitForFunction(
		`([selector, n]) => document.querySelectorAll(selector).length > n`,
		[]interface{}{selector, n},
		playwright.PageWaitForFunctionOptions{
			Timeout: playwright.Float(millis(timeout)),
		},
	)
	if err != nil {
		return wrapErr(err, "%s did not grow past %d", selector, n)
	}
	return nil
}

// StorageState - captures cookies and origin storage of the context
func (b *browserController) StorageState(ctx context.Context) (entities.StorageState, error) {
	if err := ctx.Err(); err != nil {
		return entities.StorageState{}, err
	}

	state, err := b.context.StorageState()
	if err != nil {
		return entities.StorageState{}, fmt.Errorf("failed to read storage state: %w", err)
	}
	return fromStorageState(state), nil
}

// SessionStorage - reads window.sessionStorage of the current page
func (b *browserController) SessionStorage(ctx context.Context) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := b.page.Evaluate("() => JSON.stringify(sessionStorage)")
	if err != nil {
		return nil, fmt.Errorf("failed to read session storage: %w", err)
	}

	raw, ok := result.(string)
	if !ok {
		return nil, fmt.Errorf("unexpected session storage value %T", result)
	}

	entries := map[string]string{}
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("failed to decode session storage: %w", err)
	}
	return entries, nil
}

// AddCookies - adds cookies to the context
func (b *browserController) AddCookies(ctx context.Context, cookies []entities.Cookie) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(cookies) == 0 {
		return nil
	}

	if err := b.context.AddCookies(toOptionalCookies(cookies)); err != nil {
		return fmt.Errorf("failed to add cookies: %w", err)
	}
	return nil
}

// AddInitScript - registers a script evaluated before page scripts on every navigation
func (b *browserController) AddInitScript(ctx context.Context, script string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := b.context.AddInitScript(playwright.Script{Content: playwright.String(script)}); err != nil {
		return fmt.Errorf("failed to add init script: %w", err)
	}
	return nil
}

// Close - closes the context, the browser and the driver
func (b *browserController) Close() error {
	var closeErr error

	if b.context != nil {
		if err := b.context.Close(); err != nil && !isClosed(err) {
			closeErr = fmt.Errorf("failed to close context: %w", err)
		}
		b.context = nil
	}

	if b.browser != nil {
		if err := b.browser.Close(); err != nil && !isClosed(err) {
			if closeErr != nil {
				closeErr = fmt.Errorf("%v; failed to close browser: %w", closeErr, err)
			} else {
				closeErr = fmt.Errorf("failed to close browser: %w", err)
			}
		}
		b.browser = nil
	}

	if b.pw != nil {
		if err := b.pw.Stop(); err != nil {
			if closeErr != nil {
				closeErr = fmt.Errorf("%v; failed to stop playwright: %w", closeErr, err)
			} else {
				closeErr = fmt.Errorf("failed to stop playwright: %w", err)
			}
		}
		b.pw = nil
	}

	return closeErr
}

type locatorElement struct {
	locator playwright.Locator
}

func wrapLocators(locators []playwright.Locator) []interfaces.Element {
	out := make([]interfaces.Element, len(locators))
	for i, l := range locators {
		out[i] = &locatorElement{locator: l}
	}
	return out
}

func (e *locatorElement) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text, err := e.locator.TextContent()
	if err != nil {
		return "", wrapErr(err, "failed to read element text")
	}
	return text, nil
}

func (e *locatorElement) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.locator.Click(); err != nil {
		return wrapErr(err, "failed to click element")
	}
	return nil
}

func (e *locatorElement) Hover(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.locator.Hover(); err != nil {
		return wrapErr(err, "failed to hover element")
	}
	return nil
}

func (e *locatorElement) Query(ctx context.Context, selector string) ([]interfaces.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	locators, err := e.locator.Locator(selector).All()
	if err != nil {
		return nil, wrapErr(err, "failed to list %s", selector)
	}
	return wrapLocators(locators), nil
}

// wrapErr - marks playwright timeouts with entities.ErrTimeout
func wrapErr(err error, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	if errors.Is(err, playwright.ErrTimeout) {
		return fmt.Errorf("%w: %s: %v", entities.ErrTimeout, msg, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// isClosed - reports errors from targets that are already gone
func isClosed(err error) bool {
	errStr := err.Error()
	return strings.Contains(errStr, "closed") || strings.Contains(errStr, "target closed")
}

// millis - converts a duration to playwright's float milliseconds
func millis(d time.Duration) float64 {
	return float64(d.Milliseconds())
}
