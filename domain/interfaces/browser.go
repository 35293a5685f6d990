package interfaces

import (
	"catalog_scraper/domain/entities"
	"context"
	"time"
)

// Element is a located element inside the view
type Element interface {
	// Text returns the element's text content
	Text(ctx context.Context) (string, error)

	// Click clicks the element
	Click(ctx context.Context) error

	// Hover moves the pointer over the element
	Hover(ctx context.Context) error

	// Query returns the descendants matching selector, in document order
	Query(ctx context.Context, selector string) ([]Element, error)
}

// View defines the controllable page the pipeline drives.
// Every wait is bounded; an elapsed bound is reported as entities.ErrTimeout.
type View interface {
	// Navigate loads url and waits for the load event
	Navigate(ctx context.Context, url string, timeout time.Duration) error

	// IsVisible checks if an element matching selector is visible right now
	IsVisible(ctx context.Context, selector string) (bool, error)

	// WaitFor waits until an element matching selector is visible
	WaitFor(ctx context.Context, selector string, timeout time.Duration) error

	// Click waits for the element to become actionable and clicks it
	Click(ctx context.Context, selector string, timeout time.Duration) error

	// Fill types value into the input matching selector
	Fill(ctx context.Context, selector string, value string) error

	// Text returns the text content of the first element matching selector
	Text(ctx context.Context, selector string, timeout time.Duration) (string, error)

	// Elements returns every element currently matching selector
	Elements(ctx context.Context, selector string) ([]Element, error)

	// Scroll issues a mouse wheel gesture
	Scroll(ctx context.Context, deltaX, deltaY float64) error

	// WaitForCountAbove waits until more than n elements match selector
	WaitForCountAbove(ctx context.Context, selector string, n int, timeout time.Duration) error
}

// SessionView is the part of the view that carries authentication state
type SessionView interface {
	// StorageState captures cookies and per-origin storage of the context
	StorageState(ctx context.Context) (entities.StorageState, error)

	// SessionStorage returns window.sessionStorage of the current page
	SessionStorage(ctx context.Context) (map[string]string, error)

	// AddCookies puts cookies into the context's jar
	AddCookies(ctx context.Context, cookies []entities.Cookie) error

	// AddInitScript registers a script that runs before any page script
	AddInitScript(ctx context.Context, script string) error
}

// Browser is a launched view that owns its resources until Close
type Browser interface {
	View
	SessionView

	// Close releases the page, context, browser and driver
	Close() error
}
