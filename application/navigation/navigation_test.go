package navigation

import (
	"catalog_scraper/domain/entities"
	"catalog_scraper/infrastructure/browser/htmlview"
	"catalog_scraper/infrastructure/config"
	"context"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// menuView chains one page per landmark, each click revealing the next level
func menuView(t *testing.T, target config.Target) *htmlview.View {
	t.Helper()
	pages := []string{
		`<button>Launch Challenge</button>`,
		`<button>Dashboard</button>`,
		`<div><h3>Inventory</h3></div>`,
		`<div><h3>Products</h3></div>`,
		`<div><h3>Full Catalog</h3></div>`,
		`<section><h3>Product Inventory</h3><div>Showing 1-24 of 24 products</div></section>`,
	}

	view, err := htmlview.New(pages[0])
	require.NoError(t, err)
	for i, landmark := range target.Landmarks {
		view.Transitions[landmark.Selector()] = pages[i+1]
	}
	return view
}

func TestReachCatalogView(t *testing.T) {
	target := config.Default().Target
	view := menuView(t, target)
	c := NewController(target, config.Default().Timeouts, quietLogger())

	require.NoError(t, c.ReachCatalogView(context.Background(), view))

	var clicked []string
	for _, a := range view.Actions {
		if a.Kind == htmlview.ActionClick {
			clicked = append(clicked, a.Selector)
		}
	}
	require.Equal(t, []string{
		"//button[contains(text(),'Launch Challenge')]",
		"//button[contains(text(),'Dashboard')]",
		"//h3[contains(text(),'Inventory')]",
		"//h3[contains(text(),'Products')]",
		"//h3[contains(text(),'Full Catalog')]",
	}, clicked)
}

func TestMissingLandmarkIsFatal(t *testing.T) {
	target := config.Default().Target
	view := menuView(t, target)
	// Dashboard never shows up
	view.Transitions[target.Landmarks[0].Selector()] = `<button>Settings</button>`
	c := NewController(target, config.Default().Timeouts, quietLogger())

	err := c.ReachCatalogView(context.Background(), view)
	require.ErrorIs(t, err, entities.ErrNavigation)
	require.ErrorContains(t, err, `step 2 "Dashboard"`)
	require.Equal(t, 1, view.Count(htmlview.ActionClick))
}

func TestMissingViewMarkerIsFatal(t *testing.T) {
	target := config.Default().Target
	view := menuView(t, target)
	view.Transitions[target.Landmarks[4].Selector()] = `<h3>Something else</h3>`
	c := NewController(target, config.Default().Timeouts, quietLogger())

	err := c.ReachCatalogView(context.Background(), view)
	require.ErrorIs(t, err, entities.ErrNavigation)
	require.ErrorContains(t, err, "Product Inventory")
}

func TestCanceledContext(t *testing.T) {
	target := config.Default().Target
	view := menuView(t, target)
	c := NewController(target, config.Default().Timeouts, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.ReachCatalogView(ctx, view)
	require.ErrorIs(t, err, entities.ErrNavigation)
	require.Empty(t, view.Actions)
}
