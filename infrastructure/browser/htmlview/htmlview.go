// Package htmlview implements the browser views over static HTML documents.
// It understands the subset of Playwright selectors the scraper uses:
// CSS, //tag[contains(text(),'...')], tag:text('...') and text='...'.
package htmlview

import (
	"catalog_scraper/domain/entities"
	"catalog_scraper/domain/interfaces"
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Action kinds recorded by the view
const (
	ActionNavigate = "navigate"
	ActionFill     = "fill"
	ActionClick    = "click"
	ActionHover    = "hover"
	ActionScroll   = "scroll"
	ActionWait     = "wait"
)

// Action is one interaction issued against the view
type Action struct {
	Kind     string
	Selector string
	Value    string
}

// View serves HTML documents and records every interaction
type View struct {
	// Routes maps a URL to the document served by Navigate
	Routes map[string]string
	// Transitions maps a clicked selector to the document shown afterwards
	Transitions map[string]string

	// ItemSelector names the lazily loaded list. Only the first Visible
	// matches are returned; every scroll reveals Batch more.
	ItemSelector string
	Visible      int
	Batch        int

	Actions []Action

	Cookies     []entities.Cookie
	Origins     []entities.Origin
	Storage     map[string]string
	InitScripts []string
	Closed      bool

	doc *goquery.Document
}

var _ interfaces.Browser = (*View)(nil)

// New creates a view showing page
func New(page string) (*View, error) {
	v := &View{
		Routes:      map[string]string{},
		Transitions: map[string]string{},
		Visible:     -1,
		Storage:     map[string]string{},
	}
	if err := v.load(page); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *View) load(page string) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return fmt.Errorf("failed to parse document: %w", err)
	}
	v.doc = doc
	return nil
}

func (v *View) record(kind, selector, value string) {
	v.Actions = append(v.Actions, Action{Kind: kind, Selector: selector, Value: value})
}

// Count returns how many actions of kind were issued
func (v *View) Count(kind string) int {
	n := 0
	for _, a := range v.Actions {
		if a.Kind == kind {
			n++
		}
	}
	return n
}

// Navigate - loads the document routed for url
func (v *View) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v.record(ActionNavigate, url, "")
	page, ok := v.Routes[url]
	if !ok {
		return fmt.Errorf("%w: %s did not load within %s", entities.ErrTimeout, url, timeout)
	}
	return v.load(page)
}

// IsVisible - checks if a visible element matches selector
func (v *View) IsVisible(ctx context.Context, selector string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return visible(find(v.doc.Selection, selector)).Length() > 0, nil
}

// WaitFor - succeeds if a visible element matches selector, the document never changes on its own
func (v *View) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v.record(ActionWait, selector, "")
	if visible(find(v.doc.Selection, selector)).Length() == 0 {
		return fmt.Errorf("%w: %s not visible after %s", entities.ErrTimeout, selector, timeout)
	}
	return nil
}

// Click - clicks the element and applies its transition
func (v *View) Click(ctx context.Context, selector string, timeout time.Duration) error {
	if err := v.WaitFor(ctx, selector, timeout); err != nil {
		return err
	}
	v.record(ActionClick, selector, "")
	if page, ok := v.Transitions[selector]; ok {
		return v.load(page)
	}
	return nil
}

// Fill - types value into the matching input
func (v *View) Fill(ctx context.Context, selector string, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if find(v.doc.Selection, selector).Length() == 0 {
		return fmt.Errorf("%w: input %s not found", entities.ErrTimeout, selector)
	}
	v.record(ActionFill, selector, value)
	return nil
}

// Text - returns the text of the first match
func (v *View) Text(ctx context.Context, selector string, timeout time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	sel := find(v.doc.Selection, selector)
	if sel.Length() == 0 {
		return "", fmt.Errorf("%w: %s not found after %s", entities.ErrTimeout, selector, timeout)
	}
	return sel.First().Text(), nil
}

// Elements - returns the current matches, limited to the loaded part of the item list
func (v *View) Elements(ctx context.Context, selector string) ([]interfaces.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return v.wrap(v.matches(selector)), nil
}

func (v *View) matches(selector string) *goquery.Selection {
	sel := find(v.doc.Selection, selector)
	if selector == v.ItemSelector && v.Visible >= 0 && sel.Length() > v.Visible {
		sel = sel.Slice(0, v.Visible)
	}
	return sel
}

// Scroll - loads the next batch of items
func (v *View) Scroll(ctx context.Context, deltaX, deltaY float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v.record(ActionScroll, "", fmt.Sprintf("%g,%g", deltaX, deltaY))
	if v.Visible >= 0 {
		v.Visible += v.Batch
	}
	return nil
}

// WaitForCountAbove - succeeds if more than n elements match selector
func (v *View) WaitForCountAbove(ctx context.Context, selector string, n int, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if v.matches(selector).Length() <= n {
		return fmt.Errorf("%w: %s stayed at %d elements for %s", entities.ErrTimeout, selector, n, timeout)
	}
	return nil
}

// StorageState - returns the cookies and origins set on the view
func (v *View) StorageState(ctx context.Context) (entities.StorageState, error) {
	if err := ctx.Err(); err != nil {
		return entities.StorageState{}, err
	}
	return entities.StorageState{
		Cookies: append([]entities.Cookie(nil), v.Cookies...),
		Origins: append([]entities.Origin(nil), v.Origins...),
	}, nil
}

// SessionStorage - returns a copy of the storage map
func (v *View) SessionStorage(ctx context.Context) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(v.Storage))
	for k, val := range v.Storage {
		out[k] = val
	}
	return out, nil
}

// AddCookies - appends cookies to the jar
func (v *View) AddCookies(ctx context.Context, cookies []entities.Cookie) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v.Cookies = append(v.Cookies, cookies...)
	return nil
}

// AddInitScript - records the script, it is never evaluated
func (v *View) AddInitScript(ctx context.Context, script string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v.InitScripts = append(v.InitScripts, script)
	return nil
}

// Close - marks the view closed
func (v *View) Close() error {
	v.Closed = true
	return nil
}

func (v *View) wrap(sel *goquery.Selection) []interfaces.Element {
	out := make([]interfaces.Element, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		out = append(out, &element{view: v, sel: s})
	})
	return out
}

type element struct {
	view *View
	sel  *goquery.Selection
}

func (e *element) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return e.sel.Text(), nil
}

func (e *element) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.view.record(ActionClick, goquery.NodeName(e.sel), e.sel.Text())
	return nil
}

func (e *element) Hover(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.view.record(ActionHover, goquery.NodeName(e.sel), strings.TrimSpace(e.sel.Text()))
	return nil
}

func (e *element) Query(ctx context.Context, selector string) ([]interfaces.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.view.wrap(find(e.sel, selector)), nil
}

var (
	xpathContains = regexp.MustCompile(`^//([a-zA-Z0-9*]+)\[contains\(text\(\),\s*'([^']*)'\)\]$`)
	textPseudo    = regexp.MustCompile(`^([a-zA-Z0-9]+):text\('([^']*)'\)$`)
	textExact     = regexp.MustCompile(`^text='([^']*)'$`)
)

// find resolves selector within scope
func find(scope *goquery.Selection, selector string) *goquery.Selection {
	if m := xpathContains.FindStringSubmatch(selector); m != nil {
		return scope.Find(m[1]).FilterFunction(func(_ int, s *goquery.Selection) bool {
			return strings.Contains(ownText(s), m[2])
		})
	}
	if m := textPseudo.FindStringSubmatch(selector); m != nil {
		needle := strings.ToLower(m[2])
		return scope.Find(m[1]).FilterFunction(func(_ int, s *goquery.Selection) bool {
			return strings.Contains(strings.ToLower(s.Text()), needle)
		})
	}
	if m := textExact.FindStringSubmatch(selector); m != nil {
		return scope.Find("*").FilterFunction(func(_ int, s *goquery.Selection) bool {
			if strings.TrimSpace(s.Text()) != m[1] {
				return false
			}
			// innermost match only
			return s.Children().FilterFunction(func(_ int, c *goquery.Selection) bool {
				return strings.TrimSpace(c.Text()) == m[1]
			}).Length() == 0
		})
	}
	return scope.Find(selector)
}

// ownText joins the element's direct text nodes, like XPath text()
func ownText(s *goquery.Selection) string {
	var b strings.Builder
	for _, n := range s.Nodes {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				b.WriteString(c.Data)
			}
		}
	}
	return b.String()
}

// visible drops elements that are hidden themselves or through an ancestor
func visible(sel *goquery.Selection) *goquery.Selection {
	return sel.FilterFunction(func(_ int, s *goquery.Selection) bool {
		if _, hidden := s.Attr("hidden"); hidden {
			return false
		}
		return s.ParentsFiltered("[hidden]").Length() == 0
	})
}
