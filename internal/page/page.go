package page

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var ErrNoElement = errors.New("page: no element with id")

// Change is sent to OnChange observers after a region was replaced.
type Change struct {
	ID   string `json:"id"`
	HTML string `json:"html"`
}

// Page is an in-memory HTML document addressed by element id. It is safe
// for concurrent use.
type Page struct {
	mu  sync.RWMutex
	doc *goquery.Document

	tmu       sync.Mutex
	triggers  map[string]*Trigger
	observers []func(Change)
}

func New(r io.Reader) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("page: parse document: %w", err)
	}
	return &Page{doc: doc, triggers: make(map[string]*Trigger)}, nil
}

func Parse(s string) (*Page, error) {
	return New(strings.NewReader(s))
}

// Shell is the default document: a form-wrapped trigger button that posts
// to /click/<triggerID> and an empty output region.
func Shell(triggerID, regionID string) string {
	t := html.EscapeString(triggerID)
	r := html.EscapeString(regionID)
	return `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"/><title>Employers</title></head>
<body>
<form method="post" action="/click/` + t + `"><button id="` + t + `" type="submit">Fetch employers</button></form>
<div id="` + r + `"></div>
</body>
</html>`
}

// find must be called with p.mu held.
func (p *Page) find(id string) *goquery.Selection {
	if id == "" || strings.ContainsAny(id, `"\`) {
		return p.doc.FindNodes()
	}
	return p.doc.Find(`[id="` + id + `"]`).First()
}

// Has reports whether an element with the given id exists.
func (p *Page) Has(id string) bool { return p.has(id) }

func (p *Page) has(id string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.find(id).Length() > 0
}

// Region returns the output region with the given id.
func (p *Page) Region(id string) (*Region, error) {
	if !p.has(id) {
		return nil, fmt.Errorf("%w %q", ErrNoElement, id)
	}
	return &Region{p: p, id: id}, nil
}

// Trigger returns the trigger element with the given id. Repeated calls
// return the same handle, so listeners survive lookups.
func (p *Page) Trigger(id string) (*Trigger, error) {
	if !p.has(id) {
		return nil, fmt.Errorf("%w %q", ErrNoElement, id)
	}
	p.tmu.Lock()
	defer p.tmu.Unlock()
	if t, ok := p.triggers[id]; ok {
		return t, nil
	}
	t := &Trigger{id: id}
	p.triggers[id] = t
	return t, nil
}

// Bound returns the trigger with the given id only if something listens on
// it. Elements that were never bound as triggers report false.
func (p *Page) Bound(id string) (*Trigger, bool) {
	if !p.has(id) {
		return nil, false
	}
	p.tmu.Lock()
	t, ok := p.triggers[id]
	p.tmu.Unlock()
	if !ok || t.Listeners() == 0 {
		return nil, false
	}
	return t, true
}

// OnChange registers fn to run after every region replacement.
func (p *Page) OnChange(fn func(Change)) {
	p.tmu.Lock()
	p.observers = append(p.observers, fn)
	p.tmu.Unlock()
}

func (p *Page) notify(c Change) {
	p.tmu.Lock()
	obs := make([]func(Change), len(p.observers))
	copy(obs, p.observers)
	p.tmu.Unlock()
	for _, fn := range obs {
		fn(c)
	}
}

// HTML renders the whole document.
func (p *Page) HTML() (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return goquery.OuterHtml(p.doc.Selection)
}

type Region struct {
	p  *Page
	id string
}

func (r *Region) ID() string { return r.id }

// ReplaceHTML sets markup as the sole content of the region.
func (r *Region) ReplaceHTML(markup string) error {
	r.p.mu.Lock()
	sel := r.p.find(r.id)
	if sel.Length() == 0 {
		r.p.mu.Unlock()
		return fmt.Errorf("%w %q", ErrNoElement, r.id)
	}
	sel.SetHtml(markup)
	inner, err := sel.Html()
	r.p.mu.Unlock()
	if err != nil {
		return fmt.Errorf("page: render region %q: %w", r.id, err)
	}

	r.p.notify(Change{ID: r.id, HTML: inner})
	return nil
}

// HTML returns the region's current inner markup.
func (r *Region) HTML() string {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()
	h, _ := r.p.find(r.id).Html()
	return h
}

// Children returns the text of each direct child element, in order.
func (r *Region) Children() []string {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()
	var out []string
	r.p.find(r.id).Children().Each(func(_ int, s *goquery.Selection) {
		out = append(out, s.Text())
	})
	return out
}

// Trigger is an activation source. Fire runs the listeners in the order
// they were added.
type Trigger struct {
	id        string
	mu        sync.Mutex
	listeners []func()
}

func (t *Trigger) ID() string { return t.id }

func (t *Trigger) AddListener(fn func()) {
	t.mu.Lock()
	t.listeners = append(t.listeners, fn)
	t.mu.Unlock()
}

func (t *Trigger) Listeners() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.listeners)
}

// Fire returns the number of listeners run.
func (t *Trigger) Fire() int {
	t.mu.Lock()
	ls := append([]func(){}, t.listeners...)
	t.mu.Unlock()
	for _, fn := range ls {
		fn()
	}
	return len(ls)
}
