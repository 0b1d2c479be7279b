// Package view holds the named page regions that the UI state is rendered
// into, and the renderer that fills them.
//
// Pages declare which regions they carry. The renderer only touches
// regions that exist, so the same render call works for every page.
package view

import "html/template"

// Region ids shared by templates and the renderer.
const (
	AuthSection    = "auth-section"
	Dashboard      = "dashboard"
	WelcomeMessage = "welcome-message"
	AuthDropdown   = "auth-dropdown"
	FoodList       = "food-list"
)

// Binding attaches an action to a control inside a region. Templates emit
// one form per binding; a control without a binding does nothing.
type Binding struct {
	Control string
	Method  string
	Action  string
}

// Region is one named, independently updatable part of a page.
type Region struct {
	ID       string
	Hidden   bool
	Text     string
	Markup   template.HTML
	Bindings []Binding
}

// Show makes the region visible.
func (r *Region) Show() { r.Hidden = false }

// Hide hides the region.
func (r *Region) Hide() { r.Hidden = true }

// SetText sets the region's text content.
func (r *Region) SetText(s string) { r.Text = s }

// Replace swaps the region's markup. Bindings belong to the old markup and
// are dropped.
func (r *Region) Replace(m template.HTML) {
	r.Markup = m
	r.Bindings = nil
}

// Bind attaches b, replacing an existing binding for the same control.
func (r *Region) Bind(b Binding) {
	for i := range r.Bindings {
		if r.Bindings[i].Control == b.Control {
			r.Bindings[i] = b
			return
		}
	}
	r.Bindings = append(r.Bindings, b)
}

// Registry looks regions up by id. Region returns nil when the page has no
// such region.
type Registry interface {
	Region(id string) *Region
}

// Page is the Registry used by page handlers.
type Page struct {
	regions map[string]*Region
}

// NewPage creates a page carrying the given regions, all visible and empty.
func NewPage(ids ...string) *Page {
	p := &Page{regions: make(map[string]*Region, len(ids))}
	for _, id := range ids {
		p.regions[id] = &Region{ID: id}
	}
	return p
}

// Region implements Registry.
func (p *Page) Region(id string) *Region {
	if p == nil {
		return nil
	}
	return p.regions[id]
}

// Has reports whether the page carries region id.
func (p *Page) Has(id string) bool { return p.Region(id) != nil }
