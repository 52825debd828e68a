package render

import (
	"strings"

	"golang.org/x/net/html"

	"employers-engine/internal/domain"
)

// Renderer turns employers into the markup placed in the output region.
// With Escape unset, names are inserted verbatim and any markup in them is
// interpreted by the page.
type Renderer struct {
	Escape bool
}

func (r Renderer) Fragment(e domain.Employer) string {
	name := e.Name
	if r.Escape {
		name = html.EscapeString(name)
	}
	return "<p>" + name + "</p>"
}

// Markup concatenates fragments in collection order. An empty collection
// renders as "".
func (r Renderer) Markup(list domain.EmployerCollection) string {
	var b strings.Builder
	for _, e := range list {
		b.WriteString(r.Fragment(e))
	}
	return b.String()
}
