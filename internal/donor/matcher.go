// Package donor matches typed names against the donor list and looks up a
// donor's past donations.
package donor

import (
	"strings"
	"sync"

	"hemagenda-backend/internal/model"
	"hemagenda-backend/internal/parse"
)

// MaxCandidates caps the suggestion list.
const MaxCandidates = 3

// Candidates returns, in list order, up to MaxCandidates donors whose name
// contains q ignoring case. An empty q yields nothing.
func Candidates(donors []model.Donor, q string) []model.Donor {
	out := make([]model.Donor, 0, MaxCandidates)
	if q == "" {
		return out
	}
	needle := parse.Fold(q)
	for _, d := range donors {
		if len(out) == MaxCandidates {
			break
		}
		if strings.Contains(parse.Fold(d.Name), needle) {
			out = append(out, d)
		}
	}
	return out
}

// ExactMatches returns every donor whose name equals q ignoring case.
func ExactMatches(donors []model.Donor, q string) []model.Donor {
	var out []model.Donor
	if q == "" {
		return out
	}
	needle := parse.Fold(q)
	for _, d := range donors {
		if parse.Fold(d.Name) == needle {
			out = append(out, d)
		}
	}
	return out
}

// FindByName returns the first donor whose name equals name ignoring case.
func FindByName(donors []model.Donor, name string) (model.Donor, bool) {
	if name == "" {
		return model.Donor{}, false
	}
	needle := parse.Fold(name)
	for _, d := range donors {
		if parse.Fold(d.Name) == needle {
			return d, true
		}
	}
	return model.Donor{}, false
}

// Token identifies one selection. Work started for a selection should only be
// applied while its token is still current.
type Token uint64

// Matcher holds the state of one name field: the query, its suggestions, the
// selected donor and the identity document pre-filled for it.
type Matcher struct {
	mu         sync.Mutex
	donors     []model.Donor
	query      string
	candidates []model.Donor
	selected   *model.Donor
	identity   string
	generation Token
}

// NewMatcher creates a Matcher over a fetched donor list.
func NewMatcher(donors []model.Donor) *Matcher {
	return &Matcher{donors: donors, candidates: []model.Donor{}}
}

// SetQuery records an edit of the name field. Any edit drops the previous
// selection; a query that equals exactly one donor's name selects that donor
// and pre-fills the identity document.
func (m *Matcher) SetQuery(q string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.query = q
	m.selected = nil
	m.identity = ""
	m.generation++
	m.candidates = Candidates(m.donors, q)

	if exact := ExactMatches(m.donors, q); len(exact) == 1 {
		d := exact[0]
		m.selected = &d
		m.identity = d.RG
	}
}

// Select picks a donor from the suggestions. The suggestion list closes and
// the name field shows the donor's name.
func (m *Matcher) Select(d model.Donor) Token {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.selected = &d
	m.query = d.Name
	m.candidates = []model.Donor{}
	m.generation++
	return m.generation
}

// Current returns the token of the latest selection change.
func (m *Matcher) Current() Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generation
}

// Accept reports whether t still belongs to the latest selection.
func (m *Matcher) Accept(t Token) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return t == m.generation
}

// Query returns the current text of the name field.
func (m *Matcher) Query() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.query
}

// Candidates returns the open suggestions.
func (m *Matcher) Candidates() []model.Donor {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Donor(nil), m.candidates...)
}

// Selected returns the selected donor, if any.
func (m *Matcher) Selected() (model.Donor, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.selected == nil {
		return model.Donor{}, false
	}
	return *m.selected, true
}

// IdentityDocument returns the pre-filled identity document.
func (m *Matcher) IdentityDocument() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.identity
}
