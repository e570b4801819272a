package domain

import "sort"

// RenderState is the base visual category of a subdivision.
type RenderState string

const (
	RegionNeutral  RenderState = "neutral"
	RegionVisited  RenderState = "visited"
	RegionSelected RenderState = "selected"
)

// RegionRender is the resolved state of one subdivision. Hovered does not take
// part in precedence; views pick the hover tint of whichever base state applies.
type RegionRender struct {
	Name    string      `json:"name"`
	State   RenderState `json:"state"`
	Hovered bool        `json:"hovered"`
}

// RegionVisitState tracks visited and selected subdivisions for one country.
// Names outside the loaded subdivision set are rejected.
type RegionVisitState struct {
	Country  string
	visited  map[string]struct{}
	selected map[string]struct{}
	known    map[string]struct{} // nil until boundaries are bound
	hovered  string
}

// NewRegionVisitState returns an empty state for country.
func NewRegionVisitState(country string) *RegionVisitState {
	s := &RegionVisitState{}
	s.Reset(country)
	return s
}

// Reset switches to a new country and clears every set, including the
// known names, so nothing from the previous country can leak through.
func (s *RegionVisitState) Reset(country string) {
	s.Country = country
	s.visited = make(map[string]struct{})
	s.selected = make(map[string]struct{})
	s.known = nil
	s.hovered = ""
}

// Bind records the names of the loaded subdivisions and drops any
// visited/selected entries that are not among them.
func (s *RegionVisitState) Bind(names []string) {
	s.known = make(map[string]struct{}, len(names))
	for _, n := range names {
		s.known[n] = struct{}{}
	}
	for n := range s.visited {
		if _, ok := s.known[n]; !ok {
			delete(s.visited, n)
		}
	}
	for n := range s.selected {
		if _, ok := s.known[n]; !ok {
			delete(s.selected, n)
		}
	}
	if _, ok := s.known[s.hovered]; !ok {
		s.hovered = ""
	}
}

// Bound reports whether subdivisions have been loaded for the current country.
func (s *RegionVisitState) Bound() bool { return s.known != nil }

// Known reports whether name belongs to the loaded subdivision set.
func (s *RegionVisitState) Known(name string) bool {
	_, ok := s.known[name]
	return ok
}

// ToggleSelected adds name if absent and removes it if present. It returns
// the membership after the toggle. Unknown names are ignored.
func (s *RegionVisitState) ToggleSelected(name string) bool {
	if !s.Known(name) {
		return false
	}
	if _, ok := s.selected[name]; ok {
		delete(s.selected, name)
		return false
	}
	s.selected[name] = struct{}{}
	return true
}

// MarkVisited sets or clears the visited flag. It reports whether the name was accepted.
func (s *RegionVisitState) MarkVisited(name string, visited bool) bool {
	if !s.Known(name) {
		return false
	}
	if visited {
		s.visited[name] = struct{}{}
	} else {
		delete(s.visited, name)
	}
	return true
}

// SetHovered marks name as hovered; an empty or unknown name clears hover.
func (s *RegionVisitState) SetHovered(name string) {
	if !s.Known(name) {
		s.hovered = ""
		return
	}
	s.hovered = name
}

// RenderStateFor resolves name with precedence selected > visited > neutral.
func (s *RegionVisitState) RenderStateFor(name string) RegionRender {
	r := RegionRender{Name: name, State: RegionNeutral, Hovered: name != "" && name == s.hovered}
	if _, ok := s.selected[name]; ok {
		r.State = RegionSelected
	} else if _, ok := s.visited[name]; ok {
		r.State = RegionVisited
	}
	return r
}

// Selected returns the selected names sorted.
func (s *RegionVisitState) Selected() []string { return sortedKeys(s.selected) }

// Visited returns the visited names sorted.
func (s *RegionVisitState) Visited() []string { return sortedKeys(s.visited) }

// Hovered returns the hovered name, or "".
func (s *RegionVisitState) Hovered() string { return s.hovered }

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// RegionStyle is the fill and stroke for a render state.
type RegionStyle struct {
	Fill   string `json:"fill"`
	Stroke string `json:"stroke"`
}

// RegionPalette maps render states to styles, with a hover tint per state.
type RegionPalette struct {
	Base  map[RenderState]RegionStyle
	Hover map[RenderState]RegionStyle
}

// DefaultRegionPalette is used when callers do not supply one.
var DefaultRegionPalette = RegionPalette{
	Base: map[RenderState]RegionStyle{
		RegionNeutral:  {Fill: "#e5e7eb", Stroke: "#9ca3af"},
		RegionVisited:  {Fill: "#86efac", Stroke: "#16a34a"},
		RegionSelected: {Fill: "#60a5fa", Stroke: "#1d4ed8"},
	},
	Hover: map[RenderState]RegionStyle{
		RegionNeutral:  {Fill: "#d1d5db", Stroke: "#4b5563"},
		RegionVisited:  {Fill: "#4ade80", Stroke: "#15803d"},
		RegionSelected: {Fill: "#3b82f6", Stroke: "#1e3a8a"},
	},
}

// Style picks the style for r.
func (p RegionPalette) Style(r RegionRender) RegionStyle {
	if r.Hovered {
		if st, ok := p.Hover[r.State]; ok {
			return st
		}
	}
	return p.Base[r.State]
}
