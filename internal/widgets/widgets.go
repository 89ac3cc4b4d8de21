// Package widgets holds explicit-state view models for the shared template
// partials: tabs, dialogs, selects and side sheets. Open and active state
// arrive from the request rather than from a surrounding component.
package widgets

import (
	"net/url"
	"slices"
)

// Tab is one tab header.
type Tab struct {
	Key   string
	Label string
}

// Tabs tracks which panel is showing.
type Tabs struct {
	Param  string
	Items  []Tab
	Active string
}

// NewTabs selects the tab named by query parameter param, defaulting to the first.
func NewTabs(q url.Values, param string, items ...Tab) Tabs {
	t := Tabs{Param: param, Items: items}
	want := q.Get(param)
	for _, it := range items {
		if it.Key == want {
			t.Active = want
			return t
		}
	}
	if len(items) > 0 {
		t.Active = items[0].Key
	}
	return t
}

func (t Tabs) IsActive(key string) bool {
	return t.Active == key
}

// Href is the link that activates key, preserving the other query values.
func (t Tabs) Href(base string, q url.Values, key string) string {
	return withParam(base, q, t.Param, key)
}

// Dialog is a modal whose open state is carried in the query string.
type Dialog struct {
	ID   string
	Open bool
	// Target identifies the row the dialog acts on, if any.
	Target string
}

// NewDialog opens the dialog when ?dialog=<id> is present.
func NewDialog(q url.Values, id string) Dialog {
	return Dialog{ID: id, Open: q.Get("dialog") == id, Target: q.Get("target")}
}

func (d Dialog) OpenHref(base string, q url.Values, target string) string {
	v := clone(q)
	v.Set("dialog", d.ID)
	if target != "" {
		v.Set("target", target)
	} else {
		v.Del("target")
	}
	return base + "?" + v.Encode()
}

func (d Dialog) CloseHref(base string, q url.Values) string {
	v := clone(q)
	v.Del("dialog")
	v.Del("target")
	if len(v) == 0 {
		return base
	}
	return base + "?" + v.Encode()
}

// Option is one select choice.
type Option struct {
	Value string
	Label string
}

// Select is a single or multi value picker.
type Select struct {
	Name     string
	Options  []Option
	Selected []string
	Multiple bool
}

func NewSelect(name string, opts []Option, selected ...string) Select {
	return Select{Name: name, Options: opts, Selected: selected}
}

func (s Select) IsSelected(value string) bool {
	return slices.Contains(s.Selected, value)
}

// Label is the label of the first selected option, or "".
func (s Select) Label() string {
	for _, o := range s.Options {
		if s.IsSelected(o.Value) {
			return o.Label
		}
	}
	return ""
}

// Sheet sides.
const (
	SideLeft  = "left"
	SideRight = "right"
)

// Sheet is a sliding side panel.
type Sheet struct {
	ID   string
	Open bool
	Side string
}

// NewSheet opens the sheet when ?sheet=<id> is present.
func NewSheet(q url.Values, id, side string) Sheet {
	if side != SideLeft {
		side = SideRight
	}
	return Sheet{ID: id, Open: q.Get("sheet") == id, Side: side}
}

func withParam(base string, q url.Values, key, value string) string {
	v := clone(q)
	v.Set(key, value)
	return base + "?" + v.Encode()
}

func clone(q url.Values) url.Values {
	v := url.Values{}
	for k, vals := range q {
		v[k] = append([]string(nil), vals...)
	}
	return v
}
