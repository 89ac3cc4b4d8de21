package widgets

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTabsDefaultsToFirst(t *testing.T) {
	items := []Tab{{"branding", "Branding"}, {"details", "Details"}, {"security", "Security"}}

	tabs := NewTabs(url.Values{}, "tab", items...)
	assert.Equal(t, "branding", tabs.Active)
	assert.True(t, tabs.IsActive("branding"))

	tabs = NewTabs(url.Values{"tab": {"security"}}, "tab", items...)
	assert.Equal(t, "security", tabs.Active)

	tabs = NewTabs(url.Values{"tab": {"bogus"}}, "tab", items...)
	assert.Equal(t, "branding", tabs.Active)

	assert.Equal(t, "", NewTabs(url.Values{}, "tab").Active)
}

func TestTabsHrefKeepsOtherParams(t *testing.T) {
	q := url.Values{"q": {"ada"}}
	tabs := NewTabs(q, "tab", Tab{"a", "A"}, Tab{"b", "B"})
	assert.Equal(t, "/patients/1?q=ada&tab=b", tabs.Href("/patients/1", q, "b"))
	assert.Equal(t, []string{"ada"}, q["q"], "input untouched")
	assert.Empty(t, q.Get("tab"))
}

func TestDialog(t *testing.T) {
	closed := NewDialog(url.Values{}, "reset-password")
	assert.False(t, closed.Open)

	q := url.Values{"dialog": {"reset-password"}, "target": {"u7"}}
	open := NewDialog(q, "reset-password")
	assert.True(t, open.Open)
	assert.Equal(t, "u7", open.Target)

	assert.False(t, NewDialog(q, "edit-roles").Open)

	assert.Equal(t, "/users?dialog=edit-roles&target=u1", NewDialog(url.Values{}, "edit-roles").OpenHref("/users", url.Values{}, "u1"))
	assert.Equal(t, "/users", open.CloseHref("/users", q))
}

func TestSelect(t *testing.T) {
	s := NewSelect("doctor_id", []Option{{"d1", "Dr. Grey"}, {"d2", "Dr. Who"}}, "d2")
	assert.True(t, s.IsSelected("d2"))
	assert.False(t, s.IsSelected("d1"))
	assert.Equal(t, "Dr. Who", s.Label())
	assert.Equal(t, "", NewSelect("x", nil).Label())
}

func TestSheet(t *testing.T) {
	s := NewSheet(url.Values{"sheet": {"menu"}}, "menu", "left")
	assert.True(t, s.Open)
	assert.Equal(t, SideLeft, s.Side)

	s = NewSheet(url.Values{}, "menu", "top")
	assert.False(t, s.Open)
	assert.Equal(t, SideRight, s.Side)
}
