package navigation

import (
	"strings"

	"github.com/otcheredev/clinic-console/internal/access"
	"github.com/otcheredev/clinic-console/internal/models"
)

// DefaultTitle is the header title when no menu item matches the path.
const DefaultTitle = "Dashboard"

// Item is one sidebar entry.
type Item struct {
	Icon    string
	Label   string
	Path    string
	visible func(*models.UserProfile) bool
}

// Link is a rendered sidebar entry.
type Link struct {
	Icon   string
	Label  string
	Path   string
	Active bool
}

func always(*models.UserProfile) bool { return true }

// Items is the full menu in display order.
var Items = []Item{
	{Icon: "layout-dashboard", Label: "Overview", Path: "/", visible: always},
	{Icon: "building-2", Label: "Clinics (Tenants)", Path: "/tenants", visible: access.CanManageTenants},
	{Icon: "users", Label: "Staff Management", Path: "/users", visible: access.CanManageStaff},
	{Icon: "user-round", Label: "Patients", Path: "/patients", visible: access.CanViewClinical},
	{Icon: "calendar", Label: "Appointments", Path: "/appointments", visible: access.CanViewClinical},
	{Icon: "flask-conical", Label: "Lab Import", Path: "/lab-import", visible: access.CanImportLabs},
	{Icon: "settings", Label: "Settings", Path: "/settings", visible: access.CanManageSettings},
}

// Visible reports whether the item is shown to p.
func (i Item) Visible(p *models.UserProfile) bool {
	return p != nil && i.visible(p)
}

// Matches reports whether path belongs to the item. "/" matches only itself.
func (i Item) Matches(path string) bool {
	if i.Path == "/" {
		return path == "/"
	}
	return path == i.Path || strings.HasPrefix(path, i.Path+"/")
}

// Build returns the visible items for p, flagging the one matching path.
func Build(p *models.UserProfile, path string) []Link {
	links := make([]Link, 0, len(Items))
	for _, it := range Items {
		if !it.Visible(p) {
			continue
		}
		links = append(links, Link{Icon: it.Icon, Label: it.Label, Path: it.Path, Active: it.Matches(path)})
	}
	return links
}

// Title is the label of the active visible item, or DefaultTitle.
func Title(links []Link) string {
	for _, l := range links {
		if l.Active {
			return l.Label
		}
	}
	return DefaultTitle
}

// Allowed reports whether path is reachable from p's menu.
func Allowed(p *models.UserProfile, path string) bool {
	for _, it := range Items {
		if it.Matches(path) {
			return it.Visible(p)
		}
	}
	return p != nil
}

// ConsoleLabel is the subtitle under the product name.
func ConsoleLabel(p *models.UserProfile) string {
	if p == nil {
		return ""
	}
	if p.IsSuperAdmin {
		return "Super Admin Console"
	}
	return p.TenantName + " Console"
}
