package catalog

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// HostRole says how a download host participates in priority selection.
type HostRole int

const (
	// RoleMirror hosts are recorded but never chosen as the priority link.
	RoleMirror HostRole = iota
	// RoleDirect hosts serve raw files over a public API and enable direct install.
	RoleDirect
	// RoleSecondary hosts are the preferred fallback when no direct host matched.
	RoleSecondary
)

// Host describes a file host as it is labelled on catalog detail pages.
type Host struct {
	Display   string
	Canonical string
	Role      HostRole
}

// knownHosts is the host table. Display names are matched against the
// upper-cased label text of a paragraph. A label naming several hosts
// ("MEGA + MEDIAFIRE") resolves to the longest matching display name, not
// the first entry listed here.
var knownHosts = []Host{
	{Display: "PIXELDRAIN", Canonical: "PIXELDRAIN", Role: RoleDirect},
	{Display: "MEGA", Canonical: "MEGA", Role: RoleSecondary},
	{Display: "1FICHIER", Canonical: "1FICHIER"},
	{Display: "GOFILE", Canonical: "GOFILE"},
	{Display: "MEDIAFIRE", Canonical: "MEDIAFIRE"},
	{Display: "RANOZ", Canonical: "RANOZ"},
	{Display: "DROPAPK", Canonical: "DROPAPK"},
	{Display: "BOWFILE", Canonical: "BOWFILE"},
	{Display: "SENDCM", Canonical: "SENDCM"},
	{Display: "FREEDLINK", Canonical: "FREEDLINK"},
	{Display: "MIXDROP", Canonical: "MIXDROP"},
	{Display: "CHOMIKUJ", Canonical: "CHOMIKUJ.PL"},
	{Display: "VIKINGFILE", Canonical: "VIKINGFILE"},
	{Display: "DOWNMEDIALOAD", Canonical: "DOWNMEDIALOAD"},
	{Display: "HEXLOAD", Canonical: "HEXLOAD"},
	{Display: "1CLOUDFILE", Canonical: "1CLOUDFILE"},
	{Display: "USERSDRIVE", Canonical: "USERSDRIVE"},
	{Display: "FILEFACTORY", Canonical: "FILEFACTORY"},
	{Display: "MEGAUP", Canonical: "MEGAUP"},
	{Display: "CLICKNUPLOAD", Canonical: "CLICKNUPLOAD"},
	{Display: "DAILYUPLOAD", Canonical: "DAILYUPLOAD"},
	{Display: "RAPIDGATOR", Canonical: "RAPIDGATOR"},
	{Display: "NITROFLARE", Canonical: "NITROFLARE"},
	{Display: "TURBOBIT", Canonical: "TURBOBIT"},
	{Display: "HITFILE", Canonical: "HITFILE"},
	{Display: "KATFILE", Canonical: "KATFILE"},
	{Display: "MULTIUP", Canonical: "MULTIUP"},
	{Display: "MULTI LINKS", Canonical: "MULTIUP"},
}

// hostsByLength orders the table longest display name first so that
// "MEGAUP" is not claimed by "MEGA".
var hostsByLength = func() []Host {
	out := append([]Host(nil), knownHosts...)
	sort.SliceStable(out, func(i, j int) bool {
		return len(out[i].Display) > len(out[j].Display)
	})
	return out
}()

var upper = cases.Upper(language.Und)

// MatchHost returns the host whose display name appears in label.
func MatchHost(label string) (Host, bool) {
	normalized := upper.String(strings.TrimSpace(label))
	if normalized == "" {
		return Host{}, false
	}
	for _, host := range hostsByLength {
		if strings.Contains(normalized, host.Display) {
			return host, true
		}
	}
	return Host{}, false
}

// KnownHosts returns a copy of the host table.
func KnownHosts() []Host {
	return append([]Host(nil), knownHosts...)
}
