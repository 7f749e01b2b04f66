package textutil_test

import (
	"testing"

	"gamedeck/internal/textutil"
)

func TestSanitizeFileName(t *testing.T) {
	cases := map[string]string{
		"Hollow Knight":          "Hollow Knight",
		"  Portal 2: GOTY!  ":    "Portal 2 GOTY",
		"../../etc/passwd":       "....etcpasswd",
		"Baldur's Gate 3 v1.0_x": "Baldurs Gate 3 v1.0_x",
		"???":                    "",
		"..":                     "",
		"ゲーム":                    "",
	}
	for input, want := range cases {
		if got := textutil.SanitizeFileName(input); got != want {
			t.Errorf("SanitizeFileName(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestSlug(t *testing.T) {
	cases := map[string]string{
		"Half-Life 2":   "halflife2",
		"The Witcher 3": "thewitcher3",
		"DOOM (2016)":   "doom2016",
		"":              "",
		"---":           "",
	}
	for input, want := range cases {
		if got := textutil.Slug(input); got != want {
			t.Errorf("Slug(%q) = %q, want %q", input, got, want)
		}
	}
}
