package backup

import (
	"regexp"
	"testing"
	"time"
)

var grammar = regexp.MustCompile(`^(?:[a-z0-9.-]+_){0,2}\d{6}_\d{6}_[a-z0-9]{10}_v[a-z0-9.-]+$`)

func TestNameMatchesGrammar(t *testing.T) {
	now := time.Date(2026, 8, 30, 10, 15, 0, 0, time.UTC)

	tests := []struct {
		name        string
		system, env string
	}{
		{name: "full", system: "My Site", env: "Production"},
		{name: "no environment", system: "mysite"},
		{name: "bare", system: "", env: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := newName(tt.system, tt.env, "4.5.6", now)
			if err != nil {
				t.Fatalf("newName failed: %v", err)
			}
			if got := n.String(); !grammar.MatchString(got) {
				t.Errorf("filename %q does not match grammar", got)
			}
		})
	}
}

func TestNamesDistinctWithinSameSecond(t *testing.T) {
	now := time.Date(2026, 8, 30, 10, 15, 0, 0, time.UTC)
	a, err := newName("site", "prod", "1", now)
	if err != nil {
		t.Fatalf("newName failed: %v", err)
	}
	b, err := newName("site", "prod", "1", now)
	if err != nil {
		t.Fatalf("newName failed: %v", err)
	}
	if a.String() == b.String() {
		t.Errorf("two names within the same second collided: %q", a.String())
	}
}

func TestParseNameRoundTrip(t *testing.T) {
	now := time.Date(2026, 8, 30, 10, 15, 42, 0, time.UTC)
	n, err := newName("My Site", "production", "4.5.6", now)
	if err != nil {
		t.Fatalf("newName failed: %v", err)
	}

	parsed, err := ParseName(n.String())
	if err != nil {
		t.Fatalf("ParseName(%q) failed: %v", n.String(), err)
	}
	if parsed.System != "my-site" {
		t.Errorf("System = %q", parsed.System)
	}
	if parsed.Environment != "production" {
		t.Errorf("Environment = %q", parsed.Environment)
	}
	if !parsed.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt = %v, want %v", parsed.CreatedAt, now)
	}
	if parsed.Token != n.Token {
		t.Errorf("Token = %q, want %q", parsed.Token, n.Token)
	}
	if parsed.Version != "4.5.6" {
		t.Errorf("Version = %q", parsed.Version)
	}
}

func TestParseNameWithoutPrefixes(t *testing.T) {
	parsed, err := ParseName("260830_101542_abcdefghij_v2")
	if err != nil {
		t.Fatalf("ParseName failed: %v", err)
	}
	if parsed.System != "" || parsed.Environment != "" {
		t.Errorf("expected empty prefixes, got %q %q", parsed.System, parsed.Environment)
	}
	if parsed.Version != "2" {
		t.Errorf("Version = %q", parsed.Version)
	}
}

func TestParseNameRejectsGarbage(t *testing.T) {
	for _, bad := range []string{
		"",
		"emergency-backup",
		"site_prod_260830_abcdefghij_v1",         // missing time of day
		"site_prod_260830_101542_short_v1",       // token wrong length
		"site_prod_260830_101542_abcdefghij_1",   // version missing v prefix
		"a_b_c_260830_101542_abcdefghij_v1",      // too many prefix parts
	} {
		if _, err := ParseName(bad); err == nil {
			t.Errorf("ParseName(%q) unexpectedly succeeded", bad)
		}
	}
}

func TestSanitizePart(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"My Site", "my-site"},
		{"Staging_2", "staging-2"},
		{"  trimmed  ", "trimmed"},
		{"4.5.6", "4.5.6"},
		{"weird!!chars", "weird-chars"},
	}
	for _, tt := range tests {
		if got := sanitizePart(tt.in); got != tt.want {
			t.Errorf("sanitizePart(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
