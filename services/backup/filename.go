package backup

import (
	"crypto/rand"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Artifact filenames encode their own metadata; operators and the pruner
// parse them, so the composition order is part of the external contract:
//
//	[system_][environment_]YYMMDD_HHMMSS_<token>_v<version>
//
// All parts are lower case and joined by underscores. The token guards
// against collisions between artifacts created within the same second.
const (
	timeLayout  = "060102_150405"
	tokenLength = 10
)

const tokenAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// Name is the parsed form of an artifact filename (without extension).
type Name struct {
	System      string
	Environment string
	CreatedAt   time.Time
	Token       string
	Version     string
}

// String renders the filename. Empty system or environment parts are
// omitted.
func (n Name) String() string {
	parts := make([]string, 0, 5)
	if n.System != "" {
		parts = append(parts, n.System)
	}
	if n.Environment != "" {
		parts = append(parts, n.Environment)
	}
	parts = append(parts, n.CreatedAt.UTC().Format(timeLayout), n.Token, "v"+n.Version)
	return strings.Join(parts, "_")
}

func newName(system, environment, version string, now time.Time) (Name, error) {
	token, err := randomToken(tokenLength)
	if err != nil {
		return Name{}, fmt.Errorf("generate token: %w", err)
	}
	return Name{
		System:      sanitizePart(system),
		Environment: sanitizePart(environment),
		CreatedAt:   now.UTC(),
		Token:       token,
		Version:     sanitizePart(version),
	}, nil
}

var invalidPart = regexp.MustCompile(`[^a-z0-9.-]+`)

// sanitizePart lower-cases a filename component and replaces anything that
// would collide with the underscore separators.
func sanitizePart(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = invalidPart.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

func randomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = tokenAlphabet[int(b)%len(tokenAlphabet)]
	}
	return string(buf), nil
}

var datePart = regexp.MustCompile(`^\d{6}$`)

// ParseName recovers the metadata embedded in an artifact filename. The
// filename must not carry an extension.
func ParseName(filename string) (Name, error) {
	parts := strings.Split(filename, "_")

	// Locate the two six-digit timestamp segments; everything before them
	// is system name and environment.
	ts := -1
	for i := 0; i+1 < len(parts); i++ {
		if datePart.MatchString(parts[i]) && datePart.MatchString(parts[i+1]) {
			ts = i
			break
		}
	}
	if ts < 0 || ts > 2 || len(parts) != ts+4 {
		return Name{}, fmt.Errorf("filename %q does not match the artifact naming scheme", filename)
	}

	createdAt, err := time.Parse(timeLayout, parts[ts]+"_"+parts[ts+1])
	if err != nil {
		return Name{}, fmt.Errorf("filename %q has invalid timestamp: %w", filename, err)
	}

	token := parts[ts+2]
	if len(token) != tokenLength {
		return Name{}, fmt.Errorf("filename %q has invalid token %q", filename, token)
	}
	version, ok := strings.CutPrefix(parts[ts+3], "v")
	if !ok || version == "" {
		return Name{}, fmt.Errorf("filename %q has invalid version part %q", filename, parts[ts+3])
	}

	name := Name{CreatedAt: createdAt, Token: token, Version: version}
	switch ts {
	case 1:
		name.System = parts[0]
	case 2:
		name.System = parts[0]
		name.Environment = parts[1]
	}
	return name, nil
}

// Label renders a human-readable listing label for the filename.
func (n Name) Label() string {
	var b strings.Builder
	if n.System != "" {
		b.WriteString(n.System)
		b.WriteString(" ")
	}
	if n.Environment != "" {
		fmt.Fprintf(&b, "(%s) ", n.Environment)
	}
	b.WriteString(n.CreatedAt.Format("2006-01-02 15:04:05"))
	return b.String()
}
