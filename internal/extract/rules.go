package extract

import (
	_ "embed"
	"os"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRulesYAML []byte

// ErrRules is returned when a rules file is unreadable or inconsistent.
var ErrRules = eris.New("extract: invalid rules")

// Rules is the data-driven part of extraction: which pages to visit and how to
// judge the addresses found there.
type Rules struct {
	Paths             []string `yaml:"paths"`
	MaxLength         int      `yaml:"max_length"`
	Denylist          []string `yaml:"denylist"`
	Garbage           []string `yaml:"garbage"`
	MalformedPrefixes []string `yaml:"malformed_prefixes"`
	PreferredPrefixes []string `yaml:"preferred_prefixes"`

	garbage map[string]struct{}
}

// DefaultRules returns the embedded rule set.
func DefaultRules() *Rules {
	r, err := ParseRules(defaultRulesYAML)
	if err != nil {
		panic(err)
	}
	return r
}

// LoadRules reads rules from path. An empty path yields DefaultRules.
func LoadRules(path string) (*Rules, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "extract: read rules %s", path)
	}
	return ParseRules(data)
}

// ParseRules decodes and validates a YAML rule set.
func ParseRules(data []byte) (*Rules, error) {
	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, eris.Wrapf(ErrRules, "extract: parse rules: %v", err)
	}
	if len(r.Paths) == 0 {
		return nil, eris.Wrap(ErrRules, "extract: rules list no paths")
	}
	for _, p := range r.Paths {
		if p != "" && !strings.HasPrefix(p, "/") {
			return nil, eris.Wrapf(ErrRules, "extract: path %q must start with /", p)
		}
	}
	if r.MaxLength <= 0 {
		r.MaxLength = 60
	}

	lower := func(in []string) []string {
		out := make([]string, 0, len(in))
		for _, s := range in {
			if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	r.Denylist = lower(r.Denylist)
	r.Garbage = lower(r.Garbage)
	r.MalformedPrefixes = lower(r.MalformedPrefixes)
	r.PreferredPrefixes = lower(r.PreferredPrefixes)

	r.garbage = make(map[string]struct{}, len(r.Garbage))
	for _, g := range r.Garbage {
		r.garbage[g] = struct{}{}
	}
	return &r, nil
}

var wellFormed = regexp.MustCompile(`^[a-z0-9._%+-]+@[a-z0-9-]+(\.[a-z0-9-]+)*\.[a-z]{2,6}$`)

// Clean lowercases a raw match, repairs escape debris at its start and reports
// whether the result survives every filter.
func (r *Rules) Clean(raw string) (string, bool) {
	email := strings.ToLower(strings.TrimSpace(raw))
	for _, p := range r.MalformedPrefixes {
		if rest, ok := strings.CutPrefix(email, p); ok && wellFormed.MatchString(rest) {
			email = rest
			break
		}
	}

	if len(email) > r.MaxLength {
		return "", false
	}
	for _, bad := range r.Denylist {
		if strings.Contains(email, bad) {
			return "", false
		}
	}
	if _, ok := r.garbage[email]; ok {
		return "", false
	}
	if !wellFormed.MatchString(email) {
		return "", false
	}
	return email, true
}
