// Package refdata loads the locale reference tables (phone numbering plans,
// postal code shapes, official identifier formats, address vocabulary) from
// YAML embedded at build time. Tables are compiled once at startup and are
// immutable afterwards; they may be shared across workers without locking.
package refdata

import (
	"embed"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"
)

//go:embed tables/*.yaml
var tablesFS embed.FS

// PhoneSpec describes one country's numbering plan.
type PhoneSpec struct {
	DialCode       string
	TrunkPrefix    string
	NationalLength int
	MobilePrefixes []string
	Patterns       []*regexp.Regexp
}

// PostalSpec describes one country's postal code shape.
type PostalSpec struct {
	Pattern *regexp.Regexp
	Length  int
}

// IdentifierSpec describes one official identifier format.
type IdentifierSpec struct {
	Kind     string
	Labels   []string
	Pattern  *regexp.Regexp
	Checksum string // none | luhn | mod97 | nir
}

// AddressSpec holds the address vocabulary shared across countries plus the
// per-country component rendering order and location hints.
type AddressSpec struct {
	StreetKeywords     []string
	ComplementKeywords []string
	POBoxKeywords      []string
	DistrictKeywords   []string
	ComponentOrder     map[string][]string
	Cities             map[string][]string
	CountryNames       map[string][]string
}

// Tables is the full compiled reference data set.
type Tables struct {
	Phones      map[string]*PhoneSpec
	Postal      map[string]*PostalSpec
	Identifiers map[string][]*IdentifierSpec
	Address     *AddressSpec

	// Countries lists every known country code in a fixed order so that
	// recognizers iterate deterministically.
	Countries []string
}

type rawPhoneSpec struct {
	DialCode       string   `yaml:"dial_code"`
	TrunkPrefix    string   `yaml:"trunk_prefix"`
	NationalLength int      `yaml:"national_length"`
	MobilePrefixes []string `yaml:"mobile_prefixes"`
	Patterns       []string `yaml:"patterns"`
}

type rawPostalSpec struct {
	Pattern string `yaml:"pattern"`
	Length  int    `yaml:"length"`
}

type rawIdentifierSpec struct {
	Kind     string   `yaml:"kind"`
	Labels   []string `yaml:"labels"`
	Pattern  string   `yaml:"pattern"`
	Checksum string   `yaml:"checksum"`
}

type rawAddressSpec struct {
	StreetKeywords     []string            `yaml:"street_keywords"`
	ComplementKeywords []string            `yaml:"complement_keywords"`
	POBoxKeywords      []string            `yaml:"po_box_keywords"`
	DistrictKeywords   []string            `yaml:"district_keywords"`
	ComponentOrder     map[string][]string `yaml:"component_order"`
	Cities             map[string][]string `yaml:"cities"`
	CountryNames       map[string][]string `yaml:"country_names"`
}

// Load reads and compiles every embedded table. Call it once at process
// start and pass the result by reference; there is no hidden global copy.
func Load() (*Tables, error) {
	t := &Tables{
		Phones:      make(map[string]*PhoneSpec),
		Postal:      make(map[string]*PostalSpec),
		Identifiers: make(map[string][]*IdentifierSpec),
	}

	var phones struct {
		Countries map[string]rawPhoneSpec `yaml:"countries"`
	}
	if err := loadYAML("tables/phones.yaml", &phones); err != nil {
		return nil, err
	}
	for cc, raw := range phones.Countries {
		spec := &PhoneSpec{
			DialCode:       raw.DialCode,
			TrunkPrefix:    raw.TrunkPrefix,
			NationalLength: raw.NationalLength,
			MobilePrefixes: raw.MobilePrefixes,
		}
		for _, p := range raw.Patterns {
			re, err := regexp.Compile(p)
			if err != nil {
				return nil, fmt.Errorf("phones.yaml %s: compile %q: %w", cc, p, err)
			}
			spec.Patterns = append(spec.Patterns, re)
		}
		t.Phones[cc] = spec
	}

	var postal struct {
		Countries map[string]rawPostalSpec `yaml:"countries"`
	}
	if err := loadYAML("tables/postal.yaml", &postal); err != nil {
		return nil, err
	}
	for cc, raw := range postal.Countries {
		re, err := regexp.Compile(raw.Pattern)
		if err != nil {
			return nil, fmt.Errorf("postal.yaml %s: compile %q: %w", cc, raw.Pattern, err)
		}
		t.Postal[cc] = &PostalSpec{Pattern: re, Length: raw.Length}
	}

	var idents struct {
		Countries map[string][]rawIdentifierSpec `yaml:"countries"`
	}
	if err := loadYAML("tables/identifiers.yaml", &idents); err != nil {
		return nil, err
	}
	for cc, raws := range idents.Countries {
		for _, raw := range raws {
			re, err := regexp.Compile(raw.Pattern)
			if err != nil {
				return nil, fmt.Errorf("identifiers.yaml %s/%s: compile %q: %w", cc, raw.Kind, raw.Pattern, err)
			}
			checksum := raw.Checksum
			if checksum == "" {
				checksum = "none"
			}
			t.Identifiers[cc] = append(t.Identifiers[cc], &IdentifierSpec{
				Kind:     raw.Kind,
				Labels:   raw.Labels,
				Pattern:  re,
				Checksum: checksum,
			})
		}
	}

	var addr rawAddressSpec
	if err := loadYAML("tables/address.yaml", &addr); err != nil {
		return nil, err
	}
	t.Address = &AddressSpec{
		StreetKeywords:     addr.StreetKeywords,
		ComplementKeywords: addr.ComplementKeywords,
		POBoxKeywords:      addr.POBoxKeywords,
		DistrictKeywords:   addr.DistrictKeywords,
		ComponentOrder:     addr.ComponentOrder,
		Cities:             addr.Cities,
		CountryNames:       addr.CountryNames,
	}

	seen := make(map[string]struct{})
	for cc := range t.Phones {
		seen[cc] = struct{}{}
	}
	for cc := range t.Postal {
		seen[cc] = struct{}{}
	}
	for cc := range t.Identifiers {
		seen[cc] = struct{}{}
	}
	for cc := range seen {
		t.Countries = append(t.Countries, cc)
	}
	sort.Strings(t.Countries)

	return t, nil
}

func loadYAML(name string, out any) error {
	b, err := tablesFS.ReadFile(name)
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := yaml.Unmarshal(b, out); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}

// CountryOfDialCode reverse-maps an international prefix like "+221" to its
// country code, or "" when unknown.
func (t *Tables) CountryOfDialCode(prefix string) string {
	for _, cc := range t.Countries {
		if spec, ok := t.Phones[cc]; ok && spec.DialCode == prefix {
			return cc
		}
	}
	return ""
}

// CountryOfMention scans lowercased context for an explicit country name and
// returns its code, or "".
func (t *Tables) CountryOfMention(context string) string {
	for _, cc := range t.Countries {
		for _, name := range t.Address.CountryNames[cc] {
			if name != "" && containsFold(context, name) {
				return cc
			}
		}
	}
	return ""
}

// table entries are stored lowercase; only the haystack needs folding.
func containsFold(haystack, needle string) bool {
	return needle != "" && strings.Contains(strings.ToLower(haystack), needle)
}
