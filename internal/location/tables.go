package location

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vbonduro/mahrfyi/internal/domain"
)

//go:embed locations.yaml
var defaultTables []byte

// Place is a canonical location bucket.
type Place struct {
	Name        string
	Code        string
	Coordinates *domain.Coordinates
	// match holds extra names the fuzzy matcher compares against.
	match []string
}

type keywordRule struct {
	keyword string
	code    string
}

type regionRule struct {
	name     string
	keywords []string
}

// Tables is the immutable reference data behind normalization and
// classification. Build one with DefaultTables or LoadTables and share it.
type Tables struct {
	places       []Place
	byName       map[string]int
	byCode       map[string]int
	aliases      map[string]string
	countryCodes []keywordRule
	regions      []regionRule
}

type tablesDoc struct {
	Places []struct {
		Name  string   `yaml:"name"`
		Code  string   `yaml:"code"`
		Lat   *float64 `yaml:"lat"`
		Lng   *float64 `yaml:"lng"`
		Match []string `yaml:"match"`
	} `yaml:"places"`
	Aliases []struct {
		Alias     string `yaml:"alias"`
		Canonical string `yaml:"canonical"`
	} `yaml:"aliases"`
	CountryCodes []struct {
		Keyword string `yaml:"keyword"`
		Code    string `yaml:"code"`
	} `yaml:"country_codes"`
	Regions []struct {
		Name     string   `yaml:"name"`
		Keywords []string `yaml:"keywords"`
	} `yaml:"regions"`
}

// DefaultTables returns the tables compiled into the binary.
func DefaultTables() (*Tables, error) {
	return LoadTables(bytes.NewReader(defaultTables))
}

// LoadTablesFile reads tables from path, or returns the defaults when path is
// empty.
func LoadTablesFile(path string) (*Tables, error) {
	if path == "" {
		return DefaultTables()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open location tables: %w", err)
	}
	defer f.Close()
	return LoadTables(f)
}

func LoadTables(r io.Reader) (*Tables, error) {
	var doc tablesDoc
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode location tables: %w", err)
	}

	t := &Tables{
		byName:  make(map[string]int),
		byCode:  make(map[string]int),
		aliases: make(map[string]string),
	}

	for _, p := range doc.Places {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return nil, fmt.Errorf("place with empty name")
		}
		if _, dup := t.byName[name]; dup {
			return nil, fmt.Errorf("duplicate place %q", name)
		}
		place := Place{Name: name, Code: strings.ToUpper(strings.TrimSpace(p.Code))}
		if p.Lat != nil && p.Lng != nil {
			place.Coordinates = &domain.Coordinates{Lat: *p.Lat, Lng: *p.Lng}
		}
		for _, m := range p.Match {
			if c := Clean(m); c != "" {
				place.match = append(place.match, c)
			}
		}
		t.byName[name] = len(t.places)
		if _, seen := t.byCode[place.Code]; place.Code != "" && !seen {
			t.byCode[place.Code] = len(t.places)
		}
		t.places = append(t.places, place)
	}

	for _, a := range doc.Aliases {
		key := Clean(a.Alias)
		if key == "" {
			continue
		}
		if _, ok := t.byName[a.Canonical]; !ok {
			return nil, fmt.Errorf("alias %q points to unknown place %q", a.Alias, a.Canonical)
		}
		if _, seen := t.aliases[key]; seen {
			continue
		}
		t.aliases[key] = a.Canonical
	}

	for _, c := range doc.CountryCodes {
		kw := strings.ToLower(strings.TrimSpace(c.Keyword))
		if kw == "" || c.Code == "" {
			return nil, fmt.Errorf("incomplete country code rule %q -> %q", c.Keyword, c.Code)
		}
		t.countryCodes = append(t.countryCodes, keywordRule{keyword: kw, code: strings.ToUpper(c.Code)})
	}

	for _, r := range doc.Regions {
		rule := regionRule{name: strings.TrimSpace(r.Name)}
		if rule.name == "" {
			return nil, fmt.Errorf("region with empty name")
		}
		for _, kw := range r.Keywords {
			if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
				rule.keywords = append(rule.keywords, kw)
			}
		}
		t.regions = append(t.regions, rule)
	}

	return t, nil
}

// Places returns a copy of the canonical buckets in table order.
func (t *Tables) Places() []Place {
	out := make([]Place, len(t.places))
	copy(out, t.places)
	return out
}

// Place looks up a canonical bucket by its exact name.
func (t *Tables) Place(name string) (Place, bool) {
	i, ok := t.byName[name]
	if !ok {
		return Place{}, false
	}
	return t.places[i], true
}

// CountryCode returns the ISO code of the first keyword contained in text,
// or "" when none matches.
func (t *Tables) CountryCode(text string) string {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return ""
	}
	for _, r := range t.countryCodes {
		if strings.Contains(lower, r.keyword) {
			return r.code
		}
	}
	return ""
}

// placeByKeyword returns the bucket of the first country keyword that appears
// in text as whole words. Substring hits such as "uk" in "Timbuktu" do not
// count here.
func (t *Tables) placeByKeyword(text string) (int, bool) {
	padded := " " + Clean(text) + " "
	if strings.TrimSpace(padded) == "" {
		return 0, false
	}
	for _, r := range t.countryCodes {
		if !strings.Contains(padded, " "+r.keyword+" ") {
			continue
		}
		if i, ok := t.byCode[r.code]; ok {
			return i, true
		}
	}
	return 0, false
}

// Region returns the first region with a keyword contained in text, or "".
func (t *Tables) Region(text string) string {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return ""
	}
	for _, r := range t.regions {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return r.name
			}
		}
	}
	return ""
}

// Classify derives the country code and region, preferring the canonical
// location and falling back to the raw input. A canonical place with no
// country keyword still yields its own code.
func (t *Tables) Classify(canonical, raw string) (code, region string) {
	code = t.CountryCode(canonical)
	if code == "" {
		code = t.CountryCode(raw)
	}
	if code == "" {
		if p, ok := t.Place(canonical); ok {
			code = p.Code
		}
	}
	region = t.Region(canonical)
	if region == "" {
		region = t.Region(raw)
	}
	return code, region
}
