// Package catalog serves the region-scoped city allow-list used by the personal-info step.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed cities.yaml
var defaultCities []byte

// ErrUnknownRegion is returned when a region code is not in the catalogue.
var ErrUnknownRegion = errors.New("unknown region")

// Region is one state/region and its allowed cities.
type Region struct {
	Code   string   `yaml:"-" json:"code"`
	Name   string   `yaml:"name" json:"name"`
	Cities []string `yaml:"cities" json:"cities"`
}

type file struct {
	Regions map[string]Region `yaml:"regions"`
}

// Catalog is an immutable region → cities index. Safe for concurrent use.
type Catalog struct {
	regions map[string]Region
	// lower-cased city name -> canonical spelling, per region
	index map[string]map[string]string
}

// Default returns the catalogue embedded in the binary.
func Default() (*Catalog, error) {
	return Parse(defaultCities)
}

// Parse builds a Catalog from YAML of the form `regions: {SP: {name: ..., cities: [...]}}`.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("catalog: parse: %w", err)
	}
	if len(f.Regions) == 0 {
		return nil, errors.New("catalog: no regions defined")
	}
	c := &Catalog{
		regions: make(map[string]Region, len(f.Regions)),
		index:   make(map[string]map[string]string, len(f.Regions)),
	}
	for code, r := range f.Regions {
		code = strings.ToUpper(strings.TrimSpace(code))
		r.Code = code
		idx := make(map[string]string, len(r.Cities))
		for _, city := range r.Cities {
			idx[normalize(city)] = city
		}
		c.regions[code] = r
		c.index[code] = idx
	}
	return c, nil
}

// HasRegion reports whether code is a known region.
func (c *Catalog) HasRegion(code string) bool {
	_, ok := c.regions[strings.ToUpper(strings.TrimSpace(code))]
	return ok
}

// LookupCity returns the canonical spelling of city within region. Free text that is not in the
// region's list is rejected.
func (c *Catalog) LookupCity(region, city string) (string, bool) {
	idx, ok := c.index[strings.ToUpper(strings.TrimSpace(region))]
	if !ok {
		return "", false
	}
	canonical, ok := idx[normalize(city)]
	return canonical, ok
}

// Cities returns the allowed cities for region, sorted.
func (c *Catalog) Cities(region string) ([]string, error) {
	r, ok := c.regions[strings.ToUpper(strings.TrimSpace(region))]
	if !ok {
		return nil, ErrUnknownRegion
	}
	out := append([]string(nil), r.Cities...)
	sort.Strings(out)
	return out, nil
}

// Regions returns all regions sorted by code.
func (c *Catalog) Regions() []Region {
	out := make([]Region, 0, len(c.regions))
	for _, r := range c.regions {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
