// Package company holds the reference universe of public companies that
// private targets are compared against.
package company

import (
	_ "embed"
	"os"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/comps-valuation/internal/model"
)

//go:embed universe.yaml
var defaultUniverse []byte

// Universe is a read-only snapshot of reference companies. It is built once
// at startup and shared across requests without locking.
type Universe struct {
	companies []model.ReferenceCompany
	byTicker  map[string]int
}

type universeFile struct {
	Companies []model.ReferenceCompany `yaml:"companies"`
}

// Default returns the universe embedded in the binary.
func Default() (*Universe, error) {
	return Parse(defaultUniverse)
}

// Load reads a universe from a YAML file. An empty path loads the default.
func Load(path string) (*Universe, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "company: read universe %s", path)
	}
	return Parse(data)
}

// Parse decodes a YAML universe document. Tickers must be present and unique.
func Parse(data []byte) (*Universe, error) {
	var f universeFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "company: parse universe")
	}
	return New(f.Companies)
}

// New builds a universe from the given companies. The slice is copied.
func New(companies []model.ReferenceCompany) (*Universe, error) {
	u := &Universe{
		companies: make([]model.ReferenceCompany, 0, len(companies)),
		byTicker:  make(map[string]int, len(companies)),
	}
	for i, c := range companies {
		c.Ticker = strings.ToUpper(strings.TrimSpace(c.Ticker))
		if c.Ticker == "" {
			return nil, eris.Errorf("company: entry %d has no ticker", i)
		}
		if _, dup := u.byTicker[c.Ticker]; dup {
			return nil, eris.Errorf("company: duplicate ticker %s", c.Ticker)
		}
		u.byTicker[c.Ticker] = len(u.companies)
		u.companies = append(u.companies, c)
	}
	return u, nil
}

// Companies returns a copy of the reference companies in load order.
func (u *Universe) Companies() []model.ReferenceCompany {
	return slices.Clone(u.companies)
}

// Lookup returns the company with the given ticker (case-insensitive).
func (u *Universe) Lookup(ticker string) (model.ReferenceCompany, bool) {
	i, ok := u.byTicker[strings.ToUpper(ticker)]
	if !ok {
		return model.ReferenceCompany{}, false
	}
	return u.companies[i], true
}

// Len returns the number of companies in the universe.
func (u *Universe) Len() int {
	return len(u.companies)
}
