// Package strategy holds the published catalog of lawnmower scan strategies.
// The catalog ships embedded in the binary; entries are immutable and keep
// their file order for listing.
package strategy

import (
	_ "embed"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/cleanup-simulator/model"
)

//go:embed strategies.yaml
var catalogYAML []byte

// DefaultName is the strategy applied when a scenario does not name one.
const DefaultName = "1:5 Ratio"

// ErrUnknownStrategy is returned by Lookup for names absent from the catalog.
var ErrUnknownStrategy = errors.New("unknown strategy")

// Catalog is an immutable, ordered set of named strategies.
type Catalog struct {
	entries []model.Strategy
	byName  map[string]int
}

type catalogPayload struct {
	Strategies []model.Strategy `yaml:"strategies"`
}

// Parse builds a catalog from YAML data. Entries keep their file order.
func Parse(data []byte) (*Catalog, error) {
	var payload catalogPayload
	if err := yaml.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parsing strategy catalog: %w", err)
	}
	if len(payload.Strategies) == 0 {
		return nil, errors.New("strategy catalog is empty")
	}

	c := &Catalog{
		entries: payload.Strategies,
		byName:  make(map[string]int, len(payload.Strategies)),
	}
	for i, s := range payload.Strategies {
		if s.Name == "" {
			return nil, fmt.Errorf("strategy %d: missing name", i)
		}
		if _, dup := c.byName[s.Name]; dup {
			return nil, fmt.Errorf("strategy %d: duplicate name %q", i, s.Name)
		}
		if s.HKm <= 0 || s.VKm <= 0 {
			return nil, fmt.Errorf("strategy %q: H and V must be positive", s.Name)
		}
		if s.SpeedKmh <= 0 {
			return nil, fmt.Errorf("strategy %q: drone speed must be positive", s.Name)
		}
		c.byName[s.Name] = i
	}
	return c, nil
}

var builtin = mustParse(catalogYAML)

func mustParse(data []byte) *Catalog {
	c, err := Parse(data)
	if err != nil {
		panic(fmt.Sprintf("strategy: embedded catalog invalid: %v", err))
	}
	return c
}

// Builtin returns the catalog embedded in the binary.
func Builtin() *Catalog { return builtin }

// Lookup returns the strategy with the given name, or an error wrapping
// ErrUnknownStrategy if no such entry exists.
func (c *Catalog) Lookup(name string) (model.Strategy, error) {
	i, ok := c.byName[name]
	if !ok {
		return model.Strategy{}, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
	return c.entries[i], nil
}

// Default returns the catalog's default strategy.
func (c *Catalog) Default() model.Strategy {
	i, ok := c.byName[DefaultName]
	if !ok {
		// Parse guarantees a non-empty catalog.
		return c.entries[0]
	}
	return c.entries[i]
}

// List returns all strategies in catalog order. The slice is a copy; callers
// may not mutate catalog entries through it.
func (c *Catalog) List() []model.Strategy {
	out := make([]model.Strategy, len(c.entries))
	copy(out, c.entries)
	return out
}

// Names returns the strategy names in catalog order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.entries))
	for i, s := range c.entries {
		out[i] = s.Name
	}
	return out
}
