// Package catalog holds the fixed vehicle catalog the configurator sells from
// and prices a set of selections against it.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"configurator/internal/models"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// ErrInvalidOption is returned when a selection names an option the catalog
// does not offer, or one the chosen model does not allow.
var ErrInvalidOption = errors.New("invalid option")

// Option is one selectable catalog entry with its surcharge.
type Option struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"-"`
	PriceLabel  string          `json:"price"`
}

// Model is a vehicle with its base price and the option sets valid for it.
// Empty Colors or Interiors means every catalog entry is valid.
type Model struct {
	Option
	Colors    []string `json:"colors,omitempty"`
	Interiors []string `json:"interiors,omitempty"`
}

// Catalog is the immutable set of models and options.
type Catalog struct {
	Models      []Model  `json:"models"`
	Colors      []Option `json:"colors"`
	Interiors   []Option `json:"interiors"`
	Performance []Option `json:"performance"`
	Wheels      []Option `json:"wheels"`
	Aero        []Option `json:"aero"`
	Technology  []Option `json:"technology"`
}

type rawOption struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Price       string   `yaml:"price"`
	Colors      []string `yaml:"colors"`
	Interiors   []string `yaml:"interiors"`
}

type rawCatalog struct {
	Models      []rawOption `yaml:"models"`
	Colors      []rawOption `yaml:"colors"`
	Interiors   []rawOption `yaml:"interiors"`
	Performance []rawOption `yaml:"performance"`
	Wheels      []rawOption `yaml:"wheels"`
	Aero        []rawOption `yaml:"aero"`
	Technology  []rawOption `yaml:"technology"`
}

// Default returns the catalog embedded in the binary.
func Default() *Catalog {
	c, err := Load(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog is invalid: %v", err))
	}
	return c
}

// Load parses a YAML catalog definition.
func Load(data []byte) (*Catalog, error) {
	var raw rawCatalog
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if len(raw.Models) == 0 {
		return nil, fmt.Errorf("catalog defines no models")
	}

	c := &Catalog{}
	for _, m := range raw.Models {
		opt, err := m.option(false)
		if err != nil {
			return nil, fmt.Errorf("model %q: %w", m.ID, err)
		}
		c.Models = append(c.Models, Model{Option: opt, Colors: m.Colors, Interiors: m.Interiors})
	}

	groups := []struct {
		name string
		in   []rawOption
		out  *[]Option
	}{
		{"colors", raw.Colors, &c.Colors},
		{"interiors", raw.Interiors, &c.Interiors},
		{"performance", raw.Performance, &c.Performance},
		{"wheels", raw.Wheels, &c.Wheels},
		{"aero", raw.Aero, &c.Aero},
		{"technology", raw.Technology, &c.Technology},
	}
	for _, g := range groups {
		for _, r := range g.in {
			opt, err := r.option(true)
			if err != nil {
				return nil, fmt.Errorf("%s %q: %w", g.name, r.ID, err)
			}
			*g.out = append(*g.out, opt)
		}
	}
	return c, nil
}

func (r rawOption) option(surcharge bool) (Option, error) {
	if r.ID == "" {
		return Option{}, fmt.Errorf("missing id")
	}
	price, err := decimal.NewFromString(r.Price)
	if err != nil {
		return Option{}, fmt.Errorf("bad price %q: %w", r.Price, err)
	}
	if price.IsNegative() {
		return Option{}, fmt.Errorf("negative price %s", r.Price)
	}
	label := FormatUSD(price)
	if surcharge {
		label = SurchargeLabel(price)
	}
	return Option{ID: r.ID, Name: r.Name, Description: r.Description, Price: price, PriceLabel: label}, nil
}

// Model looks up a model by ID.
func (c *Catalog) Model(id string) (Model, bool) {
	for _, m := range c.Models {
		if m.ID == id {
			return m, true
		}
	}
	return Model{}, false
}

func find(opts []Option, id string) (Option, bool) {
	for _, o := range opts {
		if o.ID == id {
			return o, true
		}
	}
	return Option{}, false
}

func allowed(ids []string, id string) bool {
	if len(ids) == 0 {
		return true
	}
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// Price validates the selections against the catalog and returns the base
// model price plus every selected paid option. Empty optional fields are
// skipped; required fields are enforced by the wizard.
func (c *Catalog) Price(sel models.Selections) (decimal.Decimal, error) {
	m, ok := c.Model(sel.Model)
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: model %q", ErrInvalidOption, sel.Model)
	}
	total := m.Price

	pick := func(kind string, opts []Option, id string) error {
		if id == "" {
			return nil
		}
		o, ok := find(opts, id)
		if !ok {
			return fmt.Errorf("%w: %s %q", ErrInvalidOption, kind, id)
		}
		total = total.Add(o.Price)
		return nil
	}

	if sel.ExteriorColor != "" && !allowed(m.Colors, sel.ExteriorColor) {
		return decimal.Zero, fmt.Errorf("%w: color %q is not offered on %s", ErrInvalidOption, sel.ExteriorColor, m.Name)
	}
	if sel.Interior != "" && !allowed(m.Interiors, sel.Interior) {
		return decimal.Zero, fmt.Errorf("%w: interior %q is not offered on %s", ErrInvalidOption, sel.Interior, m.Name)
	}

	if err := pick("color", c.Colors, sel.ExteriorColor); err != nil {
		return decimal.Zero, err
	}
	if err := pick("interior", c.Interiors, sel.Interior); err != nil {
		return decimal.Zero, err
	}
	if err := pick("performance package", c.Performance, sel.Performance); err != nil {
		return decimal.Zero, err
	}
	if err := pick("wheels", c.Wheels, sel.Wheels); err != nil {
		return decimal.Zero, err
	}
	seen := make(map[string]bool)
	for _, id := range sel.Aero {
		if seen["aero:"+id] {
			continue
		}
		seen["aero:"+id] = true
		if err := pick("aero", c.Aero, id); err != nil {
			return decimal.Zero, err
		}
	}
	for _, id := range sel.Technology {
		if seen["tech:"+id] {
			continue
		}
		seen["tech:"+id] = true
		if err := pick("technology", c.Technology, id); err != nil {
			return decimal.Zero, err
		}
	}
	return total, nil
}
