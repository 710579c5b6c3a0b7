/*
Package factory converts operator pricing configuration into a sale.Context.

PURPOSE:
  Operators describe a sales run in JSON or YAML: the batch prices, the
  online fee, an optional promo limit and the resolver. The factory
  validates it and produces the integer-cent context the engine runs on.
  This is the only place decimal prices are turned into cents.

SCHEMA (JSON shown, YAML uses the same keys):
  {
    "name": "Summer Festival",
    "online_fee": {"numerator": 11, "denominator": 10},
    "prices": ["50.00", "60.00", "90.00"],
    "promo_limit": 2,
    "resolver": "seller"
  }

  prices[0] is the promotional batch, prices[i] is batch i. Prices may be
  JSON numbers or strings. online_fee defaults to no fee, resolver to
  "seller", promo_limit to unlimited.

USAGE:
  f := factory.NewPricingFactory()
  cfg, err := f.ParseYAML(data)
  ctx, err := f.Build(cfg)

SEE ALSO:
  - sale/ledger.go: Context
  - ticket/batch.go: Catalog the prices become
*/
package factory

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/ticket-recon/sale"
	"github.com/warp/ticket-recon/ticket"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// ERRORS
// =============================================================================

// ErrInvalidConfig is wrapped by every configuration failure.
var ErrInvalidConfig = errors.New("invalid pricing configuration")

// ConfigError names the offending key.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid pricing configuration: %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrInvalidConfig }

// =============================================================================
// SCHEMA TYPES
// =============================================================================

// PricingConfig is the serialized form of a run's pricing context.
type PricingConfig struct {
	Name       string   `json:"name,omitempty" yaml:"name,omitempty"`
	OnlineFee  *FeeJSON `json:"online_fee,omitempty" yaml:"online_fee,omitempty"`
	Prices     []Amount `json:"prices" yaml:"prices"`
	PromoLimit *int     `json:"promo_limit,omitempty" yaml:"promo_limit,omitempty"`
	Resolver   string   `json:"resolver,omitempty" yaml:"resolver,omitempty"`
}

// FeeJSON is the online fee as a rational.
type FeeJSON struct {
	Numerator   int64 `json:"numerator" yaml:"numerator"`
	Denominator int64 `json:"denominator" yaml:"denominator"`
}

// Amount is a decimal price in currency units.
type Amount struct {
	decimal.Decimal
}

func NewAmount(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, err
	}
	return Amount{d}, nil
}

// Cents converts to integer cents, rounding to the nearest cent.
func (a Amount) Cents() int64 {
	return a.Shift(2).Round(0).IntPart()
}

// FitsCents reports whether Cents is exact, i.e. the amount fits in int64 cents.
func (a Amount) FitsCents() bool {
	return a.Shift(2).Round(0).BigInt().IsInt64()
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.StringFixed(2))
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	return a.Decimal.UnmarshalJSON(b)
}

func (a Amount) MarshalYAML() (any, error) {
	return a.StringFixed(2), nil
}

func (a *Amount) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: price must be a number", node.Line)
	}
	d, err := decimal.NewFromString(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %q is not a price", node.Line, node.Value)
	}
	a.Decimal = d
	return nil
}

// =============================================================================
// PRICING FACTORY
// =============================================================================

// PricingFactory converts configuration documents to sale.Context values.
type PricingFactory struct{}

func NewPricingFactory() *PricingFactory {
	return &PricingFactory{}
}

// ParseJSON decodes a JSON configuration. Unknown keys are rejected.
func (f *PricingFactory) ParseJSON(data []byte) (PricingConfig, error) {
	var cfg PricingConfig
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return PricingConfig{}, fmt.Errorf("parse pricing JSON: %v: %w", err, ErrInvalidConfig)
	}
	return cfg, nil
}

// ParseYAML decodes a YAML configuration. Unknown keys are rejected.
func (f *PricingFactory) ParseYAML(data []byte) (PricingConfig, error) {
	var cfg PricingConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return PricingConfig{}, fmt.Errorf("parse pricing YAML: %v: %w", err, ErrInvalidConfig)
	}
	return cfg, nil
}

// Parse decodes JSON when data looks like a JSON object, YAML otherwise.
func (f *PricingFactory) Parse(data []byte) (PricingConfig, error) {
	if looksLikeJSON(data) {
		return f.ParseJSON(data)
	}
	return f.ParseYAML(data)
}

// Build validates cfg and produces the engine context.
func (f *PricingFactory) Build(cfg PricingConfig) (sale.Context, error) {
	if len(cfg.Prices) == 0 {
		return sale.Context{}, &ConfigError{Field: "prices", Reason: "at least one price is required"}
	}
	cents := make([]int64, 0, len(cfg.Prices))
	for i, p := range cfg.Prices {
		if p.IsNegative() {
			return sale.Context{}, &ConfigError{Field: fmt.Sprintf("prices[%d]", i), Reason: "must not be negative"}
		}
		if !p.FitsCents() {
			return sale.Context{}, &ConfigError{Field: fmt.Sprintf("prices[%d]", i), Reason: "out of range"}
		}
		cents = append(cents, p.Cents())
	}

	fee := sale.NoFee
	if cfg.OnlineFee != nil {
		fee = sale.Fee{Numerator: cfg.OnlineFee.Numerator, Denominator: cfg.OnlineFee.Denominator}
		if !fee.Valid() {
			return sale.Context{}, &ConfigError{Field: "online_fee", Reason: "numerator and denominator must be positive"}
		}
	}

	limit := 0
	if cfg.PromoLimit != nil {
		if *cfg.PromoLimit < 1 {
			return sale.Context{}, &ConfigError{Field: "promo_limit", Reason: "must be at least 1 when set"}
		}
		limit = *cfg.PromoLimit
	}

	resolver, err := sale.ParseResolver(cfg.Resolver)
	if err != nil {
		return sale.Context{}, &ConfigError{Field: "resolver", Reason: fmt.Sprintf("unknown resolver %q", cfg.Resolver)}
	}

	ctx := sale.Context{
		OnlineFee:  fee,
		Catalog:    ticket.FromPrices(cents),
		PromoLimit: limit,
		Resolver:   resolver,
	}
	if err := ctx.Validate(); err != nil {
		return sale.Context{}, fmt.Errorf("%v: %w", err, ErrInvalidConfig)
	}
	return ctx, nil
}

// ParseAndBuild is Parse followed by Build.
func (f *PricingFactory) ParseAndBuild(data []byte) (PricingConfig, sale.Context, error) {
	cfg, err := f.Parse(data)
	if err != nil {
		return PricingConfig{}, sale.Context{}, err
	}
	ctx, err := f.Build(cfg)
	if err != nil {
		return PricingConfig{}, sale.Context{}, err
	}
	return cfg, ctx, nil
}

// ToConfig converts a context back to its serialized form.
func (f *PricingFactory) ToConfig(name string, ctx sale.Context) PricingConfig {
	cfg := PricingConfig{
		Name:      name,
		OnlineFee: &FeeJSON{Numerator: ctx.OnlineFee.Numerator, Denominator: ctx.OnlineFee.Denominator},
		Resolver:  ctx.Resolver.String(),
	}
	for _, b := range ctx.Catalog.Batches() {
		cfg.Prices = append(cfg.Prices, Amount{decimal.New(b.Price, -2)})
	}
	if ctx.PromoLimit > 0 {
		limit := ctx.PromoLimit
		cfg.PromoLimit = &limit
	}
	return cfg
}

func looksLikeJSON(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] == '{'
}
