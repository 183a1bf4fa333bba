package pricing

import (
	"fmt"
	"math/rand/v2"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/shopspring/decimal"
)

var demandFactors = map[domain.DemandLevel]decimal.Decimal{
	domain.DemandLow:    decimal.RequireFromString("1.0"),
	domain.DemandMedium: decimal.RequireFromString("1.15"),
	domain.DemandHigh:   decimal.RequireFromString("1.3"),
}

var demandLevels = []domain.DemandLevel{domain.DemandLow, domain.DemandMedium, domain.DemandHigh}

// DemandFactor returns the multiplier for a demand level.
func DemandFactor(level domain.DemandLevel) (decimal.Decimal, error) {
	f, ok := demandFactors[level]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: unknown demand level %q", domain.ErrValidation, level)
	}
	return f, nil
}

// DemandSource yields the demand signal for one pricing decision.
type DemandSource interface {
	Sample(flightID int64) domain.DemandLevel
}

// UniformDemand picks every level with equal probability.
type UniformDemand struct {
	intN func(n int) int
}

func NewUniformDemand() *UniformDemand {
	return &UniformDemand{intN: rand.IntN}
}

func (d *UniformDemand) Sample(int64) domain.DemandLevel {
	return demandLevels[d.intN(len(demandLevels))]
}

// WeightedDemand picks LOW/MEDIUM/HIGH with 30/50/20 odds.
type WeightedDemand struct {
	float func() float64
}

func NewWeightedDemand() *WeightedDemand {
	return &WeightedDemand{float: rand.Float64}
}

func (d *WeightedDemand) Sample(int64) domain.DemandLevel {
	r := d.float()
	switch {
	case r < 0.3:
		return domain.DemandLow
	case r < 0.8:
		return domain.DemandMedium
	default:
		return domain.DemandHigh
	}
}

// FixedDemand always reports the same level.
type FixedDemand domain.DemandLevel

func (d FixedDemand) Sample(int64) domain.DemandLevel {
	return domain.DemandLevel(d)
}

// NewDemandSource maps a configured model name to a source.
func NewDemandSource(model string) (DemandSource, error) {
	switch model {
	case "", "uniform":
		return NewUniformDemand(), nil
	case "weighted":
		return NewWeightedDemand(), nil
	case "low":
		return FixedDemand(domain.DemandLow), nil
	case "medium":
		return FixedDemand(domain.DemandMedium), nil
	case "high":
		return FixedDemand(domain.DemandHigh), nil
	default:
		return nil, fmt.Errorf("unknown demand model %q", model)
	}
}
