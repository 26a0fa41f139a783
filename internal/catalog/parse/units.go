package parse

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Dimension is the physical dimension carried by a parsed measurement.
type Dimension int

const (
	DimensionNone Dimension = iota
	DimensionMass
	DimensionVolume
	DimensionEnergy
)

func (d Dimension) String() string {
	switch d {
	case DimensionMass:
		return "mass"
	case DimensionVolume:
		return "volume"
	case DimensionEnergy:
		return "energy"
	}
	return "none"
}

// Measurement is a magnitude converted to its canonical unit:
// grams for mass, milliliters for volume, kcal for energy.
type Measurement struct {
	Value     decimal.Decimal
	Dimension Dimension
}

// Magnitude must sit at the end of the string, optionally followed by
// whitespace: "Молоко 1 л", "Сыр 200г", "bottle 0.5 l".
var measurementRegexp = regexp.MustCompile(`(?i)(\s|^)(\d+\.?\d*|\.\d+)\s*(мл|ml|л|l|г|g|кг|kg|ккал|kcal)\s*$`)

type unitInfo struct {
	multiplier int64
	dimension  Dimension
}

var units = map[string]unitInfo{
	"l":    {1000, DimensionVolume},
	"л":    {1000, DimensionVolume},
	"ml":   {1, DimensionVolume},
	"мл":   {1, DimensionVolume},
	"kg":   {1000, DimensionMass},
	"кг":   {1000, DimensionMass},
	"g":    {1, DimensionMass},
	"г":    {1, DimensionMass},
	"kcal": {1, DimensionEnergy},
	"ккал": {1, DimensionEnergy},
}

// ParseMeasurement extracts a trailing "<number> <unit>" token from free text
// and converts it to the canonical unit of its dimension. The second return
// value reports whether a measurement was found at all; empty input and text
// without a trailing unit are a no-match, not an error. A recognized unit
// with an unparseable magnitude is an error.
func ParseMeasurement(text string) (Measurement, bool, error) {
	if text == "" {
		return Measurement{}, false, nil
	}

	m := measurementRegexp.FindStringSubmatch(text)
	if m == nil {
		return Measurement{}, false, nil
	}

	unit, ok := units[strings.ToLower(m[3])]
	if !ok {
		return Measurement{}, false, nil
	}

	value, err := decimal.NewFromString(m[2])
	if err != nil {
		return Measurement{}, false, fmt.Errorf("parsing magnitude %q: %w", m[2], err)
	}

	return Measurement{
		Value:     value.Mul(decimal.NewFromInt(unit.multiplier)),
		Dimension: unit.dimension,
	}, true, nil
}
