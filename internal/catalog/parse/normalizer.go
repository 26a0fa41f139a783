package parse

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"foodcatalog_api/internal/catalog/models"
)

// Labels of the nutrition-facts group entries and of the supplementary
// attributes, as they appear in the source payloads.
const (
	LabelEnergy        = "Энергетическая ценность"
	LabelProteins      = "Белки"
	LabelFats          = "Жиры"
	LabelCarbohydrates = "Углеводы"
	LabelWeight        = "Вес"
	LabelVolume        = "Объем"
)

// fallbackWeightGrams is assumed for items sold by weight that carry no
// explicit weight anywhere.
var fallbackWeightGrams = decimal.NewFromInt(1000)

// RawProduct is a per-item source document stripped of its wire format.
// A nil Nutrition map means the nutrition-facts group was absent from the
// payload; an empty map means it was present but had no entries.
type RawProduct struct {
	Name         string
	Category     string
	URL          string
	Price        string
	Nutrition    map[string]string
	Attributes   map[string]string
	SoldByWeight bool
}

// Normalize converts a raw source document into a canonical product record.
// Items without a nutrition-facts group do not qualify as catalog products:
// the result is (nil, nil) and the caller records the reference as skipped.
//
// Weight precedence: trailing mass unit on the display name, then the "Вес"
// attribute, then the 1 kg sold-by-weight fallback. Volume precedence:
// trailing volume unit on the name, then the "Объем" attribute. A single
// name-derived measurement satisfies only the dimension it actually carries.
func Normalize(sourceID models.SourceID, externalID int64, raw RawProduct) (*models.ProductRecord, error) {
	if raw.Nutrition == nil {
		return nil, nil
	}

	priceText := strings.TrimSpace(raw.Price)
	if priceText == "" {
		return nil, fmt.Errorf("product %d: price is missing", externalID)
	}
	price, err := decimal.NewFromString(priceText)
	if err != nil {
		return nil, fmt.Errorf("product %d: parsing price %q: %w", externalID, priceText, err)
	}

	fromName, nameMatched, err := ParseMeasurement(raw.Name)
	if err != nil {
		return nil, fmt.Errorf("product %d: %w", externalID, err)
	}

	var weight decimal.NullDecimal
	switch {
	case nameMatched && fromName.Dimension == DimensionMass:
		weight = decimal.NewNullDecimal(fromName.Value)
	default:
		weight, err = attribute(raw.Attributes, LabelWeight, DimensionMass)
		if err != nil {
			return nil, fmt.Errorf("product %d: %w", externalID, err)
		}
		if !weight.Valid && raw.SoldByWeight {
			weight = decimal.NewNullDecimal(fallbackWeightGrams)
		}
	}

	var volume decimal.NullDecimal
	if nameMatched && fromName.Dimension == DimensionVolume {
		volume = decimal.NewNullDecimal(fromName.Value)
	} else {
		volume, err = attribute(raw.Attributes, LabelVolume, DimensionVolume)
		if err != nil {
			return nil, fmt.Errorf("product %d: %w", externalID, err)
		}
	}

	energy, err := nutrient(raw.Nutrition, LabelEnergy, DimensionEnergy)
	if err != nil {
		return nil, fmt.Errorf("product %d: %w", externalID, err)
	}
	proteins, err := nutrient(raw.Nutrition, LabelProteins, DimensionNone)
	if err != nil {
		return nil, fmt.Errorf("product %d: %w", externalID, err)
	}
	fats, err := nutrient(raw.Nutrition, LabelFats, DimensionNone)
	if err != nil {
		return nil, fmt.Errorf("product %d: %w", externalID, err)
	}
	carbs, err := nutrient(raw.Nutrition, LabelCarbohydrates, DimensionNone)
	if err != nil {
		return nil, fmt.Errorf("product %d: %w", externalID, err)
	}

	now := time.Now().UTC()
	return &models.ProductRecord{
		Source:             sourceID,
		ExternalID:         externalID,
		Category:           raw.Category,
		Name:               strings.TrimSpace(raw.Name),
		URL:                raw.URL,
		WeightGrams:        weight,
		VolumeMilliliters:  volume,
		PriceUnits:         price,
		EnergyKcal:         energy,
		ProteinsGrams:      proteins,
		FatsGrams:          fats,
		CarbohydratesGrams: carbs,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

// attribute parses a labeled attribute value, accepting it only when it
// carries the wanted dimension.
func attribute(attrs map[string]string, label string, want Dimension) (decimal.NullDecimal, error) {
	m, ok, err := ParseMeasurement(attrs[label])
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("attribute %q: %w", label, err)
	}
	if !ok || m.Dimension != want {
		return decimal.NullDecimal{}, nil
	}
	return decimal.NewNullDecimal(m.Value), nil
}

// nutrient parses one nutrition-facts entry. DimensionNone accepts any
// matched dimension; the macronutrient entries are free-text gram values.
func nutrient(nutrition map[string]string, label string, want Dimension) (decimal.NullDecimal, error) {
	m, ok, err := ParseMeasurement(nutrition[label])
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("nutrition entry %q: %w", label, err)
	}
	if !ok {
		return decimal.NullDecimal{}, nil
	}
	if want != DimensionNone && m.Dimension != want {
		return decimal.NullDecimal{}, nil
	}
	return decimal.NewNullDecimal(m.Value), nil
}
