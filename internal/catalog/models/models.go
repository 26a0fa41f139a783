package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SourceID identifies one external catalog provider. It is persisted as the
// discriminator half of the (source, external id) composite key.
type SourceID string

const (
	SourcePerekrestok SourceID = "perekrestok"
)

// Status is the processing state of one catalog item reference.
type Status string

const (
	StatusNew      Status = "new"
	StatusImported Status = "imported"
	StatusError    Status = "error"
	StatusSkipped  Status = "skipped"
)

// ItemReference is the durable identity of one catalog item within one
// source, independent of whether its full data was ever fetched.
// (Source, ExternalID) is unique; there is exactly one current status per key.
type ItemReference struct {
	Source     SourceID
	ExternalID int64
	Status     Status
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewItemReference builds a freshly discovered reference with status new.
func NewItemReference(source SourceID, externalID int64) ItemReference {
	now := time.Now().UTC()
	return ItemReference{
		Source:     source,
		ExternalID: externalID,
		Status:     StatusNew,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// ProductRecord is the normalized catalog entry for a successfully imported
// item. All measurements are canonical: grams, milliliters, kcal.
type ProductRecord struct {
	Source             SourceID
	ExternalID         int64
	Category           string
	Name               string
	URL                string
	WeightGrams        decimal.NullDecimal
	VolumeMilliliters  decimal.NullDecimal
	PriceUnits         decimal.Decimal
	EnergyKcal         decimal.NullDecimal
	ProteinsGrams      decimal.NullDecimal
	FatsGrams          decimal.NullDecimal
	CarbohydratesGrams decimal.NullDecimal
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
