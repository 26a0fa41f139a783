package perekrestok

import (
	"encoding/json"
	"strings"

	"foodcatalog_api/internal/catalog/parse"
)

// Groups of the product payload's paramGroups array.
const (
	groupNutrition = "Пищевая ценность на 100г"
	groupSummary   = "Описание"
)

// listingResponse is the ajax payload of one catalog listing page: the total
// item count of the category plus the rendered tiles the item ids are
// scraped from.
type listingResponse struct {
	Count int    `json:"count"`
	HTML  string `json:"html"`
}

type productResponse struct {
	Data productData `json:"data"`
}

type productData struct {
	ProductID        int64        `json:"productId"`
	Name             string       `json:"name"`
	MainCategoryName string       `json:"mainCategoryName"`
	ProductSiteURL   string       `json:"productSiteUrl"`
	Price            json.Number  `json:"price"`
	IsFractional     bool         `json:"isFractional"`
	ParamGroups      []paramGroup `json:"paramGroups"`
}

type paramGroup struct {
	Name   string  `json:"name"`
	Params []param `json:"params"`
}

type param struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// rawProduct flattens the payload into the normalizer's document shape.
// The nutrition map stays nil when the payload has no nutrition group, which
// is what disqualifies an item.
func (d productData) rawProduct() parse.RawProduct {
	raw := parse.RawProduct{
		Name:         strings.TrimSpace(d.Name),
		Category:     d.MainCategoryName,
		URL:          d.ProductSiteURL,
		Price:        d.Price.String(),
		SoldByWeight: d.IsFractional,
	}

	for _, group := range d.ParamGroups {
		switch group.Name {
		case groupNutrition:
			raw.Nutrition = make(map[string]string, len(group.Params))
			for _, p := range group.Params {
				raw.Nutrition[strings.TrimSpace(p.Name)] = p.Value
			}
		case groupSummary:
			for _, p := range group.Params {
				name := strings.TrimSpace(p.Name)
				if name != parse.LabelWeight && name != parse.LabelVolume {
					continue
				}
				if raw.Attributes == nil {
					raw.Attributes = make(map[string]string, 2)
				}
				raw.Attributes[name] = p.Value
			}
		}
	}

	return raw
}
