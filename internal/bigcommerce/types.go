package bigcommerce

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Credentials identify one BigCommerce store
type Credentials struct {
	StoreHash   string
	AccessToken string
}

type Category struct {
	ID       int64  `json:"id"`
	ParentID int64  `json:"parent_id"`
	Name     string `json:"name"`
}

type Product struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	SKU            string          `json:"sku"`
	Description    string          `json:"description"`
	Price          decimal.Decimal `json:"price"`
	SalePrice      decimal.Decimal `json:"sale_price"`
	InventoryLevel int             `json:"inventory_level"`
	Weight         decimal.Decimal `json:"weight"`
	IsVisible      bool            `json:"is_visible"`
	Categories     []int64         `json:"categories"`
	Variants       []Variant       `json:"variants"`
}

// OnSale reports whether upstream carries a sale price; zero means none
func (p *Product) OnSale() bool {
	return p.SalePrice.IsPositive()
}

type Variant struct {
	ID              int64               `json:"id"`
	ProductID       int64               `json:"product_id"`
	SKU             string              `json:"sku"`
	Price           decimal.NullDecimal `json:"price"`
	SalePrice       decimal.NullDecimal `json:"sale_price"`
	CalculatedPrice decimal.NullDecimal `json:"calculated_price"`
	InventoryLevel  int                 `json:"inventory_level"`
	Weight          decimal.NullDecimal `json:"weight"`
	OptionValues    []OptionValue       `json:"option_values"`
}

type OptionValue struct {
	Label             string `json:"label"`
	OptionDisplayName string `json:"option_display_name"`
}

// OptionsLabel renders option values as "Color: Red / Size: L"
func (v *Variant) OptionsLabel() string {
	parts := make([]string, 0, len(v.OptionValues))
	for _, ov := range v.OptionValues {
		parts = append(parts, fmt.Sprintf("%s: %s", ov.OptionDisplayName, ov.Label))
	}
	return strings.Join(parts, " / ")
}

// EffectivePrice is the variant's own price, or the calculated price when it inherits
func (v *Variant) EffectivePrice() decimal.Decimal {
	if v.Price.Valid {
		return v.Price.Decimal
	}
	return v.CalculatedPrice.Decimal
}

// StoreInfo is the subset of /v2/store used to verify credentials
type StoreInfo struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Domain string `json:"domain"`
}

// PriceUpdate carries new prices. A nil field is left untouched upstream;
// an invalid SalePrice clears the sale. InheritPrice nulls a variant's own
// price so it follows the product again and wins over RegularPrice.
type PriceUpdate struct {
	RegularPrice *decimal.Decimal
	SalePrice    *decimal.NullDecimal
	InheritPrice bool
}

func (u PriceUpdate) IsEmpty() bool {
	return u.RegularPrice == nil && u.SalePrice == nil && !u.InheritPrice
}

// ProductUpdate is a partial product edit
type ProductUpdate struct {
	Name           *string
	SKU            *string
	Description    *string
	InventoryLevel *int
	Weight         *decimal.Decimal
	IsVisible      *bool
	PriceUpdate
}

type pagination struct {
	Total       int `json:"total"`
	CurrentPage int `json:"current_page"`
	TotalPages  int `json:"total_pages"`
}

type envelope[T any] struct {
	Data T `json:"data"`
	Meta struct {
		Pagination pagination `json:"pagination"`
	} `json:"meta"`
}
