package dto

import (
	"strings"
	"time"

	"github.com/catalogpilot/catalogpilot/internal/apiserver/database"
	"github.com/shopspring/decimal"
)

// SettingsRequest saves BigCommerce credentials. An empty access token keeps the saved one.
type SettingsRequest struct {
	StoreHash   string `json:"storeHash" binding:"required,max=100"`
	AccessToken string `json:"accessToken" binding:"max=255"`
	ClientID    string `json:"clientId" binding:"max=255"`
	ShowStock   bool   `json:"showStock"`
}

type SettingsResponse struct {
	Connected   bool       `json:"connected"`
	StoreHash   string     `json:"storeHash"`
	AccessToken string     `json:"accessToken"`
	ClientID    string     `json:"clientId"`
	ShowStock   bool       `json:"showStock"`
	LastSyncAt  *time.Time `json:"lastSyncAt"`
}

// NewSettingsResponse masks the access token
func NewSettingsResponse(s *database.APISettings) SettingsResponse {
	if s == nil {
		return SettingsResponse{}
	}
	return SettingsResponse{
		Connected:   true,
		StoreHash:   s.StoreHash,
		AccessToken: MaskSecret(s.AccessToken),
		ClientID:    s.ClientID,
		ShowStock:   s.ShowStock,
		LastSyncAt:  s.LastSyncAt,
	}
}

// MaskSecret keeps the last four characters of secrets longer than eight
func MaskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}

// TestConnectionRequest checks unsaved credentials; empty fields fall back to the saved settings
type TestConnectionRequest struct {
	StoreHash   string `json:"storeHash"`
	AccessToken string `json:"accessToken"`
}

type TestConnectionResponse struct {
	OK        bool   `json:"ok"`
	StoreName string `json:"storeName"`
	Domain    string `json:"domain"`
}

type ProductListQuery struct {
	Category string `form:"category"`
	Search   string `form:"search"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	Limit    int    `form:"limit" binding:"omitempty,min=1,max=250"`
}

// Filter applies paging defaults
func (q ProductListQuery) Filter() database.ProductFilter {
	f := database.ProductFilter{Category: strings.TrimSpace(q.Category), Search: q.Search, Page: q.Page, Limit: q.Limit}
	if f.Page == 0 {
		f.Page = 1
	}
	if f.Limit == 0 {
		f.Limit = 50
	}
	return f
}

type ProductListResponse struct {
	Items []*database.Product `json:"items"`
	Total int64               `json:"total"`
	Page  int                 `json:"page"`
	Limit int                 `json:"limit"`
}

// UpdateProductRequest is a partial product edit. ClearSalePrice removes the sale price.
type UpdateProductRequest struct {
	Name           *string          `json:"name" binding:"omitempty,min=1,max=255"`
	SKU            *string          `json:"sku" binding:"omitempty,max=255"`
	Description    *string          `json:"description"`
	Category       *string          `json:"category" binding:"omitempty,max=512"`
	RegularPrice   *decimal.Decimal `json:"regularPrice"`
	SalePrice      *decimal.Decimal `json:"salePrice"`
	ClearSalePrice bool             `json:"clearSalePrice"`
	Stock          *int             `json:"stock" binding:"omitempty,min=0"`
	Weight         *decimal.Decimal `json:"weight"`
	Status         *string          `json:"status" binding:"omitempty,oneof=active hidden"`
}

// Negative reports whether any supplied amount is below zero
func (r UpdateProductRequest) Negative() bool {
	for _, d := range []*decimal.Decimal{r.RegularPrice, r.SalePrice, r.Weight} {
		if d != nil && d.IsNegative() {
			return true
		}
	}
	return false
}

func (r UpdateProductRequest) Patch() database.ProductPatch {
	p := database.ProductPatch{
		Name:         r.Name,
		SKU:          r.SKU,
		Description:  r.Description,
		Category:     r.Category,
		RegularPrice: r.RegularPrice,
		Stock:        r.Stock,
		Weight:       r.Weight,
	}
	switch {
	case r.ClearSalePrice:
		p.SalePrice = &decimal.NullDecimal{}
	case r.SalePrice != nil:
		nd := decimal.NewNullDecimal(*r.SalePrice)
		p.SalePrice = &nd
	}
	if r.Status != nil {
		s := database.ProductStatus(*r.Status)
		p.Status = &s
	}
	return p
}

type CategoriesResponse struct {
	Categories []string `json:"categories"`
}
