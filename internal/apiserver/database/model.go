package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Role is a user's role inside their company
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleMember:
		return true
	}
	return false
}

// CanManage reports whether the role may change company settings and members
func (r Role) CanManage() bool {
	return r == RoleOwner || r == RoleAdmin
}

// Plan is a company's billing plan
type Plan string

const (
	PlanFree    Plan = "free"
	PlanStarter Plan = "starter"
	PlanPro     Plan = "pro"
)

var planLimits = map[Plan]int{
	PlanFree:    100,
	PlanStarter: 1000,
	PlanPro:     10000,
}

// Valid reports whether p is a known plan
func (p Plan) Valid() bool {
	_, ok := planLimits[p]
	return ok
}

// ProductLimit is the number of products a plan may sync
func (p Plan) ProductLimit() int {
	if n, ok := planLimits[p]; ok {
		return n
	}
	return planLimits[PlanFree]
}

// ProductStatus is the storefront visibility of a product
type ProductStatus string

const (
	ProductActive ProductStatus = "active"
	ProductHidden ProductStatus = "hidden"
)

// WorkOrderStatus is the execution state of a work order
type WorkOrderStatus string

const (
	StatusPending   WorkOrderStatus = "pending"
	StatusExecuting WorkOrderStatus = "executing"
	StatusCompleted WorkOrderStatus = "completed"
	StatusFailed    WorkOrderStatus = "failed"
	StatusUndone    WorkOrderStatus = "undone"
)

// User is keyed by the Firebase uid
type User struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(128)"`
	Email     string    `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	FirstName string    `json:"firstName" gorm:"type:varchar(100)"`
	LastName  string    `json:"lastName" gorm:"type:varchar(100)"`
	CompanyID *string   `json:"companyId" gorm:"type:varchar(36);index"`
	Role      Role      `json:"role" gorm:"type:varchar(20);not null"`
	IsActive  bool      `json:"isActive" gorm:"not null"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.Role == "" {
		u.Role = RoleMember
	}
	return nil
}

// HasCompany reports whether the user belongs to a company
func (u *User) HasCompany() bool {
	return u.CompanyID != nil && *u.CompanyID != ""
}

type Company struct {
	ID               string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name             string    `json:"name" gorm:"type:varchar(255);not null"`
	Plan             Plan      `json:"plan" gorm:"type:varchar(20);not null"`
	ProductLimit     int       `json:"productLimit" gorm:"not null"`
	StripeCustomerID string    `json:"-" gorm:"type:varchar(255)"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

func (c *Company) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Plan == "" {
		c.Plan = PlanFree
	}
	if c.ProductLimit <= 0 {
		c.ProductLimit = c.Plan.ProductLimit()
	}
	return nil
}

// APISettings holds a company's BigCommerce credentials
type APISettings struct {
	ID          uint       `json:"-" gorm:"primaryKey;autoIncrement"`
	CompanyID   string     `json:"companyId" gorm:"type:varchar(36);uniqueIndex;not null"`
	StoreHash   string     `json:"storeHash" gorm:"type:varchar(100);not null"`
	AccessToken string     `json:"-" gorm:"type:varchar(255);not null"`
	ClientID    string     `json:"clientId" gorm:"type:varchar(255)"`
	ShowStock   bool       `json:"showStock"`
	LastSyncAt  *time.Time `json:"lastSyncAt"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (APISettings) TableName() string {
	return "api_settings"
}

// Product mirrors an upstream product; ID is the BigCommerce id
type Product struct {
	CompanyID    string              `json:"-" gorm:"primaryKey;type:varchar(36)"`
	ID           int64               `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Name         string              `json:"name" gorm:"type:varchar(255);not null"`
	SKU          string              `json:"sku" gorm:"column:sku;type:varchar(255);index"`
	Description  string              `json:"description" gorm:"type:text"`
	Category     string              `json:"category" gorm:"type:varchar(512);index"`
	RegularPrice decimal.Decimal     `json:"regularPrice" gorm:"type:decimal(12,2);not null"`
	SalePrice    decimal.NullDecimal `json:"salePrice" gorm:"type:decimal(12,2)"`
	Stock        int                 `json:"stock"`
	Weight       decimal.Decimal     `json:"weight" gorm:"type:decimal(10,3)"`
	Status       ProductStatus       `json:"status" gorm:"type:varchar(20);not null"`
	LastUpdated  time.Time           `json:"lastUpdated"`
	CreatedAt    time.Time           `json:"createdAt"`
	UpdatedAt    time.Time           `json:"updatedAt"`

	Variants []ProductVariant `json:"variants,omitempty" gorm:"-"`
}

type ProductVariant struct {
	CompanyID    string              `json:"-" gorm:"primaryKey;type:varchar(36)"`
	ProductID    int64               `json:"productId" gorm:"primaryKey;autoIncrement:false"`
	ID           int64               `json:"id" gorm:"primaryKey;autoIncrement:false"`
	SKU          string              `json:"sku" gorm:"column:sku;type:varchar(255)"`
	OptionValues string              `json:"optionValues" gorm:"type:varchar(512)"`
	RegularPrice decimal.Decimal     `json:"regularPrice" gorm:"type:decimal(12,2);not null"`
	SalePrice    decimal.NullDecimal `json:"salePrice" gorm:"type:decimal(12,2)"`
	Stock        int                 `json:"stock"`
	Weight       decimal.Decimal     `json:"weight" gorm:"type:decimal(10,3)"`
	CreatedAt    time.Time           `json:"createdAt"`
	UpdatedAt    time.Time           `json:"updatedAt"`
}

// ProductUpdate is one product's new prices inside a work order
type ProductUpdate struct {
	ProductID      int64            `json:"productId"`
	RegularPrice   *decimal.Decimal `json:"regularPrice,omitempty"`
	SalePrice      *decimal.Decimal `json:"salePrice,omitempty"`
	VariantUpdates []VariantUpdate  `json:"variantUpdates,omitempty"`
}

// HasPriceChange reports whether the update sets at least one price
func (u ProductUpdate) HasPriceChange() bool {
	if u.RegularPrice != nil || u.SalePrice != nil {
		return true
	}
	for _, v := range u.VariantUpdates {
		if v.RegularPrice != nil || v.SalePrice != nil {
			return true
		}
	}
	return false
}

type VariantUpdate struct {
	VariantID    int64            `json:"variantId"`
	RegularPrice *decimal.Decimal `json:"regularPrice,omitempty"`
	SalePrice    *decimal.Decimal `json:"salePrice,omitempty"`
}

// PriceSnapshot records prices before execution. VariantID is 0 for product level prices.
type PriceSnapshot struct {
	ProductID int64 `json:"productId"`
	VariantID int64 `json:"variantId"`
	// RegularPrice is null for a variant that inherits the product price
	RegularPrice decimal.NullDecimal `json:"regularPrice"`
	SalePrice    decimal.NullDecimal `json:"salePrice"`
	// CalculatedPrice is the price the variant sold at, mirrored locally on restore
	CalculatedPrice decimal.NullDecimal `json:"calculatedPrice"`
}

type WorkOrder struct {
	ID                 string                            `json:"id" gorm:"primaryKey;type:varchar(36)"`
	CompanyID          string                            `json:"companyId" gorm:"type:varchar(36);index;not null"`
	CreatedBy          string                            `json:"createdBy" gorm:"type:varchar(128)"`
	Title              string                            `json:"title" gorm:"type:varchar(255)"`
	ProductUpdates     datatypes.JSONSlice[ProductUpdate] `json:"productUpdates" gorm:"not null"`
	OriginalPrices     datatypes.JSONSlice[PriceSnapshot] `json:"originalPrices"`
	ScheduledAt        *time.Time                        `json:"scheduledAt" gorm:"index"`
	ExecuteImmediately bool                              `json:"executeImmediately"`
	Status             WorkOrderStatus                   `json:"status" gorm:"type:varchar(20);index;not null"`
	Archived           bool                              `json:"archived" gorm:"not null;index"`
	ExecutedAt         *time.Time                        `json:"executedAt"`
	UndoneAt           *time.Time                        `json:"undoneAt"`
	Error              string                            `json:"error,omitempty" gorm:"type:text"`
	CreatedAt          time.Time                         `json:"createdAt" gorm:"index"`
	UpdatedAt          time.Time                         `json:"updatedAt"`
}

func (w *WorkOrder) BeforeCreate(tx *gorm.DB) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	if w.Status == "" {
		w.Status = StatusPending
	}
	return nil
}

// IsDue reports whether the executor should run the order at now
func (w *WorkOrder) IsDue(now time.Time) bool {
	if w.ExecuteImmediately {
		return true
	}
	return w.ScheduledAt != nil && !w.ScheduledAt.After(now)
}

type CompanyInvitation struct {
	Token      string     `json:"token" gorm:"primaryKey;type:varchar(64)"`
	CompanyID  string     `json:"companyId" gorm:"type:varchar(36);index;not null"`
	Email      string     `json:"email" gorm:"type:varchar(255);index;not null"`
	Role       Role       `json:"role" gorm:"type:varchar(20);not null"`
	InvitedBy  string     `json:"invitedBy" gorm:"type:varchar(128)"`
	ExpiresAt  time.Time  `json:"expiresAt" gorm:"index"`
	AcceptedAt *time.Time `json:"acceptedAt"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// Session is a server-side login session
type Session struct {
	ID        string            `json:"id" gorm:"primaryKey;type:varchar(64)"`
	UserID    string            `json:"userId" gorm:"type:varchar(128);index;not null"`
	Data      datatypes.JSONMap `json:"data"`
	ExpiresAt time.Time         `json:"expiresAt" gorm:"index"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

func allModels() []any {
	return []any{
		&User{},
		&Company{},
		&APISettings{},
		&Product{},
		&ProductVariant{},
		&WorkOrder{},
		&CompanyInvitation{},
		&Session{},
	}
}
