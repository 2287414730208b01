package database

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Database defines the methods for database operations.
// Tenant scoped methods always filter on the given company id.
type Database interface {
	// Close closes the database connection.
	Close() error
	Ping(ctx context.Context) error
	// Transaction runs fn in one transaction carried by the context.
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error

	// UpsertUser inserts the user or refreshes email and names of an existing one.
	UpsertUser(ctx context.Context, user *User) (*User, error)
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	// SetUserCompany moves a user into a company with the given role.
	SetUserCompany(ctx context.Context, userID, companyID string, role Role) error
	ListCompanyUsers(ctx context.Context, companyID string) ([]*User, error)
	DeactivateUser(ctx context.Context, companyID, userID string) error

	// CreateCompanyForUser creates a company owned by a user that has none yet.
	CreateCompanyForUser(ctx context.Context, company *Company, userID string) error
	GetCompany(ctx context.Context, id string) (*Company, error)
	UpdateCompanyPlan(ctx context.Context, id string, plan Plan) error
	SetStripeCustomerID(ctx context.Context, id, customerID string) error

	GetAPISettings(ctx context.Context, companyID string) (*APISettings, error)
	// SaveAPISettings upserts on company_id in a single statement.
	SaveAPISettings(ctx context.Context, settings *APISettings) (*APISettings, error)
	TouchLastSync(ctx context.Context, companyID string, at time.Time) error

	ListProducts(ctx context.Context, companyID string, filter ProductFilter) ([]*Product, int64, error)
	GetProduct(ctx context.Context, companyID string, id int64) (*Product, error)
	UpdateProduct(ctx context.Context, companyID string, id int64, patch ProductPatch) (*Product, error)
	DeleteProduct(ctx context.Context, companyID string, id int64) error
	// ReplaceCatalog clears and re-inserts the company's products and variants.
	ReplaceCatalog(ctx context.Context, companyID string, products []*Product) error
	UpdateProductPrices(ctx context.Context, companyID string, productID int64, prices PriceChange) error
	UpdateVariantPrices(ctx context.Context, companyID string, productID, variantID int64, prices PriceChange) error

	CreateWorkOrder(ctx context.Context, order *WorkOrder) error
	GetWorkOrder(ctx context.Context, companyID, id string) (*WorkOrder, error)
	ListWorkOrders(ctx context.Context, companyID string, filter WorkOrderFilter) ([]*WorkOrder, error)
	// UpdateWorkOrder merges content fields of a pending order.
	UpdateWorkOrder(ctx context.Context, companyID, id string, patch WorkOrderPatch) (*WorkOrder, error)
	// TransitionWorkOrder moves an order from one status to another with a conditional update.
	TransitionWorkOrder(ctx context.Context, companyID, id string, t Transition) (*WorkOrder, error)
	DeletePendingWorkOrder(ctx context.Context, companyID, id string) error
	SetWorkOrderArchived(ctx context.Context, companyID, id string, archived bool) (*WorkOrder, error)
	// ListPendingWorkOrders is the only query spanning all tenants.
	ListPendingWorkOrders(ctx context.Context) ([]*WorkOrder, error)

	CreateInvitation(ctx context.Context, inv *CompanyInvitation) error
	GetInvitation(ctx context.Context, token string) (*CompanyInvitation, error)
	ListInvitations(ctx context.Context, companyID string) ([]*CompanyInvitation, error)
	// RedeemInvitation accepts an invitation once and moves the user into its company.
	RedeemInvitation(ctx context.Context, token, userID string, now time.Time) (*CompanyInvitation, error)

	SaveSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, id string, now time.Time) (*Session, error)
	DeleteSession(ctx context.Context, id string) error
	PurgeExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// ProductFilter narrows a product listing. Category matches the path or any descendant.
type ProductFilter struct {
	Category string
	Search   string
	Page     int
	Limit    int
}

// ProductPatch lists the product fields to change; nil means unchanged
type ProductPatch struct {
	Name         *string
	SKU          *string
	Description  *string
	Category     *string
	RegularPrice *decimal.Decimal
	SalePrice    *decimal.NullDecimal
	Stock        *int
	Weight       *decimal.Decimal
	Status       *ProductStatus
}

// IsEmpty reports whether the patch changes nothing
func (p ProductPatch) IsEmpty() bool {
	return p.Name == nil && p.SKU == nil && p.Description == nil && p.Category == nil &&
		p.RegularPrice == nil && p.SalePrice == nil && p.Stock == nil && p.Weight == nil && p.Status == nil
}

// PriceChange is a price update mirrored from upstream; nil means unchanged
type PriceChange struct {
	RegularPrice *decimal.Decimal
	SalePrice    *decimal.NullDecimal
}

type WorkOrderFilter struct {
	Archived *bool
}

// WorkOrderPatch lists the content fields to change; nil means unchanged
type WorkOrderPatch struct {
	Title              *string
	ProductUpdates     []ProductUpdate
	ScheduledAt        *time.Time
	ClearSchedule      bool
	ExecuteImmediately *bool
}

// Transition describes a status change and the fields written with it
type Transition struct {
	From           WorkOrderStatus
	To             WorkOrderStatus
	OriginalPrices []PriceSnapshot
	ExecutedAt     *time.Time
	UndoneAt       *time.Time
	Error          *string
}
