package cnst

// Tracer names used across the services
const (
	TraceCatalog     = "catalogpilot/catalog"
	TraceWorkOrder   = "catalogpilot/workorder"
	TraceBigCommerce = "catalogpilot/bigcommerce"
)

// Common attribute keys
const (
	AttrCompanyID   = "company.id"
	AttrWorkOrderID = "work_order.id"
	AttrProducts    = "catalog.products"
	AttrCategories  = "catalog.categories"
)
