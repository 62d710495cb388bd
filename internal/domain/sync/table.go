package sync

import "fmt"

// Area names which side of the bridge drains a table's work queue.
type Area string

const (
	// AreaBackOffice marks tables whose entities flow frontend -> backoffice
	AreaBackOffice Area = "backoffice"
	// AreaFrontEnd marks tables whose entities flow backoffice -> frontend
	AreaFrontEnd Area = "frontend"
)

// Subject is the logical sync task name a table's work is dispatched under.
// Ext-data tables share a subject and are namespaced by data type at the
// task level (syncProductExtData-inventory).
type Subject string

const (
	SubjectSyncOrders          Subject = "syncOrders"
	SubjectSyncInvoices        Subject = "syncInvoices"
	SubjectSyncBOCustomers     Subject = "syncBOCustomers"
	SubjectSyncFECustomers     Subject = "syncFECustomers"
	SubjectSyncShipments       Subject = "syncShipments"
	SubjectSyncPurchaseOrders  Subject = "syncPurchaseOrders"
	SubjectSyncItemReceipts    Subject = "syncItemReceipts"
	SubjectSyncProducts        Subject = "syncProducts"
	SubjectSyncProductsExtData Subject = "syncProductsExtData"
)

// TableSpec describes one synced table: which area drains it, the business
// key on the source side, the id written back from the target side, and the
// subject its dispatches run under.
type TableSpec struct {
	Table     string
	Area      Area
	SourceKey string
	TargetKey string
	Subject   Subject
}

// tableSpecs is the closed set of tables the hub syncs. Lookups go through
// TableFor; nothing resolves table behavior by reflection.
var tableSpecs = map[string]TableSpec{
	"orders":                 {Table: "orders", Area: AreaBackOffice, SourceKey: "fe_order_id", TargetKey: "bo_order_id", Subject: SubjectSyncOrders},
	"invoices":               {Table: "invoices", Area: AreaFrontEnd, SourceKey: "bo_invoice_id", TargetKey: "fe_invoice_id", Subject: SubjectSyncInvoices},
	"customers-bo":           {Table: "customers-bo", Area: AreaBackOffice, SourceKey: "fe_customer_id", TargetKey: "bo_customer_id", Subject: SubjectSyncBOCustomers},
	"customers-fe":           {Table: "customers-fe", Area: AreaFrontEnd, SourceKey: "bo_customer_id", TargetKey: "fe_customer_id", Subject: SubjectSyncFECustomers},
	"shipments":              {Table: "shipments", Area: AreaFrontEnd, SourceKey: "bo_shipment_id", TargetKey: "fe_shipment_id", Subject: SubjectSyncShipments},
	"purchaseorders":         {Table: "purchaseorders", Area: AreaFrontEnd, SourceKey: "bo_po_num", TargetKey: "fe_po_num", Subject: SubjectSyncPurchaseOrders},
	"itemreceipts":           {Table: "itemreceipts", Area: AreaBackOffice, SourceKey: "bo_po_num", TargetKey: "bo_itemreceipt_id", Subject: SubjectSyncItemReceipts},
	"products":               {Table: "products", Area: AreaFrontEnd, SourceKey: "sku", TargetKey: "fe_product_id", Subject: SubjectSyncProducts},
	"products-customoption":  {Table: "products-customoption", Area: AreaFrontEnd, SourceKey: "sku", TargetKey: "fe_product_id", Subject: SubjectSyncProductsExtData},
	"products-inventory":     {Table: "products-inventory", Area: AreaFrontEnd, SourceKey: "sku", TargetKey: "fe_product_id", Subject: SubjectSyncProductsExtData},
	"products-imagegallery":  {Table: "products-imagegallery", Area: AreaFrontEnd, SourceKey: "sku", TargetKey: "fe_product_id", Subject: SubjectSyncProductsExtData},
	"products-links":         {Table: "products-links", Area: AreaFrontEnd, SourceKey: "sku", TargetKey: "fe_product_id", Subject: SubjectSyncProductsExtData},
	"products-categories":    {Table: "products-categories", Area: AreaFrontEnd, SourceKey: "sku", TargetKey: "fe_product_id", Subject: SubjectSyncProductsExtData},
	"products-pricelevels":   {Table: "products-pricelevels", Area: AreaFrontEnd, SourceKey: "sku", TargetKey: "fe_product_id", Subject: SubjectSyncProductsExtData},
	"products-variants":      {Table: "products-variants", Area: AreaFrontEnd, SourceKey: "sku", TargetKey: "fe_product_id", Subject: SubjectSyncProductsExtData},
}

// TableFor resolves a table name against the closed registry.
func TableFor(table string) (TableSpec, error) {
	spec, ok := tableSpecs[table]
	if !ok {
		return TableSpec{}, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	return spec, nil
}

// Tables returns every registered table spec, useful for wiring and tests.
func Tables() []TableSpec {
	specs := make([]TableSpec, 0, len(tableSpecs))
	for _, s := range tableSpecs {
		specs = append(specs, s)
	}
	return specs
}
