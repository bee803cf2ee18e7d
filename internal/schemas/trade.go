package schemas

import "github.com/tbourn/agritrade-gateway/internal/validate"

// PurchaseSchema validates a crop purchase from a supplier.
var PurchaseSchema = register(validate.MustSchema(Purchase,
	[]validate.Field{
		validate.Required("crop_id", validate.Identifier()...),
		validate.Required("supplier_id", validate.Identifier()...),
		validate.Required("quantity_kg", validate.Quantity()...),
		validate.Required("unit_price", validate.Money()...),
		validate.Required("purchase_date", validate.Date()...),
		validate.Optional("amount_paid", validate.NonNegativeMoney()...),
		validate.Optional("total_cost", validate.Money()...),
		validate.Optional("season_id", validate.Identifier()...),
		validate.Optional("notes", validate.Text(maxNotes)...),
	},
	notExceeding("amount_paid", "total_cost"),
))

// SaleSchema validates a crop sale to a buyer.
var SaleSchema = register(validate.MustSchema(Sale,
	[]validate.Field{
		validate.Required("crop_id", validate.Identifier()...),
		validate.Required("buyer_id", validate.Identifier()...),
		validate.Required("quantity_kg", validate.Quantity()...),
		validate.Required("unit_price", validate.Money()...),
		validate.Required("sale_date", validate.Date()...),
		validate.Optional("amount_received", validate.NonNegativeMoney()...),
		validate.Optional("total_amount", validate.Money()...),
		validate.Optional("season_id", validate.Identifier()...),
		validate.Optional("notes", validate.Text(maxNotes)...),
	},
	notExceeding("amount_received", "total_amount"),
))

// ContractSchema validates a forward purchase or sale contract.
var ContractSchema = register(validate.MustSchema(Contract,
	[]validate.Field{
		validate.Required("contact_id", validate.Identifier()...),
		validate.Required("crop_id", validate.Identifier()...),
		validate.Required("contract_type", validate.OneOf("purchase", "sale")...),
		validate.Required("quantity_kg", validate.Quantity()...),
		validate.Required("unit_price", validate.Money()...),
		validate.Required("start_date", validate.Date()...),
		validate.Optional("end_date", validate.Date()...),
		validate.Optional("season_id", validate.Identifier()...),
		validate.Optional("notes", validate.Text(maxNotes)...),
	},
	notBefore("end_date", "start_date"),
))
