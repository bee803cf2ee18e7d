package schemas

import "github.com/tbourn/agritrade-gateway/internal/validate"

// CashReceiptSchema validates money received from a contact.
var CashReceiptSchema = register(validate.MustSchema(CashReceipt,
	[]validate.Field{
		validate.Required("contact_id", validate.Identifier()...),
		validate.Required("amount", validate.Money()...),
		validate.Required("receipt_date", validate.Date()...),
		validate.Optional("description", validate.Text(maxDescription)...),
		validate.Optional("reference_no", validate.Text(maxReference)...),
		validate.Optional("sale_id", validate.Identifier()...),
	},
))

// CashPaymentSchema validates money paid out to a contact.
var CashPaymentSchema = register(validate.MustSchema(CashPayment,
	[]validate.Field{
		validate.Required("contact_id", validate.Identifier()...),
		validate.Required("amount", validate.Money()...),
		validate.Required("payment_date", validate.Date()...),
		validate.Optional("description", validate.Text(maxDescription)...),
		validate.Optional("reference_no", validate.Text(maxReference)...),
		validate.Optional("purchase_id", validate.Identifier()...),
	},
))

// ExpenseSchema validates an operating expense.
var ExpenseSchema = register(validate.MustSchema(Expense,
	[]validate.Field{
		validate.Required("category", validate.Label(maxCategory)...),
		validate.Required("amount", validate.Money()...),
		validate.Required("expense_date", validate.Date()...),
		validate.Optional("description", validate.Text(maxDescription)...),
		validate.Optional("season_id", validate.Identifier()...),
	},
))
