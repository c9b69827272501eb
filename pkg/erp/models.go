package erp

// Record types used by the point-of-sale core.
const (
	ModelOrder         = "pos.order"
	ModelOrderLine     = "pos.order.line"
	ModelPayment       = "account.payment"
	ModelPaymentMethod = "pos.payment.method"
	ModelJournal       = "account.journal"
	ModelInvoice       = "account.move"
	ModelPartner       = "res.partner"
	ModelSaleOrder     = "sale.order"
	ModelIRModel       = "ir.model"
)

// Named remote actions.
const (
	ActionPost      = "action_post"
	ActionConfirm   = "action_confirm"
	ActionReconcile = "reconcile"
)

// One2many/many2many write commands.
const (
	CommandCreate = 0
	CommandUpdate = 1
	CommandDelete = 2
	CommandLink   = 4
	CommandSet    = 6
)

// CreateCommand returns the [0, 0, vals] triple that creates a related record inline.
func CreateCommand(vals map[string]any) []any {
	return []any{CommandCreate, 0, vals}
}

// LinkCommand returns the [4, id, 0] triple that links an existing record.
func LinkCommand(id int64) []any {
	return []any{CommandLink, id, 0}
}

// SetCommand returns the [6, 0, ids] triple that replaces a relation with ids.
func SetCommand(ids []int64) []any {
	if ids == nil {
		ids = []int64{}
	}
	return []any{CommandSet, 0, ids}
}
