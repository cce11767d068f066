package sale

// Sequence keys; device and product sales are numbered independently.
const (
	SequenceKeyDevice  = "deviceSales"
	SequenceKeyProduct = "productSales"
)

// EntityName is used in errors and the audit log.
const EntityName = "sale"
