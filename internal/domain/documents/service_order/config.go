package service_order

// SequenceKey numbers all service orders.
const SequenceKey = "service_order"

// EntityName is used in errors and the audit log.
const EntityName = "service_order"
