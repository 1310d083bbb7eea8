package logging

// AuditEvent represents a state-changing ledger submission
type AuditEvent struct {
	Operation string // e.g., "property_created", "booking_submitted", "booking_confirmed"
	Actor     string // Signing account
	Target    string // Contract the transaction was sent to
	Result    string // "settled", "reverted", "timeout" or "send_failed"
	Details   string // Additional context (tx hash, content hash, revert cause)
}

// Audit logs a state-changing operation with structured fields.
// Audit events are logged at Info level with a special "audit" attribute
// to distinguish them from regular application logs.
func Audit(event AuditEvent) {
	Logger().Info("audit",
		"audit", true,
		"operation", event.Operation,
		"actor", event.Actor,
		"target", event.Target,
		"result", event.Result,
		"details", event.Details,
	)
}
