package topics

const (
	// Auditoria
	LedgerEvents    = "ledger_events"
	LedgerEventsDLQ = "ledger_events_dlq"
)

// Canal Redis Pub/Sub usado pelo hub WebSocket
const LedgerEventsBroadcast = "ledger_events_broadcast"
