package observability

// Metric name prefixes
const (
	MetricPrefix = "coinledger"
)

// Metric names
const (
	// Ledger metrics
	LedgerTransactionsTotal = MetricPrefix + ".ledger.transactions_total"
	LedgerCoinsMoved        = MetricPrefix + ".ledger.coins_moved_total"

	// Wagering metrics
	PlaysSettledTotal = MetricPrefix + ".plays.settled_total"
	JackpotsTotal     = MetricPrefix + ".plays.jackpots_total"
	RacesClosedTotal  = MetricPrefix + ".races.closed_total"

	// Ingestion metrics
	ExternalEventsTotal = MetricPrefix + ".ingest.events_total"

	// Queue metrics
	QueueMessagesReceivedTotal  = MetricPrefix + ".queue.messages_received_total"
	QueueMessagesProcessedTotal = MetricPrefix + ".queue.messages_processed_total"
	QueueAlertsTotal            = MetricPrefix + ".queue.alerts_total"
)

// Label keys
const (
	LabelCategory  = "category"
	LabelDirection = "direction"
	LabelGameType  = "game_type"
	LabelStatus    = "status"
	LabelSource    = "source"
	LabelState     = "state"
)
