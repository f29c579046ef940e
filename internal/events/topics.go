package events

// Topic constants for domain events emitted by the terminal workflow.
const (
	TopicTransactionSettled  = "transaction.settled"
	TopicTransactionRejected = "transaction.rejected"
	TopicQuotationSent       = "quotation.sent"
	TopicSessionChanged      = "session.changed"
)

// DefaultTopics returns the canonical list of topics that support notifications.
func DefaultTopics() []string {
	return []string{
		TopicTransactionSettled,
		TopicTransactionRejected,
		TopicQuotationSent,
		TopicSessionChanged,
	}
}
