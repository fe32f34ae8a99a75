package shared

// Task types
const (
	TypeRetryFailedPostbacks = "payment:retry_failed_postbacks"
)

// Queues
const (
	QueuePayment = "payment"
	QueueDefault = "default"
)
