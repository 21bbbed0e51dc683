package types

// Telemetry metric names for CloudWatch.
// All components MUST use these constants.
const (
	// Metric Names
	MetricEventHandled     = "EventHandled"
	MetricEventLatency     = "EventHandleLatency"
	MetricEmailDelivery    = "EmailDelivery"
	MetricContainedFailure = "ContainedFailure"

	// Dimension Keys
	DimMessageType      = "MessageType"
	DimOutcome          = "Outcome"
	DimNotificationKind = "NotificationKind"
	DimResult           = "Result"
	DimErrorKind        = "ErrorKind"

	// Metric Namespace
	MetricNamespace = "PitStop"
)
