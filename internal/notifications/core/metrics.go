package core

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"pitstop/internal/types"
)

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// Compile-time assertion that CloudWatchMetrics implements NotificationMetrics.
var _ NotificationMetrics = (*CloudWatchMetrics)(nil)

// CloudWatchMetrics implements NotificationMetrics by emitting metrics to AWS
// CloudWatch.
//
// Metrics emitted:
//   - EventHandled: Dims {MessageType, Outcome}, once per HandleEvent call
//   - EventHandleLatency: Dims {MessageType}, milliseconds
//   - EmailDelivery: Dims {NotificationKind, Result}, once per send attempt
//   - ContainedFailure: Dims {MessageType, ErrorKind}, once per contained error
//
// Publishing errors are logged and otherwise ignored.
type CloudWatchMetrics struct {
	client    CloudWatchClient
	namespace string
	logger    types.Logger
}

// NewCloudWatchMetrics creates a CloudWatchMetrics publishing to namespace.
// An empty namespace falls back to types.MetricNamespace.
func NewCloudWatchMetrics(client CloudWatchClient, namespace string, logger types.Logger) *CloudWatchMetrics {
	if namespace == "" {
		namespace = types.MetricNamespace
	}
	return &CloudWatchMetrics{
		client:    client,
		namespace: namespace,
		logger:    logger,
	}
}

// RecordEvent emits an EventHandled count.
func (m *CloudWatchMetrics) RecordEvent(ctx context.Context, messageType string, outcome EventOutcome) {
	m.put(ctx, "failed to record event metric", cwtypes.MetricDatum{
		MetricName: aws.String(types.MetricEventHandled),
		Value:      aws.Float64(1),
		Unit:       cwtypes.StandardUnitCount,
		Dimensions: dims(types.DimMessageType, messageType, types.DimOutcome, string(outcome)),
	})
}

// RecordLatency emits the time spent in HandleEvent in milliseconds.
func (m *CloudWatchMetrics) RecordLatency(ctx context.Context, messageType string, duration time.Duration) {
	m.put(ctx, "failed to record latency metric", cwtypes.MetricDatum{
		MetricName: aws.String(types.MetricEventLatency),
		Value:      aws.Float64(float64(duration.Milliseconds())),
		Unit:       cwtypes.StandardUnitMilliseconds,
		Dimensions: dims(types.DimMessageType, messageType),
	})
}

// RecordDelivery emits an EmailDelivery count.
func (m *CloudWatchMetrics) RecordDelivery(ctx context.Context, kind types.NotificationKind, result MetricResult) {
	m.put(ctx, "failed to record delivery metric", cwtypes.MetricDatum{
		MetricName: aws.String(types.MetricEmailDelivery),
		Value:      aws.Float64(1),
		Unit:       cwtypes.StandardUnitCount,
		Dimensions: dims(types.DimNotificationKind, string(kind), types.DimResult, string(result)),
	})
}

// RecordContainedFailure emits a ContainedFailure count.
func (m *CloudWatchMetrics) RecordContainedFailure(ctx context.Context, messageType string, kind types.ErrorKind) {
	m.put(ctx, "failed to record contained failure metric", cwtypes.MetricDatum{
		MetricName: aws.String(types.MetricContainedFailure),
		Value:      aws.Float64(1),
		Unit:       cwtypes.StandardUnitCount,
		Dimensions: dims(types.DimMessageType, messageType, types.DimErrorKind, string(kind)),
	})
}

func (m *CloudWatchMetrics) put(ctx context.Context, failMsg string, datum cwtypes.MetricDatum) {
	input := &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: []cwtypes.MetricDatum{datum},
	}
	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		m.logger.Error(failMsg,
			"error", err.Error(),
			"metric", aws.ToString(datum.MetricName),
		)
	}
}

// dims builds dimensions from alternating name/value pairs.
func dims(pairs ...string) []cwtypes.Dimension {
	out := make([]cwtypes.Dimension, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, cwtypes.Dimension{
			Name:  aws.String(pairs[i]),
			Value: aws.String(pairs[i+1]),
		})
	}
	return out
}
