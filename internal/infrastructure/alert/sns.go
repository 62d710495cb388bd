package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"go.uber.org/zap"

	domain "github.com/datawald/hub/internal/domain/sync"
)

// SNSAlerter publishes unrecoverable sync failures to an SNS topic so
// operators hear about them outside the logs. Publishing is best effort:
// a failed publish is logged and swallowed, never surfaced to the sync path
type SNSAlerter struct {
	client   *sns.Client
	topicARN string
	logger   *zap.Logger
}

// NewSNSAlerter builds an SNS-backed alerter
func NewSNSAlerter(ctx context.Context, region, topicARN string, logger *zap.Logger) (*SNSAlerter, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewSNSAlerterWithClient(sns.NewFromConfig(awsCfg), topicARN, logger), nil
}

// NewSNSAlerterWithClient wraps an existing SNS client
func NewSNSAlerterWithClient(client *sns.Client, topicARN string, logger *zap.Logger) *SNSAlerter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SNSAlerter{client: client, topicARN: topicARN, logger: logger}
}

// Alert publishes one failure notification
func (a *SNSAlerter) Alert(ctx context.Context, subject string, detail map[string]any) {
	body, err := json.Marshal(detail)
	if err != nil {
		a.logger.Error("failed to encode alert detail",
			zap.String("subject", subject), zap.Error(err))
		return
	}

	// Bound the publish so a slow topic cannot stall the sync path
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err = a.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(a.topicARN),
		Subject:  aws.String(subject),
		Message:  aws.String(string(body)),
	})
	if err != nil {
		a.logger.Error("failed to publish alert",
			zap.String("subject", subject), zap.Error(err))
	}
}

var _ domain.Alerter = (*SNSAlerter)(nil)
