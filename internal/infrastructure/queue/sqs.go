package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	domain "github.com/datawald/hub/internal/domain/sync"
)

// SQSWorkQueue implements WorkQueue on Amazon SQS FIFO queues.
type SQSWorkQueue struct {
	client                   *sqs.Client
	visibilityTimeoutSeconds int

	mu   sync.Mutex
	urls map[string]string
}

// SQSOptions configures the SQS client
type SQSOptions struct {
	Region string
	// Endpoint overrides the service endpoint for local stacks; empty in
	// production
	Endpoint string
	// VisibilityTimeoutSeconds is set on queues created by this registry;
	// zero keeps the SQS default
	VisibilityTimeoutSeconds int
}

// NewSQSWorkQueue builds an SQS-backed work queue registry
func NewSQSWorkQueue(ctx context.Context, opts SQSOptions) (*SQSWorkQueue, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
	}
	if opts.Endpoint != "" {
		// Local stacks accept any static credentials
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider("local", "local", ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	})

	return NewSQSWorkQueueWithClient(client, opts.VisibilityTimeoutSeconds), nil
}

// NewSQSWorkQueueWithClient wraps an existing SQS client, for tests and
// shared-client wiring
func NewSQSWorkQueueWithClient(client *sqs.Client, visibilityTimeoutSeconds int) *SQSWorkQueue {
	return &SQSWorkQueue{
		client:                   client,
		visibilityTimeoutSeconds: visibilityTimeoutSeconds,
		urls:                     make(map[string]string),
	}
}

// createAttributes builds the attribute set for new run queues. The
// visibility timeout must outlast one executor batch or in-flight messages
// re-deliver to a sibling worker.
func createAttributes(visibilityTimeoutSeconds int) map[string]string {
	attrs := map[string]string{
		string(types.QueueAttributeNameFifoQueue):                 "true",
		string(types.QueueAttributeNameContentBasedDeduplication): "true",
	}
	if visibilityTimeoutSeconds > 0 {
		attrs[string(types.QueueAttributeNameVisibilityTimeout)] = strconv.Itoa(visibilityTimeoutSeconds)
	}
	return attrs
}

// Create creates (or returns the existing) FIFO queue with content-based
// deduplication. CreateQueue is idempotent for identical attributes
func (w *SQSWorkQueue) Create(ctx context.Context, name string) (domain.QueueHandle, error) {
	out, err := w.client.CreateQueue(ctx, &sqs.CreateQueueInput{
		QueueName:  aws.String(name),
		Attributes: createAttributes(w.visibilityTimeoutSeconds),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create queue %s: %w", name, err)
	}

	url := aws.ToString(out.QueueUrl)
	w.cacheURL(name, url)
	return &sqsQueue{client: w.client, parent: w, name: name, url: url}, nil
}

// Resolve looks a queue up by name, translating the missing-queue error into
// ErrQueueNotFound
func (w *SQSWorkQueue) Resolve(ctx context.Context, name string) (domain.QueueHandle, error) {
	out, err := w.client.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{
		QueueName: aws.String(name),
	})
	if err != nil {
		var notFound *types.QueueDoesNotExist
		if errors.As(err, &notFound) {
			return nil, domain.ErrQueueNotFound
		}
		return nil, fmt.Errorf("failed to resolve queue %s: %w", name, err)
	}

	url := aws.ToString(out.QueueUrl)
	w.cacheURL(name, url)
	return &sqsQueue{client: w.client, parent: w, name: name, url: url}, nil
}

func (w *SQSWorkQueue) cacheURL(name, url string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.urls[name] = url
}

func (w *SQSWorkQueue) evictURL(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.urls, name)
}

type sqsQueue struct {
	client *sqs.Client
	parent *SQSWorkQueue
	name   string
	url    string
}

func (q *sqsQueue) Name() string { return q.name }

// Enqueue sends one message under an ordering group. The queue's
// content-based deduplication collapses identical bodies
func (q *sqsQueue) Enqueue(ctx context.Context, group string, body []byte) error {
	_, err := q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:       aws.String(q.url),
		MessageGroupId: aws.String(group),
		MessageBody:    aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("failed to enqueue to %s: %w", q.name, err)
	}
	return nil
}

// Depth sums visible, in-flight and delayed counts
func (q *sqsQueue) Depth(ctx context.Context) (int, error) {
	out, err := q.client.GetQueueAttributes(ctx, &sqs.GetQueueAttributesInput{
		QueueUrl: aws.String(q.url),
		AttributeNames: []types.QueueAttributeName{
			types.QueueAttributeNameApproximateNumberOfMessages,
			types.QueueAttributeNameApproximateNumberOfMessagesNotVisible,
			types.QueueAttributeNameApproximateNumberOfMessagesDelayed,
		},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to read depth of %s: %w", q.name, err)
	}

	depth := 0
	for _, v := range out.Attributes {
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("malformed depth attribute %q on %s: %w", v, q.name, err)
		}
		depth += n
	}
	return depth, nil
}

// Receive fetches up to max messages; SQS caps a single receive at ten
func (q *sqsQueue) Receive(ctx context.Context, max int) ([]domain.QueueMessage, error) {
	if max > 10 {
		max = 10
	}
	if max <= 0 {
		return nil, fmt.Errorf("receive batch size must be positive, got %d", max)
	}

	out, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(q.url),
		MaxNumberOfMessages: int32(max),
		WaitTimeSeconds:     1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to receive from %s: %w", q.name, err)
	}

	msgs := make([]domain.QueueMessage, 0, len(out.Messages))
	for _, m := range out.Messages {
		msgs = append(msgs, domain.QueueMessage{
			Handle: aws.ToString(m.ReceiptHandle),
			Body:   []byte(aws.ToString(m.Body)),
		})
	}
	return msgs, nil
}

// Delete acknowledges one processed message
func (q *sqsQueue) Delete(ctx context.Context, handle string) error {
	_, err := q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.url),
		ReceiptHandle: aws.String(handle),
	})
	if err != nil {
		return fmt.Errorf("failed to delete message on %s: %w", q.name, err)
	}
	return nil
}

// Drop deletes the queue itself once its run is fully drained
func (q *sqsQueue) Drop(ctx context.Context) error {
	_, err := q.client.DeleteQueue(ctx, &sqs.DeleteQueueInput{
		QueueUrl: aws.String(q.url),
	})
	if err != nil {
		return fmt.Errorf("failed to drop queue %s: %w", q.name, err)
	}
	q.parent.evictURL(q.name)
	return nil
}

var (
	_ domain.WorkQueue   = (*SQSWorkQueue)(nil)
	_ domain.QueueHandle = (*sqsQueue)(nil)
)
