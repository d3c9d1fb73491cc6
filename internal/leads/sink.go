package leads

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// Sink delivers a lead to one destination.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, lead LeadData) error
}

// FormSink posts leads form-encoded to an external form endpoint.
type FormSink struct {
	endpoint string
	client   *http.Client
}

// NewFormSink returns nil when endpoint is empty.
func NewFormSink(endpoint string, client *http.Client) *FormSink {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &FormSink{endpoint: endpoint, client: client}
}

func (s *FormSink) Name() string { return "form" }

func (s *FormSink) Deliver(ctx context.Context, lead LeadData) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, strings.NewReader(lead.Form().Encode()))
	if err != nil {
		return fmt.Errorf("leads: build form request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("leads: post form: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 400 {
		return fmt.Errorf("leads: form endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// RepositorySink stores leads for the admin API.
type RepositorySink struct {
	repo Repository
}

func NewRepositorySink(repo Repository) *RepositorySink {
	return &RepositorySink{repo: repo}
}

func (s *RepositorySink) Name() string { return "repository" }

func (s *RepositorySink) Deliver(ctx context.Context, lead LeadData) error {
	_, err := s.repo.Create(ctx, lead)
	return err
}

// SQSAPI is the subset of the SQS client used by QueueSink.
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// QueueSink publishes leads as JSON for downstream CRM workers.
type QueueSink struct {
	client   SQSAPI
	queueURL string
}

func NewQueueSink(client SQSAPI, queueURL string) *QueueSink {
	if client == nil {
		panic("leads: SQS client cannot be nil")
	}
	if queueURL == "" {
		panic("leads: SQS queueURL cannot be empty")
	}
	return &QueueSink{client: client, queueURL: queueURL}
}

func (s *QueueSink) Name() string { return "queue" }

func (s *QueueSink) Deliver(ctx context.Context, lead LeadData) error {
	body, err := json.Marshal(lead)
	if err != nil {
		return fmt.Errorf("leads: marshal lead: %w", err)
	}
	_, err = s.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(s.queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("leads: failed to send SQS message: %w", err)
	}
	return nil
}
