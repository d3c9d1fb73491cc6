package leads

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormSinkPostsNonEmptyFields(t *testing.T) {
	var got http.Header
	var form map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		_ = r.ParseForm()
		form = r.PostForm
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink := NewFormSink(srv.URL, srv.Client())
	require.NotNil(t, sink)
	require.NoError(t, sink.Deliver(context.Background(), sampleLead("Jane")))

	assert.Equal(t, "application/x-www-form-urlencoded", got.Get("Content-Type"))
	assert.Equal(t, []string{"Jane"}, form["name"])
	assert.Equal(t, []string{"Sirah Dental Care"}, form["businessName"])
	assert.NotContains(t, form, "email")
}

func TestFormSinkReportsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewFormSink(srv.URL, nil).Deliver(context.Background(), sampleLead("Jane"))
	assert.Error(t, err)
}

func TestNewFormSinkEmptyEndpoint(t *testing.T) {
	assert.Nil(t, NewFormSink("  ", nil))
}

func TestRepositorySink(t *testing.T) {
	repo := NewInMemoryRepository()
	sink := NewRepositorySink(repo)
	require.NoError(t, sink.Deliver(context.Background(), sampleLead("Jane")))

	list, err := repo.List(context.Background(), ListFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, "repository", sink.Name())
}

type fakeSQS struct {
	inputs []*sqs.SendMessageInput
	err    error
}

func (f *fakeSQS) SendMessage(_ context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("m-1")}, nil
}

func TestQueueSinkPublishesJSON(t *testing.T) {
	client := &fakeSQS{}
	sink := NewQueueSink(client, "https://sqs.example/leads")
	require.NoError(t, sink.Deliver(context.Background(), sampleLead("Jane")))

	require.Len(t, client.inputs, 1)
	assert.Equal(t, "https://sqs.example/leads", aws.ToString(client.inputs[0].QueueUrl))
	var decoded LeadData
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(client.inputs[0].MessageBody)), &decoded))
	assert.Equal(t, "Jane", decoded.Name)

	client.err = errors.New("throttled")
	assert.Error(t, sink.Deliver(context.Background(), sampleLead("Jane")))
}

func TestNewQueueSinkPanicsWithoutURL(t *testing.T) {
	assert.Panics(t, func() { NewQueueSink(&fakeSQS{}, "") })
}
