package nodes

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zeeshanunique/agentworkflow/internal/node"
	"github.com/Zeeshanunique/agentworkflow/internal/types"
)

func testContext(params node.Parameters, deps *node.Deps) *node.Context {
	return &node.Context{
		WorkflowID: "wf1",
		NodeID:     "n1",
		Parameters: params,
		Deps:       deps,
	}
}

func TestManualTriggerExecute(t *testing.T) {
	trigger := &ManualTrigger{}

	out, err := trigger.Execute(context.Background(), testContext(node.Parameters{}, nil),
		node.NewInput(types.Items{{"source": "test"}}))
	require.NoError(t, err)

	items := out.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "manual", items[0]["triggeredBy"])
	assert.Equal(t, map[string]any{"source": "test"}, items[0]["data"])
	assert.NotEmpty(t, items[0]["timestamp"])
}

func TestManualTriggerConfiguredPayload(t *testing.T) {
	trigger := &ManualTrigger{}
	params := node.Parameters{"payload": map[string]any{"env": "prod"}}

	out, err := trigger.Execute(context.Background(), testContext(params, nil), node.NewInput(nil))
	require.NoError(t, err)

	items := out.Items()
	require.Len(t, items, 1)
	assert.Equal(t, map[string]any{"env": "prod"}, items[0]["data"])
}

func TestWebhookTriggerHandleWebhook(t *testing.T) {
	trigger := &WebhookTrigger{}
	params := node.Parameters{
		"method":       "POST",
		"path":         "/hooks/demo",
		"responseMode": ResponseModeImmediate,
		"responseCode": 201,
		"responseBody": map[string]any{"accepted": true},
	}

	result, err := trigger.HandleWebhook(context.Background(), testContext(params, nil), &node.WebhookRequest{
		Method: "POST",
		Path:   "/hooks/demo",
		Body:   map[string]any{"x": 1},
	})
	require.NoError(t, err)

	require.Len(t, result.Items, 1)
	assert.Equal(t, "webhook", result.Items[0]["triggeredBy"])
	assert.Equal(t, map[string]any{"x": 1}, result.Items[0]["body"])
	assert.True(t, result.Immediate)
	assert.Equal(t, 201, result.ResponseStatus)
	assert.Equal(t, map[string]any{"accepted": true}, result.ResponseBody)
}

func TestWebhookTriggerMethodMismatch(t *testing.T) {
	trigger := &WebhookTrigger{}
	params := node.Parameters{"method": "POST"}

	_, err := trigger.HandleWebhook(context.Background(), testContext(params, nil), &node.WebhookRequest{
		Method: "GET",
		Path:   "/hooks/demo",
	})
	assert.Error(t, err)
}

func TestWebhookTriggerHeaderAuth(t *testing.T) {
	trigger := &WebhookTrigger{}
	params := node.Parameters{
		"method":         "POST",
		"authentication": "headerAuth",
		"headerName":     "X-Api-Key",
		"headerValue":    "secret",
	}

	_, err := trigger.HandleWebhook(context.Background(), testContext(params, nil), &node.WebhookRequest{
		Method:  "POST",
		Headers: map[string]string{"X-Api-Key": "wrong"},
	})
	assert.Error(t, err)

	result, err := trigger.HandleWebhook(context.Background(), testContext(params, nil), &node.WebhookRequest{
		Method:  "POST",
		Headers: map[string]string{"X-Api-Key": "secret"},
	})
	require.NoError(t, err)
	assert.Len(t, result.Items, 1)
}

func TestWebhookTriggerAfterRunMode(t *testing.T) {
	trigger := &WebhookTrigger{}
	params := node.Parameters{"method": "POST", "responseMode": ResponseModeAfterRun}

	result, err := trigger.HandleWebhook(context.Background(), testContext(params, nil), &node.WebhookRequest{
		Method: "POST",
	})
	require.NoError(t, err)
	assert.False(t, result.Immediate)
}

func TestScheduleInterval(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
	}{
		{value: "everyMinute", want: 60 * time.Second},
		{value: "every5Minutes", want: 300 * time.Second},
		{value: "every10Minutes", want: 600 * time.Second},
		{value: "every30Minutes", want: 1800 * time.Second},
		{value: "everyHour", want: 3600 * time.Second},
		{value: "everyDay", want: 86400 * time.Second},
		{value: "custom", want: 60 * time.Second},
		{value: "", want: 60 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, ScheduleInterval(tt.value))
		})
	}
}

func TestScheduleTriggerPoll(t *testing.T) {
	trigger := &ScheduleTrigger{}
	params := node.Parameters{"triggerInterval": "every5Minutes"}

	items, err := trigger.Poll(context.Background(), testContext(params, nil))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "schedule", items[0]["triggeredBy"])
	assert.Equal(t, "every5Minutes", items[0]["interval"])
}

type fakeMailbox struct {
	messages []node.MailMessage
	err      error

	gotMailbox string
	gotAction  string
}

func (m *fakeMailbox) FetchUnread(_ context.Context, mailbox, action string) ([]node.MailMessage, error) {
	m.gotMailbox = mailbox
	m.gotAction = action
	return m.messages, m.err
}

func TestEmailTriggerPoll(t *testing.T) {
	mailbox := &fakeMailbox{
		messages: []node.MailMessage{
			{From: "a@example.com", Subject: "hello", Body: "hi", ReceivedAt: time.Now()},
		},
	}
	trigger := &EmailTrigger{}
	params := node.Parameters{"mailbox": "Support", "postReceiveAction": "delete"}

	items, err := trigger.Poll(context.Background(), testContext(params, &node.Deps{Mailbox: mailbox}))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "email", items[0]["triggeredBy"])
	assert.Equal(t, "a@example.com", items[0]["from"])
	assert.Equal(t, "Support", mailbox.gotMailbox)
	assert.Equal(t, "delete", mailbox.gotAction)
}

func TestEmailTriggerPollEmpty(t *testing.T) {
	trigger := &EmailTrigger{}

	items, err := trigger.Poll(context.Background(), testContext(node.Parameters{}, &node.Deps{Mailbox: &fakeMailbox{}}))
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestEmailTriggerPollErrors(t *testing.T) {
	t.Run("no mailbox client", func(t *testing.T) {
		trigger := &EmailTrigger{}
		_, err := trigger.Poll(context.Background(), testContext(node.Parameters{}, nil))
		assert.Error(t, err)
	})

	t.Run("fetch error", func(t *testing.T) {
		trigger := &EmailTrigger{}
		deps := &node.Deps{Mailbox: &fakeMailbox{err: errors.New("imap down")}}
		_, err := trigger.Poll(context.Background(), testContext(node.Parameters{}, deps))
		assert.Error(t, err)
	})
}
