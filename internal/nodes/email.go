package nodes

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Zeeshanunique/agentworkflow/internal/node"
	"github.com/Zeeshanunique/agentworkflow/internal/types"
)

const TypeEmailTrigger = "trigger.email"

// EmailPollInterval is the fixed polling period for email triggers.
const EmailPollInterval = 300 * time.Second

// EmailTrigger fires a workflow when unread mail arrives in a watched
// mailbox. The mailbox transport is injected through node.Deps; a missing
// mailbox client is a poll error, logged by the scheduler and retried on
// the next tick.
type EmailTrigger struct{}

func emailTriggerDescription() *node.Description {
	return &node.Description{
		Type:        TypeEmailTrigger,
		DisplayName: "Email Trigger",
		Description: "Starts the workflow when a new email arrives",
		Groups:      []string{node.GroupTrigger},
		Inputs:      []node.PortSpec{},
		Outputs:     []node.PortSpec{{Name: node.PortMain, DisplayName: "Main"}},
		Parameters: []node.ParameterSpec{
			{
				Name:        "mailbox",
				DisplayName: "Mailbox",
				Type:        node.ParameterTypeString,
				Default:     "INBOX",
			},
			{
				Name:        "postReceiveAction",
				DisplayName: "After Receiving",
				Type:        node.ParameterTypeOptions,
				Default:     "markRead",
				Options: []node.ParameterOption{
					{Name: "Mark as Read", Value: "markRead"},
					{Name: "Delete", Value: "delete"},
					{Name: "Leave Unchanged", Value: "none"},
				},
			},
			{
				Name:        "downloadAttachments",
				DisplayName: "Download Attachments",
				Type:        node.ParameterTypeBoolean,
				Default:     false,
			},
		},
		IsTrigger:       true,
		SupportsPolling: true,
	}
}

// Execute emits whatever Poll currently finds, for direct engine-driven runs.
func (t *EmailTrigger) Execute(ctx context.Context, nc *node.Context, _ *node.Input) (*node.Output, error) {
	items, err := t.Poll(ctx, nc)
	if err != nil {
		return nil, err
	}
	return node.MainOutput(items), nil
}

// Poll fetches unread messages and shapes each into an item. An empty batch
// means no new mail and the workflow is not fired.
func (t *EmailTrigger) Poll(ctx context.Context, nc *node.Context) (types.Items, error) {
	if nc.Deps == nil || nc.Deps.Mailbox == nil {
		return nil, fmt.Errorf("email trigger has no mailbox client configured")
	}

	mailbox := nc.Parameters.StringOr("mailbox", "INBOX")
	action := nc.Parameters.StringOr("postReceiveAction", "markRead")
	withAttachments := nc.Parameters.Bool("downloadAttachments")

	messages, err := nc.Deps.Mailbox.FetchUnread(ctx, mailbox, action)
	if err != nil {
		return nil, fmt.Errorf("fetching unread mail from %s: %w", mailbox, err)
	}

	items := make(types.Items, 0, len(messages))
	for _, msg := range messages {
		item := types.Item{
			"triggeredBy": "email",
			"from":        msg.From,
			"to":          msg.To,
			"subject":     msg.Subject,
			"body":        msg.Body,
			"receivedAt":  msg.ReceivedAt.UTC().Format(time.RFC3339),
		}
		if withAttachments && len(msg.Attachments) > 0 {
			names := make([]string, 0, len(msg.Attachments))
			for name := range msg.Attachments {
				names = append(names, name)
			}
			sort.Strings(names)
			item["attachments"] = names
		}
		items = append(items, item)
	}
	return items, nil
}
