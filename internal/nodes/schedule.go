package nodes

import (
	"context"
	"time"

	"github.com/Zeeshanunique/agentworkflow/internal/node"
	"github.com/Zeeshanunique/agentworkflow/internal/types"
)

const TypeScheduleTrigger = "trigger.schedule"

// Recognized triggerInterval values and their poll periods.
var scheduleIntervals = map[string]time.Duration{
	"everyMinute":    60 * time.Second,
	"every5Minutes":  300 * time.Second,
	"every10Minutes": 600 * time.Second,
	"every30Minutes": 1800 * time.Second,
	"everyHour":      3600 * time.Second,
	"everyDay":       86400 * time.Second,
}

// ScheduleInterval resolves a triggerInterval parameter value to a poll
// period. Unknown values, including "custom", fall back to one minute so a
// misconfigured schedule still ticks rather than silently never firing.
func ScheduleInterval(value string) time.Duration {
	if d, ok := scheduleIntervals[value]; ok {
		return d
	}
	return 60 * time.Second
}

// ScheduleTrigger fires a workflow on a recurring timer. Each tick emits a
// single item describing the tick time and the configured interval.
type ScheduleTrigger struct{}

func scheduleTriggerDescription() *node.Description {
	return &node.Description{
		Type:        TypeScheduleTrigger,
		DisplayName: "Schedule Trigger",
		Description: "Starts the workflow on a recurring schedule",
		Groups:      []string{node.GroupTrigger},
		Inputs:      []node.PortSpec{},
		Outputs:     []node.PortSpec{{Name: node.PortMain, DisplayName: "Main"}},
		Parameters: []node.ParameterSpec{
			{
				Name:        "triggerInterval",
				DisplayName: "Trigger Interval",
				Type:        node.ParameterTypeOptions,
				Default:     "everyMinute",
				Options: []node.ParameterOption{
					{Name: "Every Minute", Value: "everyMinute"},
					{Name: "Every 5 Minutes", Value: "every5Minutes"},
					{Name: "Every 10 Minutes", Value: "every10Minutes"},
					{Name: "Every 30 Minutes", Value: "every30Minutes"},
					{Name: "Every Hour", Value: "everyHour"},
					{Name: "Every Day", Value: "everyDay"},
					{Name: "Custom", Value: "custom"},
				},
			},
			{
				Name:        "cronExpression",
				DisplayName: "Cron Expression",
				Type:        node.ParameterTypeString,
				Description: "Used when the interval is set to custom",
				DisplayWhen: map[string][]any{"triggerInterval": {"custom"}},
			},
			{
				Name:        "timezone",
				DisplayName: "Timezone",
				Type:        node.ParameterTypeString,
				Default:     "UTC",
			},
		},
		IsTrigger:       true,
		SupportsPolling: true,
	}
}

// Execute emits a tick item when the schedule node is driven through the
// engine directly, mirroring what Poll produces on a timer tick.
func (t *ScheduleTrigger) Execute(ctx context.Context, nc *node.Context, _ *node.Input) (*node.Output, error) {
	items, err := t.Poll(ctx, nc)
	if err != nil {
		return nil, err
	}
	return node.MainOutput(items), nil
}

// Poll emits the tick item. A schedule tick always fires.
func (t *ScheduleTrigger) Poll(_ context.Context, nc *node.Context) (types.Items, error) {
	item := types.Item{
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"triggeredBy": "schedule",
		"interval":    nc.Parameters.StringOr("triggerInterval", "everyMinute"),
		"timezone":    nc.Parameters.StringOr("timezone", "UTC"),
	}
	return types.Items{item}, nil
}
