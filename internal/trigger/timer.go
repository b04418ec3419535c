package trigger

import (
	"context"
	"time"

	"github.com/Zeeshanunique/agentworkflow/internal/node"
)

// pollTimer drives one schedule/email registration's recurring poll. The
// timer goroutine owns nothing but its ticker; all shared state stays in
// the service.
type pollTimer struct {
	service  *Service
	reg      *Registration
	poller   node.Poller
	interval time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

func newPollTimer(s *Service, reg *Registration, p node.Poller, interval time.Duration) *pollTimer {
	return &pollTimer{
		service:  s,
		reg:      reg,
		poller:   p,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

func (t *pollTimer) start() {
	go t.run()
}

func (t *pollTimer) run() {
	defer close(t.doneCh)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stopCh:
			return
		case <-ticker.C:
			t.tick(context.Background())
		}
	}
}

// tick runs one poll. A poll error is counted and logged but never cancels
// the timer; the next tick proceeds normally.
func (t *pollTimer) tick(ctx context.Context) {
	nc := t.service.nodeContext(t.reg.WorkflowID, t.reg.NodeID, t.reg.Parameters)

	items, err := t.poller.Poll(ctx, nc)
	if err != nil {
		t.service.metrics.pollErrors.Inc()
		t.service.logger.Warn("trigger poll failed",
			"workflow_id", t.reg.WorkflowID, "node_id", t.reg.NodeID,
			"kind", t.reg.Kind.String(), "error", err)
		return
	}
	if len(items) == 0 {
		return
	}

	t.service.metrics.fired(t.reg.Kind)
	t.service.logger.Info("trigger fired",
		"workflow_id", t.reg.WorkflowID, "node_id", t.reg.NodeID,
		"kind", t.reg.Kind.String(), "items", len(items))
	t.service.fireWorkflow(t.reg, items)
}

func (t *pollTimer) stop() {
	select {
	case <-t.stopCh:
	default:
		close(t.stopCh)
	}
	<-t.doneCh
}
