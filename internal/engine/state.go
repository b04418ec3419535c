package engine

import (
	"github.com/Zeeshanunique/agentworkflow/internal/node"
	"github.com/Zeeshanunique/agentworkflow/internal/types"
)

// runState is the ephemeral per-run record: each node's last recorded output
// and the ordered execution log. A run owns its state exclusively, so no
// locking is needed.
type runState struct {
	outputs  map[string]*node.Output
	executed []string
}

func newRunState() *runState {
	return &runState{
		outputs: make(map[string]*node.Output),
	}
}

// record stores a node's output and appends it to the execution log. Only
// complete outputs are recorded; a failed node leaves no entry.
func (s *runState) record(nodeID string, output *node.Output) {
	s.outputs[nodeID] = output
	s.executed = append(s.executed, nodeID)
}

// finalOutput returns the exit-port batch of the last executed node.
func (s *runState) finalOutput() types.Items {
	if len(s.executed) == 0 {
		return types.Items{}
	}
	last := s.executed[len(s.executed)-1]
	return s.outputs[last].Items()
}
