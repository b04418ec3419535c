package graph

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
id: wf-demo
name: Demo Workflow
nodes:
  - id: start
    type: trigger.manual
    position: {x: 100, y: 200}
    parameters:
      payload: '{"hello": "world"}'
  - id: transform
    type: set
    parameters:
      mode: merge
      values:
        greeting: hi
connections:
  - id: c1
    fromNode: start
    toNode: transform
`

const sampleJSON = `{
  "id": "wf-json",
  "name": "JSON Workflow",
  "nodes": [
    {"id": "start", "type": "trigger.manual", "position": {"x": 0, "y": 0}},
    {"id": "next", "type": "set"}
  ],
  "connections": [
    {"id": "c1", "from_node": "start", "from_port": "main", "to_node": "next", "to_port": "main"}
  ]
}`

func TestParseDefinitionYAML(t *testing.T) {
	def, err := ParseDefinitionYAML([]byte(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "wf-demo", def.ID)
	require.Len(t, def.Nodes, 2)
	assert.Equal(t, "start", def.Nodes[0].ID)
	assert.Equal(t, 100.0, def.Nodes[0].Position.X)
	assert.Equal(t, "hi", def.Nodes[1].Parameters["values"].(map[string]any)["greeting"])

	require.Len(t, def.Connections, 1)
	// Omitted ports default to main.
	assert.Equal(t, "main", def.Connections[0].FromPort)
	assert.Equal(t, "main", def.Connections[0].ToPort)
	// Omitted name defaults to the type.
	assert.Equal(t, "trigger.manual", def.Nodes[0].Name)
}

func TestParseDefinitionJSON(t *testing.T) {
	def, err := ParseDefinitionJSON([]byte(sampleJSON))
	require.NoError(t, err)

	assert.Equal(t, "wf-json", def.ID)
	assert.Equal(t, "start", def.Connections[0].FromNode)
}

func TestParseDefinitionRejectsBadShapes(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"node without id", "nodes:\n  - type: set\n"},
		{"node without type", "nodes:\n  - id: a\n"},
		{"duplicate node id", "nodes:\n  - {id: a, type: set}\n  - {id: a, type: set}\n"},
		{"connection missing endpoint", "nodes:\n  - {id: a, type: set}\nconnections:\n  - fromNode: a\n"},
		{"invalid yaml", ":::not yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDefinitionYAML([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadDefinitionFromFile(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "wf.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(sampleYAML), 0o644))

	def, err := LoadDefinition(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "wf-demo", def.ID)

	jsonPath := filepath.Join(dir, "wf.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(sampleJSON), 0o644))

	def, err = LoadDefinition(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, "wf-json", def.ID)

	_, err = LoadDefinition(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
