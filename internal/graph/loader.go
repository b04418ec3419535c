package graph

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadDefinition reads a workflow definition from a YAML or JSON file. The
// format is chosen by file extension; anything other than .json is parsed as
// YAML, which also accepts JSON input.
func LoadDefinition(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow file: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		return ParseDefinitionJSON(data)
	}
	return ParseDefinitionYAML(data)
}

// ParseDefinitionYAML parses a workflow definition from YAML bytes.
func ParseDefinitionYAML(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to parse workflow YAML: %w", err)
	}
	if err := checkDefinition(&def); err != nil {
		return nil, err
	}
	return &def, nil
}

// ParseDefinitionJSON parses a workflow definition from JSON bytes.
func ParseDefinitionJSON(data []byte) (*Definition, error) {
	var def Definition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to parse workflow JSON: %w", err)
	}
	if err := checkDefinition(&def); err != nil {
		return nil, err
	}
	return &def, nil
}

// checkDefinition applies the shape checks a loaded definition must pass
// before it is handed to the compiler: ids present, connection endpoints
// named. Deeper structural validation belongs to Compile.
func checkDefinition(def *Definition) error {
	seen := make(map[string]bool, len(def.Nodes))
	for i := range def.Nodes {
		n := &def.Nodes[i]
		if n.ID == "" {
			return fmt.Errorf("workflow node %d has no id", i)
		}
		if n.Type == "" {
			return fmt.Errorf("workflow node %q has no type", n.ID)
		}
		if seen[n.ID] {
			return fmt.Errorf("workflow node id %q appears twice", n.ID)
		}
		seen[n.ID] = true
		if n.Name == "" {
			n.Name = n.Type
		}
	}

	for i := range def.Connections {
		conn := &def.Connections[i]
		if conn.FromNode == "" || conn.ToNode == "" {
			return fmt.Errorf("workflow connection %d is missing an endpoint", i)
		}
		if conn.ID == "" {
			conn.ID = fmt.Sprintf("conn-%d", i)
		}
		conn.normalize()
	}

	return nil
}
