// Package node defines the node type catalog and the executor contracts every
// node implementation satisfies. Descriptions are registered once at process
// start and are read-only afterwards; executors are created per use through
// the registry's factories.
package node

// Standard port names shared by the built-in node types.
const (
	PortMain   = "main"
	PortTrue   = "true"
	PortFalse  = "false"
	PortInput1 = "input1"
	PortInput2 = "input2"
)

// Well-known node type groups used for catalog listing.
const (
	GroupTrigger   = "trigger"
	GroupTransform = "transform"
	GroupAgent     = "agent"
)

// ParameterType is the primitive type of a declared node parameter.
type ParameterType string

const (
	ParameterTypeString  ParameterType = "string"
	ParameterTypeNumber  ParameterType = "number"
	ParameterTypeBoolean ParameterType = "boolean"
	ParameterTypeOptions ParameterType = "options"
	ParameterTypeJSON    ParameterType = "json"
	ParameterTypeCode    ParameterType = "code"
)

// PortSpec declares an input or output port on a node type.
type PortSpec struct {
	// Name identifies the port within the node type (e.g. "main", "true").
	Name string `json:"name"`

	// DisplayName is the label shown in the editor.
	DisplayName string `json:"display_name,omitempty"`

	// Required marks an input port whose upstream wiring must be present.
	Required bool `json:"required,omitempty"`
}

// ParameterOption is one selectable value of an options parameter.
type ParameterOption struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ParameterSpec declares a typed parameter of a node type.
type ParameterSpec struct {
	// Name is the key under which the value appears in a node's parameter map.
	Name string `json:"name"`

	// DisplayName is the label shown in the editor and matched by Search.
	DisplayName string `json:"display_name"`

	// Type is the parameter's primitive type.
	Type ParameterType `json:"type"`

	// Default is the value used when the parameter is absent.
	Default any `json:"default,omitempty"`

	// Description documents the parameter for the editor.
	Description string `json:"description,omitempty"`

	// Options enumerates the valid values of an options parameter.
	Options []ParameterOption `json:"options,omitempty"`

	// DisplayWhen hides the parameter unless another parameter currently
	// holds one of the listed values, keyed by that parameter's name.
	DisplayWhen map[string][]any `json:"display_when,omitempty"`
}

// Description is the immutable declarative description of a node type.
// A single Description instance is shared by every caller of the registry;
// it must never be mutated after registration.
type Description struct {
	// Type is the globally unique node type name (e.g. "trigger.webhook").
	Type string `json:"type"`

	// DisplayName is the human-readable name shown in the editor.
	DisplayName string `json:"display_name"`

	// Description documents what the node does.
	Description string `json:"description"`

	// Groups are the catalog categories this type is listed under.
	Groups []string `json:"groups"`

	// Inputs declares the input ports, in order. Always non-nil.
	Inputs []PortSpec `json:"inputs"`

	// Outputs declares the output ports, in order. Always non-nil.
	Outputs []PortSpec `json:"outputs"`

	// Parameters declares the node's typed parameters.
	Parameters []ParameterSpec `json:"parameters"`

	// IsTrigger marks node types capable of starting a workflow run.
	IsTrigger bool `json:"is_trigger,omitempty"`

	// SupportsPolling marks trigger types driven by a recurring timer.
	SupportsPolling bool `json:"supports_polling,omitempty"`

	// SupportsWebhook marks trigger types that handle inbound requests.
	SupportsWebhook bool `json:"supports_webhook,omitempty"`
}

// HasInputPort reports whether the type declares the named input port.
func (d *Description) HasInputPort(name string) bool {
	for _, p := range d.Inputs {
		if p.Name == name {
			return true
		}
	}
	return false
}

// HasOutputPort reports whether the type declares the named output port.
func (d *Description) HasOutputPort(name string) bool {
	for _, p := range d.Outputs {
		if p.Name == name {
			return true
		}
	}
	return false
}

// DefaultOutputPort returns the first declared output port, or PortMain when
// the type declares none.
func (d *Description) DefaultOutputPort() string {
	if len(d.Outputs) > 0 {
		return d.Outputs[0].Name
	}
	return PortMain
}

// ParameterDefault returns the declared default for a parameter name, or nil.
func (d *Description) ParameterDefault(name string) any {
	for _, p := range d.Parameters {
		if p.Name == name {
			return p.Default
		}
	}
	return nil
}
