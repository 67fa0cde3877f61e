package flow

import (
	"time"

	"gopkg.in/yaml.v3"

	"github.com/BaSui01/dialogflow/types"
)

// NodeType classifies the role of a node in a flow graph.
type NodeType string

const (
	NodeStart      NodeType = "start"
	NodeCollect    NodeType = "collect"    // info collection (re-asks until satisfied)
	NodeCheck      NodeType = "check"      // condition check
	NodeAction     NodeType = "action"     // side-effect execution
	NodeRespond    NodeType = "respond"    // response generation
	NodeEscalation NodeType = "escalation" // human handoff
	NodeEnd        NodeType = "end"
	NodeBranch     NodeType = "branch"
	NodeLoop       NodeType = "loop"
)

// Branch labels a condition set; the first branch whose conditions all hold
// supplies the transition label.
type Branch struct {
	Label      string      `json:"label" yaml:"label"`
	Conditions []Condition `json:"conditions" yaml:"conditions"`
}

// Node is one step of a flow.
type Node struct {
	ID   string   `json:"id" yaml:"id"`
	Type NodeType `json:"type" yaml:"type"`
	// Conditions gate advancement: all must hold or the node re-executes.
	Conditions []Condition `json:"conditions,omitempty" yaml:"conditions,omitempty"`
	// Actions run in order on every execution of the node.
	Actions []ActionRef `json:"actions,omitempty" yaml:"actions,omitempty"`
	// Branches select a transition label once the gate holds.
	Branches []Branch `json:"branches,omitempty" yaml:"branches,omitempty"`
	// Transitions maps a branch label to the next node id.
	Transitions map[string]string `json:"transitions,omitempty" yaml:"transitions,omitempty"`
	// DefaultNext is used when no branch matches or the label has no entry.
	DefaultNext string `json:"default_next,omitempty" yaml:"default_next,omitempty"`
	// MaxAttempts bounds re-execution of the node; 0 means unlimited.
	MaxAttempts int `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty"`
	// Timeout bounds how long the flow may sit on this node; a turn that
	// arrives past the deadline escalates with reason node_timeout.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// Definition is an immutable flow graph, shared read-only across sessions.
type Definition struct {
	ID        string           `json:"id" yaml:"id"`
	Name      string           `json:"name" yaml:"name"`
	StartNode string           `json:"start_node" yaml:"start_node"`
	Nodes     map[string]*Node `json:"nodes" yaml:"nodes"`
	// NodeOrder preserves declaration order; escalation lookup scans it.
	NodeOrder []string `json:"node_order" yaml:"node_order"`
	// GlobalConditions must hold for any advancement in the flow.
	GlobalConditions []Condition `json:"global_conditions,omitempty" yaml:"global_conditions,omitempty"`
	// DefaultVariables seed the variable bag on flow entry.
	DefaultVariables map[string]any `json:"default_variables,omitempty" yaml:"default_variables,omitempty"`
}

// definitionDoc is the YAML wire form: nodes as an ordered list.
type definitionDoc struct {
	ID               string         `yaml:"id"`
	Name             string         `yaml:"name"`
	StartNode        string         `yaml:"start_node"`
	Nodes            []*Node        `yaml:"nodes"`
	GlobalConditions []Condition    `yaml:"global_conditions,omitempty"`
	DefaultVariables map[string]any `yaml:"default_variables,omitempty"`
}

// ParseDefinition decodes a YAML flow definition and validates it against
// the action registry.
func ParseDefinition(data []byte, registry *ActionRegistry) (*Definition, error) {
	var doc definitionDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, types.NewError(types.ErrFlowConfig, "invalid flow YAML").WithCause(err)
	}
	def := &Definition{
		ID:               doc.ID,
		Name:             doc.Name,
		StartNode:        doc.StartNode,
		Nodes:            make(map[string]*Node, len(doc.Nodes)),
		GlobalConditions: doc.GlobalConditions,
		DefaultVariables: doc.DefaultVariables,
	}
	for _, node := range doc.Nodes {
		if _, dup := def.Nodes[node.ID]; dup {
			return nil, types.NewErrorf(types.ErrFlowConfig, "flow %s: duplicate node %s", doc.ID, node.ID)
		}
		def.Nodes[node.ID] = node
		def.NodeOrder = append(def.NodeOrder, node.ID)
	}
	if err := def.Validate(registry); err != nil {
		return nil, err
	}
	return def, nil
}

// MarshalYAML renders the definition back to its wire form.
func (d *Definition) MarshalYAML() (any, error) {
	doc := definitionDoc{
		ID:               d.ID,
		Name:             d.Name,
		StartNode:        d.StartNode,
		GlobalConditions: d.GlobalConditions,
		DefaultVariables: d.DefaultVariables,
	}
	for _, id := range d.NodeOrder {
		doc.Nodes = append(doc.Nodes, d.Nodes[id])
	}
	return doc, nil
}

// Validate checks structural integrity and that every referenced action type
// is registered. Violations are flow-configuration programmer errors.
func (d *Definition) Validate(registry *ActionRegistry) error {
	if d.ID == "" {
		return types.NewError(types.ErrFlowConfig, "flow id is required")
	}
	if len(d.Nodes) == 0 {
		return types.NewErrorf(types.ErrFlowConfig, "flow %s has no nodes", d.ID)
	}
	if _, ok := d.Nodes[d.StartNode]; !ok {
		return types.NewErrorf(types.ErrFlowConfig, "flow %s: start node %q not found", d.ID, d.StartNode)
	}
	for _, id := range d.NodeOrder {
		node := d.Nodes[id]
		if node.ID != id {
			return types.NewErrorf(types.ErrFlowConfig, "flow %s: node order entry %q does not match node id %q", d.ID, id, node.ID)
		}
		for label, next := range node.Transitions {
			if _, ok := d.Nodes[next]; !ok {
				return types.NewErrorf(types.ErrFlowConfig,
					"flow %s: node %s transition %q references unknown node %q", d.ID, id, label, next)
			}
		}
		if node.DefaultNext != "" {
			if _, ok := d.Nodes[node.DefaultNext]; !ok {
				return types.NewErrorf(types.ErrFlowConfig,
					"flow %s: node %s default_next references unknown node %q", d.ID, id, node.DefaultNext)
			}
		}
		if registry != nil {
			for _, ref := range node.Actions {
				if _, ok := registry.Get(ref.Type); !ok {
					return types.NewErrorf(types.ErrFlowConfig,
						"flow %s: node %s uses unregistered action type %q", d.ID, id, ref.Type)
				}
			}
		}
	}
	return nil
}

// FirstEscalationNode returns the first node of type escalation in scan
// (declaration) order. This deliberately ignores relevance to the failing
// node; see the engine documentation.
func (d *Definition) FirstEscalationNode() (string, bool) {
	for _, id := range d.NodeOrder {
		if d.Nodes[id].Type == NodeEscalation {
			return id, true
		}
	}
	return "", false
}

// NewDefinition builds a definition from ordered nodes, for programmatic
// flow construction.
func NewDefinition(id, name, startNode string, nodes ...*Node) *Definition {
	def := &Definition{
		ID:        id,
		Name:      name,
		StartNode: startNode,
		Nodes:     make(map[string]*Node, len(nodes)),
	}
	for _, node := range nodes {
		def.Nodes[node.ID] = node
		def.NodeOrder = append(def.NodeOrder, node.ID)
	}
	return def
}

func (d *Definition) node(id string) (*Node, error) {
	node, ok := d.Nodes[id]
	if !ok {
		return nil, types.NewErrorf(types.ErrFlowConfig, "flow %s: unknown node %q", d.ID, id)
	}
	return node, nil
}
