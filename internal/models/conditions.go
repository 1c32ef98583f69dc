package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Condition operators understood by the evaluator.
const (
	OpEquals         = "equals"
	OpNotEquals      = "not_equals"
	OpGreaterThan    = "greater_than"
	OpLessThan       = "less_than"
	OpGreaterOrEqual = "greater_or_equal"
	OpLessOrEqual    = "less_or_equal"
	OpContains       = "contains"
	OpNotContains    = "not_contains"
	OpIn             = "in"
	OpIsSet          = "is_set"
	OpIsEmpty        = "is_empty"
)

// Condition is a single comparison against a dot path into the event parameters.
type Condition struct {
	Field    string      `json:"field"`
	Operator string      `json:"operator"`
	Value    interface{} `json:"value,omitempty"`
}

// Group modes. Exactly one is present per group node.
const (
	GroupAll = "all" // conjunction, empty evaluates true
	GroupAny = "any" // disjunction, empty evaluates false
)

// ConditionGroup is a boolean expression tree node. On the wire and in the
// database it is {"all": [...]} or {"any": [...]}, where each child is either
// a nested group or a leaf Condition. A group with an unknown Mode is kept
// rather than rejected; the evaluator treats it as a non-match.
type ConditionGroup struct {
	Mode  string
	Nodes []ConditionNode
}

// ConditionNode is either a nested group or a leaf condition. Both pointers
// nil means the stored JSON was malformed; the evaluator reports it as a
// warning and evaluates false.
type ConditionNode struct {
	Group *ConditionGroup
	Cond  *Condition
}

// EmptyAllGroup is the vacuously-true default for rules created without
// conditions.
func EmptyAllGroup() ConditionGroup {
	return ConditionGroup{Mode: GroupAll, Nodes: []ConditionNode{}}
}

// IsZero reports whether the group was never populated (as opposed to an
// explicit empty "all"/"any" group).
func (g ConditionGroup) IsZero() bool {
	return g.Mode == "" && g.Nodes == nil
}

func (g ConditionGroup) MarshalJSON() ([]byte, error) {
	mode := g.Mode
	if mode == "" {
		mode = GroupAll
	}
	nodes := g.Nodes
	if nodes == nil {
		nodes = []ConditionNode{}
	}
	return json.Marshal(map[string][]ConditionNode{mode: nodes})
}

func (g *ConditionGroup) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, mode := range []string{GroupAll, GroupAny} {
		children, ok := raw[mode]
		if !ok {
			continue
		}
		var nodes []ConditionNode
		if err := json.Unmarshal(children, &nodes); err != nil {
			return err
		}
		if nodes == nil {
			nodes = []ConditionNode{}
		}
		g.Mode = mode
		g.Nodes = nodes
		return nil
	}
	// Unknown tag; keep the node so the evaluator can flag it instead of
	// failing the whole rule load.
	g.Mode = ""
	g.Nodes = nil
	return nil
}

func (n ConditionNode) MarshalJSON() ([]byte, error) {
	switch {
	case n.Group != nil:
		return json.Marshal(n.Group)
	case n.Cond != nil:
		return json.Marshal(n.Cond)
	default:
		return []byte("{}"), nil
	}
}

func (n *ConditionNode) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if _, ok := raw[GroupAll]; ok {
		n.Group = &ConditionGroup{}
		return json.Unmarshal(data, n.Group)
	}
	if _, ok := raw[GroupAny]; ok {
		n.Group = &ConditionGroup{}
		return json.Unmarshal(data, n.Group)
	}
	if _, ok := raw["field"]; ok {
		n.Cond = &Condition{}
		return json.Unmarshal(data, n.Cond)
	}
	// Neither shape: leave both nil, evaluator reports the malformed node.
	return nil
}

// Value implements driver.Valuer so the tree is stored as a JSON column.
func (g ConditionGroup) Value() (driver.Value, error) {
	raw, err := json.Marshal(g)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan implements sql.Scanner.
func (g *ConditionGroup) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*g = EmptyAllGroup()
		return nil
	case []byte:
		if len(v) == 0 {
			*g = EmptyAllGroup()
			return nil
		}
		return json.Unmarshal(v, g)
	case string:
		if v == "" {
			*g = EmptyAllGroup()
			return nil
		}
		return json.Unmarshal([]byte(v), g)
	default:
		return fmt.Errorf("unsupported condition column type %T", src)
	}
}
