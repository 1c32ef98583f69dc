package services

import (
	"fmt"
	"strconv"
	"strings"

	"castflow/internal/models"
)

// EvaluateConditions walks a condition tree against an event parameter bag.
// It is pure and never fails: malformed nodes evaluate to false and are
// reported in the returned warnings so the caller can surface them in the
// execution log.
func EvaluateConditions(group models.ConditionGroup, params map[string]interface{}) (bool, []string) {
	var warnings []string
	matched := evalGroup(group, params, &warnings)
	return matched, warnings
}

func evalGroup(group models.ConditionGroup, params map[string]interface{}, warnings *[]string) bool {
	switch group.Mode {
	case models.GroupAll:
		for _, node := range group.Nodes {
			if !evalNode(node, params, warnings) {
				return false
			}
		}
		return true
	case models.GroupAny:
		for _, node := range group.Nodes {
			if evalNode(node, params, warnings) {
				return true
			}
		}
		return false
	default:
		*warnings = append(*warnings, fmt.Sprintf("malformed condition group: unknown mode %q", group.Mode))
		return false
	}
}

func evalNode(node models.ConditionNode, params map[string]interface{}, warnings *[]string) bool {
	switch {
	case node.Group != nil:
		return evalGroup(*node.Group, params, warnings)
	case node.Cond != nil:
		return evalLeaf(*node.Cond, params, warnings)
	default:
		*warnings = append(*warnings, "malformed condition node: neither group nor condition")
		return false
	}
}

func evalLeaf(cond models.Condition, params map[string]interface{}, warnings *[]string) bool {
	if cond.Field == "" {
		*warnings = append(*warnings, "malformed condition: missing field")
		return false
	}

	actual, found := lookupPath(params, cond.Field)
	if !found {
		// Absence is a non-match, never an error. Only is_empty treats a
		// missing path as true.
		return cond.Operator == models.OpIsEmpty
	}

	switch cond.Operator {
	case models.OpEquals:
		return looseEquals(actual, cond.Value)
	case models.OpNotEquals:
		return !looseEquals(actual, cond.Value)
	case models.OpGreaterThan:
		return compareNumeric(actual, cond.Value, func(a, b float64) bool { return a > b })
	case models.OpLessThan:
		return compareNumeric(actual, cond.Value, func(a, b float64) bool { return a < b })
	case models.OpGreaterOrEqual:
		return compareNumeric(actual, cond.Value, func(a, b float64) bool { return a >= b })
	case models.OpLessOrEqual:
		return compareNumeric(actual, cond.Value, func(a, b float64) bool { return a <= b })
	case models.OpContains:
		return contains(actual, cond.Value)
	case models.OpNotContains:
		return !contains(actual, cond.Value)
	case models.OpIn:
		return in(actual, cond.Value, warnings)
	case models.OpIsSet:
		return actual != nil
	case models.OpIsEmpty:
		return isEmpty(actual)
	default:
		*warnings = append(*warnings, fmt.Sprintf("unknown operator %q", cond.Operator))
		return false
	}
}

// lookupPath resolves a dot path ("casting.status") through nested maps.
func lookupPath(params map[string]interface{}, path string) (interface{}, bool) {
	parts := strings.Split(path, ".")
	var current interface{} = params
	for _, part := range parts {
		switch m := current.(type) {
		case map[string]interface{}:
			v, ok := m[part]
			if !ok {
				return nil, false
			}
			current = v
		case map[string]string:
			v, ok := m[part]
			if !ok {
				return nil, false
			}
			current = v
		case models.JSONMap:
			v, ok := m[part]
			if !ok {
				return nil, false
			}
			current = v
		default:
			return nil, false
		}
	}
	return current, true
}

// looseEquals compares numerically when both sides parse as numbers,
// otherwise by string rendering.
func looseEquals(a, b interface{}) bool {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af == bf
	}
	return stringify(a) == stringify(b)
}

func compareNumeric(a, b interface{}, cmp func(a, b float64) bool) bool {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if !aok || !bok {
		return false
	}
	return cmp(af, bf)
}

func contains(actual, value interface{}) bool {
	needle := stringify(value)
	switch v := actual.(type) {
	case string:
		return strings.Contains(v, needle)
	case []interface{}:
		for _, item := range v {
			if looseEquals(item, value) {
				return true
			}
		}
		return false
	case []string:
		for _, item := range v {
			if item == needle {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func in(actual, value interface{}, warnings *[]string) bool {
	switch candidates := value.(type) {
	case []interface{}:
		for _, candidate := range candidates {
			if looseEquals(actual, candidate) {
				return true
			}
		}
		return false
	case []string:
		for _, candidate := range candidates {
			if looseEquals(actual, candidate) {
				return true
			}
		}
		return false
	default:
		*warnings = append(*warnings, "operator \"in\" requires a list value")
		return false
	}
}

func isEmpty(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []interface{}:
		return len(t) == 0
	case []string:
		return len(t) == 0
	case map[string]interface{}:
		return len(t) == 0
	default:
		return false
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func stringify(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	// Trim the trailing zeros JSON number decoding introduces so 2.0 and
	// "2" render the same.
	if f, ok := toFloat(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return fmt.Sprintf("%v", v)
}
