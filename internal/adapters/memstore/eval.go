package memstore

import (
	"fmt"
	"strings"
	"time"

	"github.com/openfabrik/datakit/internal/apperr"
	"github.com/openfabrik/datakit/internal/domain"
	"github.com/openfabrik/datakit/internal/domain/filter"
)

// evaluate walks the criteria tree against one entity. An empty node matches
// everything.
func (s *Store[T]) evaluate(node filter.Node, entity T) (bool, error) {
	switch n := node.(type) {
	case nil:
		return true, nil
	case filter.Leaf:
		return s.evaluateLeaf(n, entity)
	case filter.Group:
		return s.evaluateGroup(n, entity)
	default:
		return false, apperr.NewValidation(fmt.Sprintf("unknown criteria node %T", node), nil)
	}
}

func (s *Store[T]) evaluateLeaf(leaf filter.Leaf, entity T) (bool, error) {
	if len(leaf.Conditions) == 0 {
		return true, nil
	}

	and := leaf.Logic != filter.LogicOr
	for _, cond := range leaf.Conditions {
		ok, err := s.evaluateCondition(cond, entity)
		if err != nil {
			return false, err
		}
		if and && !ok {
			return false, nil
		}
		if !and && ok {
			return true, nil
		}
	}
	return and, nil
}

func (s *Store[T]) evaluateGroup(group filter.Group, entity T) (bool, error) {
	if len(group.Children) == 0 {
		return true, nil
	}

	and := group.Logic != filter.LogicOr
	for _, child := range group.Children {
		ok, err := s.evaluate(child, entity)
		if err != nil {
			return false, err
		}
		if and && !ok {
			return false, nil
		}
		if !and && ok {
			return true, nil
		}
	}
	return and, nil
}

func (s *Store[T]) evaluateCondition(cond filter.Condition, entity T) (bool, error) {
	value, known := s.fieldValue(entity, cond.Field)

	switch cond.Operator {
	case filter.OpIsNull:
		return !known || isNil(value), nil
	case filter.OpIsNotNull:
		return known && !isNil(value), nil
	}

	// Remaining operators need an actual value; an absent or nil field
	// matches nothing.
	if !known || isNil(value) {
		return false, nil
	}
	value = deref(value)

	switch cond.Operator {
	case filter.OpEq:
		return compareValues(value, cond.Value) == 0, nil
	case filter.OpNe:
		return compareValues(value, cond.Value) != 0, nil
	case filter.OpGt:
		return compareValues(value, cond.Value) > 0, nil
	case filter.OpGte:
		return compareValues(value, cond.Value) >= 0, nil
	case filter.OpLt:
		return compareValues(value, cond.Value) < 0, nil
	case filter.OpLte:
		return compareValues(value, cond.Value) <= 0, nil
	case filter.OpLike:
		return matchPattern(toString(value), toString(cond.Value), false), nil
	case filter.OpILike:
		return matchPattern(toString(value), toString(cond.Value), true), nil
	case filter.OpStartsWith:
		return strings.HasPrefix(toString(value), toString(cond.Value)), nil
	case filter.OpEndsWith:
		return strings.HasSuffix(toString(value), toString(cond.Value)), nil
	case filter.OpContains:
		return strings.Contains(toString(value), toString(cond.Value)), nil
	case filter.OpIn:
		return containsValue(cond.Values, value), nil
	case filter.OpNotIn:
		return !containsValue(cond.Values, value), nil
	case filter.OpBetween:
		return compareValues(value, cond.Values[0]) >= 0 &&
			compareValues(value, cond.Values[1]) <= 0, nil
	default:
		return false, apperr.NewValidation(fmt.Sprintf("unknown operator %q", cond.Operator), nil)
	}
}

// fieldValue resolves a criteria field on the entity: payload fields through
// the registered FieldFunc first, then envelope fields, then metadata keys.
func (s *Store[T]) fieldValue(entity T, field string) (any, bool) {
	if s.fields != nil {
		if v, ok := s.fields(entity, field); ok {
			return v, true
		}
	}

	env := entity.Envelope()
	switch field {
	case "id":
		return env.ID.String(), true
	case "version":
		return env.Version, true
	case "createdAt":
		return env.CreatedAt, true
	case "updatedAt":
		return env.UpdatedAt, true
	case "createdBy":
		return env.CreatedBy, true
	case "updatedBy":
		return env.UpdatedBy, true
	case "deletedAt":
		return env.DeletedAt, true
	}

	if key, ok := strings.CutPrefix(field, "metadata."); ok {
		v, exists := env.Metadata[key]
		return v, exists
	}

	return nil, false
}

func isNil(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case *time.Time:
		return t == nil
	case *domain.UserID:
		return t == nil
	default:
		return false
	}
}

// deref unwraps the pointer types the envelope exposes so comparisons work
// on values.
func deref(v any) any {
	switch t := v.(type) {
	case *time.Time:
		if t != nil {
			return *t
		}
		return nil
	case *domain.UserID:
		if t != nil {
			return t.String()
		}
		return nil
	default:
		return v
	}
}

// compareValues orders two values of loosely matching types: numbers compare
// numerically across int/float widths, times chronologically, everything
// else as strings. Returns -1, 0, or 1.
func compareValues(a, b any) int {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			default:
				return 0
			}
		}
	}

	if at, aok := toTime(a); aok {
		if bt, bok := toTime(b); bok {
			switch {
			case at.Before(bt):
				return -1
			case at.After(bt):
				return 1
			default:
				return 0
			}
		}
	}

	return strings.Compare(toString(a), toString(b))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := time.Parse(time.RFC3339, t)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	default:
		return time.Time{}, false
	}
}

func toString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case fmt.Stringer:
		return s.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

func containsValue(values []any, v any) bool {
	for _, candidate := range values {
		if compareValues(v, candidate) == 0 {
			return true
		}
	}
	return false
}

// matchPattern implements SQL LIKE semantics with % as the multi-character
// wildcard. Patterns without % fall back to substring matching.
func matchPattern(value, pattern string, foldCase bool) bool {
	if foldCase {
		value = strings.ToLower(value)
		pattern = strings.ToLower(pattern)
	}

	if !strings.Contains(pattern, "%") {
		return strings.Contains(value, pattern)
	}

	parts := strings.Split(pattern, "%")

	// Anchored prefix.
	if parts[0] != "" {
		if !strings.HasPrefix(value, parts[0]) {
			return false
		}
		value = value[len(parts[0]):]
	}

	// Anchored suffix.
	last := parts[len(parts)-1]
	if last != "" {
		if !strings.HasSuffix(value, last) {
			return false
		}
		value = value[:len(value)-len(last)]
	}

	// Interior segments must appear in order.
	for _, part := range parts[1 : len(parts)-1] {
		if part == "" {
			continue
		}
		idx := strings.Index(value, part)
		if idx < 0 {
			return false
		}
		value = value[idx+len(part):]
	}
	return true
}
