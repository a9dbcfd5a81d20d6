// Package filter defines a storage-independent, composable boolean predicate
// tree describing "which records" a query targets. Building criteria is pure
// and synchronous; storage collaborators translate the tree into native
// predicates with matching operator semantics.
//
// The tree is JSON-serializable with the shape
//
//	{"conditions":[{"field","operator","value"|"values"}],"logic","groups":[...]}
//
// Translators that prefer structural recursion should work from the tagged
// AST produced by [Criteria.AST] instead of walking the wire shape directly.
package filter

import (
	"errors"
	"fmt"
)

// Operator identifies a single comparison applied to a field.
type Operator string

// Supported condition operators.
const (
	OpEq         Operator = "eq"
	OpNe         Operator = "ne"
	OpGt         Operator = "gt"
	OpGte        Operator = "gte"
	OpLt         Operator = "lt"
	OpLte        Operator = "lte"
	OpLike       Operator = "like"
	OpILike      Operator = "ilike"
	OpStartsWith Operator = "startsWith"
	OpEndsWith   Operator = "endsWith"
	OpContains   Operator = "contains"
	OpIn         Operator = "in"
	OpNotIn      Operator = "notIn"
	OpIsNull     Operator = "isNull"
	OpIsNotNull  Operator = "isNotNull"
	OpBetween    Operator = "between"
)

// Logic combines the conditions and groups of one criteria node.
type Logic string

// Combination operators for criteria nodes.
const (
	LogicAnd Logic = "AND"
	LogicOr  Logic = "OR"
)

// ErrInvalidCriteria is the sentinel wrapped by all structural validation
// failures, for errors.Is checking.
var ErrInvalidCriteria = errors.New("invalid filter criteria")

// betweenArity is the exact number of values the between operator requires.
const betweenArity = 2

// Condition is a single field comparison. Exactly one of Value/Values is
// populated depending on operator arity; isNull/isNotNull carry neither.
type Condition struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    any      `json:"value,omitempty"`
	Values   []any    `json:"values,omitempty"`
}

// Criteria is one node of the predicate tree: an ordered list of conditions
// combined by Logic, plus optional nested groups combined by the same Logic.
// A zero-value Criteria matches everything.
type Criteria struct {
	Conditions []Condition `json:"conditions,omitempty"`
	Logic      Logic       `json:"logic,omitempty"`
	Groups     []Criteria  `json:"groups,omitempty"`
}

// IsValid reports whether op is a known operator.
func (op Operator) IsValid() bool {
	switch op {
	case OpEq, OpNe, OpGt, OpGte, OpLt, OpLte,
		OpLike, OpILike, OpStartsWith, OpEndsWith, OpContains,
		OpIn, OpNotIn, OpIsNull, OpIsNotNull, OpBetween:
		return true
	}
	return false
}

// NeedsValues reports whether the operator takes a list of values.
func (op Operator) NeedsValues() bool {
	return op == OpIn || op == OpNotIn || op == OpBetween
}

// NeedsNoValue reports whether the operator takes no operand at all.
func (op Operator) NeedsNoValue() bool {
	return op == OpIsNull || op == OpIsNotNull
}

// IsValid reports whether l is a known combination logic.
func (l Logic) IsValid() bool {
	return l == LogicAnd || l == LogicOr
}

// Validate checks the condition's operator/value arity contract:
// in/notIn/between require Values (between exactly two), isNull/isNotNull
// require no operand, and every other operator requires exactly one scalar
// Value.
func (c Condition) Validate() error {
	if c.Field == "" {
		return fmt.Errorf("%w: condition has empty field", ErrInvalidCriteria)
	}
	if !c.Operator.IsValid() {
		return fmt.Errorf("%w: unknown operator %q on field %q", ErrInvalidCriteria, c.Operator, c.Field)
	}

	switch {
	case c.Operator.NeedsNoValue():
		if c.Value != nil || len(c.Values) > 0 {
			return fmt.Errorf("%w: operator %q on field %q takes no value", ErrInvalidCriteria, c.Operator, c.Field)
		}
	case c.Operator.NeedsValues():
		if len(c.Values) == 0 {
			return fmt.Errorf("%w: operator %q on field %q requires values", ErrInvalidCriteria, c.Operator, c.Field)
		}
		if c.Operator == OpBetween && len(c.Values) != betweenArity {
			return fmt.Errorf("%w: between on field %q requires exactly 2 values, got %d",
				ErrInvalidCriteria, c.Field, len(c.Values))
		}
		if c.Value != nil {
			return fmt.Errorf("%w: operator %q on field %q takes values, not a scalar value",
				ErrInvalidCriteria, c.Operator, c.Field)
		}
	default:
		if c.Value == nil {
			return fmt.Errorf("%w: operator %q on field %q requires a value", ErrInvalidCriteria, c.Operator, c.Field)
		}
		if len(c.Values) > 0 {
			return fmt.Errorf("%w: operator %q on field %q takes a scalar value, not values",
				ErrInvalidCriteria, c.Operator, c.Field)
		}
	}
	return nil
}

// IsEmpty reports whether the node carries no conditions and no groups, i.e.
// matches everything.
func (c Criteria) IsEmpty() bool {
	return len(c.Conditions) == 0 && len(c.Groups) == 0
}

// EffectiveLogic returns the node's logic, defaulting to AND when unset.
func (c Criteria) EffectiveLogic() Logic {
	if c.Logic == "" {
		return LogicAnd
	}
	return c.Logic
}

// Validate recursively checks the whole tree: logic values and the
// operator/value arity of every condition.
func (c Criteria) Validate() error {
	if c.Logic != "" && !c.Logic.IsValid() {
		return fmt.Errorf("%w: unknown logic %q", ErrInvalidCriteria, c.Logic)
	}
	for _, cond := range c.Conditions {
		if err := cond.Validate(); err != nil {
			return err
		}
	}
	for _, g := range c.Groups {
		if err := g.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// WithCondition returns a copy of the criteria with cond appended to the
// top-level node. When the node combines with OR, the existing tree is
// pushed down into a group so the new condition still applies conjunctively.
func (c Criteria) WithCondition(cond Condition) Criteria {
	if c.EffectiveLogic() == LogicOr && !c.IsEmpty() {
		return Criteria{
			Conditions: []Condition{cond},
			Logic:      LogicAnd,
			Groups:     []Criteria{c},
		}
	}

	out := Criteria{
		Conditions: make([]Condition, 0, len(c.Conditions)+1),
		Logic:      LogicAnd,
		Groups:     c.Groups,
	}
	out.Conditions = append(out.Conditions, c.Conditions...)
	out.Conditions = append(out.Conditions, cond)
	return out
}

// And wraps the given criteria as nested groups under a single AND node.
func And(criteria ...Criteria) Criteria {
	return Criteria{Logic: LogicAnd, Groups: criteria}
}

// Or wraps the given criteria as nested groups under a single OR node.
func Or(criteria ...Criteria) Criteria {
	return Criteria{Logic: LogicOr, Groups: criteria}
}
