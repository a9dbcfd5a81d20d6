package filter

// Builder accumulates conditions fluently, always combining them with AND.
// Use the free And/Or combinators to compose built criteria under a
// caller-chosen logic.
//
//	criteria := filter.New().
//		Eq("status", "active").
//		Gt("age", 18).
//		Build()
type Builder struct {
	conditions []Condition
}

// New returns an empty criteria builder.
func New() *Builder {
	return &Builder{}
}

// Where appends an arbitrary condition.
func (b *Builder) Where(field string, op Operator, value any) *Builder {
	b.conditions = append(b.conditions, Condition{Field: field, Operator: op, Value: value})
	return b
}

// Eq adds field == value.
func (b *Builder) Eq(field string, value any) *Builder { return b.Where(field, OpEq, value) }

// Ne adds field != value.
func (b *Builder) Ne(field string, value any) *Builder { return b.Where(field, OpNe, value) }

// Gt adds field > value.
func (b *Builder) Gt(field string, value any) *Builder { return b.Where(field, OpGt, value) }

// Gte adds field >= value.
func (b *Builder) Gte(field string, value any) *Builder { return b.Where(field, OpGte, value) }

// Lt adds field < value.
func (b *Builder) Lt(field string, value any) *Builder { return b.Where(field, OpLt, value) }

// Lte adds field <= value.
func (b *Builder) Lte(field string, value any) *Builder { return b.Where(field, OpLte, value) }

// Like adds a case-sensitive pattern match.
func (b *Builder) Like(field, pattern string) *Builder { return b.Where(field, OpLike, pattern) }

// ILike adds a case-insensitive pattern match.
func (b *Builder) ILike(field, pattern string) *Builder { return b.Where(field, OpILike, pattern) }

// StartsWith adds a prefix match.
func (b *Builder) StartsWith(field, prefix string) *Builder {
	return b.Where(field, OpStartsWith, prefix)
}

// EndsWith adds a suffix match.
func (b *Builder) EndsWith(field, suffix string) *Builder {
	return b.Where(field, OpEndsWith, suffix)
}

// Contains adds a substring match.
func (b *Builder) Contains(field, substring string) *Builder {
	return b.Where(field, OpContains, substring)
}

// In adds field ∈ values.
func (b *Builder) In(field string, values ...any) *Builder {
	b.conditions = append(b.conditions, Condition{Field: field, Operator: OpIn, Values: values})
	return b
}

// NotIn adds field ∉ values.
func (b *Builder) NotIn(field string, values ...any) *Builder {
	b.conditions = append(b.conditions, Condition{Field: field, Operator: OpNotIn, Values: values})
	return b
}

// IsNull adds a null check on field.
func (b *Builder) IsNull(field string) *Builder {
	b.conditions = append(b.conditions, Condition{Field: field, Operator: OpIsNull})
	return b
}

// IsNotNull adds a non-null check on field.
func (b *Builder) IsNotNull(field string) *Builder {
	b.conditions = append(b.conditions, Condition{Field: field, Operator: OpIsNotNull})
	return b
}

// Between adds low <= field <= high.
func (b *Builder) Between(field string, low, high any) *Builder {
	b.conditions = append(b.conditions, Condition{Field: field, Operator: OpBetween, Values: []any{low, high}})
	return b
}

// Build returns the accumulated conditions as a single AND node. Building is
// pure: the builder can keep accumulating afterwards without affecting
// previously built criteria.
func (b *Builder) Build() Criteria {
	conditions := make([]Condition, len(b.conditions))
	copy(conditions, b.conditions)
	return Criteria{Conditions: conditions, Logic: LogicAnd}
}
