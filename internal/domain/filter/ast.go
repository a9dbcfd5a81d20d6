package filter

// Node is the tagged-variant view of a criteria tree for translators that
// want unambiguous structural recursion. A node is either a Leaf (conditions
// combined by one logic) or a Group (child nodes combined by one logic).
type Node interface {
	// NodeLogic returns the combination logic of this node.
	NodeLogic() Logic

	isNode()
}

// Leaf is a list of conditions combined by Logic.
type Leaf struct {
	Conditions []Condition
	Logic      Logic
}

// Group combines child nodes by Logic.
type Group struct {
	Children []Node
	Logic    Logic
}

func (l Leaf) NodeLogic() Logic { return l.Logic }
func (l Leaf) isNode()          {}

func (g Group) NodeLogic() Logic { return g.Logic }
func (g Group) isNode()          {}

// AST converts the criteria tree into its tagged-variant form. A node with
// both conditions and groups becomes a Group whose first child is the Leaf of
// its own conditions; a node with only conditions becomes a plain Leaf. An
// empty criteria becomes a Leaf with no conditions, which matches everything.
func (c Criteria) AST() Node {
	logic := c.EffectiveLogic()

	if len(c.Groups) == 0 {
		return Leaf{Conditions: c.Conditions, Logic: logic}
	}

	children := make([]Node, 0, len(c.Groups)+1)
	if len(c.Conditions) > 0 {
		children = append(children, Leaf{Conditions: c.Conditions, Logic: logic})
	}
	for _, g := range c.Groups {
		children = append(children, g.AST())
	}
	return Group{Children: children, Logic: logic}
}
