package graph

// CheckNode decides whether the node relation a -> b is admissible.
// direction "next" consults a's valid-next-nodes policy (may a spawn or
// feed b); direction "previous" consults b's valid-previous-nodes policy
// (may a be b's predecessor).
func CheckNode(a, b Task, direction string) error {
	if direction == "next" {
		return evalPolicy("node", direction, a.constraint.nextNodesPolicy, a.constraint.nextNodes, a.id, b.id)
	}
	return evalPolicy("node", direction, b.constraint.prevNodesPolicy, b.constraint.prevNodes, a.id, b.id)
}

// CheckEdge decides whether the candidate edge a -> b is admissible.
// direction "outgoing" consults a's valid-outgoing-edges policy;
// direction "incoming" consults b's valid-incoming-edges policy.
func CheckEdge(a, b Task, direction string) error {
	if direction == "outgoing" {
		return evalEdgePolicy(direction, a.constraint.outgoingEdgesPolicy, a.constraint.outgoingEdges, a.id, b.id)
	}
	return evalEdgePolicy(direction, b.constraint.incomingEdgesPolicy, b.constraint.incomingEdges, a.id, b.id)
}

func evalPolicy(kind, direction string, p Policy, list []string, fromID, toID string) error {
	switch p {
	case PolicyAllowAll:
		return nil
	case PolicyAllowNone:
		return &PolicyViolation{Kind: kind, Direction: direction, Policy: p, From: fromID, To: toID}
	case PolicyCustom:
		want := toID
		if direction == "previous" {
			want = fromID
		}
		for _, id := range list {
			if id == want {
				return nil
			}
		}
		return &PolicyViolation{Kind: kind, Direction: direction, Policy: p, From: fromID, To: toID}
	default:
		return &PolicyViolation{Kind: kind, Direction: direction, Policy: p, From: fromID, To: toID}
	}
}

func evalEdgePolicy(direction string, p Policy, list []EdgeRef, fromID, toID string) error {
	switch p {
	case PolicyAllowAll:
		return nil
	case PolicyAllowNone:
		return &PolicyViolation{Kind: "edge", Direction: direction, Policy: p, From: fromID, To: toID}
	case PolicyCustom:
		// Admit iff the (src, dst) pair itself appears in the list,
		// regardless of which direction triggered the check.
		for _, e := range list {
			if e.Src == fromID && e.Dst == toID {
				return nil
			}
		}
		return &PolicyViolation{Kind: "edge", Direction: direction, Policy: p, From: fromID, To: toID}
	default:
		return &PolicyViolation{Kind: "edge", Direction: direction, Policy: p, From: fromID, To: toID}
	}
}
