package graph

// Policy governs admissibility of a candidate node relation or edge
// relation.
type Policy string

const (
	PolicyAllowAll  Policy = "allow_all"
	PolicyAllowNone Policy = "allow_none"
	PolicyCustom    Policy = "custom"
)

func (p Policy) isValid() bool {
	switch p {
	case PolicyAllowAll, PolicyAllowNone, PolicyCustom:
		return true
	default:
		return false
	}
}

// EdgeRef is an ordered (src, dst) task-id pair, as held by the edge-policy
// lists and the workflow's edge lists.
type EdgeRef struct {
	Src string
	Dst string
}

// Constraint is a per-task structural constraint record: an optional spawn
// quota plus four (policy, list) pairs gating node and edge admissibility. It is value-like and read-only once constructed — the
// constructor is the only place well-formedness is checked.
type Constraint struct {
	maxSpawnCount *int

	nextNodesPolicy Policy
	nextNodes       []string

	prevNodesPolicy Policy
	prevNodes       []string

	outgoingEdgesPolicy Policy
	outgoingEdges       []EdgeRef

	incomingEdgesPolicy Policy
	incomingEdges       []EdgeRef
}

// ConstraintOption configures a Constraint built by NewConstraint.
type ConstraintOption func(*Constraint)

// WithMaxSpawnCount caps how many tasks this task may spawn. Omit for
// unlimited.
func WithMaxSpawnCount(n int) ConstraintOption {
	return func(c *Constraint) { c.maxSpawnCount = &n }
}

// WithNextNodesPolicy sets this task's valid-next-nodes policy: which
// task ids it is allowed to spawn or feed into.
func WithNextNodesPolicy(p Policy, ids ...string) ConstraintOption {
	return func(c *Constraint) { c.nextNodesPolicy = p; c.nextNodes = ids }
}

// WithPreviousNodesPolicy sets this task's valid-previous-nodes policy:
// which task ids are allowed to spawn it or precede it.
func WithPreviousNodesPolicy(p Policy, ids ...string) ConstraintOption {
	return func(c *Constraint) { c.prevNodesPolicy = p; c.prevNodes = ids }
}

// WithOutgoingEdgesPolicy sets this task's valid-outgoing-edges policy.
func WithOutgoingEdgesPolicy(p Policy, edges ...EdgeRef) ConstraintOption {
	return func(c *Constraint) { c.outgoingEdgesPolicy = p; c.outgoingEdges = edges }
}

// WithIncomingEdgesPolicy sets this task's valid-incoming-edges policy.
func WithIncomingEdgesPolicy(p Policy, edges ...EdgeRef) ConstraintOption {
	return func(c *Constraint) { c.incomingEdgesPolicy = p; c.incomingEdges = edges }
}

// NewConstraint builds a Constraint, applying opts over the all-allowed
// default, then validates it. Any failure returns a *graph.Error (code
// ErrCodeInvalidConstraint) and no Constraint.
func NewConstraint(opts ...ConstraintOption) (Constraint, error) {
	c := Constraint{
		nextNodesPolicy:     PolicyAllowAll,
		prevNodesPolicy:     PolicyAllowAll,
		outgoingEdgesPolicy: PolicyAllowAll,
		incomingEdgesPolicy: PolicyAllowAll,
	}
	for _, opt := range opts {
		opt(&c)
	}
	if err := c.validate(); err != nil {
		return Constraint{}, err
	}
	return c, nil
}

func (c *Constraint) validate() error {
	if c.maxSpawnCount != nil && *c.maxSpawnCount < 0 {
		return newError(ErrCodeInvalidConstraint, "max_spawn_count must be >= 0")
	}

	if !c.nextNodesPolicy.isValid() {
		return newError(ErrCodeInvalidConstraint, "valid_next_nodes_policy must be allow_all, allow_none or custom")
	}
	if !c.prevNodesPolicy.isValid() {
		return newError(ErrCodeInvalidConstraint, "valid_previous_nodes_policy must be allow_all, allow_none or custom")
	}
	if !c.outgoingEdgesPolicy.isValid() {
		return newError(ErrCodeInvalidConstraint, "valid_outgoing_edges_policy must be allow_all, allow_none or custom")
	}
	if !c.incomingEdgesPolicy.isValid() {
		return newError(ErrCodeInvalidConstraint, "valid_incoming_edges_policy must be allow_all, allow_none or custom")
	}

	if err := validateListPolicy("valid_next_nodes_policy", c.nextNodesPolicy, len(c.nextNodes)); err != nil {
		return err
	}
	if err := validateListPolicy("valid_previous_nodes_policy", c.prevNodesPolicy, len(c.prevNodes)); err != nil {
		return err
	}
	if err := validateListPolicy("valid_outgoing_edges_policy", c.outgoingEdgesPolicy, len(c.outgoingEdges)); err != nil {
		return err
	}
	if err := validateListPolicy("valid_incoming_edges_policy", c.incomingEdgesPolicy, len(c.incomingEdges)); err != nil {
		return err
	}
	return nil
}

// validateListPolicy enforces the (policy, list) pairing rule: allow_none
// requires an empty list, custom requires a non-empty list, allow_all
// ignores the list.
func validateListPolicy(field string, p Policy, listLen int) error {
	switch p {
	case PolicyAllowNone:
		if listLen != 0 {
			return newError(ErrCodeInvalidConstraint, field+": allow_none cannot take a non-empty list")
		}
	case PolicyCustom:
		if listLen == 0 {
			return newError(ErrCodeInvalidConstraint, field+": custom policy requires a non-empty list")
		}
	}
	return nil
}

// MaxSpawnCount returns the spawn cap and whether one is set.
func (c Constraint) MaxSpawnCount() (int, bool) {
	if c.maxSpawnCount == nil {
		return 0, false
	}
	return *c.maxSpawnCount, true
}

// NextNodes returns the valid-next-nodes policy and list, for observers
// that want to render tentative (not-yet-materialized) nodes implied by a
// custom policy.
func (c Constraint) NextNodes() (Policy, []string) {
	return c.nextNodesPolicy, c.nextNodes
}
