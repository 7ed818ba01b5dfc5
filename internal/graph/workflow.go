package graph

// Workflow is a process-unique named, acyclic directed graph of tasks with
// per-task structural constraints.
//
// A Workflow is built up through AddTask; every other mutation (spawning a
// task mid-run) belongs to the orchestrator package's spawn service, which
// uses the lower-level InsertTask/AddEdge/AddVisualEdge/ValidateAcyclic
// primitives exposed here so it can interleave its own constraint checks
// between graph mutations.
type Workflow struct {
	id string

	tasks  map[string]Task
	order  []string // insertion order, for deterministic iteration
	edges  []EdgeRef
	visual []EdgeRef
}

// NewWorkflow creates an empty Workflow. id must be unique across the
// Orchestrator the workflow will be registered with.
func NewWorkflow(id string) *Workflow {
	return &Workflow{id: id, tasks: make(map[string]Task)}
}

// ID returns the workflow's identifier.
func (w *Workflow) ID() string { return w.id }

// HasTask reports whether id is already registered.
func (w *Workflow) HasTask(id string) bool {
	_, ok := w.tasks[id]
	return ok
}

// GetTask retrieves a registered task by id.
func (w *Workflow) GetTask(id string) (Task, bool) {
	t, ok := w.tasks[id]
	return t, ok
}

// Tasks returns all tasks in insertion order.
func (w *Workflow) Tasks() []Task {
	out := make([]Task, 0, len(w.order))
	for _, id := range w.order {
		out = append(out, w.tasks[id])
	}
	return out
}

// Edges returns the dependency edges that impose scheduling order.
func (w *Workflow) Edges() []EdgeRef {
	out := make([]EdgeRef, len(w.edges))
	copy(out, w.edges)
	return out
}

// VisualEdges returns the observation-only edges (a superset of Edges).
func (w *Workflow) VisualEdges() []EdgeRef {
	out := make([]EdgeRef, len(w.visual))
	copy(out, w.visual)
	return out
}

// Roots returns the ids of tasks with no incoming dependency edge, in
// insertion order.
func (w *Workflow) Roots() []string {
	hasIncoming := make(map[string]bool, len(w.tasks))
	for _, e := range w.edges {
		hasIncoming[e.Dst] = true
	}
	var roots []string
	for _, id := range w.order {
		if !hasIncoming[id] {
			roots = append(roots, id)
		}
	}
	return roots
}

// InsertTask registers a new task with no dependencies and no policy
// checks beyond id-uniqueness. Used by AddTask and by the spawn service,
// which performs its own node checks before calling this and its edge
// checks after.
func (w *Workflow) InsertTask(t Task) error {
	if w.HasTask(t.ID()) {
		return newError(ErrCodeAlreadyExists, "task "+t.ID()+" already registered")
	}
	w.tasks[t.ID()] = t
	w.order = append(w.order, t.ID())
	return nil
}

// AddEdge appends (src, dst) to both Edges and VisualEdges. Callers are
// responsible for running CheckNode/CheckEdge beforehand; AddEdge itself
// only requires both endpoints to already be registered.
func (w *Workflow) AddEdge(src, dst string) error {
	if !w.HasTask(src) {
		return newError(ErrCodeNotFound, "edge source "+src+" not registered")
	}
	if !w.HasTask(dst) {
		return newError(ErrCodeNotFound, "edge destination "+dst+" not registered")
	}
	w.edges = append(w.edges, EdgeRef{Src: src, Dst: dst})
	w.visual = append(w.visual, EdgeRef{Src: src, Dst: dst})
	return nil
}

// AddVisualEdge appends (src, dst) to VisualEdges only, a display
// relationship that imposes no scheduling dependency.
func (w *Workflow) AddVisualEdge(src, dst string) {
	w.visual = append(w.visual, EdgeRef{Src: src, Dst: dst})
}

// AddTask registers task, wiring it to each id in dependencies as a
// dependency edge in order, checking both the node and edge policies in
// both directions before each edge is added. A rejection does not unwind
// edges already added for earlier dependencies in the same call, and a
// cycle detected by the final ValidateAcyclic check leaves the workflow
// exactly as mutated. Callers that get a non-nil error from AddTask must
// discard the Workflow rather than keep using it.
func (w *Workflow) AddTask(task Task, dependencies ...string) error {
	if w.HasTask(task.ID()) {
		return newError(ErrCodeAlreadyExists, "task "+task.ID()+" already registered")
	}

	for _, dep := range dependencies {
		if !w.HasTask(dep) {
			return newError(ErrCodeNotFound, "dependency "+dep+" not registered")
		}
	}

	if err := w.InsertTask(task); err != nil {
		return err
	}

	for _, dep := range dependencies {
		depTask := w.tasks[dep]
		for _, direction := range []string{"next", "previous"} {
			if err := CheckNode(depTask, task, direction); err != nil {
				return wrapError(ErrCodePolicyRejected, "dependency "+dep+" -> "+task.ID(), err)
			}
		}
		for _, direction := range []string{"outgoing", "incoming"} {
			if err := CheckEdge(depTask, task, direction); err != nil {
				return wrapError(ErrCodePolicyRejected, "dependency "+dep+" -> "+task.ID(), err)
			}
		}
		if err := w.AddEdge(dep, task.ID()); err != nil {
			return err
		}
	}

	if err := w.ValidateAcyclic(); err != nil {
		return err
	}

	return nil
}

// ValidateAcyclic checks that (Tasks, Edges) is acyclic using Kahn's
// algorithm.
func (w *Workflow) ValidateAcyclic() error {
	indeg := make(map[string]int, len(w.tasks))
	adj := make(map[string][]string, len(w.tasks))
	for id := range w.tasks {
		indeg[id] = 0
	}
	for _, e := range w.edges {
		indeg[e.Dst]++
		adj[e.Src] = append(adj[e.Src], e.Dst)
	}

	queue := make([]string, 0, len(w.tasks))
	for _, id := range w.order {
		if indeg[id] == 0 {
			queue = append(queue, id)
		}
	}

	visited := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		visited++
		for _, next := range adj[id] {
			indeg[next]--
			if indeg[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if visited != len(w.tasks) {
		return newError(ErrCodeCyclicDependency, "workflow "+w.id+" contains a cycle")
	}
	return nil
}
