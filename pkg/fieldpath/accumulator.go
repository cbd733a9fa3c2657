package fieldpath

// Accumulator is a mutable segment stack owned by one recursive walk. It is
// not safe for concurrent use; each walk creates its own.
type Accumulator struct {
	segs []Segment
}

// NewAccumulator returns an accumulator positioned at the root.
func NewAccumulator() *Accumulator {
	return &Accumulator{segs: make([]Segment, 0, 8)}
}

// PushField descends into a field.
func (a *Accumulator) PushField(name string) {
	a.segs = append(a.segs, Field(name))
}

// PushIndex descends into an array element.
func (a *Accumulator) PushIndex(i int) {
	a.segs = append(a.segs, Index(i))
}

// Pop removes the last segment. Popping the root panics since it means a push
// and pop were not paired.
func (a *Accumulator) Pop() {
	if len(a.segs) == 0 {
		panic("fieldpath: pop on root")
	}
	a.segs = a.segs[:len(a.segs)-1]
}

// Depth returns the number of segments on the stack.
func (a *Accumulator) Depth() int {
	return len(a.segs)
}

// Path snapshots the current stack as an immutable Path.
func (a *Accumulator) Path() Path {
	return Of(a.segs...)
}

// String renders the current stack.
func (a *Accumulator) String() string {
	return render(a.segs)
}

// WithField runs fn with name pushed and pops it on every exit path.
func (a *Accumulator) WithField(name string, fn func() error) error {
	a.PushField(name)
	defer a.Pop()
	return fn()
}

// WithIndex runs fn with index i pushed and pops it on every exit path.
func (a *Accumulator) WithIndex(i int, fn func() error) error {
	a.PushIndex(i)
	defer a.Pop()
	return fn()
}
