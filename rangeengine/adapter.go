package rangeengine

// Adapter wraps an Engine to satisfy reduce.ReducerProcess, holding the
// restartable State internally between calls so the range engine can be
// driven by the same reducer actor code path as an out-of-process
// driver.Adapter.
type Adapter struct {
	engine *Engine
	state  *State
}

// NewAdapter returns an Adapter using rule to compute the initial range
// list.
func NewAdapter(rule RangeRule) *Adapter {
	return &Adapter{engine: New(rule)}
}

func (a *Adapter) Spawn(seedPath string) error {
	state, err := a.engine.Seed(seedPath)
	if err != nil {
		return err
	}
	a.state = state
	return nil
}

func (a *Adapter) Reduce(seedPath, destPath string) (bool, error) {
	return a.engine.Reduce(seedPath, destPath, a.state)
}

func (a *Adapter) Next(_ string) (bool, error) {
	next, err := a.engine.Next(a.state)
	if err != nil {
		return false, err
	}
	if next == nil {
		return true, nil
	}
	a.state = next
	return false, nil
}

func (a *Adapter) NextOnInteresting(_, _ string, newLen int64) (bool, error) {
	next, err := a.engine.NextOnInteresting(a.state, newLen)
	if err != nil {
		return false, err
	}
	if next == nil {
		return true, nil
	}
	a.state = next
	return false, nil
}

// FastForward is the range engine's specialization: chunk-halving state
// skips forward one chunk-size level at a time without replaying every
// intermediate window, unlike the generic O(n) default on the driver side.
func (a *Adapter) FastForward(_ string, n int) (bool, error) {
	next, err := a.engine.FastForward(a.state, n)
	if err != nil {
		return false, err
	}
	if next == nil {
		return true, nil
	}
	a.state = next
	return false, nil
}

// Shutdown is a no-op: the range engine holds no child process or file
// handles beyond the State value itself.
func (a *Adapter) Shutdown() error { return nil }
