package driver

import "encoding/json"

// Adapter wraps a Driver to satisfy reduce.ReducerProcess, threading the
// reducer script's opaque JSON state through each call internally so the
// reducer actor never has to hold or pass it itself.
type Adapter struct {
	driver *Driver
	state  json.RawMessage
}

// NewAdapter returns an Adapter for the reducer program invoked as argv.
func NewAdapter(argv []string) *Adapter {
	return &Adapter{driver: New(argv)}
}

func (a *Adapter) Spawn(seedPath string) error {
	state, err := a.driver.Spawn(seedPath)
	if err != nil {
		return err
	}
	a.state = state
	return nil
}

func (a *Adapter) Reduce(seedPath, destPath string) (bool, error) {
	return a.driver.Reduce(seedPath, destPath, a.state)
}

func (a *Adapter) Next(seedPath string) (bool, error) {
	next, err := a.driver.Next(seedPath, a.state)
	if err != nil {
		return false, err
	}
	if next == nil {
		return true, nil
	}
	a.state = next
	return false, nil
}

func (a *Adapter) NextOnInteresting(oldSeedPath, newSeedPath string, _ int64) (bool, error) {
	next, err := a.driver.NextOnInteresting(oldSeedPath, newSeedPath, a.state)
	if err != nil {
		return false, err
	}
	if next == nil {
		return true, nil
	}
	a.state = next
	return false, nil
}

func (a *Adapter) FastForward(seedPath string, n int) (bool, error) {
	next, err := a.driver.FastForward(seedPath, n, a.state)
	if err != nil {
		return false, err
	}
	if next == nil {
		return true, nil
	}
	a.state = next
	return false, nil
}

func (a *Adapter) Shutdown() error {
	return a.driver.Shutdown()
}
