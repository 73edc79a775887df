// Package dirty provides containers that remember whether they have been
// modified since their owner last persisted them.
package dirty

import "sync/atomic"

// Flag is a shared dirty marker. Several containers may point at the same
// Flag so that a composite record reports dirtiness through one cell.
// Containers only ever set it; clearing is the owner's job.
type Flag struct {
	v atomic.Bool
}

func NewFlag(initial bool) *Flag {
	f := &Flag{}
	f.v.Store(initial)
	return f
}

func (f *Flag) Get() bool {
	return f.v.Load()
}

func (f *Flag) Set(b bool) {
	f.v.Store(b)
}

// Mark sets the flag.
func (f *Flag) Mark() {
	f.v.Store(true)
}

// Clear resets the flag, typically after a successful flush.
func (f *Flag) Clear() {
	f.v.Store(false)
}
