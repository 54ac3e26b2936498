package health

import "sync/atomic"

// Gate holds the readiness flag the gateway exposes.
//
// ready starts false, flips true just before the consume loop begins claiming
// records, and flips false as the first step of shutdown so load balancers
// stop routing probes to a draining instance. The consume loop itself observes
// shutdown through context cancellation, not the gate.
type Gate struct {
	ready atomic.Bool
}

// NewGate creates a gate in the not-ready state.
func NewGate() *Gate {
	return &Gate{}
}

// SetReady flips the readiness flag.
func (g *Gate) SetReady(v bool) {
	g.ready.Store(v)
}

// Ready reports whether the gateway is accepting work.
func (g *Gate) Ready() bool {
	return g.ready.Load()
}

// Stop marks the gateway as draining.
func (g *Gate) Stop() {
	g.ready.Store(false)
}
