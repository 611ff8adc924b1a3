// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package proximity turns distance-to-target into the discrete states of a
// discovery interaction: the hidden object is revealed when the user gets
// near and can then be collected.
package proximity

import (
	"encoding/json"
	"fmt"
	"sync"
)

// DefaultNearThreshold is the reveal distance in meters. Distances strictly
// below it count as near; there is no hysteresis band, so a user standing
// on the boundary can see the state flip between updates.
const DefaultNearThreshold = 15.0

// DefaultCollectPoints is the reward for collecting the object.
const DefaultCollectPoints = 100

type State int

const (
	Far State = iota
	Near
	Collected
)

func (s State) String() string {
	switch s {
	case Far:
		return "far"
	case Near:
		return "near"
	case Collected:
		return "collected"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func (s State) MarshalJSON() ([]byte, error) { return json.Marshal(s.String()) }

func (s *State) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for _, st := range []State{Far, Near, Collected} {
		if st.String() == name {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown proximity state %q", name)
}

// Signal is emitted once per state edge.
type Signal int

const (
	Revealed Signal = iota + 1
	Hidden
	CollectedSignal
)

func (s Signal) String() string {
	switch s {
	case Revealed:
		return "revealed"
	case Hidden:
		return "hidden"
	case CollectedSignal:
		return "collected"
	default:
		return fmt.Sprintf("signal(%d)", int(s))
	}
}

func (s Signal) MarshalJSON() ([]byte, error) { return json.Marshal(s.String()) }

func (s *Signal) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for _, sig := range []Signal{Revealed, Hidden, CollectedSignal} {
		if sig.String() == name {
			*s = sig
			return nil
		}
	}
	return fmt.Errorf("unknown proximity signal %q", name)
}

// Listener is called for every emitted signal, outside the machine's lock.
type Listener func(Signal, State)

type Machine struct {
	threshold float64
	points    int

	mu       sync.Mutex
	state    State
	listener Listener
}

// New returns a machine in Far. A threshold <= 0 selects the default.
func New(threshold float64) *Machine {
	if threshold <= 0 {
		threshold = DefaultNearThreshold
	}
	return &Machine{threshold: threshold, points: DefaultCollectPoints}
}

func (m *Machine) Threshold() float64 { return m.threshold }

// SetPoints changes the reward reported after a collect.
func (m *Machine) SetPoints(points int) {
	m.mu.Lock()
	m.points = points
	m.mu.Unlock()
}

func (m *Machine) OnSignal(l Listener) {
	m.mu.Lock()
	m.listener = l
	m.mu.Unlock()
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Points is the reward earned so far: zero until collected.
func (m *Machine) Points() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Collected {
		return 0
	}
	return m.points
}

// OnDistance feeds a new distance to the target. It returns the signal for
// the edge crossed by this update, if any.
func (m *Machine) OnDistance(meters float64) (Signal, bool) {
	m.mu.Lock()
	var sig Signal
	switch {
	case m.state == Far && meters < m.threshold:
		m.state, sig = Near, Revealed
	case m.state == Near && meters >= m.threshold:
		m.state, sig = Far, Hidden
	}
	return m.emit(sig)
}

// Collect handles the external collect trigger. It only has an effect
// while Near.
func (m *Machine) Collect() (Signal, bool) {
	m.mu.Lock()
	var sig Signal
	if m.state == Near {
		m.state, sig = Collected, CollectedSignal
	}
	return m.emit(sig)
}

// emit must be called with m.mu held; it releases it.
func (m *Machine) emit(sig Signal) (Signal, bool) {
	state, l := m.state, m.listener
	m.mu.Unlock()
	if sig == 0 {
		return 0, false
	}
	if l != nil {
		l(sig, state)
	}
	return sig, true
}
