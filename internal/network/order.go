package network

import (
	"fmt"
	"strings"

	"github.com/nvandessel/spikenet/internal/units"
)

// Order returns the topological evaluation order: every unit appears after
// all of its inputs. Ties are broken by insertion order, so the order is
// deterministic for a given wiring.
func (n *Network) Order() ([]units.ID, error) {
	if n.order != nil {
		return append([]units.ID(nil), n.order...), nil
	}

	indegree := make([]int, len(n.units))
	consumers := make([][]units.ID, len(n.units))
	for _, u := range n.units {
		for _, in := range u.Inputs() {
			indegree[u.ID()]++
			consumers[in] = append(consumers[in], u.ID())
		}
	}

	// Kahn's algorithm; the ready set is kept sorted by ID.
	ready := make([]units.ID, 0, len(n.units))
	for id := range n.units {
		if indegree[id] == 0 {
			ready = append(ready, units.ID(id))
		}
	}

	order := make([]units.ID, 0, len(n.units))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)
		for _, c := range consumers[id] {
			indegree[c]--
			if indegree[c] == 0 {
				ready = insertSorted(ready, c)
			}
		}
	}

	if len(order) != len(n.units) {
		var stuck []string
		for id, d := range indegree {
			if d > 0 {
				stuck = append(stuck, n.names[id])
			}
		}
		return nil, fmt.Errorf("%w: %s", ErrCycle, strings.Join(stuck, ", "))
	}

	n.order = order
	return append([]units.ID(nil), order...), nil
}

func insertSorted(ids []units.ID, id units.ID) []units.ID {
	i := len(ids)
	for i > 0 && ids[i-1] > id {
		i--
	}
	ids = append(ids, 0)
	copy(ids[i+1:], ids[i:])
	ids[i] = id
	return ids
}
