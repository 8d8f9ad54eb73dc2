package circuit

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/juju/loggo/v2"

	"onionnet/internal/domain"
)

// DefaultPathLength is the number of hops of every circuit.
const DefaultPathLength = 3

var log = loggo.GetLogger("onionnet.circuit")

// ErrPathLength is returned for a non-positive path length.
var ErrPathLength = errors.New("path length must be positive")

// Lister is the part of the directory the selector needs.
type Lister interface {
	ListNodes(ctx context.Context) ([]domain.Node, error)
}

// Source yields uniformly distributed floats in [0, 1). A *rand.Rand from
// math/rand/v2 satisfies it; it is only used under the tracker's lock.
type Source interface {
	Float64() float64
}

type globalSource struct{}

func (globalSource) Float64() float64 { return rand.Float64() }

// Selector draws circuits from a directory.
type Selector struct {
	dir   Lister
	usage *UsageTracker
	src   Source
}

// NewSelector returns a selector drawing from dir and weighting by usage.
// A nil src uses the process-wide random source.
func NewSelector(dir Lister, usage *UsageTracker, src Source) *Selector {
	if src == nil {
		src = globalSource{}
	}
	return &Selector{dir: dir, usage: usage, src: src}
}

// Select fetches the current membership and draws a circuit of exactly
// pathLength nodes.
func (s *Selector) Select(ctx context.Context, pathLength int) (domain.Circuit, error) {
	nodes, err := s.dir.ListNodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}
	c, err := Pick(nodes, pathLength, s.usage, s.src)
	if err != nil {
		return nil, err
	}
	log.Debugf("circuit %v from %d nodes", c.IDs(), len(nodes))
	return c, nil
}

// Pick draws pathLength nodes from nodes. Each draw is a roulette over the
// remaining candidates weighted by 1/(uses+1); the drawn entry leaves the
// pool unless it is the last one, and its usage count is incremented before
// the next draw.
func Pick(nodes []domain.Node, pathLength int, usage *UsageTracker, src Source) (domain.Circuit, error) {
	if pathLength <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrPathLength, pathLength)
	}
	if len(nodes) == 0 {
		return nil, domain.ErrEmptyDirectory
	}
	if usage == nil {
		usage = NewUsageTracker()
	}

	pool := make([]domain.Node, len(nodes), max(len(nodes), pathLength))
	copy(pool, nodes)
	for i := 0; len(pool) < pathLength; i++ {
		pool = append(pool, nodes[i%len(nodes)])
	}

	usage.mtx.Lock()
	defer usage.mtx.Unlock()

	circuit := make(domain.Circuit, 0, pathLength)
	weights := make([]float64, len(pool))
	for len(circuit) < pathLength {
		var total float64
		weights = weights[:len(pool)]
		for i := range pool {
			weights[i] = usage.weight(pool[i].NodeID)
			total += weights[i]
		}

		// Rounding may leave r marginally positive after the last
		// candidate; that candidate wins.
		chosen := len(pool) - 1
		r := total * src.Float64()
		for i, w := range weights {
			r -= w
			if r <= 0 {
				chosen = i
				break
			}
		}

		node := pool[chosen]
		circuit = append(circuit, node)
		usage.counts[node.NodeID]++

		if len(pool) > 1 {
			pool = append(pool[:chosen], pool[chosen+1:]...)
		}
	}
	return circuit, nil
}
