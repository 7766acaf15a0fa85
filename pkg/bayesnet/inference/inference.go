package inference

import (
	"fmt"

	"github.com/cognicore/bayesnet/pkg/bayesnet/evidence"
	"github.com/cognicore/bayesnet/pkg/bayesnet/factor"
	"github.com/cognicore/bayesnet/pkg/bayesnet/internalerr"
	"github.com/cognicore/bayesnet/pkg/bayesnet/network"
	"github.com/cognicore/bayesnet/pkg/bayesnet/ordering"
)

// Engine computes exact posterior distributions over a network.
// This interface allows swapping implementations (variable elimination,
// brute-force enumeration, ...).
type Engine interface {
	// Query returns P(q.Variable | q.Evidence) as a normalized factor over
	// exactly the query variable.
	Query(net *network.Network, q Query) (Result, error)
}

// Query describes one posterior request
type Query struct {
	Variable string
	Evidence evidence.Evidence
	Order    []string // explicit elimination order; nil lets the engine choose
}

// Result holds a posterior and how it was obtained
type Result struct {
	Posterior *factor.Factor
	Order     []string // order actually followed, nil for engines without one
	Stats     Stats
}

// Stats records the work done for one query
type Stats struct {
	Eliminated   int // variables summed out in the main loop
	Joins        int // pairwise combine calls
	LargestTable int // rows in the biggest intermediate factor
}

// Check validates a query against the network: the query variable must
// exist and must not be observed, and the evidence must be valid.
func Check(net *network.Network, q Query) error {
	if !net.Has(q.Variable) {
		return fmt.Errorf("%w: query %q", internalerr.ErrUnknownVariable, q.Variable)
	}
	if err := evidence.Validate(net, q.Evidence); err != nil {
		return err
	}
	if v, ok := q.Evidence[q.Variable]; ok {
		return fmt.Errorf("%w: query variable %q is observed as %q", internalerr.ErrInvalidEvidence, q.Variable, v)
	}
	return nil
}

// Hidden lists, in network order, the variables a query must sum out:
// everything except the query and the observed variables.
func Hidden(net *network.Network, q Query) []string {
	var out []string
	for _, name := range net.Names() {
		if name == q.Variable {
			continue
		}
		if _, observed := q.Evidence[name]; observed {
			continue
		}
		out = append(out, name)
	}
	return out
}

// CheckOrder verifies that order only names network variables and covers
// every hidden variable of q exactly once.
func CheckOrder(net *network.Network, q Query, order []string) error {
	for _, name := range order {
		if !net.Has(name) {
			return fmt.Errorf("%w: %q in elimination order", internalerr.ErrUnknownVariable, name)
		}
	}
	return ordering.Validate(order, Hidden(net, q))
}
