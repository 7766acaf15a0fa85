// Package enum answers queries by building the full joint distribution.
// It is exponential in the number of variables and only suits small
// networks, where it serves as a reference for faster engines.
package enum

import (
	"fmt"

	"github.com/cognicore/bayesnet/pkg/bayesnet/factor"
	"github.com/cognicore/bayesnet/pkg/bayesnet/inference"
	"github.com/cognicore/bayesnet/pkg/bayesnet/internalerr"
	"github.com/cognicore/bayesnet/pkg/bayesnet/network"
)

// DefaultMaxJoint caps the joint table when no limit is given.
const DefaultMaxJoint = 1 << 20

// Engine enumerates the joint distribution.
type Engine struct {
	maxJoint int
}

// New creates an enumeration engine whose joint table may hold at most
// maxJoint rows. Zero selects DefaultMaxJoint.
func New(maxJoint int) *Engine {
	if maxJoint <= 0 {
		maxJoint = DefaultMaxJoint
	}
	return &Engine{maxJoint: maxJoint}
}

// Query implements inference.Engine.
func (e *Engine) Query(net *network.Network, q inference.Query) (inference.Result, error) {
	if err := inference.Check(net, q); err != nil {
		return inference.Result{}, err
	}
	// The joint needs no order, but an explicit one must still be valid.
	if q.Order != nil {
		if err := inference.CheckOrder(net, q, q.Order); err != nil {
			return inference.Result{}, err
		}
	}

	cpts := net.Factors()
	size, err := factor.JoinSize(cpts...)
	if err != nil {
		return inference.Result{}, err
	}
	if size > e.maxJoint {
		return inference.Result{}, fmt.Errorf("%w: joint needs %d rows, limit is %d",
			internalerr.ErrResourceExceeded, size, e.maxJoint)
	}

	joint := factor.Scalar(1)
	for _, f := range cpts {
		if joint, err = joint.Combine(f); err != nil {
			return inference.Result{}, err
		}
	}

	stats := inference.Stats{Joins: len(cpts), LargestTable: joint.Size()}

	marginal, err := joint.Reduce(q.Evidence)
	if err != nil {
		return inference.Result{}, err
	}
	for _, name := range inference.Hidden(net, q) {
		if marginal, err = marginal.SumOut(name); err != nil {
			return inference.Result{}, err
		}
		stats.Eliminated++
	}

	posterior, err := marginal.Normalize()
	if err != nil {
		return inference.Result{}, err
	}
	return inference.Result{Posterior: posterior, Stats: stats}, nil
}
