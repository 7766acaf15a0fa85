package ve

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cognicore/bayesnet/pkg/bayesnet/evidence"
	"github.com/cognicore/bayesnet/pkg/bayesnet/factor"
	"github.com/cognicore/bayesnet/pkg/bayesnet/inference"
	"github.com/cognicore/bayesnet/pkg/bayesnet/internalerr"
	"github.com/cognicore/bayesnet/pkg/bayesnet/network"
	"github.com/cognicore/bayesnet/pkg/bayesnet/ordering"
)

// Engine answers queries by variable elimination. It keeps no per-query
// state, so one Engine may serve concurrent queries.
type Engine struct {
	orderer ordering.Orderer
	maxSize int
	logger  *zap.Logger
}

// Options configures an Engine
type Options struct {
	Orderer       ordering.Orderer // defaults to ordering.MinWeight
	MaxFactorSize int              // row limit for any joined factor; 0 means unlimited
	Logger        *zap.Logger
}

// New creates a variable elimination engine
func New(opts Options) *Engine {
	e := &Engine{
		orderer: opts.Orderer,
		maxSize: opts.MaxFactorSize,
		logger:  opts.Logger,
	}
	if e.orderer == nil {
		e.orderer = ordering.MinWeight{}
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	return e
}

// Query implements inference.Engine.
func (e *Engine) Query(net *network.Network, q inference.Query) (inference.Result, error) {
	if err := inference.Check(net, q); err != nil {
		return inference.Result{}, err
	}

	working, err := evidence.ReduceAll(net.Factors(), q.Evidence)
	if err != nil {
		return inference.Result{}, err
	}

	order, err := e.order(net, q, working)
	if err != nil {
		return inference.Result{}, err
	}

	var stats inference.Stats
	for _, name := range order {
		if name == q.Variable {
			continue
		}

		var with, without []*factor.Factor
		for _, f := range working {
			if f.Has(name) {
				with = append(with, f)
			} else {
				without = append(without, f)
			}
		}
		if len(with) == 0 {
			continue
		}

		joined, err := e.join(with, &stats)
		if err != nil {
			return inference.Result{}, fmt.Errorf("eliminate %q: %w", name, err)
		}
		summed, err := joined.SumOut(name)
		if err != nil {
			return inference.Result{}, fmt.Errorf("eliminate %q: %w", name, err)
		}
		working = append(without, summed)
		stats.Eliminated++

		e.logger.Debug("eliminated variable",
			zap.String("variable", name),
			zap.Int("factors", len(with)),
			zap.Int("rows", joined.Size()),
			zap.Strings("scope", summed.Names()))
	}

	posterior, err := e.finalize(working, q.Variable, &stats)
	if err != nil {
		return inference.Result{}, err
	}

	return inference.Result{Posterior: posterior, Order: order, Stats: stats}, nil
}

// order returns the explicit order of q or asks the orderer for one, and
// checks it covers every hidden variable.
func (e *Engine) order(net *network.Network, q inference.Query, working []*factor.Factor) ([]string, error) {
	order := append([]string(nil), q.Order...)
	if q.Order == nil {
		exclude := map[string]bool{q.Variable: true}
		for name := range q.Evidence {
			exclude[name] = true
		}
		order = e.orderer.Order(working, exclude)
	}

	if err := inference.CheckOrder(net, q, order); err != nil {
		return nil, err
	}
	return order, nil
}

// finalize folds whatever is left (the query factor plus any factors from
// components disconnected by evidence), sums out everything but the query
// and normalizes.
func (e *Engine) finalize(working []*factor.Factor, query string, stats *inference.Stats) (*factor.Factor, error) {
	joined, err := e.join(working, stats)
	if err != nil {
		return nil, fmt.Errorf("finalize %q: %w", query, err)
	}
	for _, name := range joined.Names() {
		if name == query {
			continue
		}
		if joined, err = joined.SumOut(name); err != nil {
			return nil, fmt.Errorf("finalize %q: %w", query, err)
		}
	}
	if !joined.Has(query) {
		return nil, fmt.Errorf("%w: final factor %v lost query %q", internalerr.ErrScopeMismatch, joined.Names(), query)
	}
	return joined.Normalize()
}

// join left-folds fs with Combine after checking the result fits the limit.
func (e *Engine) join(fs []*factor.Factor, stats *inference.Stats) (*factor.Factor, error) {
	if len(fs) == 0 {
		return factor.Scalar(1), nil
	}

	size, err := factor.JoinSize(fs...)
	if err != nil {
		return nil, err
	}
	if e.maxSize > 0 && size > e.maxSize {
		return nil, fmt.Errorf("%w: join needs %d rows, limit is %d", internalerr.ErrResourceExceeded, size, e.maxSize)
	}

	acc := fs[0]
	for _, f := range fs[1:] {
		if acc, err = acc.Combine(f); err != nil {
			return nil, err
		}
		stats.Joins++
	}
	if acc.Size() > stats.LargestTable {
		stats.LargestTable = acc.Size()
	}
	return acc, nil
}
