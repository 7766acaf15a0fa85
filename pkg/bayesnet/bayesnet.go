package bayesnet

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cognicore/bayesnet/pkg/bayesnet/evidence"
	"github.com/cognicore/bayesnet/pkg/bayesnet/factor"
	"github.com/cognicore/bayesnet/pkg/bayesnet/inference"
	"github.com/cognicore/bayesnet/pkg/bayesnet/inference/ve"
	"github.com/cognicore/bayesnet/pkg/bayesnet/internalerr"
	"github.com/cognicore/bayesnet/pkg/bayesnet/network"
	"github.com/cognicore/bayesnet/pkg/bayesnet/store"
)

// DefaultWorkers bounds QueryAll when Options.Workers is zero.
const DefaultWorkers = 4

// BayesNet is the main inference facade
type BayesNet struct {
	net         *network.Network
	name        string
	fingerprint string
	engine      inference.Engine
	store       store.Store
	logger      *zap.Logger
	workers     int

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

// Options configures a BayesNet instance
type Options struct {
	Network *network.Network
	Name    string
	Engine  inference.Engine // defaults to variable elimination with the min-weight heuristic
	Store   store.Store      // optional result journal
	Logger  *zap.Logger
	Workers int
}

// New creates a BayesNet instance with the given dependencies
func New(opts Options) (*BayesNet, error) {
	if opts.Network == nil {
		return nil, fmt.Errorf("%w: no network", internalerr.ErrInvalidConfig)
	}

	b := &BayesNet{
		net:         opts.Network,
		name:        opts.Name,
		fingerprint: opts.Network.Fingerprint(),
		engine:      opts.Engine,
		store:       opts.Store,
		logger:      opts.Logger,
		workers:     opts.Workers,
		entropy:     ulid.Monotonic(rand.Reader, 0),
		now:         time.Now,
	}
	if b.logger == nil {
		b.logger = zap.NewNop()
	}
	if b.engine == nil {
		b.engine = ve.New(ve.Options{Logger: b.logger})
	}
	if b.workers <= 0 {
		b.workers = DefaultWorkers
	}
	return b, nil
}

// Close cleanly shuts down the BayesNet instance
func (b *BayesNet) Close() error {
	if b.store == nil {
		return nil
	}
	return b.store.Close()
}

// Network returns the network queries run against
func (b *BayesNet) Network() *network.Network {
	return b.net
}

// Request defines a posterior query
type Request struct {
	Query    string
	Evidence evidence.Evidence
	Order    []string // explicit elimination order; nil lets the engine choose
}

func (r Request) query() inference.Query {
	return inference.Query{Variable: r.Query, Evidence: r.Evidence, Order: r.Order}
}

// Response contains the posterior of one request
type Response struct {
	ID       string
	Query    string
	Evidence evidence.Evidence
	Outcomes []factor.Outcome
	Order    []string
	Stats    inference.Stats
	Cached   bool
}

// Query answers one request. With a store configured, a request without an
// explicit order is first looked up in the journal, and every computed
// answer is recorded.
func (b *BayesNet) Query(ctx context.Context, req Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}

	key := store.ResultKey(b.fingerprint, req.Query, req.Evidence)

	if b.store != nil && req.Order == nil {
		rec, found, err := b.store.FindResult(ctx, key)
		if err != nil {
			return Response{}, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err)
		}
		if found {
			b.logger.Debug("served query from journal", zap.String("id", rec.ID), zap.String("query", req.Query))
			return fromRecord(rec), nil
		}
	}

	res, err := b.engine.Query(b.net, req.query())
	if err != nil {
		return Response{}, err
	}

	outcomes, err := res.Posterior.Distribution()
	if err != nil {
		return Response{}, err
	}

	resp := Response{
		ID:       b.newID(),
		Query:    req.Query,
		Evidence: req.Evidence.Clone(),
		Outcomes: outcomes,
		Order:    res.Order,
		Stats:    res.Stats,
	}

	if b.store != nil {
		if err := b.store.SaveResult(ctx, b.toRecord(key, resp)); err != nil {
			return Response{}, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err)
		}
	}

	b.logger.Info("answered query",
		zap.String("id", resp.ID),
		zap.String("query", req.Query),
		zap.String("evidence", req.Evidence.Key()),
		zap.Int("largest_table", res.Stats.LargestTable))

	return resp, nil
}

// QueryAll answers independent requests concurrently, bounded by the worker
// limit. Responses keep the order of reqs; the first failure cancels the rest.
func (b *BayesNet) QueryAll(ctx context.Context, reqs []Request) ([]Response, error) {
	responses := make([]Response, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			resp, err := b.Query(gctx, req)
			if err != nil {
				return fmt.Errorf("request %d (%s): %w", i, req.Query, err)
			}
			responses[i] = resp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return responses, nil
}

// History lists recorded answers for this network, newest first
func (b *BayesNet) History(ctx context.Context, limit int) ([]store.Record, error) {
	if b.store == nil {
		return nil, fmt.Errorf("%w: no store configured", internalerr.ErrStoreUnavailable)
	}
	return b.store.ListResults(ctx, b.name, limit)
}

// Result returns a recorded answer by ID
func (b *BayesNet) Result(ctx context.Context, id string) (Response, error) {
	if b.store == nil {
		return Response{}, fmt.Errorf("%w: no store configured", internalerr.ErrStoreUnavailable)
	}
	rec, found, err := b.store.GetResult(ctx, id)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err)
	}
	if !found {
		return Response{}, fmt.Errorf("%w: result %s", internalerr.ErrNotFound, id)
	}
	return fromRecord(rec), nil
}

func (b *BayesNet) newID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(b.now()), b.entropy).String()
}

func (b *BayesNet) toRecord(key string, resp Response) store.Record {
	outcomes := make([]store.Outcome, len(resp.Outcomes))
	for i, o := range resp.Outcomes {
		outcomes[i] = store.Outcome{Value: o.Value, Prob: o.Prob}
	}
	return store.Record{
		ID:          resp.ID,
		Key:         key,
		Network:     b.name,
		Fingerprint: b.fingerprint,
		Query:       resp.Query,
		Evidence:    resp.Evidence,
		Order:       resp.Order,
		Outcomes:    outcomes,
		CreatedAt:   b.now().UTC(),
	}
}

func fromRecord(rec store.Record) Response {
	outcomes := make([]factor.Outcome, len(rec.Outcomes))
	for i, o := range rec.Outcomes {
		outcomes[i] = factor.Outcome{Value: o.Value, Prob: o.Prob}
	}
	return Response{
		ID:       rec.ID,
		Query:    rec.Query,
		Evidence: evidence.Evidence(rec.Evidence),
		Outcomes: outcomes,
		Order:    rec.Order,
		Cached:   true,
	}
}
