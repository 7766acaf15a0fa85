package ordering

import (
	"fmt"
	"math"
	"sort"

	"github.com/cognicore/bayesnet/pkg/bayesnet/factor"
	"github.com/cognicore/bayesnet/pkg/bayesnet/internalerr"
)

// Orderer chooses the sequence in which variables are summed out.
// Implementations must be deterministic and safe for concurrent use.
type Orderer interface {
	// Order returns every variable mentioned by factors that is not in
	// exclude, each exactly once.
	Order(factors []*factor.Factor, exclude map[string]bool) []string
}

// MinWeight greedily picks the variable whose elimination creates the
// smallest table: the product of the cardinalities of every variable that
// shares a factor with it. Ties go to the lexically smallest name.
type MinWeight struct{}

// Order implements Orderer.
func (MinWeight) Order(factors []*factor.Factor, exclude map[string]bool) []string {
	return greedy(factors, exclude, func(union map[string]bool, cards map[string]int) int {
		w := 1
		for name := range union {
			c := cards[name]
			if c != 0 && w > math.MaxInt/c {
				return math.MaxInt
			}
			w *= c
		}
		return w
	})
}

// MinNeighbors greedily picks the variable that shares factors with the
// fewest other variables, ignoring their cardinalities.
type MinNeighbors struct{}

// Order implements Orderer.
func (MinNeighbors) Order(factors []*factor.Factor, exclude map[string]bool) []string {
	return greedy(factors, exclude, func(union map[string]bool, _ map[string]int) int {
		return len(union)
	})
}

// Fixed always returns the same order. The engine still validates it
// against the variables that need eliminating.
type Fixed []string

// Order implements Orderer.
func (f Fixed) Order([]*factor.Factor, map[string]bool) []string {
	return append([]string(nil), f...)
}

// ByName returns the heuristic registered under name. The empty name
// selects MinWeight.
func ByName(name string) (Orderer, error) {
	switch name {
	case "", "min-weight":
		return MinWeight{}, nil
	case "min-neighbors":
		return MinNeighbors{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown ordering heuristic %q", internalerr.ErrInvalidConfig, name)
	}
}

type weightFunc func(union map[string]bool, cards map[string]int) int

func greedy(factors []*factor.Factor, exclude map[string]bool, weight weightFunc) []string {
	cards := make(map[string]int)
	scopes := make([]map[string]bool, 0, len(factors))
	candidates := make(map[string]bool)
	for _, f := range factors {
		scope := make(map[string]bool)
		for _, v := range f.Scope() {
			cards[v.Name] = v.Card()
			scope[v.Name] = true
			if !exclude[v.Name] {
				candidates[v.Name] = true
			}
		}
		scopes = append(scopes, scope)
	}

	order := make([]string, 0, len(candidates))
	for len(candidates) > 0 {
		names := make([]string, 0, len(candidates))
		for name := range candidates {
			names = append(names, name)
		}
		sort.Strings(names)

		best, bestWeight := "", 0
		for _, name := range names {
			w := weight(involved(scopes, name), cards)
			if best == "" || w < bestWeight {
				best, bestWeight = name, w
			}
		}

		order = append(order, best)
		delete(candidates, best)
		scopes = eliminate(scopes, best)
	}
	return order
}

// involved is the union of every scope that mentions name.
func involved(scopes []map[string]bool, name string) map[string]bool {
	union := make(map[string]bool)
	for _, s := range scopes {
		if !s[name] {
			continue
		}
		for v := range s {
			union[v] = true
		}
	}
	return union
}

// eliminate replaces every scope mentioning name by their union without name,
// mirroring the factor the elimination loop will produce.
func eliminate(scopes []map[string]bool, name string) []map[string]bool {
	merged := involved(scopes, name)
	delete(merged, name)

	rest := make([]map[string]bool, 0, len(scopes))
	for _, s := range scopes {
		if !s[name] {
			rest = append(rest, s)
		}
	}
	if len(merged) > 0 {
		rest = append(rest, merged)
	}
	return rest
}

// Validate checks that order names every required variable exactly once.
// Names outside required are allowed; the engine skips them.
func Validate(order []string, required []string) error {
	need := make(map[string]bool, len(required))
	for _, name := range required {
		need[name] = true
	}

	seen := make(map[string]bool, len(order))
	for _, name := range order {
		if seen[name] && need[name] {
			return fmt.Errorf("%w: %q appears more than once", internalerr.ErrIncompleteOrder, name)
		}
		seen[name] = true
	}

	var missing []string
	for _, name := range required {
		if !seen[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%w: missing %v", internalerr.ErrIncompleteOrder, missing)
	}
	return nil
}
