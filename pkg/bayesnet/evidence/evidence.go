package evidence

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cognicore/bayesnet/pkg/bayesnet/factor"
	"github.com/cognicore/bayesnet/pkg/bayesnet/internalerr"
	"github.com/cognicore/bayesnet/pkg/bayesnet/network"
)

// Evidence maps observed variables to their values. It stays fixed for the
// duration of one query.
type Evidence map[string]string

// Parse reads evidence written as "Var=value,Other=value".
// Whitespace around names and values is trimmed; an empty string is no evidence.
func Parse(s string) (Evidence, error) {
	ev := Evidence{}
	s = strings.TrimSpace(s)
	if s == "" {
		return ev, nil
	}

	for _, part := range strings.Split(s, ",") {
		name, value, ok := strings.Cut(part, "=")
		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)
		if !ok || name == "" || value == "" {
			return nil, fmt.Errorf("%w: expected Var=value, got %q", internalerr.ErrInvalidInput, part)
		}
		if prev, dup := ev[name]; dup && prev != value {
			return nil, fmt.Errorf("%w: %q observed as both %q and %q", internalerr.ErrInvalidEvidence, name, prev, value)
		}
		ev[name] = value
	}
	return ev, nil
}

// Names returns the observed variables sorted by name.
func (e Evidence) Names() []string {
	out := make([]string, 0, len(e))
	for name := range e {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Clone returns an independent copy; nil stays nil.
func (e Evidence) Clone() Evidence {
	if e == nil {
		return nil
	}
	out := make(Evidence, len(e))
	for name, value := range e {
		out[name] = value
	}
	return out
}

// Key is a canonical rendering, identical for equal evidence.
func (e Evidence) Key() string {
	var sb strings.Builder
	for i, name := range e.Names() {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(name)
		sb.WriteByte('=')
		sb.WriteString(e[name])
	}
	return sb.String()
}

// Validate checks every observation against the network.
func Validate(net *network.Network, e Evidence) error {
	for _, name := range e.Names() {
		v, ok := net.Variable(name)
		if !ok {
			return fmt.Errorf("%w: evidence on %q", internalerr.ErrUnknownVariable, name)
		}
		if v.Index(e[name]) < 0 {
			return fmt.Errorf("%w: %q is not a value of %q (domain %v)",
				internalerr.ErrInvalidEvidence, e[name], name, v.Domain)
		}
	}
	return nil
}

// ReduceAll restricts every factor to the observations and returns the new
// working set. The input factors are left untouched.
func ReduceAll(factors []*factor.Factor, e Evidence) ([]*factor.Factor, error) {
	out := make([]*factor.Factor, len(factors))
	for i, f := range factors {
		r, err := f.Reduce(e)
		if err != nil {
			return nil, fmt.Errorf("reduce factor over %v: %w", f.Names(), err)
		}
		out[i] = r
	}
	return out, nil
}
