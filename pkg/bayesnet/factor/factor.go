package factor

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/cognicore/bayesnet/pkg/bayesnet/internalerr"
)

// Variable is a discrete random variable with an ordered, non-empty domain.
type Variable struct {
	Name   string
	Domain []string
}

// Card returns the number of values in the domain.
func (v Variable) Card() int { return len(v.Domain) }

// Index returns the position of value in the domain, or -1.
func (v Variable) Index(value string) int {
	for i, d := range v.Domain {
		if d == value {
			return i
		}
	}
	return -1
}

func (v Variable) sameDomain(o Variable) bool {
	if len(v.Domain) != len(o.Domain) {
		return false
	}
	for i := range v.Domain {
		if v.Domain[i] != o.Domain[i] {
			return false
		}
	}
	return true
}

func (v Variable) clone() Variable {
	return Variable{Name: v.Name, Domain: append([]string(nil), v.Domain...)}
}

// Assignment maps variable names to one value each.
type Assignment map[string]string

// Row is one entry of a factor table.
type Row struct {
	Assignment Assignment
	Prob       float64
}

// Outcome is one value of a single-variable distribution.
type Outcome struct {
	Value string
	Prob  float64
}

// Factor is an immutable table over a scope of discrete variables.
// Values are stored row-major: the first scope variable varies slowest.
// A factor with an empty scope is a scalar holding exactly one value.
type Factor struct {
	vars   []Variable
	stride []int
	values []float64
}

// New builds a factor over vars from a row-major table of non-negative values.
func New(vars []Variable, values []float64) (*Factor, error) {
	seen := make(map[string]bool, len(vars))
	scope := make([]Variable, len(vars))
	for i, v := range vars {
		if err := checkVariable(v); err != nil {
			return nil, err
		}
		if seen[v.Name] {
			return nil, fmt.Errorf("%w: variable %q appears twice in scope", internalerr.ErrScopeMismatch, v.Name)
		}
		seen[v.Name] = true
		scope[i] = v.clone()
	}

	size := tableSize(scope)
	if size == math.MaxInt {
		return nil, fmt.Errorf("%w: table over %d variables is too large", internalerr.ErrResourceExceeded, len(scope))
	}
	if len(values) != size {
		return nil, fmt.Errorf("%w: scope needs %d values, got %d", internalerr.ErrInvalidInput, size, len(values))
	}
	for i, p := range values {
		if p < 0 || math.IsNaN(p) || math.IsInf(p, 0) {
			return nil, fmt.Errorf("%w: value %d is %v", internalerr.ErrInvalidInput, i, p)
		}
	}

	return build(scope, append([]float64(nil), values...)), nil
}

// Scalar returns a factor with an empty scope.
func Scalar(v float64) *Factor {
	return build(nil, []float64{v})
}

func checkVariable(v Variable) error {
	if v.Name == "" {
		return fmt.Errorf("%w: variable without a name", internalerr.ErrInvalidInput)
	}
	if len(v.Domain) == 0 {
		return fmt.Errorf("%w: variable %q has an empty domain", internalerr.ErrInvalidInput, v.Name)
	}
	values := make(map[string]bool, len(v.Domain))
	for _, d := range v.Domain {
		if values[d] {
			return fmt.Errorf("%w: variable %q repeats value %q", internalerr.ErrInvalidInput, v.Name, d)
		}
		values[d] = true
	}
	return nil
}

// build takes ownership of scope and values.
func build(scope []Variable, values []float64) *Factor {
	stride := make([]int, len(scope))
	step := 1
	for i := len(scope) - 1; i >= 0; i-- {
		stride[i] = step
		step *= scope[i].Card()
	}
	return &Factor{vars: scope, stride: stride, values: values}
}

// tableSize is the product of cardinalities, saturating at math.MaxInt.
func tableSize(vars []Variable) int {
	size := 1
	for _, v := range vars {
		c := v.Card()
		if c != 0 && size > math.MaxInt/c {
			return math.MaxInt
		}
		size *= c
	}
	return size
}

// Scope returns a copy of the factor's variables in table order.
func (f *Factor) Scope() []Variable {
	out := make([]Variable, len(f.vars))
	for i, v := range f.vars {
		out[i] = v.clone()
	}
	return out
}

// Names returns the scope variable names in table order.
func (f *Factor) Names() []string {
	out := make([]string, len(f.vars))
	for i, v := range f.vars {
		out[i] = v.Name
	}
	return out
}

// Has reports whether name is in scope.
func (f *Factor) Has(name string) bool {
	return f.pos(name) >= 0
}

// Variable returns the scope variable called name.
func (f *Factor) Variable(name string) (Variable, bool) {
	if i := f.pos(name); i >= 0 {
		return f.vars[i].clone(), true
	}
	return Variable{}, false
}

// Size returns the number of rows in the table.
func (f *Factor) Size() int { return len(f.values) }

// Sum returns the total of all rows.
func (f *Factor) Sum() float64 {
	var s float64
	for _, p := range f.values {
		s += p
	}
	return s
}

func (f *Factor) pos(name string) int {
	for i, v := range f.vars {
		if v.Name == name {
			return i
		}
	}
	return -1
}

// Value looks up the probability of a full assignment over the scope.
// Entries for variables outside the scope are ignored.
func (f *Factor) Value(a Assignment) (float64, error) {
	off := 0
	for i, v := range f.vars {
		val, ok := a[v.Name]
		if !ok {
			return 0, fmt.Errorf("%w: assignment misses %q", internalerr.ErrScopeMismatch, v.Name)
		}
		idx := v.Index(val)
		if idx < 0 {
			return 0, fmt.Errorf("%w: %q is not a value of %q", internalerr.ErrInvalidInput, val, v.Name)
		}
		off += idx * f.stride[i]
	}
	return f.values[off], nil
}

// Rows lists every table entry in row-major order.
func (f *Factor) Rows() []Row {
	rows := make([]Row, 0, len(f.values))
	c := newCounter(f.vars, f.stride)
	for {
		a := make(Assignment, len(f.vars))
		for d, v := range f.vars {
			a[v.Name] = v.Domain[c.digits[d]]
		}
		rows = append(rows, Row{Assignment: a, Prob: f.values[c.offs[0]]})
		if !c.next() {
			break
		}
	}
	return rows
}

// Distribution returns the rows of a single-variable factor as outcomes
// in domain order.
func (f *Factor) Distribution() ([]Outcome, error) {
	if len(f.vars) != 1 {
		return nil, fmt.Errorf("%w: distribution needs exactly one variable, scope is %v",
			internalerr.ErrScopeMismatch, f.Names())
	}
	out := make([]Outcome, len(f.values))
	for i, val := range f.vars[0].Domain {
		out[i] = Outcome{Value: val, Prob: f.values[i]}
	}
	return out, nil
}

// Reduce restricts the factor to rows consistent with evidence and drops the
// observed variables from the scope. Evidence on variables outside the scope
// is ignored. No renormalization is applied.
func (f *Factor) Reduce(evidence map[string]string) (*Factor, error) {
	base := 0
	observed := false
	var rest []Variable
	var restStride []int
	for i, v := range f.vars {
		val, ok := evidence[v.Name]
		if !ok {
			rest = append(rest, v)
			restStride = append(restStride, f.stride[i])
			continue
		}
		idx := v.Index(val)
		if idx < 0 {
			return nil, fmt.Errorf("%w: %q is not a value of %q", internalerr.ErrInvalidEvidence, val, v.Name)
		}
		base += idx * f.stride[i]
		observed = true
	}
	if !observed {
		return f, nil
	}

	out := make([]float64, tableSize(rest))
	c := newCounter(rest, restStride)
	for i := range out {
		out[i] = f.values[base+c.offs[0]]
		c.next()
	}
	return build(rest, out), nil
}

// Combine joins two factors: the result scope is the union of both scopes
// (receiver's variables first) and each row is the product of the agreeing
// source rows.
func (f *Factor) Combine(g *Factor) (*Factor, error) {
	union, err := unionScope(f, g)
	if err != nil {
		return nil, err
	}
	size := tableSize(union)
	if size == math.MaxInt {
		return nil, fmt.Errorf("%w: join over %d variables is too large", internalerr.ErrResourceExceeded, len(union))
	}

	out := make([]float64, size)
	c := newCounter(union, f.strideIn(union), g.strideIn(union))
	for i := range out {
		out[i] = f.values[c.offs[0]] * g.values[c.offs[1]]
		c.next()
	}
	return build(union, out), nil
}

// SumOut marginalizes name out of the factor.
func (f *Factor) SumOut(name string) (*Factor, error) {
	p := f.pos(name)
	if p < 0 {
		return nil, fmt.Errorf("%w: cannot sum out %q from scope %v", internalerr.ErrScopeMismatch, name, f.Names())
	}

	rest := make([]Variable, 0, len(f.vars)-1)
	rest = append(rest, f.vars[:p]...)
	rest = append(rest, f.vars[p+1:]...)
	res := build(rest, make([]float64, tableSize(rest)))

	c := newCounter(f.vars, res.strideIn(f.vars))
	for _, val := range f.values {
		res.values[c.offs[0]] += val
		c.next()
	}
	return res, nil
}

// Normalize scales the table so it sums to one.
func (f *Factor) Normalize() (*Factor, error) {
	sum := f.Sum()
	if sum <= 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		return nil, fmt.Errorf("%w: table over %v sums to %v", internalerr.ErrDegenerateDistribution, f.Names(), sum)
	}
	out := make([]float64, len(f.values))
	for i, p := range f.values {
		out[i] = p / sum
	}
	return build(f.vars, out), nil
}

// JoinSize returns the row count of the factor that combining fs would produce,
// saturating at math.MaxInt.
func JoinSize(fs ...*Factor) (int, error) {
	var union []Variable
	for _, f := range fs {
		next, err := mergeScope(union, f.vars)
		if err != nil {
			return 0, err
		}
		union = next
	}
	return tableSize(union), nil
}

// ApproxEqual reports whether a and b describe the same table up to tol,
// regardless of the order of their scope variables.
func ApproxEqual(a, b *Factor, tol float64) bool {
	if len(a.vars) != len(b.vars) {
		return false
	}
	for _, v := range a.vars {
		w, ok := b.Variable(v.Name)
		if !ok || !v.sameDomain(w) {
			return false
		}
	}
	for _, row := range a.Rows() {
		p, err := b.Value(row.Assignment)
		if err != nil || math.Abs(p-row.Prob) > tol {
			return false
		}
	}
	return true
}

// String renders one row per line, for debugging.
func (f *Factor) String() string {
	var sb strings.Builder
	for _, row := range f.Rows() {
		names := make([]string, 0, len(row.Assignment))
		for n := range row.Assignment {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			fmt.Fprintf(&sb, "%s=%s ", n, row.Assignment[n])
		}
		fmt.Fprintf(&sb, "%.6f\n", row.Prob)
	}
	return sb.String()
}

// strideIn returns, for each of vars, its stride in f (zero when absent).
func (f *Factor) strideIn(vars []Variable) []int {
	out := make([]int, len(vars))
	for i, v := range vars {
		if p := f.pos(v.Name); p >= 0 {
			out[i] = f.stride[p]
		}
	}
	return out
}

func unionScope(f, g *Factor) ([]Variable, error) {
	union := append([]Variable(nil), f.vars...)
	return mergeScope(union, g.vars)
}

func mergeScope(union []Variable, vars []Variable) ([]Variable, error) {
	for _, v := range vars {
		found := false
		for _, u := range union {
			if u.Name != v.Name {
				continue
			}
			if !u.sameDomain(v) {
				return nil, fmt.Errorf("%w: variable %q has domains %v and %v",
					internalerr.ErrScopeMismatch, v.Name, u.Domain, v.Domain)
			}
			found = true
			break
		}
		if !found {
			union = append(union, v)
		}
	}
	return union, nil
}
