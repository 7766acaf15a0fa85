package network

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cognicore/bayesnet/pkg/bayesnet/factor"
	"github.com/cognicore/bayesnet/pkg/bayesnet/internalerr"
)

// cptTolerance bounds how far a CPT column may drift from summing to one.
const cptTolerance = 1e-6

// Node describes one variable of a network together with its CPT.
// The CPT scope must be exactly the parents plus the variable itself.
type Node struct {
	Variable factor.Variable
	Parents  []string
	CPT      *factor.Factor
}

// Network is a validated, read-only Bayesian network.
type Network struct {
	nodes []Node
	index map[string]int
}

// New validates nodes and builds a network. Any structural problem is
// reported as internalerr.ErrMalformedNetwork; no partial network is returned.
func New(nodes []Node) (*Network, error) {
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: no variables", internalerr.ErrMalformedNetwork)
	}

	n := &Network{
		nodes: make([]Node, len(nodes)),
		index: make(map[string]int, len(nodes)),
	}
	for i, node := range nodes {
		name := node.Variable.Name
		if name == "" {
			return nil, fmt.Errorf("%w: variable %d has no name", internalerr.ErrMalformedNetwork, i)
		}
		if _, dup := n.index[name]; dup {
			return nil, fmt.Errorf("%w: variable %q declared twice", internalerr.ErrMalformedNetwork, name)
		}
		n.index[name] = i
		n.nodes[i] = Node{
			Variable: factor.Variable{Name: name, Domain: append([]string(nil), node.Variable.Domain...)},
			Parents:  append([]string(nil), node.Parents...),
			CPT:      node.CPT,
		}
	}

	for _, node := range n.nodes {
		if err := n.checkNode(node); err != nil {
			return nil, err
		}
	}
	if err := n.checkAcyclic(); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *Network) checkNode(node Node) error {
	name := node.Variable.Name
	if len(node.Variable.Domain) == 0 {
		return fmt.Errorf("%w: variable %q has an empty domain", internalerr.ErrMalformedNetwork, name)
	}

	seen := map[string]bool{name: true}
	for _, p := range node.Parents {
		if _, ok := n.index[p]; !ok {
			return fmt.Errorf("%w: %q lists unknown parent %q", internalerr.ErrMalformedNetwork, name, p)
		}
		if seen[p] {
			return fmt.Errorf("%w: %q lists parent %q twice or as itself", internalerr.ErrMalformedNetwork, name, p)
		}
		seen[p] = true
	}

	if node.CPT == nil {
		return fmt.Errorf("%w: %q has no CPT", internalerr.ErrMalformedNetwork, name)
	}
	scope := node.CPT.Names()
	if len(scope) != len(seen) {
		return fmt.Errorf("%w: CPT of %q has scope %v, want %v plus itself",
			internalerr.ErrMalformedNetwork, name, scope, node.Parents)
	}
	for _, s := range scope {
		if !seen[s] {
			return fmt.Errorf("%w: CPT of %q mentions %q", internalerr.ErrMalformedNetwork, name, s)
		}
		v, _ := node.CPT.Variable(s)
		want := n.nodes[n.index[s]].Variable
		if strings.Join(v.Domain, "\x00") != strings.Join(want.Domain, "\x00") {
			return fmt.Errorf("%w: CPT of %q uses domain %v for %q, network declares %v",
				internalerr.ErrMalformedNetwork, name, v.Domain, s, want.Domain)
		}
	}

	columns, err := node.CPT.SumOut(name)
	if err != nil {
		return fmt.Errorf("%w: %v", internalerr.ErrMalformedNetwork, err)
	}
	for _, row := range columns.Rows() {
		if math.Abs(row.Prob-1) > cptTolerance {
			return fmt.Errorf("%w: CPT of %q sums to %v for parents %v",
				internalerr.ErrMalformedNetwork, name, row.Prob, row.Assignment)
		}
	}
	return nil
}

func (n *Network) checkAcyclic() error {
	indegree := make(map[string]int, len(n.nodes))
	children := make(map[string][]string, len(n.nodes))
	for _, node := range n.nodes {
		indegree[node.Variable.Name] = len(node.Parents)
		for _, p := range node.Parents {
			children[p] = append(children[p], node.Variable.Name)
		}
	}

	var ready []string
	for _, node := range n.nodes {
		if indegree[node.Variable.Name] == 0 {
			ready = append(ready, node.Variable.Name)
		}
	}
	visited := 0
	for len(ready) > 0 {
		cur := ready[0]
		ready = ready[1:]
		visited++
		for _, c := range children[cur] {
			indegree[c]--
			if indegree[c] == 0 {
				ready = append(ready, c)
			}
		}
	}
	if visited != len(n.nodes) {
		return fmt.Errorf("%w: parent relationships contain a cycle", internalerr.ErrMalformedNetwork)
	}
	return nil
}

// Len returns the number of variables.
func (n *Network) Len() int { return len(n.nodes) }

// Names returns the variable names in declaration order.
func (n *Network) Names() []string {
	out := make([]string, len(n.nodes))
	for i, node := range n.nodes {
		out[i] = node.Variable.Name
	}
	return out
}

// Variable returns the variable called name.
func (n *Network) Variable(name string) (factor.Variable, bool) {
	i, ok := n.index[name]
	if !ok {
		return factor.Variable{}, false
	}
	v := n.nodes[i].Variable
	return factor.Variable{Name: v.Name, Domain: append([]string(nil), v.Domain...)}, true
}

// Has reports whether the network declares name.
func (n *Network) Has(name string) bool {
	_, ok := n.index[name]
	return ok
}

// Parents returns the parents of name.
func (n *Network) Parents(name string) []string {
	i, ok := n.index[name]
	if !ok {
		return nil
	}
	return append([]string(nil), n.nodes[i].Parents...)
}

// CPT returns the conditional probability table of name.
func (n *Network) CPT(name string) *factor.Factor {
	i, ok := n.index[name]
	if !ok {
		return nil
	}
	return n.nodes[i].CPT
}

// Factors returns the initial CPT factors in declaration order. Factors are
// immutable, so callers may share them freely.
func (n *Network) Factors() []*factor.Factor {
	out := make([]*factor.Factor, len(n.nodes))
	for i, node := range n.nodes {
		out[i] = node.CPT
	}
	return out
}

// Fingerprint is a stable hash of the network's structure and parameters.
func (n *Network) Fingerprint() string {
	h := sha256.New()
	for _, node := range n.nodes {
		fmt.Fprintf(h, "%s|%s|%s|%s\n",
			node.Variable.Name,
			strings.Join(node.Variable.Domain, ","),
			strings.Join(node.Parents, ","),
			strings.Join(node.CPT.Names(), ","))
		for _, row := range node.CPT.Rows() {
			h.Write([]byte(strconv.FormatFloat(row.Prob, 'g', -1, 64)))
			h.Write([]byte{'\n'})
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}
