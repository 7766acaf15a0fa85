package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/bayesnet/pkg/bayesnet/factor"
	"github.com/cognicore/bayesnet/pkg/bayesnet/internalerr"
	"github.com/cognicore/bayesnet/pkg/bayesnet/network"
)

// NetworkFile represents a network definition
type NetworkFile struct {
	Name      string         `yaml:"name"`
	Variables []VariableSpec `yaml:"variables"`
}

// VariableSpec declares one variable and its CPT.
// Table holds one row per parent assignment, enumerated with the first
// parent varying slowest; each row lists P(value | parents) in domain order.
type VariableSpec struct {
	Name    string      `yaml:"name"`
	Values  []string    `yaml:"values"`
	Parents []string    `yaml:"parents"`
	Table   [][]float64 `yaml:"table"`
}

// LoadNetwork loads a network definition from a YAML file
func LoadNetwork(path string) (*network.Network, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	return ParseNetwork(data)
}

// ParseNetwork builds a network from YAML and returns it with its name.
// Every structural problem is reported as internalerr.ErrMalformedNetwork.
func ParseNetwork(data []byte) (*network.Network, string, error) {
	var nf NetworkFile
	if err := yaml.Unmarshal(data, &nf); err != nil {
		return nil, "", fmt.Errorf("%w: %v", internalerr.ErrMalformedNetwork, err)
	}

	net, err := nf.Build()
	if err != nil {
		return nil, "", err
	}
	return net, nf.Name, nil
}

// Build converts the file representation into a validated network.
// Variables may be listed in any order.
func (nf *NetworkFile) Build() (*network.Network, error) {
	vars := make(map[string]factor.Variable, len(nf.Variables))
	for _, spec := range nf.Variables {
		if _, dup := vars[spec.Name]; dup {
			return nil, fmt.Errorf("%w: variable %q declared twice", internalerr.ErrMalformedNetwork, spec.Name)
		}
		vars[spec.Name] = factor.Variable{Name: spec.Name, Domain: spec.Values}
	}

	nodes := make([]network.Node, 0, len(nf.Variables))
	for _, spec := range nf.Variables {
		self := vars[spec.Name]
		scope := make([]factor.Variable, 0, len(spec.Parents)+1)
		for _, p := range spec.Parents {
			pv, ok := vars[p]
			if !ok {
				return nil, fmt.Errorf("%w: %q lists unknown parent %q", internalerr.ErrMalformedNetwork, spec.Name, p)
			}
			scope = append(scope, pv)
		}
		scope = append(scope, self)

		rows := 1
		for _, p := range scope[:len(scope)-1] {
			rows *= p.Card()
		}
		if len(spec.Table) != rows {
			return nil, fmt.Errorf("%w: %q needs %d table rows, got %d",
				internalerr.ErrMalformedNetwork, spec.Name, rows, len(spec.Table))
		}

		values := make([]float64, 0, rows*self.Card())
		for i, row := range spec.Table {
			if len(row) != self.Card() {
				return nil, fmt.Errorf("%w: %q row %d has %d entries, want %d",
					internalerr.ErrMalformedNetwork, spec.Name, i, len(row), self.Card())
			}
			values = append(values, row...)
		}

		cpt, err := factor.New(scope, values)
		if err != nil {
			return nil, fmt.Errorf("%w: CPT of %q: %v", internalerr.ErrMalformedNetwork, spec.Name, err)
		}
		nodes = append(nodes, network.Node{Variable: self, Parents: spec.Parents, CPT: cpt})
	}

	return network.New(nodes)
}

// Engine represents the inference settings
type Engine struct {
	Heuristic     string `yaml:"heuristic"`
	MaxFactorSize int    `yaml:"max_factor_size"`
	Workers       int    `yaml:"workers"`
	StorePath     string `yaml:"store"`
}

// LoadEngine loads engine settings from a YAML file
func LoadEngine(path string) (*Engine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var eng Engine
	if err := yaml.Unmarshal(data, &eng); err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrInvalidConfig, err)
	}
	if eng.MaxFactorSize < 0 {
		return nil, fmt.Errorf("%w: max_factor_size must not be negative", internalerr.ErrInvalidConfig)
	}
	if eng.Workers < 0 {
		return nil, fmt.Errorf("%w: workers must not be negative", internalerr.ErrInvalidConfig)
	}

	return &eng, nil
}
