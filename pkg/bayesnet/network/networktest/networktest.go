// Package networktest provides small reference networks for tests.
package networktest

import (
	"testing"

	"github.com/cognicore/bayesnet/pkg/bayesnet/factor"
	"github.com/cognicore/bayesnet/pkg/bayesnet/network"
)

// Bool is the domain used by the binary networks.
var Bool = []string{"True", "False"}

// Spec declares one node by name, domain, parents and one table row per
// parent assignment (first parent slowest).
type Spec struct {
	Name    string
	Domain  []string
	Parents []string
	Table   [][]float64
}

// Build assembles a network from specs declared in topological order.
func Build(t testing.TB, specs ...Spec) *network.Network {
	t.Helper()

	vars := make(map[string]factor.Variable, len(specs))
	nodes := make([]network.Node, 0, len(specs))
	for _, s := range specs {
		v := factor.Variable{Name: s.Name, Domain: s.Domain}
		vars[s.Name] = v

		scope := make([]factor.Variable, 0, len(s.Parents)+1)
		for _, p := range s.Parents {
			scope = append(scope, vars[p])
		}
		scope = append(scope, v)

		var values []float64
		for _, row := range s.Table {
			values = append(values, row...)
		}
		cpt, err := factor.New(scope, values)
		if err != nil {
			t.Fatalf("CPT of %s: %v", s.Name, err)
		}
		nodes = append(nodes, network.Node{Variable: v, Parents: s.Parents, CPT: cpt})
	}

	net, err := network.New(nodes)
	if err != nil {
		t.Fatalf("network.New: %v", err)
	}
	return net
}

// EarthquakeSpecs is the classic burglary alarm network.
func EarthquakeSpecs() []Spec {
	return []Spec{
		{Name: "Burglary", Domain: Bool, Table: [][]float64{{0.01, 0.99}}},
		{Name: "Earthquake", Domain: Bool, Table: [][]float64{{0.02, 0.98}}},
		{Name: "Alarm", Domain: Bool, Parents: []string{"Burglary", "Earthquake"}, Table: [][]float64{
			{0.95, 0.05},
			{0.94, 0.06},
			{0.29, 0.71},
			{0.001, 0.999},
		}},
		{Name: "JohnCalls", Domain: Bool, Parents: []string{"Alarm"}, Table: [][]float64{
			{0.90, 0.10},
			{0.05, 0.95},
		}},
		{Name: "MaryCalls", Domain: Bool, Parents: []string{"Alarm"}, Table: [][]float64{
			{0.70, 0.30},
			{0.01, 0.99},
		}},
	}
}

// Earthquake builds the burglary alarm network.
func Earthquake(t testing.TB) *network.Network {
	t.Helper()
	return Build(t, EarthquakeSpecs()...)
}

// WeatherSpecs is a network with three-valued variables.
func WeatherSpecs() []Spec {
	return []Spec{
		{Name: "Weather", Domain: []string{"sunny", "cloudy", "rainy"}, Table: [][]float64{{0.5, 0.3, 0.2}}},
		{Name: "Sprinkler", Domain: []string{"on", "off"}, Parents: []string{"Weather"}, Table: [][]float64{
			{0.4, 0.6},
			{0.1, 0.9},
			{0.01, 0.99},
		}},
		{Name: "Traffic", Domain: []string{"light", "medium", "heavy"}, Parents: []string{"Weather"}, Table: [][]float64{
			{0.6, 0.3, 0.1},
			{0.4, 0.4, 0.2},
			{0.1, 0.4, 0.5},
		}},
		{Name: "WetGrass", Domain: []string{"wet", "dry"}, Parents: []string{"Sprinkler", "Weather"}, Table: [][]float64{
			{0.9, 0.1},
			{0.92, 0.08},
			{0.99, 0.01},
			{0.05, 0.95},
			{0.3, 0.7},
			{0.9, 0.1},
		}},
		{Name: "Late", Domain: []string{"yes", "no"}, Parents: []string{"Traffic"}, Table: [][]float64{
			{0.05, 0.95},
			{0.2, 0.8},
			{0.6, 0.4},
		}},
	}
}

// Weather builds the three-valued weather network.
func Weather(t testing.TB) *network.Network {
	t.Helper()
	return Build(t, WeatherSpecs()...)
}
