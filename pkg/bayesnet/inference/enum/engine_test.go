package enum

import (
	"errors"
	"math"
	"testing"

	"github.com/cognicore/bayesnet/pkg/bayesnet/evidence"
	"github.com/cognicore/bayesnet/pkg/bayesnet/factor"
	"github.com/cognicore/bayesnet/pkg/bayesnet/inference"
	"github.com/cognicore/bayesnet/pkg/bayesnet/internalerr"
	"github.com/cognicore/bayesnet/pkg/bayesnet/network/networktest"
)

func prob(t *testing.T, f *factor.Factor, name, value string) float64 {
	t.Helper()
	p, err := f.Value(factor.Assignment{name: value})
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestEnumerationEarthquake(t *testing.T) {
	net := networktest.Earthquake(t)
	e := New(0)

	cases := []struct {
		query string
		ev    evidence.Evidence
		want  float64 // P(query=True | ev)
	}{
		{"Alarm", evidence.Evidence{"Burglary": "True"}, 0.9402},
		{"Alarm", nil, 0.0161142},
		{"Burglary", evidence.Evidence{"JohnCalls": "True", "MaryCalls": "True"}, 0.5565220621571877},
		{"JohnCalls", evidence.Evidence{"Alarm": "True"}, 0.9},
	}

	for _, tc := range cases {
		res, err := e.Query(net, inference.Query{Variable: tc.query, Evidence: tc.ev})
		if err != nil {
			t.Fatalf("%s | %v: %v", tc.query, tc.ev, err)
		}
		if got := prob(t, res.Posterior, tc.query, "True"); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("P(%s=True | %v) = %v, want %v", tc.query, tc.ev, got, tc.want)
		}
		if math.Abs(res.Posterior.Sum()-1) > 1e-9 {
			t.Errorf("posterior sums to %v", res.Posterior.Sum())
		}
		if res.Order != nil {
			t.Error("enumeration has no elimination order")
		}
	}
}

func TestEnumerationJointLimit(t *testing.T) {
	net := networktest.Earthquake(t)
	_, err := New(16).Query(net, inference.Query{Variable: "Alarm"})
	if !errors.Is(err, internalerr.ErrResourceExceeded) {
		t.Errorf("expected ErrResourceExceeded for a 32-row joint, got %v", err)
	}
}

func TestEnumerationDegenerate(t *testing.T) {
	net := networktest.Build(t,
		networktest.Spec{Name: "A", Domain: networktest.Bool, Table: [][]float64{{1, 0}}},
		networktest.Spec{Name: "B", Domain: networktest.Bool, Parents: []string{"A"}, Table: [][]float64{{0.5, 0.5}, {0.5, 0.5}}},
	)
	_, err := New(0).Query(net, inference.Query{Variable: "B", Evidence: evidence.Evidence{"A": "False"}})
	if !errors.Is(err, internalerr.ErrDegenerateDistribution) {
		t.Errorf("expected ErrDegenerateDistribution, got %v", err)
	}
}

func TestEnumerationValidatesOrder(t *testing.T) {
	net := networktest.Earthquake(t)
	e := New(0)

	q := inference.Query{Variable: "Alarm", Evidence: evidence.Evidence{"Burglary": "True"}, Order: []string{"JohnCalls"}}
	if _, err := e.Query(net, q); !errors.Is(err, internalerr.ErrIncompleteOrder) {
		t.Fatalf("expected ErrIncompleteOrder, got %v", err)
	}

	q.Order = []string{"Sunspots", "JohnCalls", "MaryCalls", "Earthquake"}
	if _, err := e.Query(net, q); !errors.Is(err, internalerr.ErrUnknownVariable) {
		t.Fatalf("expected ErrUnknownVariable, got %v", err)
	}

	q.Order = []string{"MaryCalls", "Earthquake", "JohnCalls"}
	res, err := e.Query(net, q)
	if err != nil {
		t.Fatalf("valid order: %v", err)
	}
	if got := prob(t, res.Posterior, "Alarm", "True"); math.Abs(got-0.9402) > 1e-9 {
		t.Fatalf("P(Alarm=True|Burglary=True) = %v", got)
	}
}
