package ordering

import (
	"errors"
	"reflect"
	"testing"

	"github.com/cognicore/bayesnet/pkg/bayesnet/evidence"
	"github.com/cognicore/bayesnet/pkg/bayesnet/factor"
	"github.com/cognicore/bayesnet/pkg/bayesnet/internalerr"
	"github.com/cognicore/bayesnet/pkg/bayesnet/network/networktest"
)

func uniform(t *testing.T, vars ...factor.Variable) *factor.Factor {
	t.Helper()
	size := 1
	for _, v := range vars {
		size *= v.Card()
	}
	values := make([]float64, size)
	for i := range values {
		values[i] = 1
	}
	f, err := factor.New(vars, values)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func binary(name string) factor.Variable {
	return factor.Variable{Name: name, Domain: []string{"0", "1"}}
}

func TestMinWeightEarthquake(t *testing.T) {
	net := networktest.Earthquake(t)

	order := MinWeight{}.Order(net.Factors(), map[string]bool{"Alarm": true})

	want := []string{"JohnCalls", "MaryCalls", "Burglary", "Earthquake"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("expected %v, got %v", want, order)
	}
}

func TestMinWeightSkipsReducedEvidence(t *testing.T) {
	net := networktest.Earthquake(t)
	ev := evidence.Evidence{"Burglary": "True"}
	reduced, err := evidence.ReduceAll(net.Factors(), ev)
	if err != nil {
		t.Fatal(err)
	}

	order := MinWeight{}.Order(reduced, map[string]bool{"Alarm": true})
	for _, name := range order {
		if name == "Burglary" || name == "Alarm" {
			t.Errorf("order should not contain %s: %v", name, order)
		}
	}
	if len(order) != 3 {
		t.Errorf("expected 3 variables, got %v", order)
	}
}

func TestMinWeightUsesCardinalities(t *testing.T) {
	x := factor.Variable{Name: "X", Domain: []string{"0", "1", "2", "3", "4", "5", "6", "7", "8", "9"}}
	factors := []*factor.Factor{
		uniform(t, binary("P"), x),
		uniform(t, binary("Q"), binary("R"), binary("Y")),
	}
	exclude := map[string]bool{"P": true, "Q": true, "R": true}

	// X joins a 20-row table, Y an 8-row one, even though X has fewer neighbours.
	if got := (MinWeight{}).Order(factors, exclude); !reflect.DeepEqual(got, []string{"Y", "X"}) {
		t.Errorf("min-weight: expected [Y X], got %v", got)
	}
	if got := (MinNeighbors{}).Order(factors, exclude); !reflect.DeepEqual(got, []string{"X", "Y"}) {
		t.Errorf("min-neighbors: expected [X Y], got %v", got)
	}
}

func TestOrderIsDeterministic(t *testing.T) {
	net := networktest.Weather(t)
	first := MinWeight{}.Order(net.Factors(), map[string]bool{"Late": true})
	for i := 0; i < 20; i++ {
		again := MinWeight{}.Order(net.Factors(), map[string]bool{"Late": true})
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d: %v differs from %v", i, again, first)
		}
	}
	if err := Validate(first, []string{"Weather", "Sprinkler", "Traffic", "WetGrass"}); err != nil {
		t.Errorf("heuristic order is incomplete: %v", err)
	}
}

func TestFixed(t *testing.T) {
	f := Fixed{"B", "A"}
	got := f.Order(nil, nil)
	got[0] = "changed"
	if f[0] != "B" {
		t.Error("Order must return a copy")
	}
}

func TestByName(t *testing.T) {
	for name, want := range map[string]Orderer{
		"":              MinWeight{},
		"min-weight":    MinWeight{},
		"min-neighbors": MinNeighbors{},
	} {
		got, err := ByName(name)
		if err != nil {
			t.Fatalf("ByName(%q): %v", name, err)
		}
		if got != want {
			t.Errorf("ByName(%q) = %T, want %T", name, got, want)
		}
	}

	if _, err := ByName("min-fill"); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	required := []string{"A", "B"}

	if err := Validate([]string{"B", "Q", "A"}, required); err != nil {
		t.Errorf("extra names should be tolerated: %v", err)
	}
	if err := Validate([]string{"A"}, required); !errors.Is(err, internalerr.ErrIncompleteOrder) {
		t.Errorf("expected ErrIncompleteOrder for missing B, got %v", err)
	}
	if err := Validate([]string{"A", "B", "A"}, required); !errors.Is(err, internalerr.ErrIncompleteOrder) {
		t.Errorf("expected ErrIncompleteOrder for repeated A, got %v", err)
	}
	if err := Validate(nil, nil); err != nil {
		t.Errorf("nothing to eliminate should validate: %v", err)
	}
}
