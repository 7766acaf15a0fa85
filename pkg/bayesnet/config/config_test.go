package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/cognicore/bayesnet/pkg/bayesnet/factor"
	"github.com/cognicore/bayesnet/pkg/bayesnet/internalerr"
	"github.com/cognicore/bayesnet/pkg/bayesnet/network/networktest"
)

const earthquakePath = "../../../testdata/networks/earthquake.yaml"

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadNetwork(t *testing.T) {
	net, name, err := LoadNetwork(earthquakePath)
	if err != nil {
		t.Fatalf("Failed to load network: %v", err)
	}

	if name != "earthquake" {
		t.Errorf("Expected name 'earthquake', got %q", name)
	}
	if net.Len() != 5 {
		t.Errorf("Expected 5 variables, got %d", net.Len())
	}

	p, err := net.CPT("Alarm").Value(factor.Assignment{"Burglary": "False", "Earthquake": "True", "Alarm": "True"})
	if err != nil {
		t.Fatal(err)
	}
	if p != 0.29 {
		t.Errorf("Expected P(Alarm=True | B=False, E=True) = 0.29, got %v", p)
	}

	if net.Fingerprint() != networktest.Earthquake(t).Fingerprint() {
		t.Error("YAML network should match the reference network")
	}
}

func TestLoadNetworkWeather(t *testing.T) {
	net, _, err := LoadNetwork("../../../testdata/networks/weather.yaml")
	if err != nil {
		t.Fatalf("Failed to load network: %v", err)
	}
	if net.Fingerprint() != networktest.Weather(t).Fingerprint() {
		t.Error("YAML network should match the reference network")
	}
}

func TestParseNetworkAnyOrder(t *testing.T) {
	content := `
name: pair
variables:
  - name: Child
    values: ["yes", "no"]
    parents: [Root]
    table:
      - [0.2, 0.8]
      - [0.6, 0.4]
  - name: Root
    values: ["yes", "no"]
    table:
      - [0.5, 0.5]
`
	net, name, err := ParseNetwork([]byte(content))
	if err != nil {
		t.Fatal(err)
	}
	if name != "pair" || net.Len() != 2 {
		t.Errorf("unexpected network %q with %d variables", name, net.Len())
	}
	sum := net.CPT("Child").Sum()
	if math.Abs(sum-2) > 1e-12 {
		t.Errorf("Child CPT should hold two columns, sums to %v", sum)
	}
}

func TestParseNetworkMalformed(t *testing.T) {
	cases := map[string]string{
		"bad yaml":       "variables: [unclosed\n",
		"empty":          "name: nothing\n",
		"unknown parent": "variables:\n  - name: A\n    values: [x, y]\n    parents: [B]\n    table: [[0.5, 0.5], [0.5, 0.5]]\n",
		"row count":      "variables:\n  - name: A\n    values: [x, y]\n    table: [[0.5, 0.5], [0.5, 0.5]]\n",
		"row width":      "variables:\n  - name: A\n    values: [x, y]\n    table: [[1.0]]\n",
		"empty domain":   "variables:\n  - name: A\n    values: []\n    table: [[]]\n",
		"negative":       "variables:\n  - name: A\n    values: [x, y]\n    table: [[1.5, -0.5]]\n",
		"not normalized": "variables:\n  - name: A\n    values: [x, y]\n    table: [[0.5, 0.4]]\n",
		"duplicate":      "variables:\n  - name: A\n    values: [x]\n    table: [[1]]\n  - name: A\n    values: [x]\n    table: [[1]]\n",
	}

	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			net, _, err := ParseNetwork([]byte(content))
			if !errors.Is(err, internalerr.ErrMalformedNetwork) {
				t.Errorf("Expected ErrMalformedNetwork, got %v", err)
			}
			if net != nil {
				t.Error("No network should be returned on error")
			}
		})
	}
}

func TestLoadEngine(t *testing.T) {
	path := writeFile(t, "engine.yaml", `heuristic: min-neighbors
max_factor_size: 4096
workers: 4
store: results.db
`)

	eng, err := LoadEngine(path)
	if err != nil {
		t.Fatalf("Failed to load engine config: %v", err)
	}
	if eng.Heuristic != "min-neighbors" {
		t.Errorf("Expected heuristic 'min-neighbors', got %q", eng.Heuristic)
	}
	if eng.MaxFactorSize != 4096 || eng.Workers != 4 {
		t.Errorf("Unexpected limits: %+v", eng)
	}
	if eng.StorePath != "results.db" {
		t.Errorf("Expected store 'results.db', got %q", eng.StorePath)
	}
}

func TestLoadEngineInvalid(t *testing.T) {
	for name, content := range map[string]string{
		"bad yaml":      "heuristic: [unclosed\n",
		"negative size": "max_factor_size: -1\n",
		"negative pool": "workers: -2\n",
	} {
		path := writeFile(t, "engine.yaml", content)
		if _, err := LoadEngine(path); !errors.Is(err, internalerr.ErrInvalidConfig) {
			t.Errorf("%s: expected ErrInvalidConfig, got %v", name, err)
		}
	}
}

func TestLoadNonExistentFile(t *testing.T) {
	if _, _, err := LoadNetwork("/nonexistent/network.yaml"); err == nil {
		t.Error("Should error on non-existent file")
	}
	if _, err := LoadEngine("/nonexistent/engine.yaml"); err == nil {
		t.Error("Should error on non-existent file")
	}
}
