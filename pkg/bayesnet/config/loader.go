package config

import (
	"fmt"

	"github.com/cognicore/bayesnet/pkg/bayesnet/network"
	"github.com/cognicore/bayesnet/pkg/bayesnet/ordering"
)

// Loader loads all configuration files and constructs components
type Loader struct {
	NetworkPath string
	EnginePath  string
}

// Components holds all loaded configuration components
type Components struct {
	Network       *network.Network
	NetworkName   string
	Orderer       ordering.Orderer
	MaxFactorSize int
	Workers       int
	StorePath     string
}

// Load reads all configuration files and returns initialized components
func (l *Loader) Load() (*Components, error) {
	comp := &Components{}

	// Load network (required)
	net, name, err := LoadNetwork(l.NetworkPath)
	if err != nil {
		return nil, fmt.Errorf("load network: %w", err)
	}
	comp.Network = net
	comp.NetworkName = name

	// Load engine settings
	eng := &Engine{}
	if l.EnginePath != "" {
		eng, err = LoadEngine(l.EnginePath)
		if err != nil {
			return nil, fmt.Errorf("load engine config: %w", err)
		}
	}

	comp.Orderer, err = ordering.ByName(eng.Heuristic)
	if err != nil {
		return nil, err
	}
	comp.MaxFactorSize = eng.MaxFactorSize
	comp.Workers = eng.Workers
	comp.StorePath = eng.StorePath

	return comp, nil
}
