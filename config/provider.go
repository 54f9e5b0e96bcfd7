package config

import (
	"fmt"

	"github.com/samber/do/v2"
)

// ProvideBootstrap registers the bootstrap settings with a do injector.
// Bootstrap is the lowest layer and depends on nothing.
//
// Usage:
//
//	do.Provide(injector, config.ProvideBootstrap(config.LoadOptions{File: "logconf.yaml"}))
//	b := do.MustInvoke[*config.Bootstrap](injector)
func ProvideBootstrap(opts LoadOptions) func(do.Injector) (*Bootstrap, error) {
	return func(i do.Injector) (*Bootstrap, error) {
		b, err := LoadBootstrap(opts)
		if err != nil {
			return nil, fmt.Errorf("bootstrap settings: %w", err)
		}
		return b, nil
	}
}

// ProvideBootstrapValue registers settings built elsewhere (tests)
func ProvideBootstrapValue(b *Bootstrap) func(do.Injector) (*Bootstrap, error) {
	return func(i do.Injector) (*Bootstrap, error) {
		return b, nil
	}
}
