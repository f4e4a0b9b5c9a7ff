// Package loader provides the feature loading system of the status server.
//
// Each feature implements the Feature interface, which names it, reports
// whether it is enabled and registers its routes.
//
//	type Feature interface {
//	    Name() string
//	    IsEnabled() bool
//	    Load(app fiber.Router) error
//	}
//
// The Manager holds the registry. Register adds a feature and LoadAll loads
// every enabled one, so the inventory and audit features can be developed and
// tested in isolation.
package loader
