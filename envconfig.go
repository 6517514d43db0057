package kernel

import (
	"fmt"
	"reflect"

	"github.com/caarlos0/env/v11"
)

// FromEnv opts the runtime into loading every resource's config struct
// from process environment variables before init, using struct tags the
// same way the config struct's author would tag it for any other
// caarlos0/env consumer. It only applies to resources whose config
// type is a struct or pointer-to-struct; other config shapes are left
// untouched. Only resources reached from the root through Dependencies
// edges are visited (see loadEnvConfig).
func FromEnv(prefix ...string) RunOption {
	return func(c *runConfig) {
		c.loadEnv = true
		if len(prefix) > 0 {
			c.envPrefix = prefix[0]
		}
	}
}

// loadEnvConfig walks every resource reachable from root and, for any
// whose config is addressable and struct-shaped, parses environment
// variables into it via env.ParseWithOptions before boot. Run calls this
// before collect() builds the store, so it walks from root alone and
// follows only Dependencies edges: nodes passed via WithNodes, resource
// register lists, and override replacements are not visited.
func loadEnvConfig(prefix string, root Identifiable) error {
	visited := map[string]bool{}
	var walk func(n Identifiable) error
	walk = func(n Identifiable) error {
		if visited[n.NodeID()] {
			return nil
		}
		visited[n.NodeID()] = true

		if rn, ok := n.(envConfigurable); ok {
			if err := applyEnv(prefix, rn); err != nil {
				return err
			}
		}
		if d, ok := n.(dependent); ok {
			for _, dep := range d.nodeDeps() {
				if err := walk(dep.target()); err != nil {
					return err
				}
			}
		}
		return nil
	}
	return walk(root)
}

type envConfigurable interface {
	envConfigPtr() any
}

func applyEnv(prefix string, rn envConfigurable) error {
	ptr := rn.envConfigPtr()
	if ptr == nil {
		return nil
	}
	rv := reflect.ValueOf(ptr)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return nil
	}
	opts := env.Options{}
	if prefix != "" {
		opts.Prefix = prefix
	}
	if err := env.ParseWithOptions(ptr, opts); err != nil {
		return fmt.Errorf("kernel: env config: %w", err)
	}
	return nil
}
