package cache

import (
	"cmp"
	"slices"

	"github.com/hashicorp/go-multierror"
)

// plan validates the dependency graph and returns the startup order.
//
// Every dependency must be registered, an enabled cache may not depend on a
// disabled one, and the graph must be acyclic. Among caches whose
// dependencies are already placed, lower Priority goes first and ties keep
// registration order.
func plan(defs []*definition) ([]*definition, error) {
	byName := make(map[string]*definition, len(defs))
	for _, d := range defs {
		byName[d.name] = d
	}

	var errs *multierror.Error
	for _, d := range defs {
		for _, dep := range d.cfg.Dependencies {
			target, ok := byName[dep]
			if !ok {
				errs = multierror.Append(errs, ErrUnknownDependency(d.name, dep))
				continue
			}
			if d.cfg.IsEnabled() && !target.cfg.IsEnabled() {
				errs = multierror.Append(errs, ErrDisabledDependency(d.name, dep))
			}
		}
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}

	if path := findCycle(defs, byName); path != nil {
		return nil, ErrDependencyCycle(path)
	}

	return startOrder(defs), nil
}

// findCycle runs a depth-first search in registration order and returns the
// first cycle found as a closed path such as [a b a], or nil
func findCycle(defs []*definition, byName map[string]*definition) []string {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(defs))
	var path []string
	var cycle []string

	var visit func(name string) bool
	visit = func(name string) bool {
		state[name] = visiting
		path = append(path, name)

		for _, dep := range byName[name].cfg.Dependencies {
			switch state[dep] {
			case visiting:
				start := slices.Index(path, dep)
				cycle = append(slices.Clone(path[start:]), dep)
				return true
			case unvisited:
				if visit(dep) {
					return true
				}
			}
		}

		state[name] = done
		path = path[:len(path)-1]
		return false
	}

	for _, d := range defs {
		if state[d.name] == unvisited && visit(d.name) {
			return cycle
		}
	}
	return nil
}

// startOrder is a Kahn topological sort that picks the lowest
// (Priority, registration order) among the ready caches at each step
func startOrder(defs []*definition) []*definition {
	pending := make(map[string]int, len(defs))
	dependents := make(map[string][]*definition, len(defs))
	var ready []*definition

	for _, d := range defs {
		pending[d.name] = len(d.cfg.Dependencies)
		for _, dep := range d.cfg.Dependencies {
			dependents[dep] = append(dependents[dep], d)
		}
		if len(d.cfg.Dependencies) == 0 {
			ready = append(ready, d)
		}
	}

	byRank := func(a, b *definition) int {
		if c := cmp.Compare(a.cfg.Priority, b.cfg.Priority); c != 0 {
			return c
		}
		return cmp.Compare(a.order, b.order)
	}

	order := make([]*definition, 0, len(defs))
	for len(ready) > 0 {
		slices.SortFunc(ready, byRank)
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)

		for _, d := range dependents[next.name] {
			pending[d.name]--
			if pending[d.name] == 0 {
				ready = append(ready, d)
			}
		}
	}
	return order
}
