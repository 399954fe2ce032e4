package registry

import (
	"sort"
	"strings"

	"github.com/frier-sam/dynamic-saas/internal/inference"
)

// CreationOrder plans the order in which a schema's tables should be
// materialized. Foreign keys are only realized when the referenced table
// already exists, so parents have to be created before children. Candidate
// edges follow the naming convention: a field <x>_id in table t is a
// dependency of t on table x when x is part of the same schema.
//
// Kahn's algorithm with a sorted frontier keeps the order deterministic.
// Tables caught in a reference cycle are appended in name order; their
// in-cycle foreign keys degrade to plain columns, which is the documented
// behavior for unresolvable references.
func CreationOrder(schema inference.Schema) []string {
	names := make([]string, 0, len(schema))
	for name := range schema {
		names = append(names, name)
	}
	sort.Strings(names)

	inDegree := make(map[string]int, len(names))
	children := make(map[string][]string, len(names))
	for _, name := range names {
		inDegree[name] = 0
	}
	for _, child := range names {
		for _, field := range schema[child].Fields.Names() {
			if !strings.HasSuffix(field, "_id") {
				continue
			}
			parent := strings.TrimSuffix(field, "_id")
			if parent == child {
				continue
			}
			if _, ok := schema[parent]; !ok {
				continue
			}
			children[parent] = append(children[parent], child)
			inDegree[child]++
		}
	}

	frontier := make([]string, 0, len(names))
	for _, name := range names {
		if inDegree[name] == 0 {
			frontier = append(frontier, name)
		}
	}

	order := make([]string, 0, len(names))
	for len(frontier) > 0 {
		sort.Strings(frontier)
		node := frontier[0]
		frontier = frontier[1:]
		order = append(order, node)

		for _, child := range children[node] {
			inDegree[child]--
			if inDegree[child] == 0 {
				frontier = append(frontier, child)
			}
		}
	}

	if len(order) < len(names) {
		for _, name := range names {
			if inDegree[name] > 0 {
				order = append(order, name)
			}
		}
	}
	return order
}
