package registry

import (
	"testing"

	"github.com/frier-sam/dynamic-saas/internal/inference"
	"github.com/stretchr/testify/assert"
)

func tableWith(fields ...string) inference.TableDef {
	pairs := make([]string, 0, len(fields)*2)
	for _, f := range fields {
		pairs = append(pairs, f, "INTEGER")
	}
	return inference.TableDef{Fields: inference.NewFieldMap(pairs...)}
}

func TestCreationOrderParentsFirst(t *testing.T) {
	schema := inference.Schema{
		"comments": tableWith("id", "posts_id", "users_id"),
		"posts":    tableWith("id", "users_id"),
		"users":    tableWith("id"),
	}

	assert.Equal(t, []string{"users", "posts", "comments"}, CreationOrder(schema))
}

func TestCreationOrderIndependentTablesSorted(t *testing.T) {
	schema := inference.Schema{
		"zebras": tableWith("id"),
		"apples": tableWith("id"),
		"mangos": tableWith("id"),
	}

	assert.Equal(t, []string{"apples", "mangos", "zebras"}, CreationOrder(schema))
}

func TestCreationOrderIgnoresExternalAndSelfReferences(t *testing.T) {
	schema := inference.Schema{
		// parent_id points at the table itself, account_id at nothing known.
		"folders": tableWith("id", "folders_id", "account_id"),
		"files":   tableWith("id", "folders_id"),
	}

	assert.Equal(t, []string{"folders", "files"}, CreationOrder(schema))
}

func TestCreationOrderCycleStillIncludesEveryTable(t *testing.T) {
	schema := inference.Schema{
		"chickens": tableWith("id", "eggs_id"),
		"eggs":     tableWith("id", "chickens_id"),
		"farms":    tableWith("id"),
	}

	order := CreationOrder(schema)
	assert.Len(t, order, 3)
	assert.Equal(t, "farms", order[0])
	// Cycle members come after the resolvable tables, in name order.
	assert.Equal(t, []string{"chickens", "eggs"}, order[1:])
}
