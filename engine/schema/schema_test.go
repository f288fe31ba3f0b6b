package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testRegistry() *Registry {
	return NewRegistry(
		Entity{
			Name:    "user",
			Columns: []string{"id", "name", "email"},
			Relations: []Relation{
				{Name: "status", Entity: "status", LocalKey: "status_id"},
				{Name: "manager", Entity: "user", LocalKey: "manager_id"},
			},
		},
		Entity{Name: "status", Table: "user_statuses", Columns: []string{"id", "name"}},
	)
}

func TestColumns(t *testing.T) {
	r := testRegistry()

	assert.Equal(t, []string{"id", "name", "email"}, r.Columns("user"))
	assert.Equal(t, []string{"id", "name"}, r.Columns("status"))
	assert.Equal(t, []string{"id", "name", "email"}, r.Columns("manager"), "relation resolves to its target")
	assert.Equal(t, []string{"id"}, r.Columns("unknown"))
}

func TestColumnsReturnsCopy(t *testing.T) {
	r := testRegistry()
	cols := r.Columns("user")
	cols[0] = "mutated"
	assert.Equal(t, "id", r.Columns("user")[0])

	def := r.Columns("nothing")
	def[0] = "mutated"
	assert.Equal(t, []string{"id"}, DefaultColumns)
}

func TestTable(t *testing.T) {
	r := testRegistry()
	assert.Equal(t, "users", r.Table("user"))
	assert.Equal(t, "user_statuses", r.Table("status"))
	assert.Equal(t, "categories", r.Table("category"))
}

func TestRelation(t *testing.T) {
	r := testRegistry()

	assert.Equal(t, Relation{
		Name: "status", Entity: "status", Table: "user_statuses", LocalKey: "status_id", ForeignKey: "id",
	}, r.Relation("user", "status"))

	assert.Equal(t, Relation{
		Name: "categories", Entity: "category", Table: "categories", LocalKey: "categories_id", ForeignKey: "id",
	}, r.Relation("status", "categories"))
}
