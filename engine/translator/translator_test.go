package translator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/omniql-engine/crudql/engine/config"
	"github.com/omniql-engine/crudql/engine/models"
	"github.com/omniql-engine/crudql/engine/schema"
)

func testSchema() *schema.Registry {
	return schema.NewRegistry(
		schema.Entity{
			Name:      "post",
			Columns:   []string{"id", "title"},
			Relations: []schema.Relation{{Name: "status", Entity: "status", LocalKey: "status_id"}},
		},
		schema.Entity{Name: "status", Table: "statuses", Columns: []string{"id", "name"}},
	)
}

func TestTranslateRelational(t *testing.T) {
	tr := New(nil, WithSchema(testSchema()), WithValidation(true))

	got, err := tr.Translate("PostgreSQL", "post", models.Params{
		Select: "id,title",
		Join:   "status",
		Filter: "status.name||$ne||x||$or||views||$gt||30",
		Sort:   "title,DESC,NULLS LAST",
		Page:   "2",
		Limit:  "10",
	})
	require.NoError(t, err)
	require.NotNil(t, got.Relational)
	assert.Nil(t, got.Document)
	assert.Nil(t, got.KeyValue)
	assert.NoError(t, got.Warnings)

	assert.Equal(t,
		"SELECT post.id, post.title, post__status.id AS post__status_id, post__status.name AS post__status_name "+
			"FROM posts AS post "+
			"LEFT JOIN statuses AS post__status ON post__status.id = post.status_id "+
			"WHERE (post__status.name <> $1) OR (post.views > $2) "+
			"ORDER BY post.title DESC NULLS LAST LIMIT 10 OFFSET 10",
		got.Relational.SQL)
	assert.Equal(t, []any{"x", int64(30)}, got.Relational.Args)
	assert.Equal(t,
		"SELECT COUNT(*) FROM posts AS post "+
			"LEFT JOIN statuses AS post__status ON post__status.id = post.status_id "+
			"WHERE (post__status.name <> $1) OR (post.views > $2)",
		got.Relational.CountSQL)
	assert.Equal(t, got.Relational.Args, got.Relational.CountArgs)
}

func TestTranslateRelationalMySQLValidated(t *testing.T) {
	tr := New(nil, WithValidation(true))

	got, err := tr.Translate("MySQL", "post", models.Params{Filter: "age||$between||1,5", Cache: "true"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT post.* FROM posts AS post WHERE (post.age BETWEEN ? AND ?)", got.Relational.SQL)
	assert.True(t, got.Cache.Enabled)
	assert.Equal(t, time.Minute, got.Cache.Duration)
}

func TestTranslateRelationalWarnings(t *testing.T) {
	got, err := New(nil).Translate("SQLite", "post", models.Params{
		Filter: "bad name||$eq||1;title||$eq||x",
		Limit:  "lots",
	})
	require.NoError(t, err)
	assert.Error(t, got.Warnings)
	assert.Equal(t, "SELECT post.* FROM posts AS post WHERE (post.title = ?)", got.Relational.SQL)
}

func TestTranslateDocument(t *testing.T) {
	tr := New(nil, WithSchema(testSchema()), WithValidation(true))

	got, err := tr.Translate("MongoDB", "post", models.Params{
		Select: "title",
		Filter: "title||$starts||Go;views||$gte||10",
		Sort:   "views,DESC",
		Limit:  "5",
	})
	require.NoError(t, err)
	require.NotNil(t, got.Document)
	assert.Nil(t, got.Relational)

	assert.Equal(t, "posts", got.Document.Collection)
	assert.Equal(t, bson.M{"$and": bson.A{
		bson.M{"title": bson.M{"$regex": `^Go.*$`, "$options": "i"}},
		bson.M{"views": bson.M{"$gte": int64(10)}},
	}}, got.Document.Filter)
	require.NotNil(t, got.Document.Find)
	assert.Equal(t, int64(5), *got.Document.Find.Limit)
	assert.Equal(t, bson.M{"title": 1}, got.Document.Find.Projection)
}

func TestTranslateKeyValue(t *testing.T) {
	got, err := New(nil, WithTenant("acme"), WithValidation(true)).Translate("Redis", "user", models.Params{
		Filter: "age||$gt||18",
		Cache:  "false",
	})
	require.NoError(t, err)
	require.NotNil(t, got.KeyValue)
	assert.Equal(t, "tenant:acme:users:*", got.KeyValue.KeyPattern)
	assert.False(t, got.Cache.Enabled)

	assert.True(t, got.KeyValue.Matches(map[string]string{"age": "21"}))
	assert.False(t, got.KeyValue.Matches(map[string]string{"age": "12"}))
}

func TestTranslateCustomDuration(t *testing.T) {
	cfg, err := config.New(map[string]any{"cacheDuration": "5m"})
	require.NoError(t, err)

	got, err := New(cfg).Translate("Redis", "user", models.Params{Cache: "true"})
	require.NoError(t, err)
	assert.Equal(t, models.CacheOptions{Enabled: true, Duration: 5 * time.Minute}, got.Cache)
}

func TestTranslateUnsupported(t *testing.T) {
	_, err := New(nil).Translate("Oracle", "user", models.Params{})
	assert.ErrorIs(t, err, ErrUnsupportedDatabase)
}

func TestBuildRedisKeyPattern(t *testing.T) {
	assert.Equal(t, "users:*", buildRedisKeyPattern("", "users:*"))
	assert.Equal(t, "tenant:t1:users:*", buildRedisKeyPattern("t1", "users:*"))
}
