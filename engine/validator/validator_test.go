package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestValidateSQL(t *testing.T) {
	tests := []struct {
		dbType string
		query  string
		valid  bool
	}{
		{"PostgreSQL", "SELECT p.* FROM posts AS p WHERE (p.meta->'a'->>'b' = $1) ORDER BY p.id DESC NULLS LAST LIMIT 10 OFFSET 5", true},
		{"PostgreSQL", "SELEC * FROM posts", false},
		{"MySQL", "SELECT p.* FROM posts AS p INNER JOIN statuses AS s ON s.id = p.status_id WHERE (p.id IN (?, ?)) LIMIT 10 OFFSET 5", true},
		{"MySQL", "SELECT * FRM posts", false},
	}

	for _, tt := range tests {
		t.Run(tt.dbType+" "+tt.query, func(t *testing.T) {
			err := ValidateSQL(tt.query, tt.dbType)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidateSQLUnsupported(t *testing.T) {
	assert.ErrorIs(t, ValidateSQL("SELECT 1", "SQLite"), ErrUnsupportedDatabase)
	assert.False(t, Supports("SQLite"))
	assert.True(t, Supports("MySQL"))
}

func TestValidateWithDetails(t *testing.T) {
	res, err := ValidateSQLWithDetails("SELECT * FROM posts WHERE", "PostgreSQL")
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.NotEmpty(t, res.Error)
	assert.Positive(t, res.Position)

	res, err = ValidateSQLWithDetails("SELECT * FROM posts WHERE id = ?", "MySQL")
	require.NoError(t, err)
	assert.True(t, res.Valid)

	res, err = ValidateSQLWithDetails("SELECT * FRM posts", "MySQL")
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Positive(t, res.Position)
}

func TestValidateMongoDB(t *testing.T) {
	assert.NoError(t, ValidateMongoDB(bson.M{}))
	assert.NoError(t, ValidateMongoDB(bson.M{"$or": bson.A{
		bson.M{"a": bson.M{"$in": bson.A{1, 2}}},
		bson.M{"b": bson.M{"$not": primitive.Regex{Pattern: "^x$", Options: "i"}}},
	}}))
	assert.Error(t, ValidateMongoDB(nil))
	assert.Error(t, ValidateMongoDB(bson.M{"a": bson.M{"$where": "1"}}))
	assert.Error(t, ValidateMongoDB(bson.M{"$and": bson.M{"a": 1}}))
}

func TestValidateRedis(t *testing.T) {
	assert.NoError(t, ValidateRedis("users:*"))
	assert.Error(t, ValidateRedis(" "))
	assert.Error(t, ValidateRedis("users *"))
}
