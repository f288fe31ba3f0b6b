package translator

import (
	"fmt"

	"github.com/omniql-engine/crudql/engine/builders/redis"
	"github.com/omniql-engine/crudql/engine/models"
	"github.com/omniql-engine/crudql/engine/validator"
)

// translateKeyValue builds the descriptor and the in-memory hash query for
// it. A tenant prefixes the key pattern.
func (t *Translator) translateKeyValue(dbType, entity string, params models.Params) (*Translation, error) {
	desc, warnings := t.describe.Build(params)

	q := redis.Build(t.cfg, entity, desc, t.schema)
	q.KeyPattern = buildRedisKeyPattern(t.tenant, q.KeyPattern)
	if t.validate {
		if err := validator.ValidateRedis(q.KeyPattern); err != nil {
			return nil, err
		}
	}

	return &Translation{
		DBType:   dbType,
		Entity:   entity,
		KeyValue: q,
		Cache:    t.cacheOptions(desc),
		Warnings: warnings,
	}, nil
}

func buildRedisKeyPattern(tenant, pattern string) string {
	if tenant == "" {
		return pattern
	}
	return fmt.Sprintf("tenant:%s:%s", tenant, pattern)
}
