package translator

import (
	"github.com/omniql-engine/crudql/engine/builders/mongodb"
	"github.com/omniql-engine/crudql/engine/models"
	"github.com/omniql-engine/crudql/engine/validator"
)

// translateDocument builds the descriptor and hands it to the MongoDB
// builder. Dropped input is reported as warnings, never as an error.
func (t *Translator) translateDocument(dbType, entity string, params models.Params) (*Translation, error) {
	desc, warnings := t.describe.Build(params)

	q := mongodb.New(t.cfg).Build(entity, desc, t.schema)
	if t.validate {
		if err := validator.ValidateMongoDB(q.Filter); err != nil {
			return nil, err
		}
	}

	return &Translation{
		DBType:   dbType,
		Entity:   entity,
		Document: q,
		Cache:    t.cacheOptions(desc),
		Warnings: warnings,
	}, nil
}
