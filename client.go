// client.go

package crudql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	mongobuilders "github.com/omniql-engine/crudql/engine/builders/mongodb"
	redisbuilders "github.com/omniql-engine/crudql/engine/builders/redis"
	"github.com/omniql-engine/crudql/engine/cache"
	"github.com/omniql-engine/crudql/engine/models"
	"github.com/omniql-engine/crudql/engine/translator"
	"github.com/omniql-engine/crudql/mapping"
)

// ============================================
// CLIENT STRUCT
// ============================================

// Client executes translated queries on a wrapped connection.
type Client struct {
	sqlDB   *sql.DB
	mongoDB *mongo.Database
	redisDB *redis.Client
	dbType  string

	engine     *Engine
	engineOpts []Option
	results    *cache.ResultCache
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithEngineOptions configures the engine the client translates with.
// SQL validation is on unless an option turns it off.
func WithEngineOptions(opts ...Option) ClientOption {
	return func(c *Client) { c.engineOpts = append(c.engineOpts, opts...) }
}

// WithResultCache stores results of requests with cache=true. Cached rows
// come back JSON-decoded, so numbers read as float64.
func WithResultCache(rc *cache.ResultCache) ClientOption {
	return func(c *Client) { c.results = rc }
}

// ============================================
// CONSTRUCTORS
// ============================================

// WrapSQL wraps a SQL database connection (PostgreSQL, MySQL or SQLite).
func WrapSQL(db *sql.DB, dbType string, opts ...ClientOption) *Client {
	if !mapping.IsRelational(dbType) {
		dbType = "PostgreSQL"
	}
	return newClient(&Client{sqlDB: db, dbType: dbType}, opts)
}

// WrapMongo wraps a MongoDB database connection.
func WrapMongo(db *mongo.Database, opts ...ClientOption) *Client {
	return newClient(&Client{mongoDB: db, dbType: "MongoDB"}, opts)
}

// WrapRedis wraps a Redis client. A non-empty tenantID scopes key patterns.
func WrapRedis(rdb *redis.Client, tenantID string, opts ...ClientOption) *Client {
	c := &Client{redisDB: rdb, dbType: "Redis"}
	if tenantID != "" {
		c.engineOpts = append(c.engineOpts, WithTenant(tenantID))
	}
	return newClient(c, opts)
}

func newClient(c *Client, opts []ClientOption) *Client {
	for _, opt := range opts {
		opt(c)
	}
	c.engine = New(append([]Option{WithValidation(true)}, c.engineOpts...)...)
	return c
}

// Engine returns the engine the client translates with.
func (c *Client) Engine() *Engine { return c.engine }

// ============================================
// QUERY METHODS
// ============================================

// Find translates params for entity and returns the matching records.
func (c *Client) Find(ctx context.Context, entity string, params models.Params) ([]map[string]any, error) {
	tr, err := c.engine.Translate(c.dbType, entity, params)
	if err != nil {
		return nil, fmt.Errorf("translation error: %w", err)
	}
	if tr.Warnings != nil {
		c.engine.logger.Debug("query input dropped", "entity", entity, "error", tr.Warnings)
	}

	key := c.cacheKey(tr, params)
	if key != "" {
		var cached []map[string]any
		if c.results.Load(ctx, key, &cached) {
			return cached, nil
		}
	}

	var rows []map[string]any
	switch {
	case tr.Relational != nil:
		rows, err = c.findSQL(ctx, tr.Relational)
	case tr.Document != nil:
		rows, err = c.findMongo(ctx, tr.Document)
	case tr.KeyValue != nil:
		rows, err = c.findRedis(ctx, tr.KeyValue)
	default:
		err = fmt.Errorf("unsupported database type: %s", c.dbType)
	}
	if err != nil {
		return nil, err
	}

	if key != "" {
		c.results.Save(ctx, key, rows, tr.Cache.Duration)
	}
	return rows, nil
}

// Count returns the number of records matching the filter of params,
// ignoring paging.
func (c *Client) Count(ctx context.Context, entity string, params models.Params) (int64, error) {
	tr, err := c.engine.Translate(c.dbType, entity, params)
	if err != nil {
		return 0, fmt.Errorf("translation error: %w", err)
	}
	switch {
	case tr.Relational != nil:
		return c.countSQL(ctx, tr.Relational)
	case tr.Document != nil:
		return c.countMongo(ctx, tr.Document)
	case tr.KeyValue != nil:
		return c.countRedis(ctx, tr.KeyValue)
	default:
		return 0, fmt.Errorf("unsupported database type: %s", c.dbType)
	}
}

// cacheKey scopes cached rows to the statement and to where it runs: the
// tenant key pattern for Redis, the database and collection for MongoDB.
func (c *Client) cacheKey(tr *translator.Translation, params models.Params) string {
	if c.results == nil || !tr.Cache.Enabled {
		return ""
	}
	switch {
	case tr.Relational != nil:
		return cache.Key(c.dbType, tr.Relational.SQL, tr.Relational.Args...)
	case tr.KeyValue != nil:
		return cache.Key(c.dbType, tr.KeyValue.KeyPattern, tr.Entity, params)
	case tr.Document != nil:
		database := ""
		if c.mongoDB != nil {
			database = c.mongoDB.Name()
		}
		return cache.Key(c.dbType, database+"."+tr.Document.Collection, tr.Entity, params)
	}
	return cache.Key(c.dbType, tr.Entity, params)
}

// ============================================
// SQL IMPLEMENTATION
// ============================================

func (c *Client) findSQL(ctx context.Context, q *translator.RelationalQuery) ([]map[string]any, error) {
	rows, err := c.sqlDB.QueryContext(ctx, q.SQL, q.Args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()
	return rowsToMaps(rows)
}

func (c *Client) countSQL(ctx context.Context, q *translator.RelationalQuery) (int64, error) {
	var n int64
	if err := c.sqlDB.QueryRowContext(ctx, q.CountSQL, q.CountArgs...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count error: %w", err)
	}
	return n, nil
}

// ============================================
// MONGODB IMPLEMENTATION
// ============================================

func (c *Client) findMongo(ctx context.Context, q *mongobuilders.Query) ([]map[string]any, error) {
	coll := c.mongoDB.Collection(q.Collection)

	var (
		cursor *mongo.Cursor
		err    error
	)
	if q.Pipeline != nil {
		cursor, err = coll.Aggregate(ctx, q.Pipeline)
	} else {
		cursor, err = coll.Find(ctx, q.Filter, q.Find)
	}
	if err != nil {
		return nil, fmt.Errorf("find error: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	results := make([]map[string]any, 0, len(docs))
	for _, doc := range docs {
		results = append(results, bsonToMap(doc))
	}
	return results, nil
}

func (c *Client) countMongo(ctx context.Context, q *mongobuilders.Query) (int64, error) {
	coll := c.mongoDB.Collection(q.Collection)
	if q.Pipeline == nil {
		n, err := coll.CountDocuments(ctx, q.Filter)
		if err != nil {
			return 0, fmt.Errorf("count error: %w", err)
		}
		return n, nil
	}

	cursor, err := coll.Aggregate(ctx, countPipeline(q.Pipeline))
	if err != nil {
		return 0, fmt.Errorf("count error: %w", err)
	}
	defer cursor.Close(ctx)

	var out []struct {
		N int64 `bson:"n"`
	}
	if err := cursor.All(ctx, &out); err != nil {
		return 0, fmt.Errorf("cursor error: %w", err)
	}
	if len(out) == 0 {
		return 0, nil
	}
	return out[0].N, nil
}

// countPipeline keeps the lookup and match stages of an aggregation and
// counts what they produce.
func countPipeline(pipeline []bson.M) []bson.M {
	var out []bson.M
	for _, stage := range pipeline {
		for op := range stage {
			switch op {
			case "$lookup", "$unwind", "$match":
				out = append(out, stage)
			}
		}
	}
	return append(out, bson.M{"$count": "n"})
}

// ============================================
// REDIS IMPLEMENTATION
// ============================================

func (c *Client) findRedis(ctx context.Context, q *redisbuilders.Query) ([]map[string]any, error) {
	hashes, err := c.scanHashes(ctx, q)
	if err != nil {
		return nil, err
	}
	var results []map[string]any
	for _, h := range q.Apply(hashes) {
		results = append(results, stringMapToAnyMap(h))
	}
	return results, nil
}

func (c *Client) countRedis(ctx context.Context, q *redisbuilders.Query) (int64, error) {
	hashes, err := c.scanHashes(ctx, q)
	if err != nil {
		return 0, err
	}
	var n int64
	for _, h := range hashes {
		if q.Matches(h) {
			n++
		}
	}
	return n, nil
}

// scanHashes loads every hash under the key pattern of q. Keys that are not
// hashes are skipped. The key id is exposed as "id" when the hash has none.
func (c *Client) scanHashes(ctx context.Context, q *redisbuilders.Query) ([]map[string]string, error) {
	var hashes []map[string]string
	var cursor uint64
	for {
		keys, next, err := c.redisDB.Scan(ctx, cursor, q.KeyPattern, redisbuilders.ScanCount).Result()
		if err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		for _, k := range keys {
			hash, err := c.redisDB.HGetAll(ctx, k).Result()
			if err != nil {
				var rerr redis.Error
				if errors.As(err, &rerr) {
					continue
				}
				return nil, fmt.Errorf("hgetall error: %w", err)
			}
			if len(hash) == 0 {
				continue
			}
			if _, ok := hash["id"]; !ok {
				hash["id"] = redisbuilders.KeyID(k)
			}
			hashes = append(hashes, hash)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return hashes, nil
}

// ============================================
// HELPERS
// ============================================

func rowsToMaps(rows *sql.Rows) ([]map[string]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var results []map[string]any

	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}

		row := make(map[string]any)
		for i, col := range columns {
			val := values[i]
			if b, ok := val.([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = val
			}
		}
		results = append(results, row)
	}

	return results, rows.Err()
}

func stringMapToAnyMap(m map[string]string) map[string]any {
	result := make(map[string]any, len(m))
	for k, v := range m {
		result[k] = v
	}
	return result
}

func bsonToMap(doc bson.M) map[string]any {
	result := make(map[string]any, len(doc))
	for k, v := range doc {
		result[k] = v
	}
	return result
}
