// Command crudql prints what a query string translates to: the descriptor,
// SQL with arguments, a MongoDB filter or a Redis scan. With -reverse it
// turns a SELECT back into query-string parameters.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/omniql-engine/crudql"
	"github.com/omniql-engine/crudql/engine/reverse"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "crudql:", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("crudql", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		configPath = fs.String("config", "", "YAML file with logger, delimiters and entities")
		logLevel   = fs.String("log-level", "", "debug, info, warn or error")
		dbType     = fs.String("db", "", "PostgreSQL, MySQL, SQLite, MongoDB or Redis; empty prints the descriptor")
		entity     = fs.String("entity", "", "entity to query")
		tenant     = fs.String("tenant", "", "tenant id for Redis key patterns")
		validate   = fs.Bool("validate", true, "parse generated SQL before printing it")
		toParams   = fs.Bool("reverse", false, "convert the SQL argument of -db back into parameters")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("expected one query string argument")
	}
	input := fs.Arg(0)

	file, err := loadFile(*configPath)
	if err != nil {
		return err
	}
	logger, err := newLogger(stderr, file.Logger, *logLevel)
	if err != nil {
		return err
	}
	cfg, reg, err := file.Engine()
	if err != nil {
		return err
	}

	if *toParams {
		res, err := reverse.New(cfg).ToParams(input, *dbType)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, res.Values().Encode())
		return nil
	}

	engine := crudql.New(
		crudql.WithConfig(cfg),
		crudql.WithSchema(reg),
		crudql.WithLogger(logger),
		crudql.WithValidation(*validate),
		crudql.WithTenant(*tenant),
	)
	params, err := engine.ParseQuery(input)
	if err != nil {
		return fmt.Errorf("invalid query string: %w", err)
	}

	if *dbType == "" {
		desc, warnings := engine.Build(params)
		if warnings != nil {
			logger.Warn("input dropped", "error", warnings)
		}
		return writeJSON(stdout, desc.ToMap())
	}

	if *entity == "" {
		return errors.New("-entity is required with -db")
	}
	tr, err := engine.Translate(*dbType, *entity, params)
	if err != nil {
		return err
	}
	if tr.Warnings != nil {
		logger.Warn("input dropped", "error", tr.Warnings)
	}
	logger.Debug("translated", "db", tr.DBType, "entity", tr.Entity, "cache", tr.Cache.Enabled)

	out := map[string]any{}
	if tr.Cache.Enabled {
		out["cache"] = tr.Cache.Duration.String()
	}
	switch {
	case tr.Relational != nil:
		out["sql"] = tr.Relational.SQL
		out["args"] = tr.Relational.Args
		out["count"] = tr.Relational.CountSQL
	case tr.Document != nil:
		out["collection"] = tr.Document.Collection
		if tr.Document.Pipeline != nil {
			out["pipeline"], err = extJSON(bson.M{"pipeline": tr.Document.Pipeline})
		} else {
			out["filter"], err = extJSON(tr.Document.Filter)
		}
		if err != nil {
			return err
		}
	case tr.KeyValue != nil:
		out["command"] = tr.KeyValue.Command()
		out["fields"] = tr.KeyValue.Fields
		out["skip"] = tr.KeyValue.Skip
		if tr.KeyValue.Limited {
			out["take"] = tr.KeyValue.Take
		}
	}
	return writeJSON(stdout, out)
}

// extJSON renders a bson document as relaxed extended JSON.
func extJSON(doc bson.M) (json.RawMessage, error) {
	b, err := bson.MarshalExtJSON(doc, false, false)
	if err != nil {
		return nil, fmt.Errorf("cannot render bson: %w", err)
	}
	return b, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
