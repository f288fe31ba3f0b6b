package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"gopkg.in/yaml.v3"

	"github.com/omniql-engine/crudql/engine/config"
	"github.com/omniql-engine/crudql/engine/schema"
)

// File is the optional YAML configuration of the command.
type File struct {
	Logger     LoggerConfig   `yaml:"logger"`
	Delimiters map[string]any `yaml:"delimiters"`
	Entities   []EntityConfig `yaml:"entities"`
}

type LoggerConfig struct {
	Level string `yaml:"level"`
	Type  string `yaml:"type"`
}

type EntityConfig struct {
	Name      string           `yaml:"name"`
	Table     string           `yaml:"table"`
	Columns   []string         `yaml:"columns"`
	Relations []RelationConfig `yaml:"relations"`
}

type RelationConfig struct {
	Name       string `yaml:"name"`
	Entity     string `yaml:"entity"`
	Table      string `yaml:"table"`
	LocalKey   string `yaml:"local_key"`
	ForeignKey string `yaml:"foreign_key"`
}

// loadFile reads path. An empty path gives the zero File.
func loadFile(path string) (*File, error) {
	var f File
	if path == "" {
		return &f, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("cannot parse config: %w", err)
	}
	return &f, nil
}

// Engine returns the delimiter configuration and the entity registry.
func (f *File) Engine() (*config.Config, *schema.Registry, error) {
	cfg, err := config.New(f.Delimiters)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid delimiters: %w", err)
	}

	reg := schema.NewRegistry()
	for _, ec := range f.Entities {
		if ec.Name == "" {
			return nil, nil, fmt.Errorf("entity without name")
		}
		e := schema.Entity{Name: ec.Name, Table: ec.Table, Columns: ec.Columns}
		for _, rc := range ec.Relations {
			e.Relations = append(e.Relations, schema.Relation{
				Name:       rc.Name,
				Entity:     rc.Entity,
				Table:      rc.Table,
				LocalKey:   rc.LocalKey,
				ForeignKey: rc.ForeignKey,
			})
		}
		reg.Register(e)
	}
	return cfg, reg, nil
}

// newLogger builds the command logger. A level flag wins over the file.
func newLogger(w io.Writer, cfg LoggerConfig, levelFlag string) (*slog.Logger, error) {
	name := cfg.Level
	if levelFlag != "" {
		name = levelFlag
	}

	var level slog.Level
	switch name {
	case "debug":
		level = slog.LevelDebug
	case "", "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, fmt.Errorf("invalid log level: %s", name)
	}

	var handler slog.Handler
	switch cfg.Type {
	case "", "colored-text":
		handler = tint.NewHandler(w, &tint.Options{Level: level, TimeFormat: time.Kitchen})
	case "json":
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	case "text":
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	default:
		return nil, fmt.Errorf("invalid log type: %s", cfg.Type)
	}
	return slog.New(handler), nil
}
