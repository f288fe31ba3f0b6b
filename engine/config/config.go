// Package config holds the delimiter and operator tokens that make up the
// query string grammar. A Config is built once, is never mutated, and is
// safe to share between goroutines.
package config

import (
	"fmt"
	"strconv"
	"time"

	"dario.cat/mergo"
	"github.com/mitchellh/mapstructure"

	"github.com/omniql-engine/crudql/engine/models"
	"github.com/omniql-engine/crudql/mapping"
)

// Options mirrors mapping.DefaultOptions as a struct. Empty fields fall back
// to the default when merged.
type Options struct {
	LookupDelimiter    string `mapstructure:"lookupDelimiter"`
	RelationDelimiter  string `mapstructure:"relationDelimiter"`
	NestedDelimiter    string `mapstructure:"nestedDelimiter"`
	ConditionDelimiter string `mapstructure:"conditionDelimiter"`
	ValueDelimiter     string `mapstructure:"valueDelimiter"`
	OrKeyword          string `mapstructure:"orKeyword"`
	AndKeyword         string `mapstructure:"andKeyword"`
	NotPrefix          string `mapstructure:"notPrefix"`
	GroupOpen          string `mapstructure:"groupOpen"`
	GroupClose         string `mapstructure:"groupClose"`
	Wildcard           string `mapstructure:"wildcard"`
	InnerJoinPrefix    string `mapstructure:"innerJoinPrefix"`
	DefaultLimit       string `mapstructure:"defaultLimit"`
	MaxLimit           string `mapstructure:"maxLimit"`
	CacheDuration      string `mapstructure:"cacheDuration"`
	MaxGroups          string `mapstructure:"maxGroups"`

	Eq      string `mapstructure:"eq"`
	Ne      string `mapstructure:"ne"`
	Cont    string `mapstructure:"cont"`
	Starts  string `mapstructure:"starts"`
	Ends    string `mapstructure:"ends"`
	IsNull  string `mapstructure:"isnull"`
	Gt      string `mapstructure:"gt"`
	Gte     string `mapstructure:"gte"`
	Lt      string `mapstructure:"lt"`
	Lte     string `mapstructure:"lte"`
	In      string `mapstructure:"in"`
	Between string `mapstructure:"between"`
}

// Config is the effective, resolved configuration.
type Config struct {
	opts          Options
	effective     map[string]string
	operators     map[string]models.Kind
	defaultLimit  int
	maxLimit      int
	maxGroups     int
	cacheDuration time.Duration
}

// Default returns the configuration made only of documented defaults.
func Default() *Config {
	cfg, err := New(nil)
	if err != nil {
		// defaults are static; failing here is a programming error
		panic(fmt.Sprintf("config: invalid defaults: %v", err))
	}
	return cfg
}

// New overlays overrides onto the defaults. Keys are option names from the
// mapping package; values may be strings or numbers. Unknown keys are an
// error; empty values keep the default.
func New(overrides map[string]any) (*Config, error) {
	var defaults Options
	if err := mapstructure.Decode(mapping.DefaultOptions, &defaults); err != nil {
		return nil, fmt.Errorf("decode defaults: %w", err)
	}

	var opts Options
	if len(overrides) > 0 {
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           &opts,
			WeaklyTypedInput: true,
			ErrorUnused:      true,
		})
		if err != nil {
			return nil, err
		}
		if err := dec.Decode(overrides); err != nil {
			return nil, fmt.Errorf("decode options: %w", err)
		}
	}

	if err := mergo.Merge(&opts, defaults); err != nil {
		return nil, fmt.Errorf("merge options: %w", err)
	}

	return build(opts)
}

func build(opts Options) (*Config, error) {
	cfg := &Config{opts: opts}

	effective := map[string]any{}
	if err := mapstructure.Decode(opts, &effective); err != nil {
		return nil, fmt.Errorf("encode options: %w", err)
	}
	cfg.effective = make(map[string]string, len(effective))
	for k, v := range effective {
		cfg.effective[k] = fmt.Sprint(v)
	}

	cfg.operators = make(map[string]models.Kind, len(mapping.OperatorOptions))
	for name, kind := range mapping.OperatorOptions {
		cfg.operators[cfg.effective[name]] = kind
	}

	var err error
	if cfg.defaultLimit, err = strconv.Atoi(opts.DefaultLimit); err != nil || cfg.defaultLimit < 1 {
		return nil, fmt.Errorf("invalid %s %q", mapping.OptDefaultLimit, opts.DefaultLimit)
	}
	if cfg.maxLimit, err = strconv.Atoi(opts.MaxLimit); err != nil || cfg.maxLimit < 0 {
		return nil, fmt.Errorf("invalid %s %q", mapping.OptMaxLimit, opts.MaxLimit)
	}
	if cfg.maxGroups, err = strconv.Atoi(opts.MaxGroups); err != nil || cfg.maxGroups < 1 {
		return nil, fmt.Errorf("invalid %s %q", mapping.OptMaxGroups, opts.MaxGroups)
	}
	if cfg.cacheDuration, err = time.ParseDuration(opts.CacheDuration); err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", mapping.OptCacheDuration, opts.CacheDuration, err)
	}
	return cfg, nil
}

// Get returns a copy of the effective option map.
func (c *Config) Get() map[string]string {
	out := make(map[string]string, len(c.effective))
	for k, v := range c.effective {
		out[k] = v
	}
	return out
}

// Options returns the effective options.
func (c *Config) Options() Options { return c.opts }

// Token returns the effective token of an option name.
func (c *Config) Token(name string) string { return c.effective[name] }

// Operator resolves an operator token (without NOT prefix) to its kind.
func (c *Config) Operator(token string) (models.Kind, bool) {
	kind, ok := c.operators[token]
	return kind, ok
}

// OperatorTokens lists every configured operator token.
func (c *Config) OperatorTokens() []string {
	out := make([]string, 0, len(c.operators))
	for tok := range c.operators {
		out = append(out, tok)
	}
	return out
}

// OrSeparator is the full OR sequence, "||$or||" by default.
func (c *Config) OrSeparator() string {
	return c.opts.LookupDelimiter + c.opts.OrKeyword + c.opts.LookupDelimiter
}

// AndSeparator is the full AND sequence, "||$and||" by default.
func (c *Config) AndSeparator() string {
	return c.opts.LookupDelimiter + c.opts.AndKeyword + c.opts.LookupDelimiter
}

// DefaultLimit is the page size used when a page is requested without limit.
func (c *Config) DefaultLimit() int { return c.defaultLimit }

// MaxLimit caps take. Zero means unlimited.
func (c *Config) MaxLimit() int { return c.maxLimit }

// MaxGroups caps the AND-groups a filter may expand to when parenthesized
// OR groups are distributed.
func (c *Config) MaxGroups() int { return c.maxGroups }

// CacheDuration is the cache window applied when cache=true.
func (c *Config) CacheDuration() time.Duration { return c.cacheDuration }
