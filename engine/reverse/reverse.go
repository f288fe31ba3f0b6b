// Package reverse converts native SQL SELECT statements back into request
// parameters.
package reverse

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/jinzhu/inflection"

	"github.com/omniql-engine/crudql/engine/config"
	"github.com/omniql-engine/crudql/engine/models"
	"github.com/omniql-engine/crudql/mapping"
)

// ============================================================================
// ERRORS
// ============================================================================

var (
	ErrNotSupported = errors.New("not expressible as query parameters")
	ErrParseError   = errors.New("failed to parse query")
	ErrEmptyQuery   = errors.New("empty query")
)

// ============================================================================
// MAIN INTERFACE
// ============================================================================

// Result is a reversed statement.
type Result struct {
	Table  string
	Entity string
	Params models.Params
}

// Values encodes the parameters under their request names, skipping empty
// ones.
func (r *Result) Values() url.Values {
	v := url.Values{}
	for name, value := range map[string]string{
		mapping.ParamSelect: r.Params.Select,
		mapping.ParamJoin:   r.Params.Join,
		mapping.ParamSort:   r.Params.Sort,
		mapping.ParamLimit:  r.Params.Limit,
		mapping.ParamPage:   r.Params.Page,
		mapping.ParamFilter: r.Params.Filter,
		mapping.ParamGroup:  r.Params.Group,
		mapping.ParamHaving: r.Params.Having,
	} {
		if value != "" {
			v.Set(name, value)
		}
	}
	return v
}

// Converter renders reversed statements with the tokens of a config.
type Converter struct {
	cfg *config.Config
}

// New creates a converter. A nil cfg uses the defaults.
func New(cfg *config.Config) *Converter {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Converter{cfg: cfg}
}

// ToParams converts query with the default tokens.
func ToParams(query, dbType string) (*Result, error) {
	return New(nil).ToParams(query, dbType)
}

// ToParams converts one SELECT written for dbType.
func (c *Converter) ToParams(query, dbType string) (*Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	var (
		st  *statement
		err error
	)
	switch dbType {
	case "PostgreSQL":
		st, err = c.fromPostgreSQL(query)
	case "MySQL":
		st, err = c.fromMySQL(query)
	default:
		return nil, fmt.Errorf("%w: unsupported database %s", ErrNotSupported, dbType)
	}
	if err != nil {
		return nil, err
	}

	params, err := c.params(st)
	if err != nil {
		return nil, err
	}
	return &Result{
		Table:  st.table,
		Entity: inflection.Singular(strings.ToLower(st.table)),
		Params: params,
	}, nil
}
