package models

import (
	"google.golang.org/protobuf/types/known/structpb"
)

// ToMap renders the descriptor as plain JSON-friendly values. Keys that were
// not requested are omitted, so an empty descriptor renders as an empty map.
func (d *Descriptor) ToMap() map[string]any {
	m := map[string]any{}
	if d == nil {
		return m
	}
	if d.Select != nil {
		sel := make(map[string]any, len(d.Select))
		for k, v := range d.Select {
			sel[k] = v
		}
		m["select"] = sel
	}
	if d.Relations != nil {
		rel := make([]any, len(d.Relations))
		for i, r := range d.Relations {
			rel[i] = r
		}
		m["relations"] = rel
	}
	if d.Where != nil {
		where := make([]any, len(d.Where))
		for i, g := range d.Where {
			where[i] = g.ToMap()
		}
		m["where"] = where
	}
	if d.Order != nil {
		order := make(map[string]any, len(d.Order))
		for _, o := range d.Order {
			entry := map[string]any{"direction": string(o.Direction)}
			if o.Nulls != "" {
				entry["nulls"] = string(o.Nulls)
			}
			order[o.Field] = entry
		}
		m["order"] = order
	}
	if d.Skip != nil {
		m["skip"] = *d.Skip
	}
	if d.Take != nil {
		m["take"] = *d.Take
	}
	if d.Cache != nil {
		m["cache"] = *d.Cache
	}
	return m
}

// ToProto converts the descriptor into a protobuf Struct for transport.
func (d *Descriptor) ToProto() (*structpb.Struct, error) {
	return structpb.NewStruct(d.ToMap())
}
