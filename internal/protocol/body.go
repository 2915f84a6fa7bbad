package protocol

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/sanonone/travelsdb/pkg/core"
	"github.com/sanonone/travelsdb/pkg/core/types"
)

func idSchema() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "integer", Minimum: jsonschema.Ptr(0.0), Maximum: jsonschema.Ptr(float64(math.MaxUint32))}
}

func stringSchema() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string"}
}

func timestampSchema() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "integer"}
}

// entityProperties returns the property schemas of an entity. Ids are only
// part of create payloads.
func entityProperties(e types.Entity, withID bool) map[string]*jsonschema.Schema {
	var props map[string]*jsonschema.Schema
	switch e {
	case types.EntityUser:
		props = map[string]*jsonschema.Schema{
			"email":      stringSchema(),
			"first_name": stringSchema(),
			"last_name":  stringSchema(),
			"gender":     {Type: "string", Enum: []any{types.Male.String(), types.Female.String()}},
			"birth_date": timestampSchema(),
		}
	case types.EntityLocation:
		props = map[string]*jsonschema.Schema{
			"place":    stringSchema(),
			"country":  stringSchema(),
			"city":     stringSchema(),
			"distance": idSchema(),
		}
	case types.EntityVisit:
		props = map[string]*jsonschema.Schema{
			"location":   idSchema(),
			"user":       idSchema(),
			"visited_at": timestampSchema(),
			"mark":       {Type: "integer", Minimum: jsonschema.Ptr(0.0), Maximum: jsonschema.Ptr(float64(types.MaxMark))},
		}
	}
	if withID {
		props["id"] = idSchema()
	}
	return props
}

func requiredFields(props map[string]*jsonschema.Schema) []string {
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	return names
}

// schemaSet holds the resolved create and update schemas of one entity.
type schemaSet struct {
	create *jsonschema.Resolved
	update *jsonschema.Resolved
}

var schemas = mustResolveSchemas()

func mustResolveSchemas() map[types.Entity]schemaSet {
	out := make(map[types.Entity]schemaSet, 3)
	for _, e := range []types.Entity{types.EntityUser, types.EntityLocation, types.EntityVisit} {
		createProps := entityProperties(e, true)
		create, err := (&jsonschema.Schema{
			Type:       "object",
			Properties: createProps,
			Required:   requiredFields(createProps),
		}).Resolve(nil)
		if err != nil {
			panic(fmt.Sprintf("protocol: %s create schema: %v", e, err))
		}
		update, err := (&jsonschema.Schema{
			Type:       "object",
			Properties: entityProperties(e, false),
		}).Resolve(nil)
		if err != nil {
			panic(fmt.Sprintf("protocol: %s update schema: %v", e, err))
		}
		out[e] = schemaSet{create: create, update: update}
	}
	return out
}

// Schema returns the JSON schema a create (or, with update set, an update)
// payload of e must satisfy.
func Schema(e types.Entity, update bool) *jsonschema.Schema {
	set, ok := schemas[e]
	if !ok {
		return nil
	}
	if update {
		return set.update.Schema()
	}
	return set.create.Schema()
}

// validate checks body against the entity schema before it is decoded into
// a typed value.
func validate(rs *jsonschema.Resolved, body []byte) error {
	var instance any
	if err := json.Unmarshal(body, &instance); err != nil {
		return fmt.Errorf("body is not JSON: %v: %w", err, core.ErrBadRequest)
	}
	if err := rs.Validate(instance); err != nil {
		return fmt.Errorf("%v: %w", err, core.ErrBadRequest)
	}
	return nil
}

// DecodeRecord validates and decodes a complete record of kind e.
func DecodeRecord(e types.Entity, body []byte) (any, error) {
	set, ok := schemas[e]
	if !ok {
		return nil, fmt.Errorf("no schema for %s: %w", e, core.ErrBadRequest)
	}
	if err := validate(set.create, body); err != nil {
		return nil, err
	}

	var (
		rec any
		err error
	)
	switch e {
	case types.EntityUser:
		rec, err = types.DecodeUser(body)
	case types.EntityLocation:
		rec, err = types.DecodeLocation(body)
	case types.EntityVisit:
		rec, err = types.DecodeVisit(body)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrBadRequest, err)
	}
	return rec, nil
}

// DecodePatch validates and decodes a partial update of kind e. Absent
// fields stay unset; explicit nulls are a bad request.
func DecodePatch(e types.Entity, body []byte) (any, error) {
	set, ok := schemas[e]
	if !ok {
		return nil, fmt.Errorf("no schema for %s: %w", e, core.ErrBadRequest)
	}
	if err := validate(set.update, body); err != nil {
		return nil, err
	}

	var (
		patch any
		err   error
	)
	switch e {
	case types.EntityUser:
		patch, err = types.DecodeUserPatch(body)
	case types.EntityLocation:
		patch, err = types.DecodeLocationPatch(body)
	case types.EntityVisit:
		patch, err = types.DecodeVisitPatch(body)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrBadRequest, err)
	}
	return patch, nil
}
