package lancaster

import (
	"encoding/json"
	"fmt"
)

var primitiveKinds = map[string]Kind{
	"null":    KindNull,
	"boolean": KindBoolean,
	"int":     KindInt,
	"long":    KindLong,
	"float":   KindFloat,
	"double":  KindDouble,
	"bytes":   KindBytes,
	"string":  KindString,
}

// Compile parses an Avro JSON schema document into a compiled Schema:
// a root SchemaType plus the registry of named types (record, enum,
// fixed) it transitively refers to.
func Compile(jsonText string) (*Schema, error) {
	var doc interface{}
	if err := json.Unmarshal([]byte(jsonText), &doc); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSchema, err)
	}

	registry := newTypeRegistry()
	root, err := parseSchemaType(doc, registry, "")
	if err != nil {
		return nil, err
	}

	return &Schema{root: root, registry: registry}, nil
}

// MustCompile is like Compile but panics on error. Intended for
// compile-time-constant schemas, mirroring the teacher library's
// MustParse-style helpers elsewhere in the corpus.
func MustCompile(jsonText string) *Schema {
	s, err := Compile(jsonText)
	if err != nil {
		panic(err)
	}
	return s
}

// parseSchemaType dispatches on the JSON shape: a string is a type
// reference, an array is a union, and an object dispatches further on
// its "type" attribute.
func parseSchemaType(doc interface{}, registry *TypeRegistry, enclosingNamespace string) (SchemaType, error) {
	switch v := doc.(type) {
	case string:
		return parseTypeReference(v, registry, enclosingNamespace)
	case []interface{}:
		return parseUnion(v, registry, enclosingNamespace)
	case map[string]interface{}:
		return parseSchemaObject(v, registry, enclosingNamespace)
	default:
		return SchemaType{}, fmt.Errorf("%w: schema node must be a string, array, or object", ErrInvalidSchema)
	}
}

func parseTypeReference(typeName string, registry *TypeRegistry, enclosingNamespace string) (SchemaType, error) {
	if kind, ok := primitiveKinds[typeName]; ok {
		return SchemaType{Kind: kind}, nil
	}

	full := buildFullName(typeName, enclosingNamespace)
	id, ok := registry.lookup(full.name)
	if !ok {
		return SchemaType{}, fmt.Errorf("%w: %q", ErrUnrecognizedType, typeName)
	}
	return SchemaType{Kind: KindReference, Ref: id}, nil
}

func parseUnion(branches []interface{}, registry *TypeRegistry, enclosingNamespace string) (SchemaType, error) {
	types := make([]SchemaType, len(branches))
	for i, branch := range branches {
		t, err := parseSchemaType(branch, registry, enclosingNamespace)
		if err != nil {
			return SchemaType{}, fmt.Errorf("union branch %d: %w", i+1, err)
		}
		types[i] = t
	}
	return SchemaType{Kind: KindUnion, Branches: types}, nil
}

func parseSchemaObject(attrs map[string]interface{}, registry *TypeRegistry, enclosingNamespace string) (SchemaType, error) {
	typeAttr, ok := attrs["type"]
	if !ok {
		return SchemaType{}, fmt.Errorf("%w: object schema missing \"type\" attribute", ErrInvalidSchema)
	}
	typeName, ok := typeAttr.(string)
	if !ok {
		return SchemaType{}, fmt.Errorf("%w: \"type\" attribute must be a string", ErrInvalidSchema)
	}

	switch typeName {
	case "array":
		return parseArray(attrs, registry, enclosingNamespace)
	case "map":
		return parseMap(attrs, registry, enclosingNamespace)
	case "fixed":
		return parseFixed(attrs, registry, enclosingNamespace)
	case "enum":
		return parseEnum(attrs, registry, enclosingNamespace)
	case "record":
		return parseRecord(attrs, registry, enclosingNamespace)
	default:
		// {"type": "string"} sugar, or a named-type reference spelled
		// out as an object.
		return parseTypeReference(typeName, registry, enclosingNamespace)
	}
}

func parseArray(attrs map[string]interface{}, registry *TypeRegistry, enclosingNamespace string) (SchemaType, error) {
	items, ok := attrs["items"]
	if !ok {
		return SchemaType{}, fmt.Errorf("%w: array schema missing \"items\" attribute", ErrInvalidSchema)
	}
	elem, err := parseSchemaType(items, registry, enclosingNamespace)
	if err != nil {
		return SchemaType{}, err
	}
	return SchemaType{Kind: KindArray, Element: &elem}, nil
}

func parseMap(attrs map[string]interface{}, registry *TypeRegistry, enclosingNamespace string) (SchemaType, error) {
	values, ok := attrs["values"]
	if !ok {
		return SchemaType{}, fmt.Errorf("%w: map schema missing \"values\" attribute", ErrInvalidSchema)
	}
	elem, err := parseSchemaType(values, registry, enclosingNamespace)
	if err != nil {
		return SchemaType{}, err
	}
	return SchemaType{Kind: KindMap, Element: &elem}, nil
}

func parseFixed(attrs map[string]interface{}, registry *TypeRegistry, enclosingNamespace string) (SchemaType, error) {
	name, err := requiredStringAttr(attrs, "name")
	if err != nil {
		return SchemaType{}, err
	}
	full := buildFullName(name, resolveExplicitNamespace(attrs, enclosingNamespace))

	sizeAttr, ok := attrs["size"]
	if !ok {
		return SchemaType{}, fmt.Errorf("%w: fixed type %q missing \"size\" attribute", ErrInvalidType, full.name)
	}
	sizeFloat, ok := sizeAttr.(float64)
	if !ok || sizeFloat < 0 || sizeFloat != float64(int(sizeFloat)) {
		return SchemaType{}, fmt.Errorf("%w: fixed type %q \"size\" must be a non-negative integer", ErrInvalidType, full.name)
	}

	id, err := registry.add(full.name, NamedType{Kind: NamedFixed, Name: full.name, Size: int(sizeFloat)})
	if err != nil {
		return SchemaType{}, err
	}
	return SchemaType{Kind: KindReference, Ref: id}, nil
}

func parseEnum(attrs map[string]interface{}, registry *TypeRegistry, enclosingNamespace string) (SchemaType, error) {
	name, err := requiredStringAttr(attrs, "name")
	if err != nil {
		return SchemaType{}, err
	}
	full := buildFullName(name, resolveExplicitNamespace(attrs, enclosingNamespace))

	symbolsAttr, ok := attrs["symbols"]
	if !ok {
		return SchemaType{}, fmt.Errorf("%w: enum type %q missing \"symbols\" attribute", ErrInvalidType, full.name)
	}
	rawSymbols, ok := symbolsAttr.([]interface{})
	if !ok {
		return SchemaType{}, fmt.Errorf("%w: enum type %q \"symbols\" must be an array", ErrInvalidType, full.name)
	}
	symbols := make([]string, len(rawSymbols))
	for i, s := range rawSymbols {
		str, ok := s.(string)
		if !ok || str == "" {
			return SchemaType{}, fmt.Errorf("%w: enum type %q symbol %d must be a non-empty string", ErrInvalidType, full.name, i)
		}
		symbols[i] = str
	}

	id, err := registry.add(full.name, NamedType{Kind: NamedEnum, Name: full.name, Symbols: symbols})
	if err != nil {
		return SchemaType{}, err
	}
	return SchemaType{Kind: KindReference, Ref: id}, nil
}

func parseRecord(attrs map[string]interface{}, registry *TypeRegistry, enclosingNamespace string) (SchemaType, error) {
	name, err := requiredStringAttr(attrs, "name")
	if err != nil {
		return SchemaType{}, err
	}
	full := buildFullName(name, resolveExplicitNamespace(attrs, enclosingNamespace))

	// Reserve the id before compiling fields so a field type may refer
	// back to this record, directly or through a union, permitting
	// self- and mutually-recursive records.
	id, err := registry.reserve(full.name)
	if err != nil {
		return SchemaType{}, err
	}

	fieldsAttr, ok := attrs["fields"]
	if !ok {
		return SchemaType{}, fmt.Errorf("%w: record type %q missing \"fields\" attribute", ErrInvalidType, full.name)
	}
	rawFields, ok := fieldsAttr.([]interface{})
	if !ok {
		return SchemaType{}, fmt.Errorf("%w: record type %q \"fields\" must be an array", ErrInvalidType, full.name)
	}

	fields := make([]Field, len(rawFields))
	for i, rawField := range rawFields {
		fieldAttrs, ok := rawField.(map[string]interface{})
		if !ok {
			return SchemaType{}, fmt.Errorf("%w: record type %q field %d must be an object", ErrInvalidType, full.name, i)
		}
		field, err := parseField(fieldAttrs, registry, full.namespace)
		if err != nil {
			return SchemaType{}, fmt.Errorf("record type %q field %d: %w", full.name, i, err)
		}
		fields[i] = field
	}

	registry.complete(id, NamedType{Kind: NamedRecord, Name: full.name, Fields: fields})
	return SchemaType{Kind: KindReference, Ref: id}, nil
}

func parseField(attrs map[string]interface{}, registry *TypeRegistry, enclosingNamespace string) (Field, error) {
	name, err := requiredStringAttr(attrs, "name")
	if err != nil {
		return Field{}, err
	}

	typeAttr, ok := attrs["type"]
	if !ok {
		return Field{}, fmt.Errorf("%w: field %q missing \"type\" attribute", ErrInvalidSchema, name)
	}
	fieldType, err := parseSchemaType(typeAttr, registry, enclosingNamespace)
	if err != nil {
		return Field{}, err
	}
	return Field{Name: name, Type: fieldType}, nil
}

func requiredStringAttr(attrs map[string]interface{}, key string) (string, error) {
	v, ok := attrs[key]
	if !ok {
		return "", fmt.Errorf("%w: missing %q attribute", ErrInvalidType, key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %q attribute must be a string", ErrInvalidType, key)
	}
	return s, nil
}

// resolveExplicitNamespace returns the schema-node's own namespace
// attribute when present, otherwise the inherited enclosing namespace.
func resolveExplicitNamespace(attrs map[string]interface{}, enclosingNamespace string) string {
	if v, ok := attrs["namespace"]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return enclosingNamespace
}
