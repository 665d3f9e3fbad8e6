package lancaster

import "fmt"

// decodeValue is the schema-directed recursive decoder: one function
// dispatching over the SchemaType tag, rather than a virtual-method
// hierarchy per type. It produces exactly one Go value per call and
// advances r past it.
func decodeValue(t SchemaType, r byteReader, registry *TypeRegistry) (interface{}, error) {
	switch t.Kind {
	case KindNull:
		return nil, nil
	case KindBoolean:
		return readBool(r)
	case KindInt:
		return readInt(r)
	case KindLong:
		v, err := readLong(r)
		return v, wrapDecodeErr(err)
	case KindFloat:
		return readFloat(r)
	case KindDouble:
		return readDouble(r)
	case KindBytes:
		return readBytes(r)
	case KindString:
		return readString(r)
	case KindArray:
		return decodeArray(*t.Element, r, registry)
	case KindMap:
		return decodeMap(*t.Element, r, registry)
	case KindUnion:
		return decodeUnion(t.Branches, r, registry)
	case KindReference:
		return decodeReference(t.Ref, r, registry)
	default:
		return nil, fmt.Errorf("%w: unknown schema kind %v", ErrInvalidSchema, t.Kind)
	}
}

func decodeArray(element SchemaType, r byteReader, registry *TypeRegistry) ([]interface{}, error) {
	values := []interface{}{}
	for {
		count, err := readBlockCount(r)
		if err != nil {
			return nil, err
		}
		if count == 0 {
			return values, nil
		}
		for i := int64(0); i < count; i++ {
			v, err := decodeValue(element, r, registry)
			if err != nil {
				return nil, err
			}
			values = append(values, v)
		}
	}
}

func decodeMap(valueType SchemaType, r byteReader, registry *TypeRegistry) (map[string]interface{}, error) {
	result := map[string]interface{}{}
	for {
		count, err := readBlockCount(r)
		if err != nil {
			return nil, err
		}
		if count == 0 {
			return result, nil
		}
		for i := int64(0); i < count; i++ {
			key, err := readString(r)
			if err != nil {
				return nil, err
			}
			value, err := decodeValue(valueType, r, registry)
			if err != nil {
				return nil, err
			}
			// Last write wins on duplicate keys.
			result[key] = value
		}
	}
}

func decodeUnion(branches []SchemaType, r byteReader, registry *TypeRegistry) (interface{}, error) {
	index, err := readLong(r)
	if err != nil {
		return nil, wrapDecodeErr(err)
	}
	if index < 0 || index >= int64(len(branches)) {
		return nil, fmt.Errorf("%w: union index %d out of range for %d branches", ErrInvalidFormat, index, len(branches))
	}
	return decodeValue(branches[index], r, registry)
}

func decodeReference(id TypeId, r byteReader, registry *TypeRegistry) (interface{}, error) {
	named, ok := registry.get(id)
	if !ok {
		// Unreachable once a Schema has been successfully compiled:
		// every Reference resolves to a completed NamedType by then.
		return nil, fmt.Errorf("%w: unresolved type reference", ErrInvalidSchema)
	}

	switch named.Kind {
	case NamedFixed:
		return readFixed(r, named.Size)
	case NamedEnum:
		index, err := readLong(r)
		if err != nil {
			return nil, wrapDecodeErr(err)
		}
		if index < 0 || index >= int64(len(named.Symbols)) {
			return nil, fmt.Errorf("%w: enum %q index %d out of range for %d symbols", ErrBadEncoding, named.Name, index, len(named.Symbols))
		}
		return named.Symbols[index], nil
	case NamedRecord:
		values := make(map[string]interface{}, len(named.Fields))
		for _, field := range named.Fields {
			v, err := decodeValue(field.Type, r, registry)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", field.Name, err)
			}
			values[field.Name] = v
		}
		return values, nil
	default:
		return nil, fmt.Errorf("%w: unknown named type kind %v", ErrInvalidSchema, named.Kind)
	}
}
