package lancaster

// TypeId is a stable, opaque identifier assigned to a named type (record,
// enum, or fixed) the first time it is introduced into a TypeRegistry.
// Once assigned it is never reused or invalidated for the lifetime of the
// compiled schema. TypeIds from different registries are not comparable.
type TypeId int

// Kind tags which variant a SchemaType holds.
type Kind int

const (
	KindNull Kind = iota
	KindBoolean
	KindInt
	KindLong
	KindFloat
	KindDouble
	KindBytes
	KindString
	KindArray
	KindMap
	KindUnion
	KindReference
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBoolean:
		return "boolean"
	case KindInt:
		return "int"
	case KindLong:
		return "long"
	case KindFloat:
		return "float"
	case KindDouble:
		return "double"
	case KindBytes:
		return "bytes"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindMap:
		return "map"
	case KindUnion:
		return "union"
	case KindReference:
		return "reference"
	default:
		return "unknown"
	}
}

// SchemaType is a node in the compiled schema graph. Array and Map share
// the Element slot for their single nested type; Union carries its
// branches in order (selection is by index, so order is significant);
// Reference is an indirection into the owning Schema's registry, used for
// every named type so that records can be self- or mutually-recursive.
type SchemaType struct {
	Kind     Kind
	Element  *SchemaType  // Array item type, or Map value type
	Branches []SchemaType // Union branches, in declaration order
	Ref      TypeId        // valid when Kind == KindReference
}

// Field is a single named member of a record, in wire order.
type Field struct {
	Name string
	Type SchemaType
}

// NamedKind tags which variant a NamedType holds.
type NamedKind int

const (
	NamedFixed NamedKind = iota
	NamedEnum
	NamedRecord
)

// NamedType is a named type definition stored in a TypeRegistry: a fixed
// byte array, an enum, or a record. Only one of Size, Symbols, or Fields
// is meaningful, selected by Kind.
type NamedType struct {
	Kind    NamedKind
	Name    string // fully qualified name
	Size    int
	Symbols []string
	Fields  []Field
}

// Schema is a compiled Avro schema: a root type (which need not itself be
// a named reference) plus the registry of named types it and its
// descendants refer to. A Schema is immutable once Compile returns and
// may be shared across any number of Decoders without synchronization.
type Schema struct {
	root     SchemaType
	registry *TypeRegistry
}

// Root returns the schema's root type.
func (s *Schema) Root() SchemaType {
	return s.root
}

// Lookup returns the named type registered under id. It only ever
// returns ok == false for a TypeId foreign to this schema's registry;
// every TypeId produced by a successful Compile resolves.
func (s *Schema) Lookup(id TypeId) (NamedType, bool) {
	return s.registry.get(id)
}
