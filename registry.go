package lancaster

import (
	"fmt"

	"golang.org/x/exp/slices"
)

// TypeRegistry is an arena of named type definitions indexed by a dense,
// insertion-ordered TypeId, plus a fully-qualified-name index for
// resolving references during compilation. Forward and self references
// are supported by reserving an id (recording the name, no definition
// yet) before the type's body is compiled, then completing it once the
// body is known.
//
// A TypeRegistry is only ever mutated during schema compilation; once
// Compile returns successfully every reserved id has been completed.
type TypeRegistry struct {
	definitions []*NamedType // nil entry means reserved but not yet completed
	byName      map[string]TypeId
}

func newTypeRegistry() *TypeRegistry {
	return &TypeRegistry{
		byName: make(map[string]TypeId),
	}
}

// reserve assigns a fresh TypeId to name before its definition is known,
// so that types compiled while resolving its body may reference it back.
// It is an error to reserve a name already present in the registry,
// completed or not.
func (r *TypeRegistry) reserve(name string) (TypeId, error) {
	if _, exists := r.byName[name]; exists {
		return 0, fmt.Errorf("%w: duplicate type name %q (known names: %v)", ErrInvalidSchema, name, r.sortedNames())
	}
	id := TypeId(len(r.definitions))
	r.definitions = append(r.definitions, nil)
	r.byName[name] = id
	return id, nil
}

// complete fills in the definition for a previously reserved id.
func (r *TypeRegistry) complete(id TypeId, def NamedType) {
	r.definitions[id] = &def
}

// add reserves and immediately completes a definition in one step, for
// named types (fixed, enum) whose body never needs to reference their
// own id.
func (r *TypeRegistry) add(name string, def NamedType) (TypeId, error) {
	id, err := r.reserve(name)
	if err != nil {
		return 0, err
	}
	r.complete(id, def)
	return id, nil
}

// lookup resolves a fully qualified name to its TypeId.
func (r *TypeRegistry) lookup(name string) (TypeId, bool) {
	id, ok := r.byName[name]
	return id, ok
}

// get returns the completed definition for id. ok is false if id is out
// of range or (transiently, mid-compilation) still reserved.
func (r *TypeRegistry) get(id TypeId) (NamedType, bool) {
	if int(id) < 0 || int(id) >= len(r.definitions) {
		return NamedType{}, false
	}
	def := r.definitions[id]
	if def == nil {
		return NamedType{}, false
	}
	return *def, true
}

// sortedNames returns every registered name in sorted order, used only to
// build a readable duplicate-registration error message.
func (r *TypeRegistry) sortedNames() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
