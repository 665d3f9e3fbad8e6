package lancaster

import "strings"

// fullName is a fully qualified Avro name together with the namespace
// portion of it, precomputed so callers never need to re-split the string.
type fullName struct {
	name      string
	namespace string // empty denotes the null namespace
}

// buildFullName applies Avro's name resolution rule: a name containing a
// dot is already fully qualified; otherwise it is prefixed with the
// enclosing namespace (if any), separated by a dot.
func buildFullName(name string, enclosingNamespace string) fullName {
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		return fullName{name: name, namespace: name[:idx]}
	}
	if enclosingNamespace != "" {
		return fullName{name: enclosingNamespace + "." + name, namespace: enclosingNamespace}
	}
	return fullName{name: name, namespace: ""}
}
