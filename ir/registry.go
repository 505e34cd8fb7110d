package ir

import (
	"fmt"
	"strconv"
)

// TypeRegistry deduplicates the types of a module.
// Structurally identical types share one handle.
type TypeRegistry struct {
	module  *Module
	typeMap map[string]TypeHandle
	indexed int    // number of module types already in typeMap
	keyBuf  []byte // reusable buffer for building type keys
}

// NewTypeRegistry creates a registry over the module's type arena.
// Types already present in the module are indexed; duplicates among them keep
// the first handle.
func NewTypeRegistry(m *Module) *TypeRegistry {
	r := &TypeRegistry{
		module:  m,
		typeMap: make(map[string]TypeHandle, len(m.Types)+16),
		keyBuf:  make([]byte, 0, 64),
	}
	r.sync()
	return r
}

// sync indexes types appended to the module outside the registry.
func (r *TypeRegistry) sync() {
	for ; r.indexed < len(r.module.Types); r.indexed++ {
		key := r.normalizeType(r.module.Types[r.indexed].Inner)
		if _, exists := r.typeMap[key]; !exists {
			r.typeMap[key] = TypeHandle(r.indexed)
		}
	}
}

// GetOrCreate returns an existing handle for the type if it exists,
// or creates a new one if it's unique.
func (r *TypeRegistry) GetOrCreate(name string, inner TypeInner) TypeHandle {
	r.sync()
	key := r.normalizeType(inner)

	if handle, exists := r.typeMap[key]; exists {
		return handle
	}

	handle := r.module.AddType(name, inner)
	r.typeMap[key] = handle
	r.indexed = len(r.module.Types)
	return handle
}

// normalizeType creates a unique key for a type based on its structure.
// Uses a reusable byte buffer to avoid fmt.Sprintf allocations for common types.
func (r *TypeRegistry) normalizeType(inner TypeInner) string {
	b := r.keyBuf[:0]

	switch t := inner.(type) {
	case ScalarType:
		b = append(b, "scalar:"...)
		b = strconv.AppendInt(b, int64(t.Kind), 10)
		b = append(b, ':')
		b = strconv.AppendUint(b, uint64(t.Width), 10)
		r.keyBuf = b
		return string(b)

	case VectorType:
		// Recursive call clobbers keyBuf, so build with string concat.
		scalarKey := r.normalizeType(t.Scalar)
		return "vec:" + strconv.FormatUint(uint64(t.Size), 10) + ":" + scalarKey

	case ArrayType:
		return "array:" + strconv.FormatUint(uint64(t.Base), 10) + ":" + strconv.FormatUint(uint64(t.Size), 10)

	case StructType:
		key := fmt.Sprintf("struct:%d", len(t.Members))
		for _, member := range t.Members {
			key += fmt.Sprintf(":m(%s,%d)", member.Name, member.Type)
		}
		return key

	case PointerType:
		return "ptr:" + strconv.FormatUint(uint64(t.Base), 10) + ":" + strconv.FormatInt(int64(t.Space), 10)

	case ImageType:
		return fmt.Sprintf("image:%d:%v:%d:%v:%d", t.Dim, t.Arrayed, t.Class, t.Multisampled, t.Element)

	default:
		return fmt.Sprintf("unknown:%T", inner)
	}
}

// Lookup finds a type by its handle.
func (r *TypeRegistry) Lookup(handle TypeHandle) (Type, bool) {
	if int(handle) >= len(r.module.Types) {
		return Type{}, false
	}
	return r.module.Types[handle], true
}

// Count returns the number of unique types registered.
func (r *TypeRegistry) Count() int {
	r.sync()
	return len(r.typeMap)
}
