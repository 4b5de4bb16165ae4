package rulekey

import (
	"fmt"
	"sort"

	"github.com/forgebuild/forgecore/artifact"
)

// Value is an attribute value as it contributes to a rule key: a scalar, a
// path source, a build-target source, or a collection of values. It is a
// smaller vocabulary than a full attribute bag (Arg) value, covering only
// what affects the digest.
type Value interface {
	// writeInto appends this value's canonical bytes to h, using hashFile
	// to compute a path source's content hash.
	writeInto(h *Hasher) error
	// sortKey is the canonical string used to order this value within a
	// set or map, so sets/maps hash deterministically regardless of
	// iteration order.
	sortKey() string
}

type scalarValue struct {
	tag string
	lit string
}

func (v scalarValue) writeInto(h *Hasher) error {
	h.writeTagged(v.tag, []byte(v.lit))
	return nil
}
func (v scalarValue) sortKey() string { return v.tag + ":" + v.lit }

// String wraps a string attribute value.
func String(s string) Value { return scalarValue{tag: "str", lit: s} }

// Int wraps an integer attribute value.
func Int(i int64) Value { return scalarValue{tag: "int", lit: fmt.Sprintf("%d", i)} }

// Bool wraps a boolean attribute value.
func Bool(b bool) Value { return scalarValue{tag: "bool", lit: fmt.Sprintf("%t", b)} }

type pathSourceValue struct {
	sp artifact.SourcePath
}

func (v pathSourceValue) writeInto(h *Hasher) error {
	p, ok := v.sp.Path()
	if !ok {
		return fmt.Errorf("rulekey: PathSourceValue given a non-path source %s", v.sp.Canonical())
	}
	contentHash, err := h.hashFile(p)
	if err != nil {
		return fmt.Errorf("hashing content of %q: %w", p, err)
	}
	h.writeTagged("path_src", []byte(p+"\x00"+contentHash))
	return nil
}
func (v pathSourceValue) sortKey() string { return "path_src:" + v.sp.Canonical() }

// PathSourceValue wraps a path-source attribute value. Hashed as
// tag + cell-relative path + content hash of the referenced file.
func PathSourceValue(sp artifact.SourcePath) Value { return pathSourceValue{sp: sp} }

type targetSourceValue struct {
	sp artifact.SourcePath
}

func (v targetSourceValue) writeInto(h *Hasher) error {
	t, out, ok := v.sp.Target()
	if !ok {
		return fmt.Errorf("rulekey: TargetSourceValue given a non-target source %s", v.sp.Canonical())
	}
	h.writeTagged("target_src", []byte(t.String()+":"+out))
	return nil
}
func (v targetSourceValue) sortKey() string { return "target_src:" + v.sp.Canonical() }

// TargetSourceValue wraps a build-target-source attribute value. Hashed as
// tag + canonical target form only -- never recursing into the producing
// rule. This is the cycle-breaking rule.
func TargetSourceValue(sp artifact.SourcePath) Value { return targetSourceValue{sp: sp} }

// SourceValue dispatches to PathSourceValue or TargetSourceValue based on
// the kind of sp, for callers that don't know which variant they hold.
func SourceValue(sp artifact.SourcePath) Value {
	if sp.Kind() == artifact.BuildTargetSource {
		return TargetSourceValue(sp)
	}
	return PathSourceValue(sp)
}

type targetRefValue struct {
	t artifact.BuildTarget
}

func (v targetRefValue) writeInto(h *Hasher) error {
	h.writeTagged("target_ref", []byte(v.t.String()))
	return nil
}
func (v targetRefValue) sortKey() string { return "target_ref:" + v.t.String() }

// TargetRefValue wraps a plain target-reference attribute value (e.g. a
// `deps` entry that is not consumed as a source path).
func TargetRefValue(t artifact.BuildTarget) Value { return targetRefValue{t: t} }

type listValue struct {
	items []Value
}

func (v listValue) writeInto(h *Hasher) error {
	h.writeTagged("list_len", []byte(fmt.Sprintf("%d", len(v.items))))
	for _, item := range v.items {
		if err := item.writeInto(h); err != nil {
			return err
		}
	}
	return nil
}
func (v listValue) sortKey() string {
	s := "list:"
	for _, item := range v.items {
		s += item.sortKey() + ","
	}
	return s
}

// ListValue wraps an ordered sequence attribute value. Hashed as element
// count followed by each element in iteration (declaration) order.
func ListValue(items ...Value) Value { return listValue{items: items} }

type setValue struct {
	items []Value
}

func (v setValue) writeInto(h *Hasher) error {
	sorted := append([]Value(nil), v.items...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].sortKey() < sorted[j].sortKey() })
	h.writeTagged("set_len", []byte(fmt.Sprintf("%d", len(sorted))))
	for _, item := range sorted {
		if err := item.writeInto(h); err != nil {
			return err
		}
	}
	return nil
}
func (v setValue) sortKey() string {
	sorted := append([]Value(nil), v.items...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].sortKey() < sorted[j].sortKey() })
	s := "set:"
	for _, item := range sorted {
		s += item.sortKey() + ","
	}
	return s
}

// SetValue wraps a set attribute value. Hashed in canonical sort order so
// the digest is independent of the set's iteration order.
func SetValue(items ...Value) Value { return setValue{items: items} }

type mapValue struct {
	keys   []string
	values []Value
}

func (v mapValue) writeInto(h *Hasher) error {
	type kv struct {
		k string
		v Value
	}
	pairs := make([]kv, len(v.keys))
	for i := range v.keys {
		pairs[i] = kv{v.keys[i], v.values[i]}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].k < pairs[j].k })
	h.writeTagged("map_len", []byte(fmt.Sprintf("%d", len(pairs))))
	for _, p := range pairs {
		h.writeTagged("map_key", []byte(p.k))
		if err := p.v.writeInto(h); err != nil {
			return err
		}
	}
	return nil
}
func (v mapValue) sortKey() string {
	return fmt.Sprintf("map:%d", len(v.keys))
}

// MapValue wraps a path-to-source-path (or any string-keyed) mapping
// attribute value. Hashed with keys visited in sorted order.
func MapValue(keys []string, values []Value) Value {
	return mapValue{keys: keys, values: values}
}
