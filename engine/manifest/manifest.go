// Package manifest implements the packed, ordered layout tables used to
// describe vertex attributes, uniform-buffer members, varyings, and
// compute-output buffers emitted by the ScinthDef compiler.
package manifest

import "github.com/spaghettifunk/scinthd/engine/intrinsic"

// ElementType is one of the GPU-representable element types a Manifest
// entry may hold.
type ElementType int

const (
	Float ElementType = iota
	Vec2
	Vec3
	Vec4
	Mat4
)

// Width returns the byte width of t.
func (t ElementType) Width() uint32 {
	switch t {
	case Float:
		return 4
	case Vec2:
		return 8
	case Vec3:
		return 12
	case Vec4:
		return 16
	case Mat4:
		return 64
	default:
		return 0
	}
}

// Alignment returns the natural alignment, in bytes, of t. vec3 aligns like
// vec4 under std140-style packing, which every stage in this compiler uses
// for uniform and storage blocks.
func (t ElementType) Alignment() uint32 {
	switch t {
	case Float:
		return 4
	case Vec2:
		return 8
	case Vec3, Vec4:
		return 16
	case Mat4:
		return 16
	default:
		return 4
	}
}

// GLSLName returns the GPU shading-language type lexeme for t.
func (t ElementType) GLSLName() string {
	switch t {
	case Float:
		return "float"
	case Vec2:
		return "vec2"
	case Vec3:
		return "vec3"
	case Vec4:
		return "vec4"
	case Mat4:
		return "mat4"
	default:
		return "float"
	}
}

// Element is one packed entry in a Manifest.
type Element struct {
	Name      string
	Type      ElementType
	Offset    uint32
	Stride    uint32
	Intrinsic intrinsic.Intrinsic
	HasIntrinsic bool
}

// Manifest is an ordered, packed table of named elements. Elements are
// appended in insertion order and packed (offsets assigned respecting each
// element's natural alignment) by calling Pack.
type Manifest struct {
	elements []Element
	byName   map[string]int
	stride   uint32
	packed   bool
}

// New returns an empty Manifest.
func New() *Manifest {
	return &Manifest{byName: make(map[string]int)}
}

// AddElement appends a new element of the given name and type. Adding an
// element invalidates any previous packing; Pack must be called again. A
// duplicate name is a no-op, matching scinsynth's tolerant re-registration
// of the same varying from multiple call sites during compilation.
func (m *Manifest) AddElement(name string, t ElementType) {
	m.AddElementIntrinsic(name, t, intrinsic.NotFound, false)
}

// AddElementIntrinsic appends an element associated with an Intrinsic (used
// for vertex/fragment manifest entries that back NormPos, TexPos, Time,
// and Position).
func (m *Manifest) AddElementIntrinsic(name string, t ElementType, i intrinsic.Intrinsic, hasIntrinsic bool) {
	if _, exists := m.byName[name]; exists {
		return
	}
	m.byName[name] = len(m.elements)
	m.elements = append(m.elements, Element{Name: name, Type: t, Intrinsic: i, HasIntrinsic: hasIntrinsic})
	m.packed = false
}

// NumberOfElements returns the number of elements currently registered.
func (m *Manifest) NumberOfElements() int {
	return len(m.elements)
}

// Elements returns the packed elements in insertion order. Callers must call
// Pack first if elements have been added since the last Pack.
func (m *Manifest) Elements() []Element {
	return m.elements
}

// ElementAt returns the element at insertion index i.
func (m *Manifest) ElementAt(i int) Element {
	return m.elements[i]
}

// ByName returns the element registered under name, and whether it exists.
func (m *Manifest) ByName(name string) (Element, bool) {
	i, ok := m.byName[name]
	if !ok {
		return Element{}, false
	}
	return m.elements[i], true
}

// IntrinsicForElement returns the Intrinsic associated with element i, or
// intrinsic.NotFound if none.
func (m *Manifest) IntrinsicForElement(i int) intrinsic.Intrinsic {
	if !m.elements[i].HasIntrinsic {
		return intrinsic.NotFound
	}
	return m.elements[i].Intrinsic
}

// StrideForElement returns element i's byte stride (its width, post-Pack).
func (m *Manifest) StrideForElement(i int) uint32 {
	return m.elements[i].Stride
}

// Pack assigns contiguous byte offsets to every element respecting each
// element's natural alignment, and computes the total manifest stride.
// Packing is idempotent: calling Pack twice without adding elements between
// calls produces byte-identical offsets and strides.
func (m *Manifest) Pack() {
	var offset uint32
	for i := range m.elements {
		align := m.elements[i].Type.Alignment()
		offset = alignUp(offset, align)
		m.elements[i].Offset = offset
		m.elements[i].Stride = m.elements[i].Type.Width()
		offset += m.elements[i].Stride
	}
	m.stride = alignUp(offset, baseAlignment(m.elements))
	m.packed = true
}

// Stride returns the total packed size of the manifest in bytes. Valid only
// after Pack.
func (m *Manifest) Stride() uint32 {
	return m.stride
}

// Packed reports whether Pack has been called since the last AddElement.
func (m *Manifest) Packed() bool {
	return m.packed
}

func alignUp(offset, align uint32) uint32 {
	if align == 0 {
		return offset
	}
	return (offset + align - 1) &^ (align - 1)
}

func baseAlignment(elements []Element) uint32 {
	var max uint32 = 4
	for _, e := range elements {
		if a := e.Type.Alignment(); a > max {
			max = a
		}
	}
	return max
}
