// Package shape implements the procedural vertex/index geometry generators
// a ScinthDef's pixel- and shape-rate VGens are rasterized against. Quad is
// currently the only realization; the interface leaves room for others.
package shape

import (
	"github.com/spaghettifunk/scinthd/engine/manifest"
	"github.com/spaghettifunk/scinthd/engine/math"
)

// Topology names the primitive assembly mode the shape's index buffer is
// built for.
type Topology int

const (
	TriangleStrip Topology = iota
	TriangleList
)

// Shape generates vertex and index data for a fixed topology, parameterized
// by a vertex Manifest describing which per-vertex attributes to emit.
type Shape interface {
	ElementType() manifest.ElementType
	NumberOfVertices() uint32
	NumberOfIndices() uint32
	Topology() Topology

	// StoreVertexData fills store (len >= NumberOfVertices() *
	// vertexManifest.Stride()/4 float32s) with interleaved vertex attributes
	// per vertexManifest, scaling normalized-position output by normPosScale.
	StoreVertexData(vertexManifest *manifest.Manifest, normPosScale math.Vec2, store []float32) error

	// StoreIndexData fills store (len >= NumberOfIndices()) with the index
	// buffer for Topology().
	StoreIndexData(store []uint16) error
}
