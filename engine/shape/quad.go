package shape

import (
	"fmt"

	"github.com/spaghettifunk/scinthd/engine/core"
	"github.com/spaghettifunk/scinthd/engine/intrinsic"
	"github.com/spaghettifunk/scinthd/engine/manifest"
	"github.com/spaghettifunk/scinthd/engine/math"
)

// Quad is a subdivided unit quad rasterized as a single triangle strip, with
// widthEdges and heightEdges controlling subdivision in each axis.
type Quad struct {
	widthEdges  int
	heightEdges int
}

// NewQuad returns a Quad subdivided into widthEdges columns and heightEdges
// rows of quadrilaterals.
func NewQuad(widthEdges, heightEdges int) *Quad {
	return &Quad{widthEdges: widthEdges, heightEdges: heightEdges}
}

func (q *Quad) ElementType() manifest.ElementType { return manifest.Vec2 }

func (q *Quad) NumberOfVertices() uint32 {
	return uint32((q.widthEdges + 1) * (q.heightEdges + 1))
}

func (q *Quad) NumberOfIndices() uint32 {
	indicesPerRow := uint32(q.widthEdges+1) * 2
	return uint32(q.heightEdges)*indicesPerRow + uint32(q.heightEdges-1)*2
}

func (q *Quad) Topology() Topology { return TriangleStrip }

// StoreVertexData walks the quad's vertex grid row-major and, for each
// vertex, emits every manifest element in order. Only the NormPos, Position,
// and TexPos intrinsics are meaningful per-vertex; any other element kind is
// a compiler error, since this shape has no other per-vertex data to offer.
func (q *Quad) StoreVertexData(vertexManifest *manifest.Manifest, normPosScale math.Vec2, store []float32) error {
	upperLeft := math.Vec2{X: -1.0, Y: -1.0}
	pos := 0

	for i := 0; i <= q.heightEdges; i++ {
		y := float32(i) / float32(q.heightEdges)
		for j := 0; j <= q.widthEdges; j++ {
			v := math.Vec2{X: float32(j) / float32(q.widthEdges), Y: y}
			for k := 0; k < vertexManifest.NumberOfElements(); k++ {
				switch vertexManifest.IntrinsicForElement(k) {
				case intrinsic.NormPos:
					store[pos] = (upperLeft.X + v.X*2.0) * normPosScale.X
					store[pos+1] = (upperLeft.Y + v.Y*2.0) * normPosScale.Y
				case intrinsic.Position:
					store[pos] = upperLeft.X + v.X*2.0
					store[pos+1] = upperLeft.Y + v.Y*2.0
				case intrinsic.TexPos:
					store[pos] = v.X
					store[pos+1] = v.Y
				default:
					return core.NewError(core.KindValidation,
						fmt.Errorf("quad shape: unsupported vertex manifest intrinsic at element %d", k))
				}
				pos += int(vertexManifest.StrideForElement(k) / 4)
			}
		}
	}
	return nil
}

// StoreIndexData emits a single triangle-strip index buffer covering every
// row, inserting two degenerate indices between rows to restart the strip
// without a primitive restart marker.
func (q *Quad) StoreIndexData(store []uint16) error {
	widthVerts := uint16(q.widthEdges + 1)
	pos := 0

	for i := 0; i < q.heightEdges; i++ {
		rowStart := uint16(i) * widthVerts
		for j := 0; j <= q.widthEdges; j++ {
			topIndex := uint16(j) + rowStart
			store[pos] = topIndex
			store[pos+1] = topIndex + widthVerts
			pos += 2
		}
		if i < q.heightEdges-1 {
			store[pos] = rowStart + widthVerts + uint16(q.widthEdges)
			store[pos+1] = rowStart + widthVerts
			pos += 2
		}
	}
	return nil
}
