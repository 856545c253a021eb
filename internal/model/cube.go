package model

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/cubefield/internal/symbol"
)

// VerticesPerSubCube is the number of corner vertices every subcube owns.
const VerticesPerSubCube = 8

// Blend tags stored on vertices.
const (
	TagCorner     = "corner"     // vertex on at least two outer faces of the cube
	TagSoft       = "soft"       // any other subcube vertex
	TagBackground = "background" // cube-level corner entry
)

// Vec3 is a position or offset in the cube frame.
type Vec3 [3]float64

// Add returns v+o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v[0] + o[0], v[1] + o[1], v[2] + o[2]}
}

// Scale returns v*s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v[0] * s, v[1] * s, v[2] * s}
}

// Size is the outer dimension of a cube.
type Size struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
	Depth  float64 `json:"depth" yaml:"depth"`
}

// CornerSigns lists the eight corners of a box in vertex index order.
var CornerSigns = [VerticesPerSubCube]Vec3{
	{-1, -1, -1}, {1, -1, -1}, {1, 1, -1}, {-1, 1, -1},
	{-1, -1, 1}, {1, -1, 1}, {1, 1, 1}, {-1, 1, 1},
}

// Cube is the top-level object a window renders.
// Identity is (WindowID, ID): WindowID is the instance that owns the record,
// ID is the peer window the cube stands for.
type Cube struct {
	WindowID string
	ID       string
	Center   Vec3
	Size     Size
	Extents  symbol.Extents
	Color    Color

	// SubIDs lists subcube symbols in canonical traversal order.
	SubIDs []string

	// Corners are the cube's own 8 corner entries.
	Corners [VerticesPerSubCube]Vertex
}

// SubCube is one cell of a cube's subdivision grid.
type SubCube struct {
	WindowID string
	CubeID   string
	ID       string // symbol, f(Order)

	// Center is the offset from the cube center; nil on rows synthesized
	// from legacy cube records.
	Center *Vec3

	OriginID string

	// Policy names the blend policy; empty on legacy rows.
	Policy string

	VertexIDs []string
	Order     int

	// UpdatedAt is the change marker in unix nanoseconds, set by the store.
	UpdatedAt int64
}

// Vertex is one corner of a subcube (or of a cube).
type Vertex struct {
	ID        string
	WindowID  string
	CubeID    string
	SubCubeID string
	Index     int
	Color     Color
	Position  Vec3
	Weight    float64
	Tag       string
}

// VertexID returns the persistence key of vertex i of subcube sym.
func VertexID(sym string, i int) string {
	return sym + "_" + strconv.Itoa(i)
}

// ParseVertexID splits a vertex key into subcube symbol and index.
func ParseVertexID(id string) (string, int, error) {
	at := strings.LastIndexByte(id, '_')
	if at <= 0 || at == len(id)-1 {
		return "", 0, fmt.Errorf("invalid vertex id %q", id)
	}
	i, err := strconv.Atoi(id[at+1:])
	if err != nil || i < 0 || i >= VerticesPerSubCube {
		return "", 0, fmt.Errorf("invalid vertex id %q: bad index", id)
	}
	return id[:at], i, nil
}

// VertexIDs returns the 8 vertex keys of subcube sym in index order.
func VertexIDs(sym string) []string {
	out := make([]string, VerticesPerSubCube)
	for i := range out {
		out[i] = VertexID(sym, i)
	}
	return out
}

// SubSize is the size of one subcube of a cube with the given size and extents.
func SubSize(size Size, e symbol.Extents) Size {
	return Size{
		Width:  size.Width / float64(e.Cols),
		Height: size.Height / float64(e.Rows),
		Depth:  size.Depth / float64(e.Layers),
	}
}

// SubCubeCenter is the offset of cell c from the cube center.
func SubCubeCenter(size Size, e symbol.Extents, c symbol.Cell) Vec3 {
	sub := SubSize(size, e)
	return Vec3{
		-size.Width/2 + sub.Width*(float64(c.Col)+0.5),
		-size.Height/2 + sub.Height*(float64(c.Row)+0.5),
		-size.Depth/2 + sub.Depth*(float64(c.Layer)+0.5),
	}
}

// CornerOffset is the offset of corner i from the center of a box of size s.
func CornerOffset(s Size, i int) Vec3 {
	half := Vec3{s.Width / 2, s.Height / 2, s.Depth / 2}
	sign := CornerSigns[i]
	return Vec3{sign[0] * half[0], sign[1] * half[1], sign[2] * half[2]}
}

// VertexTag classifies corner i of cell c: TagCorner when the vertex lies on
// at least two outer faces of the grid.
func VertexTag(e symbol.Extents, c symbol.Cell, i int) string {
	s := CornerSigns[i]
	faces := 0
	if (c.Col == 0 && s[0] < 0) || (c.Col == e.Cols-1 && s[0] > 0) {
		faces++
	}
	if (c.Row == 0 && s[1] < 0) || (c.Row == e.Rows-1 && s[1] > 0) {
		faces++
	}
	if (c.Layer == 0 && s[2] < 0) || (c.Layer == e.Layers-1 && s[2] > 0) {
		faces++
	}
	if faces >= 2 {
		return TagCorner
	}
	return TagSoft
}

// CubeCorners builds the cube-level corner entries for a cube of size s.
func CubeCorners(s Size, color Color) [VerticesPerSubCube]Vertex {
	var out [VerticesPerSubCube]Vertex
	for i := range out {
		out[i] = Vertex{
			Index:    i,
			Position: CornerOffset(s, i),
			Color:    color,
			Weight:   1,
			Tag:      TagBackground,
		}
	}
	return out
}
