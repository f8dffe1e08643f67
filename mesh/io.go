package mesh

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/golang/geo/r2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/segmentio/encoding/json"
)

// Load reads a mesh file. The format is chosen from the file extension:
// ".geojson" for a GeoJSON feature collection and ".json" for a
// vertices/faces document.
func Load(path string) (*Mesh, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New("reading mesh file failed").
			WithTag("path", path).
			Wrap(err)
	}

	var m *Mesh
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".geojson":
		m, err = DecodeGeoJSON(data)

	case ".json":
		m, err = DecodeJSON(data)

	default:
		return nil, errors.New("unsupported mesh file extension").
			WithTag("path", path).
			WithTag("extension", ext)
	}
	if err != nil {
		return nil, errors.New("loading mesh file failed").
			WithTag("path", path).
			Wrap(err)
	}
	return m, nil
}

// Document is the JSON representation of a mesh.
type Document struct {
	Vertices [][2]float64 `json:"vertices"`
	Faces    [][]int      `json:"faces"`
}

// DecodeJSON parses a vertices/faces document and builds a mesh from it.
func DecodeJSON(data []byte) (*Mesh, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.New("decoding mesh document failed").
			WithType(ErrTypeMalformedMesh).
			Wrap(err)
	}

	vertices := make([]r2.Point, len(doc.Vertices))
	for i, v := range doc.Vertices {
		vertices[i] = r2.Point{X: v[0], Y: v[1]}
	}
	return New(vertices, doc.Faces)
}

// EncodeJSON returns the vertices/faces document of m.
func EncodeJSON(m *Mesh) ([]byte, error) {
	doc := Document{
		Vertices: make([][2]float64, len(m.vertices)),
		Faces:    m.Faces(),
	}
	for i, v := range m.vertices {
		doc.Vertices[i] = [2]float64{v.X, v.Y}
	}
	return json.Marshal(doc)
}

// DecodeGeoJSON builds a mesh from a GeoJSON feature collection. Every
// Polygon feature, and every polygon of a MultiPolygon feature, becomes one
// cell made of its outer ring. Holes are ignored. Vertices shared between
// rings are stored once.
func DecodeGeoJSON(data []byte) (*Mesh, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, errors.New("decoding geojson failed").
			WithType(ErrTypeMalformedMesh).
			Wrap(err)
	}

	var b geoJSONBuilder
	for i, f := range fc.Features {
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			b.addPolygon(g)

		case orb.MultiPolygon:
			for _, p := range g {
				b.addPolygon(p)
			}

		default:
			return nil, errors.New("unsupported geojson geometry").
				WithType(ErrTypeMalformedMesh).
				WithTag("feature", i).
				WithTag("geometry", geometryType(f.Geometry))
		}
	}
	return New(b.vertices, b.faces())
}

func geometryType(g orb.Geometry) string {
	if g == nil {
		return "null"
	}
	return g.GeoJSONType()
}

type geoJSONBuilder struct {
	vertices []r2.Point
	ids      map[orb.Point]int
	rows     [][]int
	maxVerts int
}

func (b *geoJSONBuilder) addPolygon(p orb.Polygon) {
	if len(p) == 0 {
		return
	}

	ring := p[0]
	if len(ring) > 1 && ring.Closed() {
		ring = ring[:len(ring)-1]
	}

	row := make([]int, len(ring))
	for i, pt := range ring {
		row[i] = b.vertexID(pt)
	}
	b.rows = append(b.rows, row)

	if len(row) > b.maxVerts {
		b.maxVerts = len(row)
	}
}

func (b *geoJSONBuilder) vertexID(p orb.Point) int {
	if b.ids == nil {
		b.ids = make(map[orb.Point]int)
	}

	id, ok := b.ids[p]
	if !ok {
		id = len(b.vertices)
		b.ids[p] = id
		b.vertices = append(b.vertices, r2.Point{X: p.X(), Y: p.Y()})
	}
	return id
}

func (b *geoJSONBuilder) faces() [][]int {
	faces := make([][]int, len(b.rows))
	for i, row := range b.rows {
		faces[i] = make([]int, b.maxVerts)
		n := copy(faces[i], row)
		for j := n; j < b.maxVerts; j++ {
			faces[i][j] = FillValue
		}
	}
	return faces
}
