package loaders

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/instanced/engine/core"
	"github.com/spaghettifunk/instanced/engine/renderer/metadata"
)

// MeshHeaderSize is the two little-endian uint32 counts at the start of a mesh file.
const MeshHeaderSize = 8

// MaxMeshElements bounds the counts accepted from a header so a corrupt file
// cannot request gigabytes of allocation.
const MaxMeshElements uint32 = 1 << 24

/*
Mesh files have no magic and no padding:

	u32 vertex_count
	u32 index_count
	vertex_count x [3]f32 positions
	vertex_count x [3]f32 normals
	vertex_count x [2]f32 uvs
	index_count  x u32    indices

All values little-endian.
*/

// ReadMeshHeader reads only the vertex and index counts.
func ReadMeshHeader(r io.Reader) (vertexCount, indexCount uint32, err error) {
	var hdr [MeshHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return 0, 0, fmt.Errorf("%w: reading header: %v", core.ErrMalformedAsset, err)
	}
	vertexCount = binary.LittleEndian.Uint32(hdr[0:4])
	indexCount = binary.LittleEndian.Uint32(hdr[4:8])
	if vertexCount > MaxMeshElements || indexCount > MaxMeshElements {
		return 0, 0, fmt.Errorf("%w: header counts %d/%d out of range", core.ErrMalformedAsset, vertexCount, indexCount)
	}
	return vertexCount, indexCount, nil
}

// DecodeMesh reads a full mesh file into a newly allocated payload.
func DecodeMesh(r io.Reader) (*metadata.MeshPayload, error) {
	br := bufio.NewReader(r)

	vertexCount, indexCount, err := ReadMeshHeader(br)
	if err != nil {
		return nil, err
	}

	p := &metadata.MeshPayload{
		VertexCount: vertexCount,
		IndexCount:  indexCount,
		Positions:   make([]mgl32.Vec3, vertexCount),
		Normals:     make([]mgl32.Vec3, vertexCount),
		UVs:         make([]mgl32.Vec2, vertexCount),
		Indices:     make([]uint32, indexCount),
	}

	sections := []struct {
		name string
		data interface{}
	}{
		{"positions", p.Positions},
		{"normals", p.Normals},
		{"uvs", p.UVs},
		{"indices", p.Indices},
	}
	for _, s := range sections {
		if err := binary.Read(br, binary.LittleEndian, s.data); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, fmt.Errorf("%w: truncated %s", core.ErrMalformedAsset, s.name)
			}
			return nil, fmt.Errorf("reading %s: %w", s.name, err)
		}
	}
	return p, nil
}

// EncodeMesh writes p in the mesh file format.
func EncodeMesh(w io.Writer, p *metadata.MeshPayload) error {
	if !p.Valid() {
		return fmt.Errorf("%w: attribute arrays do not match counts %d/%d", core.ErrMalformedAsset, p.VertexCount, p.IndexCount)
	}
	bw := bufio.NewWriter(w)
	for _, data := range []interface{}{
		[2]uint32{p.VertexCount, p.IndexCount},
		p.Positions,
		p.Normals,
		p.UVs,
		p.Indices,
	} {
		if err := binary.Write(bw, binary.LittleEndian, data); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// EncodedMeshSize is the file size EncodeMesh produces for the given counts.
func EncodedMeshSize(vertexCount, indexCount uint32) int64 {
	return MeshHeaderSize + int64(vertexCount)*(12+12+8) + int64(indexCount)*4
}
