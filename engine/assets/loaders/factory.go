package loaders

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/instanced/engine/renderer/metadata"
)

// GenerateCube builds a unit cube with 4 vertices per face so every face gets
// its own normal and a full 0..1 uv square. 24 vertices, 36 indices.
func GenerateCube(scale mgl32.Vec3) *metadata.MeshPayload {
	type face struct {
		normal  mgl32.Vec3
		corners [4]mgl32.Vec3
	}
	faces := []face{
		// front (z+)
		{mgl32.Vec3{0, 0, 1}, [4]mgl32.Vec3{{-0.5, -0.5, 0.5}, {0.5, -0.5, 0.5}, {0.5, 0.5, 0.5}, {-0.5, 0.5, 0.5}}},
		// back (z-)
		{mgl32.Vec3{0, 0, -1}, [4]mgl32.Vec3{{0.5, -0.5, -0.5}, {-0.5, -0.5, -0.5}, {-0.5, 0.5, -0.5}, {0.5, 0.5, -0.5}}},
		// left (x-)
		{mgl32.Vec3{-1, 0, 0}, [4]mgl32.Vec3{{-0.5, -0.5, -0.5}, {-0.5, -0.5, 0.5}, {-0.5, 0.5, 0.5}, {-0.5, 0.5, -0.5}}},
		// right (x+)
		{mgl32.Vec3{1, 0, 0}, [4]mgl32.Vec3{{0.5, -0.5, 0.5}, {0.5, -0.5, -0.5}, {0.5, 0.5, -0.5}, {0.5, 0.5, 0.5}}},
		// top (y+)
		{mgl32.Vec3{0, 1, 0}, [4]mgl32.Vec3{{-0.5, 0.5, 0.5}, {0.5, 0.5, 0.5}, {0.5, 0.5, -0.5}, {-0.5, 0.5, -0.5}}},
		// bottom (y-)
		{mgl32.Vec3{0, -1, 0}, [4]mgl32.Vec3{{-0.5, -0.5, -0.5}, {0.5, -0.5, -0.5}, {0.5, -0.5, 0.5}, {-0.5, -0.5, 0.5}}},
	}
	uvs := [4]mgl32.Vec2{{0, 0}, {1, 0}, {1, 1}, {0, 1}}

	p := &metadata.MeshPayload{
		VertexCount: 24,
		IndexCount:  36,
		Positions:   make([]mgl32.Vec3, 0, 24),
		Normals:     make([]mgl32.Vec3, 0, 24),
		UVs:         make([]mgl32.Vec2, 0, 24),
		Indices:     make([]uint32, 0, 36),
	}
	for i, f := range faces {
		for c := 0; c < 4; c++ {
			corner := f.corners[c]
			p.Positions = append(p.Positions, mgl32.Vec3{corner[0] * scale[0], corner[1] * scale[1], corner[2] * scale[2]})
			p.Normals = append(p.Normals, f.normal)
			p.UVs = append(p.UVs, uvs[c])
		}
		base := uint32(i * 4)
		p.Indices = append(p.Indices, base, base+1, base+2, base+2, base+3, base)
	}
	return p
}

// GenerateBox builds a cube from its 8 shared corners. Normals point out of
// the corners, so shading is smooth. 8 vertices, 36 indices.
func GenerateBox(scale mgl32.Vec3) *metadata.MeshPayload {
	p := &metadata.MeshPayload{
		VertexCount: 8,
		IndexCount:  36,
		Positions:   make([]mgl32.Vec3, 8),
		Normals:     make([]mgl32.Vec3, 8),
		UVs:         make([]mgl32.Vec2, 8),
	}
	// bit 0: x, bit 1: y, bit 2: z
	for i := 0; i < 8; i++ {
		corner := mgl32.Vec3{-0.5, -0.5, -0.5}
		for axis := 0; axis < 3; axis++ {
			if i&(1<<axis) != 0 {
				corner[axis] = 0.5
			}
		}
		p.Positions[i] = mgl32.Vec3{corner[0] * scale[0], corner[1] * scale[1], corner[2] * scale[2]}
		p.Normals[i] = corner.Normalize()
		p.UVs[i] = mgl32.Vec2{corner[0] + 0.5, corner[1] + 0.5}
	}
	p.Indices = []uint32{
		4, 5, 7, 7, 6, 4, // front (z+)
		1, 0, 2, 2, 3, 1, // back (z-)
		0, 4, 6, 6, 2, 0, // left (x-)
		5, 1, 3, 3, 7, 5, // right (x+)
		6, 7, 3, 3, 2, 6, // top (y+)
		0, 1, 5, 5, 4, 0, // bottom (y-)
	}
	return p
}

// GenerateIcosphere subdivides an icosahedron, pushing every new vertex onto
// the sphere of the given radius. Level 0 is 12 vertices/60 indices,
// level 1 is 42/240, level 2 is 162/960.
func GenerateIcosphere(radius float32, subdivisions int) *metadata.MeshPayload {
	t := float32((1.0 + math.Sqrt(5.0)) / 2.0)
	positions := []mgl32.Vec3{
		{-1, t, 0}, {1, t, 0}, {-1, -t, 0}, {1, -t, 0},
		{0, -1, t}, {0, 1, t}, {0, -1, -t}, {0, 1, -t},
		{t, 0, -1}, {t, 0, 1}, {-t, 0, -1}, {-t, 0, 1},
	}
	for i := range positions {
		positions[i] = positions[i].Normalize()
	}
	faces := [][3]uint32{
		{0, 11, 5}, {0, 5, 1}, {0, 1, 7}, {0, 7, 10}, {0, 10, 11},
		{1, 5, 9}, {5, 11, 4}, {11, 10, 2}, {10, 7, 6}, {7, 1, 8},
		{3, 9, 4}, {3, 4, 2}, {3, 2, 6}, {3, 6, 8}, {3, 8, 9},
		{4, 9, 5}, {2, 4, 11}, {6, 2, 10}, {8, 6, 7}, {9, 8, 1},
	}

	for level := 0; level < subdivisions; level++ {
		midpoints := make(map[uint64]uint32)
		midpoint := func(a, b uint32) uint32 {
			if a > b {
				a, b = b, a
			}
			key := uint64(a)<<32 | uint64(b)
			if idx, ok := midpoints[key]; ok {
				return idx
			}
			mid := positions[a].Add(positions[b]).Mul(0.5).Normalize()
			positions = append(positions, mid)
			idx := uint32(len(positions) - 1)
			midpoints[key] = idx
			return idx
		}

		next := make([][3]uint32, 0, len(faces)*4)
		for _, f := range faces {
			ab := midpoint(f[0], f[1])
			bc := midpoint(f[1], f[2])
			ca := midpoint(f[2], f[0])
			next = append(next,
				[3]uint32{f[0], ab, ca},
				[3]uint32{f[1], bc, ab},
				[3]uint32{f[2], ca, bc},
				[3]uint32{ab, bc, ca},
			)
		}
		faces = next
	}

	n := uint32(len(positions))
	p := &metadata.MeshPayload{
		VertexCount: n,
		IndexCount:  uint32(len(faces) * 3),
		Positions:   make([]mgl32.Vec3, n),
		Normals:     make([]mgl32.Vec3, n),
		UVs:         make([]mgl32.Vec2, n),
		Indices:     make([]uint32, 0, len(faces)*3),
	}
	for i, unit := range positions {
		p.Positions[i] = unit.Mul(radius)
		p.Normals[i] = unit
		u := 0.5 + float32(math.Atan2(float64(unit[2]), float64(unit[0])))/(2*math.Pi)
		v := 0.5 - float32(math.Asin(float64(unit[1])))/math.Pi
		p.UVs[i] = mgl32.Vec2{u, v}
	}
	for _, f := range faces {
		p.Indices = append(p.Indices, f[0], f[1], f[2])
	}
	return p
}
