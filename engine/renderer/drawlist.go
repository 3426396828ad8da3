package renderer

import "github.com/spaghettifunk/instanced/engine/renderer/metadata"

// DrawListBuilder turns the arena's static layouts and this frame's instance
// bindings into the ordered list of instanced draw calls.
type DrawListBuilder struct {
	entries []metadata.DrawEntry
}

func NewDrawListBuilder() *DrawListBuilder {
	return &DrawListBuilder{}
}

// Update rebuilds the list from the arena. Entries follow the order meshes
// were added to the arena; meshes without instances this frame get no entry.
// The arena is only read.
func (db *DrawListBuilder) Update(arena *GeometryArena) []metadata.DrawEntry {
	db.entries = db.entries[:0]

	for i := 0; i < arena.LayoutCount(); i++ {
		layout := arena.LayoutAt(i)
		binding, ok := arena.Binding(layout.MeshID)
		if !ok || binding.InstanceCount == 0 {
			continue
		}
		db.entries = append(db.entries, metadata.DrawEntry{
			MeshID:          layout.MeshID,
			IndexCount:      layout.IndexCount,
			IndexByteOffset: layout.IndexByteOffset,
			BaseVertex:      layout.BaseVertex,
			InstanceCount:   binding.InstanceCount,
			BaseInstance:    binding.BaseInstance,
		})
	}
	return db.entries
}

// Entries returns the list built by the last Update. It is reused by the
// next Update.
func (db *DrawListBuilder) Entries() []metadata.DrawEntry {
	return db.entries
}

func (db *DrawListBuilder) Len() int {
	return len(db.entries)
}
