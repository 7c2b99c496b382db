package kernel

import "fmt"

// EntityMapper assigns dense, stable indices to the faces of one solid. The
// index of a face is its position in the solid's face enumeration.
type EntityMapper struct {
	faces map[FaceID]int
}

// NewEntityMapper builds a mapper scoped to s.
func NewEntityMapper(s Solid) (*EntityMapper, error) {
	faces, err := s.Faces()
	if err != nil {
		return nil, fmt.Errorf("kernel: entity mapper: %w", err)
	}
	m := &EntityMapper{faces: make(map[FaceID]int, len(faces))}
	for i, f := range faces {
		if _, dup := m.faces[f.ID()]; dup {
			return nil, fmt.Errorf("kernel: entity mapper: duplicate face id %d", f.ID())
		}
		m.faces[f.ID()] = i
	}
	return m, nil
}

// FaceIndex returns the index of f.
func (m *EntityMapper) FaceIndex(f Face) (int, error) {
	idx, ok := m.faces[f.ID()]
	if !ok {
		return 0, fmt.Errorf("%w: face id %d", ErrUnknownFace, f.ID())
	}
	return idx, nil
}

// FaceCount returns the number of faces known to the mapper.
func (m *EntityMapper) FaceCount() int {
	return len(m.faces)
}
