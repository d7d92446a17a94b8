package archive

import (
	"bytes"
	"fmt"
	"io"

	"github.com/gogpu/shadermap"
	"github.com/gogpu/shadermap/backend"
	"github.com/gogpu/shadermap/uniform"
)

// Writer assembles one archive in memory. Artifacts are added per
// (feature, quality) slot, then WriteTo lays out the name table, the offset
// table and the blobs in one pass.
type Writer struct {
	names   []string
	nameIdx map[string]uint32
	entries []entry
	blobs   bytes.Buffer
}

// NewWriter creates an empty archive writer.
func NewWriter() *Writer {
	return &Writer{nameIdx: make(map[string]uint32)}
}

// nameRef interns a string into the name table and returns its index.
func (w *Writer) nameRef(s string) uint32 {
	if idx, ok := w.nameIdx[s]; ok {
		return idx
	}
	idx := uint32(len(w.names))
	w.names = append(w.names, s)
	w.nameIdx[s] = idx
	return idx
}

func (w *Writer) slotTaken(key entryKey) bool {
	for _, e := range w.entries {
		if e.key == key {
			return true
		}
	}
	return false
}

// Add serializes a finalized shader map into the slot for (feature,
// quality). Duplicate slots and unfinalized maps are rejected.
func (w *Writer) Add(feature shadermap.FeatureLevel, quality shadermap.QualityLevel, sm *shadermap.ShaderMap) error {
	if sm == nil || !sm.IsFinalized() {
		return fmt.Errorf("archive: only finalized shader maps can be archived")
	}
	key := entryKey{feature: int32(feature), quality: int32(quality)}
	if w.slotTaken(key) {
		return fmt.Errorf("archive: slot (%s, %s) already written", feature, quality)
	}

	start := w.blobs.Len()
	if err := w.writeShaderMap(&w.blobs, sm); err != nil {
		return err
	}
	w.entries = append(w.entries, entry{
		key:    key,
		offset: uint64(start), // relative until WriteTo
		length: uint64(w.blobs.Len() - start),
		valid:  true,
	})
	return nil
}

// AddEmpty records a slot with no artifact. Cooking writes one for every
// combination it attempted, so readers can distinguish "cooked, nothing
// produced" from "slot absent".
func (w *Writer) AddEmpty(feature shadermap.FeatureLevel, quality shadermap.QualityLevel) error {
	key := entryKey{feature: int32(feature), quality: int32(quality)}
	if w.slotTaken(key) {
		return fmt.Errorf("archive: slot (%s, %s) already written", feature, quality)
	}
	w.entries = append(w.entries, entry{key: key})
	return nil
}

// headerSize returns the byte size of everything before the blob section.
func (w *Writer) headerSize() int {
	size := 4 + 4 // magic + version
	size += 4     // name count
	for _, n := range w.names {
		size += 4 + len(n)
	}
	size += 4                     // entry count
	size += len(w.entries) * (4 + 4 + 8 + 8 + 1)
	return size
}

// WriteTo writes the complete archive. The writer can be written more than
// once; the layout is deterministic for the same sequence of Add calls.
func (w *Writer) WriteTo(out io.Writer) (int64, error) {
	cw := &countingWriter{w: out}

	if _, err := cw.Write([]byte(magic)); err != nil {
		return cw.n, err
	}
	if err := writeU32(cw, version); err != nil {
		return cw.n, err
	}

	if err := writeU32(cw, uint32(len(w.names))); err != nil {
		return cw.n, err
	}
	for _, n := range w.names {
		if err := writeU32(cw, uint32(len(n))); err != nil {
			return cw.n, err
		}
		if _, err := cw.Write([]byte(n)); err != nil {
			return cw.n, err
		}
	}

	base := uint64(w.headerSize())
	if err := writeU32(cw, uint32(len(w.entries))); err != nil {
		return cw.n, err
	}
	for _, e := range w.entries {
		if err := writeU32(cw, uint32(e.key.feature)); err != nil {
			return cw.n, err
		}
		if err := writeU32(cw, uint32(e.key.quality)); err != nil {
			return cw.n, err
		}
		offset := uint64(0)
		if e.valid {
			offset = base + e.offset
		}
		if err := writeU64(cw, offset); err != nil {
			return cw.n, err
		}
		if err := writeU64(cw, e.length); err != nil {
			return cw.n, err
		}
		valid := byte(0)
		if e.valid {
			valid = 1
		}
		if err := writeU8(cw, valid); err != nil {
			return cw.n, err
		}
	}

	_, err := cw.Write(w.blobs.Bytes())
	return cw.n, err
}

func (w *Writer) writeShaderMap(buf *bytes.Buffer, sm *shadermap.ShaderMap) error {
	digest := sm.Digest()
	buf.Write(digest[:])
	buf.WriteByte(byte(sm.Platform()))

	if err := w.writeFingerprint(buf, sm.ID()); err != nil {
		return err
	}

	progs := sm.Programs()
	if err := writeU32(buf, uint32(len(progs))); err != nil {
		return err
	}
	for _, p := range progs {
		if err := w.writeProgram(buf, p); err != nil {
			return err
		}
	}

	return w.writeExpressions(buf, sm.Expressions())
}

func (w *Writer) writeFingerprint(buf *bytes.Buffer, id *shadermap.ShaderMapID) error {
	buf.Write(id.ContentHash[:])
	buf.WriteByte(byte(id.Usage))
	buf.WriteByte(byte(id.Quality))
	buf.WriteByte(byte(id.Feature))

	if err := writeU32(buf, uint32(len(id.ShaderDependencies))); err != nil {
		return err
	}
	for _, dep := range id.ShaderDependencies {
		if err := writeU32(buf, w.nameRef(dep.ShaderType)); err != nil {
			return err
		}
		if err := writeU32(buf, uint32(dep.Permutation)); err != nil {
			return err
		}
	}
	if err := writeU32(buf, uint32(len(id.VertexFactories))); err != nil {
		return err
	}
	for _, vf := range id.VertexFactories {
		if err := writeU32(buf, w.nameRef(vf)); err != nil {
			return err
		}
	}
	if err := writeU32(buf, uint32(len(id.Pipelines))); err != nil {
		return err
	}
	for _, p := range id.Pipelines {
		if err := writeU32(buf, w.nameRef(p)); err != nil {
			return err
		}
	}
	buf.Write(id.TextureHash[:])
	return nil
}

func (w *Writer) writeProgram(buf *bytes.Buffer, p backend.Program) error {
	if err := writeU32(buf, w.nameRef(p.Target.ShaderType)); err != nil {
		return err
	}
	if err := writeU32(buf, uint32(p.Target.Permutation)); err != nil {
		return err
	}
	if err := writeU32(buf, w.nameRef(p.Target.VertexFactory)); err != nil {
		return err
	}
	buf.WriteByte(byte(p.Target.Stage))
	if err := writeU32(buf, uint32(len(p.Code))); err != nil {
		return err
	}
	buf.Write(p.Code)
	return nil
}

func (w *Writer) writeExpressions(buf *bytes.Buffer, set *uniform.ExpressionSet) error {
	if set == nil {
		set = &uniform.ExpressionSet{}
	}

	if err := writeU32(buf, uint32(len(set.Vectors))); err != nil {
		return err
	}
	for _, e := range set.Vectors {
		switch v := e.(type) {
		case uniform.VectorConstant:
			buf.WriteByte(tagVectorConstant)
			for i := 0; i < 4; i++ {
				if err := writeF32(buf, v.Value[i]); err != nil {
					return err
				}
			}
		case uniform.VectorParameter:
			buf.WriteByte(tagVectorParameter)
			if err := writeU32(buf, w.nameRef(v.Name)); err != nil {
				return err
			}
			for i := 0; i < 4; i++ {
				if err := writeF32(buf, v.Default[i]); err != nil {
					return err
				}
			}
		default:
			return fmt.Errorf("archive: vector expression %T is not archivable", e)
		}
	}

	if err := writeU32(buf, uint32(len(set.Scalars))); err != nil {
		return err
	}
	for _, e := range set.Scalars {
		switch v := e.(type) {
		case uniform.ScalarConstant:
			buf.WriteByte(tagScalarConstant)
			if err := writeF32(buf, v.Value); err != nil {
				return err
			}
		case uniform.ScalarParameter:
			buf.WriteByte(tagScalarParameter)
			if err := writeU32(buf, w.nameRef(v.Name)); err != nil {
				return err
			}
			if err := writeF32(buf, v.Default); err != nil {
				return err
			}
		default:
			return fmt.Errorf("archive: scalar expression %T is not archivable", e)
		}
	}

	if err := writeU32(buf, uint32(len(set.Textures))); err != nil {
		return err
	}
	for _, e := range set.Textures {
		if err := w.writeTextureExpression(buf, e); err != nil {
			return err
		}
	}

	if err := writeU32(buf, uint32(len(set.Stacks))); err != nil {
		return err
	}
	for _, st := range set.Stacks {
		prealloc := byte(0)
		if st.Preallocated {
			prealloc = 1
		}
		buf.WriteByte(prealloc)
		if err := writeU32(buf, uint32(len(st.Layers))); err != nil {
			return err
		}
		for _, layer := range st.Layers {
			if err := w.writeTextureExpression(buf, layer); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *Writer) writeTextureExpression(buf *bytes.Buffer, e uniform.TextureExpression) error {
	v, ok := e.(uniform.TextureParameter)
	if !ok {
		return fmt.Errorf("archive: texture expression %T is not archivable", e)
	}
	buf.WriteByte(tagTextureParam)
	return writeU32(buf, w.nameRef(v.Name))
}

// countingWriter tracks bytes written for the io.WriterTo contract.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
