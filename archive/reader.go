package archive

import (
	"fmt"
	"io"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/shadermap"
	"github.com/gogpu/shadermap/backend"
	"github.com/gogpu/shadermap/uniform"
)

// Slot identifies one archived artifact position.
type Slot struct {
	Feature shadermap.FeatureLevel
	Quality shadermap.QualityLevel
	// Valid reports whether the slot holds an artifact.
	Valid bool
	// Size is the artifact blob size in bytes; 0 for invalid slots.
	Size uint64
}

// Reader parses an archive's name and offset tables up front and extracts
// individual artifact blobs on demand, seeking straight to the requested
// slot. Extracted maps come back finalized, with the caller holding the
// initial reference.
type Reader struct {
	r       io.ReadSeeker
	names   []string
	entries map[entryKey]entry
	order   []entryKey
}

// NewReader parses the archive header and tables. The ReadSeeker must stay
// open for the lifetime of the reader.
func NewReader(r io.ReadSeeker) (*Reader, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("archive: seek to header: %w", err)
	}

	var head [4]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return nil, fmt.Errorf("archive: read magic: %w", err)
	}
	if string(head[:]) != magic {
		return nil, fmt.Errorf("archive: bad magic %q", head[:])
	}
	ver, err := readU32(r)
	if err != nil {
		return nil, fmt.Errorf("archive: read version: %w", err)
	}
	if ver != version {
		return nil, fmt.Errorf("archive: unsupported version %d", ver)
	}

	nameCount, err := readU32(r)
	if err != nil {
		return nil, fmt.Errorf("archive: read name table: %w", err)
	}
	if err := checkCount(nameCount, "name"); err != nil {
		return nil, err
	}
	names := make([]string, nameCount)
	for i := range names {
		n, err := readU32(r)
		if err != nil {
			return nil, fmt.Errorf("archive: read name table: %w", err)
		}
		if err := checkCount(n, "name length"); err != nil {
			return nil, err
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("archive: read name table: %w", err)
		}
		names[i] = string(buf)
	}

	entryCount, err := readU32(r)
	if err != nil {
		return nil, fmt.Errorf("archive: read offset table: %w", err)
	}
	if err := checkCount(entryCount, "entry"); err != nil {
		return nil, err
	}
	entries := make(map[entryKey]entry, entryCount)
	order := make([]entryKey, 0, entryCount)
	for i := uint32(0); i < entryCount; i++ {
		feature, err := readU32(r)
		if err != nil {
			return nil, fmt.Errorf("archive: read offset table: %w", err)
		}
		quality, err := readU32(r)
		if err != nil {
			return nil, fmt.Errorf("archive: read offset table: %w", err)
		}
		offset, err := readU64(r)
		if err != nil {
			return nil, fmt.Errorf("archive: read offset table: %w", err)
		}
		length, err := readU64(r)
		if err != nil {
			return nil, fmt.Errorf("archive: read offset table: %w", err)
		}
		valid, err := readU8(r)
		if err != nil {
			return nil, fmt.Errorf("archive: read offset table: %w", err)
		}
		key := entryKey{feature: int32(feature), quality: int32(quality)}
		entries[key] = entry{key: key, offset: offset, length: length, valid: valid != 0}
		order = append(order, key)
	}

	return &Reader{r: r, names: names, entries: entries, order: order}, nil
}

// Slots lists the archive's offset-table entries in file order.
func (rd *Reader) Slots() []Slot {
	out := make([]Slot, 0, len(rd.order))
	for _, key := range rd.order {
		e := rd.entries[key]
		out = append(out, Slot{
			Feature: shadermap.FeatureLevel(key.feature),
			Quality: shadermap.QualityLevel(key.quality),
			Valid:   e.valid,
			Size:    e.length,
		})
	}
	return out
}

// Extract decodes the artifact for one slot, seeking directly to its blob.
// A slot recorded without an artifact returns shadermap.ErrNoArtifact; an
// absent slot is an error.
func (rd *Reader) Extract(feature shadermap.FeatureLevel, quality shadermap.QualityLevel) (*shadermap.ShaderMap, error) {
	key := entryKey{feature: int32(feature), quality: int32(quality)}
	e, ok := rd.entries[key]
	if !ok {
		return nil, fmt.Errorf("archive: no slot for (%s, %s)", feature, quality)
	}
	if !e.valid {
		return nil, fmt.Errorf("archive: slot (%s, %s): %w", feature, quality, shadermap.ErrNoArtifact)
	}

	if _, err := rd.r.Seek(int64(e.offset), io.SeekStart); err != nil {
		return nil, fmt.Errorf("archive: seek to artifact: %w", err)
	}
	return rd.readShaderMap(io.LimitReader(rd.r, int64(e.length)))
}

// ExtractAll decodes every valid slot. Callers owning partial archives use
// Extract instead and pay only for the slots they need.
func (rd *Reader) ExtractAll() (map[Slot]*shadermap.ShaderMap, error) {
	out := make(map[Slot]*shadermap.ShaderMap)
	for _, key := range rd.order {
		e := rd.entries[key]
		if !e.valid {
			continue
		}
		slot := Slot{
			Feature: shadermap.FeatureLevel(key.feature),
			Quality: shadermap.QualityLevel(key.quality),
			Valid:   true,
			Size:    e.length,
		}
		sm, err := rd.Extract(slot.Feature, slot.Quality)
		if err != nil {
			for _, prev := range out {
				prev.Release()
			}
			return nil, err
		}
		out[slot] = sm
	}
	return out, nil
}

func (rd *Reader) name(idx uint32) (string, error) {
	if int(idx) >= len(rd.names) {
		return "", fmt.Errorf("archive: name index %d out of range", idx)
	}
	return rd.names[idx], nil
}

func (rd *Reader) readName(r io.Reader) (string, error) {
	idx, err := readU32(r)
	if err != nil {
		return "", err
	}
	return rd.name(idx)
}

func (rd *Reader) readShaderMap(r io.Reader) (*shadermap.ShaderMap, error) {
	var digest shadermap.Digest
	if _, err := io.ReadFull(r, digest[:]); err != nil {
		return nil, fmt.Errorf("archive: read digest: %w", err)
	}
	platform, err := readU8(r)
	if err != nil {
		return nil, fmt.Errorf("archive: read platform: %w", err)
	}

	id, err := rd.readFingerprint(r)
	if err != nil {
		return nil, err
	}
	if id.Digest() != digest {
		return nil, fmt.Errorf("archive: fingerprint digest mismatch, archive corrupt")
	}

	sm := shadermap.NewShaderMap(id, shadermap.Platform(platform))

	count, err := readU32(r)
	if err != nil {
		return nil, fmt.Errorf("archive: read program count: %w", err)
	}
	if err := checkCount(count, "program"); err != nil {
		return nil, err
	}
	for i := uint32(0); i < count; i++ {
		p, err := rd.readProgram(r)
		if err != nil {
			return nil, err
		}
		sm.AddProgram(p)
	}

	set, err := rd.readExpressions(r)
	if err != nil {
		return nil, err
	}
	sm.SetExpressions(set)
	sm.Finalize()
	return sm, nil
}

func (rd *Reader) readFingerprint(r io.Reader) (*shadermap.ShaderMapID, error) {
	id := &shadermap.ShaderMapID{}
	if _, err := io.ReadFull(r, id.ContentHash[:]); err != nil {
		return nil, fmt.Errorf("archive: read fingerprint: %w", err)
	}
	usage, err := readU8(r)
	if err != nil {
		return nil, fmt.Errorf("archive: read fingerprint: %w", err)
	}
	quality, err := readU8(r)
	if err != nil {
		return nil, fmt.Errorf("archive: read fingerprint: %w", err)
	}
	feature, err := readU8(r)
	if err != nil {
		return nil, fmt.Errorf("archive: read fingerprint: %w", err)
	}
	id.Usage = shadermap.Usage(usage)
	id.Quality = shadermap.QualityLevel(quality)
	id.Feature = shadermap.FeatureLevel(feature)

	count, err := readU32(r)
	if err != nil {
		return nil, fmt.Errorf("archive: read fingerprint: %w", err)
	}
	if err := checkCount(count, "dependency"); err != nil {
		return nil, err
	}
	for i := uint32(0); i < count; i++ {
		name, err := rd.readName(r)
		if err != nil {
			return nil, err
		}
		perm, err := readU32(r)
		if err != nil {
			return nil, fmt.Errorf("archive: read fingerprint: %w", err)
		}
		id.ShaderDependencies = append(id.ShaderDependencies, shadermap.ShaderDependency{
			ShaderType:  name,
			Permutation: int32(perm),
		})
	}

	count, err = readU32(r)
	if err != nil {
		return nil, fmt.Errorf("archive: read fingerprint: %w", err)
	}
	if err := checkCount(count, "vertex factory"); err != nil {
		return nil, err
	}
	for i := uint32(0); i < count; i++ {
		name, err := rd.readName(r)
		if err != nil {
			return nil, err
		}
		id.VertexFactories = append(id.VertexFactories, name)
	}

	count, err = readU32(r)
	if err != nil {
		return nil, fmt.Errorf("archive: read fingerprint: %w", err)
	}
	if err := checkCount(count, "pipeline"); err != nil {
		return nil, err
	}
	for i := uint32(0); i < count; i++ {
		name, err := rd.readName(r)
		if err != nil {
			return nil, err
		}
		id.Pipelines = append(id.Pipelines, name)
	}

	if _, err := io.ReadFull(r, id.TextureHash[:]); err != nil {
		return nil, fmt.Errorf("archive: read fingerprint: %w", err)
	}
	return id, nil
}

func (rd *Reader) readProgram(r io.Reader) (backend.Program, error) {
	var p backend.Program
	shaderType, err := rd.readName(r)
	if err != nil {
		return p, err
	}
	perm, err := readU32(r)
	if err != nil {
		return p, fmt.Errorf("archive: read program: %w", err)
	}
	vf, err := rd.readName(r)
	if err != nil {
		return p, err
	}
	stage, err := readU8(r)
	if err != nil {
		return p, fmt.Errorf("archive: read program: %w", err)
	}
	codeLen, err := readU32(r)
	if err != nil {
		return p, fmt.Errorf("archive: read program: %w", err)
	}
	if err := checkCount(codeLen, "code byte"); err != nil {
		return p, err
	}
	code := make([]byte, codeLen)
	if _, err := io.ReadFull(r, code); err != nil {
		return p, fmt.Errorf("archive: read program code: %w", err)
	}

	p.Target = backend.Target{
		ShaderType:    shaderType,
		Permutation:   int32(perm),
		VertexFactory: vf,
		Stage:         backend.Stage(stage),
	}
	p.Code = code
	return p, nil
}

func (rd *Reader) readExpressions(r io.Reader) (*uniform.ExpressionSet, error) {
	set := &uniform.ExpressionSet{}

	count, err := readU32(r)
	if err != nil {
		return nil, fmt.Errorf("archive: read expressions: %w", err)
	}
	if err := checkCount(count, "vector expression"); err != nil {
		return nil, err
	}
	for i := uint32(0); i < count; i++ {
		tag, err := readU8(r)
		if err != nil {
			return nil, fmt.Errorf("archive: read expressions: %w", err)
		}
		switch tag {
		case tagVectorConstant:
			var v mgl32.Vec4
			for j := 0; j < 4; j++ {
				if v[j], err = readF32(r); err != nil {
					return nil, fmt.Errorf("archive: read expressions: %w", err)
				}
			}
			set.Vectors = append(set.Vectors, uniform.VectorConstant{Value: v})
		case tagVectorParameter:
			name, err := rd.readName(r)
			if err != nil {
				return nil, err
			}
			var v mgl32.Vec4
			for j := 0; j < 4; j++ {
				if v[j], err = readF32(r); err != nil {
					return nil, fmt.Errorf("archive: read expressions: %w", err)
				}
			}
			set.Vectors = append(set.Vectors, uniform.VectorParameter{Name: name, Default: v})
		default:
			return nil, fmt.Errorf("archive: unknown vector expression tag %d", tag)
		}
	}

	count, err = readU32(r)
	if err != nil {
		return nil, fmt.Errorf("archive: read expressions: %w", err)
	}
	if err := checkCount(count, "scalar expression"); err != nil {
		return nil, err
	}
	for i := uint32(0); i < count; i++ {
		tag, err := readU8(r)
		if err != nil {
			return nil, fmt.Errorf("archive: read expressions: %w", err)
		}
		switch tag {
		case tagScalarConstant:
			v, err := readF32(r)
			if err != nil {
				return nil, fmt.Errorf("archive: read expressions: %w", err)
			}
			set.Scalars = append(set.Scalars, uniform.ScalarConstant{Value: v})
		case tagScalarParameter:
			name, err := rd.readName(r)
			if err != nil {
				return nil, err
			}
			v, err := readF32(r)
			if err != nil {
				return nil, fmt.Errorf("archive: read expressions: %w", err)
			}
			set.Scalars = append(set.Scalars, uniform.ScalarParameter{Name: name, Default: v})
		default:
			return nil, fmt.Errorf("archive: unknown scalar expression tag %d", tag)
		}
	}

	count, err = readU32(r)
	if err != nil {
		return nil, fmt.Errorf("archive: read expressions: %w", err)
	}
	if err := checkCount(count, "texture expression"); err != nil {
		return nil, err
	}
	for i := uint32(0); i < count; i++ {
		e, err := rd.readTextureExpression(r)
		if err != nil {
			return nil, err
		}
		set.Textures = append(set.Textures, e)
	}

	count, err = readU32(r)
	if err != nil {
		return nil, fmt.Errorf("archive: read expressions: %w", err)
	}
	if err := checkCount(count, "texture stack"); err != nil {
		return nil, err
	}
	for i := uint32(0); i < count; i++ {
		prealloc, err := readU8(r)
		if err != nil {
			return nil, fmt.Errorf("archive: read stacks: %w", err)
		}
		layerCount, err := readU32(r)
		if err != nil {
			return nil, fmt.Errorf("archive: read stacks: %w", err)
		}
		if err := checkCount(layerCount, "stack layer"); err != nil {
			return nil, err
		}
		st := uniform.TextureStack{Preallocated: prealloc != 0}
		for j := uint32(0); j < layerCount; j++ {
			layer, err := rd.readTextureExpression(r)
			if err != nil {
				return nil, err
			}
			st.Layers = append(st.Layers, layer)
		}
		set.Stacks = append(set.Stacks, st)
	}

	return set, nil
}

func (rd *Reader) readTextureExpression(r io.Reader) (uniform.TextureExpression, error) {
	tag, err := readU8(r)
	if err != nil {
		return nil, fmt.Errorf("archive: read texture expression: %w", err)
	}
	if tag != tagTextureParam {
		return nil, fmt.Errorf("archive: unknown texture expression tag %d", tag)
	}
	name, err := rd.readName(r)
	if err != nil {
		return nil, err
	}
	return uniform.TextureParameter{Name: name}, nil
}
