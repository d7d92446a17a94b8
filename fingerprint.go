package shadermap

import (
	"encoding/binary"
	"encoding/hex"
	"hash"
	"hash/fnv"
	"sort"
)

// Digest is a 128-bit FNV-1a content digest.
type Digest [16]byte

// String returns the digest as lowercase hex.
func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// IsZero reports whether the digest is all zeroes.
func (d Digest) IsZero() bool { return d == Digest{} }

// HashBytes digests an arbitrary byte string.
func HashBytes(b []byte) Digest {
	h := fnv.New128a()
	_, _ = h.Write(b)
	var d Digest
	copy(d[:], h.Sum(nil))
	return d
}

// HashStrings digests a list of strings order-independently by sorting a
// copy first. Used for referenced-texture identity lists.
func HashStrings(names []string) Digest {
	sorted := make([]string, len(names))
	copy(sorted, names)
	sort.Strings(sorted)

	h := fnv.New128a()
	for _, n := range sorted {
		_, _ = h.Write([]byte(n))
		_, _ = h.Write([]byte{0})
	}
	var d Digest
	copy(d[:], h.Sum(nil))
	return d
}

// ShaderDependency is one (shader type, permutation) pair a shader map
// must contain to be complete.
type ShaderDependency struct {
	ShaderType  string
	Permutation int32
}

// ShaderMapID is the stable fingerprint of "this material compiled for this
// platform, quality and feature level". Two materials that would compile to
// byte-identical programs produce equal fingerprints.
//
// The dependency lists are kept sorted by stable name so identical semantic
// content always digests identically regardless of discovery order.
type ShaderMapID struct {
	// ContentHash is the structural content hash of the material graph.
	ContentHash Digest
	Usage       Usage
	Quality     QualityLevel
	Feature     FeatureLevel

	ShaderDependencies []ShaderDependency
	VertexFactories    []string
	Pipelines          []string

	// TextureHash digests the referenced-texture identity list.
	TextureHash Digest
}

// normalize sorts the dependency lists in place.
func (id *ShaderMapID) normalize() {
	sort.Slice(id.ShaderDependencies, func(i, j int) bool {
		a, b := id.ShaderDependencies[i], id.ShaderDependencies[j]
		if a.ShaderType != b.ShaderType {
			return a.ShaderType < b.ShaderType
		}
		return a.Permutation < b.Permutation
	})
	sort.Strings(id.VertexFactories)
	sort.Strings(id.Pipelines)
}

// Digest returns the canonical digest of the fingerprint. Dependency lists
// are sorted into copies first, so the digest is insertion-order
// independent even for hand-built IDs.
func (id *ShaderMapID) Digest() Digest {
	canon := ShaderMapID{
		ContentHash:        id.ContentHash,
		Usage:              id.Usage,
		Quality:            id.Quality,
		Feature:            id.Feature,
		ShaderDependencies: append([]ShaderDependency(nil), id.ShaderDependencies...),
		VertexFactories:    append([]string(nil), id.VertexFactories...),
		Pipelines:          append([]string(nil), id.Pipelines...),
		TextureHash:        id.TextureHash,
	}
	canon.normalize()

	h := fnv.New128a()
	_, _ = h.Write(canon.ContentHash[:])
	_, _ = h.Write([]byte{byte(canon.Usage), byte(canon.Quality), byte(canon.Feature)})
	for _, dep := range canon.ShaderDependencies {
		writeName(h, dep.ShaderType)
		var perm [4]byte
		binary.LittleEndian.PutUint32(perm[:], uint32(dep.Permutation))
		_, _ = h.Write(perm[:])
	}
	_, _ = h.Write([]byte{0xff})
	for _, vf := range canon.VertexFactories {
		writeName(h, vf)
	}
	_, _ = h.Write([]byte{0xff})
	for _, p := range canon.Pipelines {
		writeName(h, p)
	}
	_, _ = h.Write([]byte{0xff})
	_, _ = h.Write(canon.TextureHash[:])

	var d Digest
	copy(d[:], h.Sum(nil))
	return d
}

func writeName(h hash.Hash, name string) {
	_, _ = h.Write([]byte(name))
	_, _ = h.Write([]byte{0})
}

// ContainsShaderType reports whether the fingerprint depends on the given
// shader type and permutation.
func (id *ShaderMapID) ContainsShaderType(shaderType string, permutation int32) bool {
	for _, dep := range id.ShaderDependencies {
		if dep.ShaderType == shaderType && dep.Permutation == permutation {
			return true
		}
	}
	return false
}

// ContainsVertexFactory reports whether the fingerprint depends on the
// given vertex factory type.
func (id *ShaderMapID) ContainsVertexFactory(name string) bool {
	for _, vf := range id.VertexFactories {
		if vf == name {
			return true
		}
	}
	return false
}

// ContainsPipeline reports whether the fingerprint depends on the given
// shader pipeline.
func (id *ShaderMapID) ContainsPipeline(name string) bool {
	for _, p := range id.Pipelines {
		if p == name {
			return true
		}
	}
	return false
}

// Equal reports whether two fingerprints identify the same compiled output.
func (id *ShaderMapID) Equal(other *ShaderMapID) bool {
	if other == nil {
		return false
	}
	return id.Digest() == other.Digest()
}
