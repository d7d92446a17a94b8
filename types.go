package shadermap

// Platform identifies the GPU platform a shader map is compiled for.
type Platform uint8

const (
	PlatformVulkan Platform = iota
	PlatformMetal
	PlatformD3D12
	PlatformWebGPU
)

// String returns a human-readable name for the platform.
func (p Platform) String() string {
	switch p {
	case PlatformVulkan:
		return "Vulkan"
	case PlatformMetal:
		return "Metal"
	case PlatformD3D12:
		return "D3D12"
	case PlatformWebGPU:
		return "WebGPU"
	default:
		return "Unknown"
	}
}

// FeatureLevel is the renderer capability tier a shader map targets.
// Values stay below uniform.NumFeatureLevels so they can index per-level
// expression caches directly.
type FeatureLevel uint8

const (
	FeatureES31 FeatureLevel = iota
	FeatureSM5
	FeatureSM6

	// NumFeatureLevels is the number of defined feature levels.
	NumFeatureLevels = 3
)

// String returns a human-readable name for the feature level.
func (f FeatureLevel) String() string {
	switch f {
	case FeatureES31:
		return "ES3_1"
	case FeatureSM5:
		return "SM5"
	case FeatureSM6:
		return "SM6"
	default:
		return "Unknown"
	}
}

// QualityLevel selects the material quality tier.
type QualityLevel uint8

const (
	QualityLow QualityLevel = iota
	QualityMedium
	QualityHigh
	QualityEpic

	// NumQualityLevels is the number of defined quality levels.
	NumQualityLevels = 4
)

// String returns a human-readable name for the quality level.
func (q QualityLevel) String() string {
	switch q {
	case QualityLow:
		return "Low"
	case QualityMedium:
		return "Medium"
	case QualityHigh:
		return "High"
	case QualityEpic:
		return "Epic"
	default:
		return "Unknown"
	}
}

// Usage distinguishes the context a shader map is produced for. Maps with
// different usages never share a fingerprint even for identical content.
type Usage uint8

const (
	UsageDefault Usage = iota
	UsageDebugView
)

// String returns a human-readable name for the usage.
func (u Usage) String() string {
	switch u {
	case UsageDefault:
		return "Default"
	case UsageDebugView:
		return "DebugView"
	default:
		return "Unknown"
	}
}

// BlendMode controls how a material's output combines with the frame.
type BlendMode uint8

const (
	BlendOpaque BlendMode = iota
	BlendMasked
	BlendTranslucent
	BlendAdditive
	BlendModulate
	BlendAlphaComposite
	BlendAlphaHoldout
)

// String returns a human-readable name for the blend mode.
func (b BlendMode) String() string {
	switch b {
	case BlendOpaque:
		return "Opaque"
	case BlendMasked:
		return "Masked"
	case BlendTranslucent:
		return "Translucent"
	case BlendAdditive:
		return "Additive"
	case BlendModulate:
		return "Modulate"
	case BlendAlphaComposite:
		return "AlphaComposite"
	case BlendAlphaHoldout:
		return "AlphaHoldout"
	default:
		return "Unknown"
	}
}

// IsTranslucent reports whether the blend mode reads the scene behind it.
func (b BlendMode) IsTranslucent() bool {
	return b != BlendOpaque && b != BlendMasked
}

// MaterialDomain selects the renderer subsystem a material feeds.
type MaterialDomain uint8

const (
	DomainSurface MaterialDomain = iota
	DomainDeferredDecal
	DomainUI
	DomainPostProcess
	DomainVolume
)

// String returns a human-readable name for the domain.
func (d MaterialDomain) String() string {
	switch d {
	case DomainSurface:
		return "Surface"
	case DomainDeferredDecal:
		return "DeferredDecal"
	case DomainUI:
		return "UI"
	case DomainPostProcess:
		return "PostProcess"
	case DomainVolume:
		return "Volume"
	default:
		return "Unknown"
	}
}

// RefractionMode selects how translucent refraction is computed.
type RefractionMode uint8

const (
	RefractionIndexOfRefraction RefractionMode = iota
	RefractionPixelNormalOffset
)

// String returns a human-readable name for the refraction mode.
func (r RefractionMode) String() string {
	switch r {
	case RefractionIndexOfRefraction:
		return "IndexOfRefraction"
	case RefractionPixelNormalOffset:
		return "PixelNormalOffset"
	default:
		return "Unknown"
	}
}

// TessellationMode selects the hull/domain stage configuration.
type TessellationMode uint8

const (
	TessellationNone TessellationMode = iota
	TessellationFlat
	TessellationPNTriangles
)

// String returns a human-readable name for the tessellation mode.
func (t TessellationMode) String() string {
	switch t {
	case TessellationNone:
		return "None"
	case TessellationFlat:
		return "Flat"
	case TessellationPNTriangles:
		return "PNTriangles"
	default:
		return "Unknown"
	}
}

// TranslucencyLightingMode selects how translucent surfaces are lit.
type TranslucencyLightingMode uint8

const (
	TranslucencyVolumetricNonDirectional TranslucencyLightingMode = iota
	TranslucencyVolumetricDirectional
	TranslucencySurface
	TranslucencySurfacePerPixel
)

// String returns a human-readable name for the lighting mode.
func (t TranslucencyLightingMode) String() string {
	switch t {
	case TranslucencyVolumetricNonDirectional:
		return "VolumetricNonDirectional"
	case TranslucencyVolumetricDirectional:
		return "VolumetricDirectional"
	case TranslucencySurface:
		return "Surface"
	case TranslucencySurfacePerPixel:
		return "SurfacePerPixel"
	default:
		return "Unknown"
	}
}

// CompileState is the per-material compile state machine.
type CompileState uint8

const (
	StateNoArtifact CompileState = iota
	StateCompileInFlight
	StateComplete
	StateFailed
)

// String returns a human-readable name for the compile state.
func (s CompileState) String() string {
	switch s {
	case StateNoArtifact:
		return "NoArtifact"
	case StateCompileInFlight:
		return "CompileInFlight"
	case StateComplete:
		return "Complete"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// CompileMode collapses the compile policy flags into one explicit mode.
type CompileMode uint8

const (
	// LiveAsync compiles missing shader maps asynchronously; rendering
	// continues on the fallback until the job finishes.
	LiveAsync CompileMode = iota
	// LiveSync blocks the caller until compilation finishes.
	LiveSync
	// ArchiveOnly never compiles: missing artifacts fall back, or fail
	// for designated-required materials.
	ArchiveOnly
)

// String returns a human-readable name for the compile mode.
func (m CompileMode) String() string {
	switch m {
	case LiveAsync:
		return "LiveAsync"
	case LiveSync:
		return "LiveSync"
	case ArchiveOnly:
		return "ArchiveOnly"
	default:
		return "Unknown"
	}
}
