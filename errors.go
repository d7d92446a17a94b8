package shadermap

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the lookup and compile paths.
var (
	// ErrNoArtifact is returned when ArchiveOnly mode finds no complete
	// artifact for a fingerprint. For ordinary materials it is logged and
	// the fallback substitutes; for designated required materials it is
	// wrapped in ErrRequiredArtifactMissing.
	ErrNoArtifact = errors.New("shadermap: no complete artifact for fingerprint")

	// ErrRequiredArtifactMissing marks a missing artifact for a material
	// that has no acceptable degraded behavior. Unrecoverable.
	ErrRequiredArtifactMissing = errors.New("shadermap: required material has no artifact")

	// ErrDefaultMaterialCompile marks a compile failure of the designated
	// default material itself. No further fallback exists; unrecoverable.
	ErrDefaultMaterialCompile = errors.New("shadermap: default material failed to compile")

	// ErrJobCancelled is reported by compile jobs whose last dependent
	// detached before completion.
	ErrJobCancelled = errors.New("shadermap: compile job cancelled")
)

// CompileError carries the per-job failure detail for one material's
// compile attempt. Non-fatal unless the material is the designated default.
type CompileError struct {
	Material string
	Platform Platform
	Errs     []string
	cause    error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("shadermap: compile of %q for %s failed: %s",
		e.Material, e.Platform, strings.Join(e.Errs, "; "))
}

// Unwrap exposes the underlying backend or translator error.
func (e *CompileError) Unwrap() error { return e.cause }

// IsFatal reports whether err is one of the unrecoverable conditions: a
// missing artifact for a required material, or a failed compile of the
// designated default.
func IsFatal(err error) bool {
	return errors.Is(err, ErrRequiredArtifactMissing) ||
		errors.Is(err, ErrDefaultMaterialCompile)
}
