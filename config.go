package shadermap

import "fmt"

// Default configuration values.
const (
	// DefaultWorkers is the number of compile worker goroutines when the
	// config leaves Workers at 0.
	DefaultWorkers = 4
)

// Config configures a Scheduler.
type Config struct {
	// Mode selects the compile policy. The zero value is LiveAsync.
	Mode CompileMode

	// Platform is the GPU platform compiled for.
	Platform Platform

	// Workers bounds the number of concurrent compile jobs in LiveAsync
	// mode. If 0, DefaultWorkers is used.
	Workers int

	// DeferUniformCaching batches uniform-expression recomputation into
	// one pass per frame. When false, invalidations recompute
	// synchronously; useful for tooling without a frame loop.
	DeferUniformCaching bool
}

// withDefaults returns a copy with defaults applied.
func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	return c
}

// validate rejects impossible configurations.
func (c Config) validate() error {
	if c.Mode > ArchiveOnly {
		return fmt.Errorf("shadermap: unknown compile mode %d", c.Mode)
	}
	if c.Platform > PlatformWebGPU {
		return fmt.Errorf("shadermap: unknown platform %d", c.Platform)
	}
	return nil
}
