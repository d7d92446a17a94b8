package uniform

import (
	"sync"

	"github.com/google/uuid"
)

// Texture identifies one texture resource visible to expression evaluation.
// The streaming system owns the actual pixel data; this layer only needs
// identity and the tile parameters used for stack allocation.
type Texture struct {
	ID   uuid.UUID
	Name string

	// Virtual marks textures backed by a tiled virtual-texture producer.
	// Only virtual layers contribute to dynamic stack allocation.
	Virtual    bool
	Width      int
	Height     int
	TileSize   int
	TileBorder int
}

// NewTexture creates a texture handle with a fresh identity.
func NewTexture(name string, w, h int) *Texture {
	return &Texture{ID: uuid.New(), Name: name, Width: w, Height: h}
}

// NewVirtualTexture creates a virtual texture handle with tile parameters.
func NewVirtualTexture(name string, w, h, tileSize, tileBorder int) *Texture {
	return &Texture{
		ID: uuid.New(), Name: name, Virtual: true,
		Width: w, Height: h, TileSize: tileSize, TileBorder: tileBorder,
	}
}

// StackDesc describes a dynamic texture stack to allocate: the union of the
// per-layer resolutions and the shared tile parameters.
type StackDesc struct {
	NumLayers  int
	Width      int
	Height     int
	TileSize   int
	TileBorder int
	// Producers holds the backing texture identity per layer;
	// uuid.Nil for layers with no resolved texture.
	Producers [MaxStackLayers]uuid.UUID
}

// AllocatedStack is one live dynamic texture stack allocation.
// External stacks belong to the texture system and are only referenced here;
// owned stacks are released when the referencing cache is invalidated or
// destroyed.
type AllocatedStack struct {
	ID       uuid.UUID
	Desc     StackDesc
	External bool
}

// StackAllocator is the narrow contract with the texture/virtual-texture
// streaming system.
//
// AddDestroyedCallback registers fn to run when the given texture resource
// is destroyed; owner groups registrations so RemoveDestroyedCallbacks can
// drop them all when a cache re-evaluates or a proxy dies.
type StackAllocator interface {
	Allocate(desc StackDesc) *AllocatedStack
	Release(stack *AllocatedStack)
	Preallocated(tex *Texture) *AllocatedStack
	AddDestroyedCallback(textureID uuid.UUID, owner any, fn func())
	RemoveDestroyedCallbacks(owner any)
}

// MemoryStackAllocator is an in-process StackAllocator. It backs tests and
// headless tooling; a renderer substitutes its own allocator bound to the
// real streaming system.
type MemoryStackAllocator struct {
	mu           sync.Mutex
	live         map[uuid.UUID]*AllocatedStack
	preallocated map[uuid.UUID]*AllocatedStack // texture ID -> external stack
	callbacks    map[uuid.UUID]map[any]func()  // texture ID -> owner -> fn
}

// NewMemoryStackAllocator creates an empty allocator.
func NewMemoryStackAllocator() *MemoryStackAllocator {
	return &MemoryStackAllocator{
		live:         make(map[uuid.UUID]*AllocatedStack),
		preallocated: make(map[uuid.UUID]*AllocatedStack),
		callbacks:    make(map[uuid.UUID]map[any]func()),
	}
}

// Allocate creates a fresh owned stack. A zero-layer descriptor is a no-op
// returning nil.
func (a *MemoryStackAllocator) Allocate(desc StackDesc) *AllocatedStack {
	if desc.NumLayers == 0 {
		return nil
	}
	s := &AllocatedStack{ID: uuid.New(), Desc: desc}
	a.mu.Lock()
	a.live[s.ID] = s
	a.mu.Unlock()
	return s
}

// Release destroys an owned stack. External stacks are ignored: they belong
// to the texture system.
func (a *MemoryStackAllocator) Release(stack *AllocatedStack) {
	if stack == nil || stack.External {
		return
	}
	a.mu.Lock()
	delete(a.live, stack.ID)
	a.mu.Unlock()
}

// Preallocated returns the external stack bound to tex, creating the
// binding on first use. Returns nil for a nil texture.
func (a *MemoryStackAllocator) Preallocated(tex *Texture) *AllocatedStack {
	if tex == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if s, ok := a.preallocated[tex.ID]; ok {
		return s
	}
	s := &AllocatedStack{
		ID: uuid.New(),
		Desc: StackDesc{
			NumLayers: 1, Width: tex.Width, Height: tex.Height,
			TileSize: tex.TileSize, TileBorder: tex.TileBorder,
			Producers: [MaxStackLayers]uuid.UUID{tex.ID},
		},
		External: true,
	}
	a.preallocated[tex.ID] = s
	return s
}

// AddDestroyedCallback implements StackAllocator.
func (a *MemoryStackAllocator) AddDestroyedCallback(textureID uuid.UUID, owner any, fn func()) {
	a.mu.Lock()
	owners, ok := a.callbacks[textureID]
	if !ok {
		owners = make(map[any]func())
		a.callbacks[textureID] = owners
	}
	owners[owner] = fn
	a.mu.Unlock()
}

// RemoveDestroyedCallbacks implements StackAllocator.
func (a *MemoryStackAllocator) RemoveDestroyedCallbacks(owner any) {
	a.mu.Lock()
	for id, owners := range a.callbacks {
		delete(owners, owner)
		if len(owners) == 0 {
			delete(a.callbacks, id)
		}
	}
	a.mu.Unlock()
}

// NotifyTextureDestroyed simulates the streaming system destroying a texture
// resource: every registered callback for it runs once and the external
// stack binding (if any) is dropped.
func (a *MemoryStackAllocator) NotifyTextureDestroyed(textureID uuid.UUID) {
	a.mu.Lock()
	owners := a.callbacks[textureID]
	delete(a.callbacks, textureID)
	delete(a.preallocated, textureID)
	fns := make([]func(), 0, len(owners))
	for _, fn := range owners {
		fns = append(fns, fn)
	}
	a.mu.Unlock()

	// Run outside the lock: callbacks invalidate caches, which call back
	// into RemoveDestroyedCallbacks.
	for _, fn := range fns {
		fn()
	}
}

// LiveStacks returns the number of owned allocations currently live.
func (a *MemoryStackAllocator) LiveStacks() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.live)
}
