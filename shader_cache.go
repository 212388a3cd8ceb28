package ember

import (
	"sync"

	"github.com/google/uuid"
)

// ShaderId identifies one compiled shader variant.
type ShaderId string

func makeShaderId() ShaderId {
	return ShaderId(uuid.NewString())
}

// Shader is an opaque handle to one compiled shader variant. The same
// *Shader is shared by every effect instance whose baked source matches
// byte for byte.
type Shader struct {
	Id     ShaderId
	Label  string
	Source string
	// Backend is the backend's compiled object; a *wgpu.ShaderModule
	// for WgpuBackend, nil for headless backends.
	Backend any
}

// ShaderBackend creates GPU shader objects from baked WGSL source. The
// expensive part lives behind this boundary; the cache only does string
// lookups.
type ShaderBackend interface {
	CreateShader(label, source string) (*Shader, error)
}

// ShaderCache deduplicates compiled shader variants by their baked
// source text. Textual identity is the sole criterion: the expression
// renderer guarantees canonical formatting, the cache never normalizes.
// Entries are never evicted; the variant count is bounded by the number
// of distinct authored effects, not by frames or particles.
type ShaderCache struct {
	mu      sync.Mutex
	backend ShaderBackend
	log     Logger
	cache   map[string]*Shader
}

func NewShaderCache(backend ShaderBackend, log Logger) *ShaderCache {
	if log == nil {
		log = NewNopLogger()
	}
	return &ShaderCache{
		backend: backend,
		log:     log,
		cache:   make(map[string]*Shader),
	}
}

// GetOrInsert returns the shader compiled from source, creating it
// through the backend on first sight. Lookup and insert happen under one
// lock, so concurrent callers with identical source always get the same
// handle and the backend compiles each distinct source exactly once.
// A backend failure is returned to the caller and never cached.
func (c *ShaderCache) GetOrInsert(label, source string) (*Shader, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if shader, ok := c.cache[source]; ok {
		return shader, nil
	}

	shader, err := c.backend.CreateShader(label, source)
	if err != nil {
		return nil, &CompileError{Label: label, Cause: err}
	}
	if shader.Id == "" {
		shader.Id = makeShaderId()
	}
	shader.Label = label
	shader.Source = source
	c.cache[source] = shader
	c.log.Debugf("shader cache: inserted variant %s (%s), %d bytes", shader.Id, label, len(source))
	return shader, nil
}

// Len reports how many distinct variants have been compiled.
func (c *ShaderCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cache)
}
