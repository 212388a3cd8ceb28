package ember

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingBackend is a headless ShaderBackend recording every create
// call, optionally failing on demand.
type countingBackend struct {
	calls   int
	failing bool
}

func (b *countingBackend) CreateShader(label, source string) (*Shader, error) {
	b.calls++
	if b.failing {
		return nil, errors.New("wgsl validation error: simulated")
	}
	return &Shader{}, nil
}

func TestShaderCacheHit(t *testing.T) {
	backend := &countingBackend{}
	cache := NewShaderCache(backend, nil)

	const source = "@compute @workgroup_size(64) fn init_main() {}"

	first, err := cache.GetOrInsert("fx_init", source)
	require.NoError(t, err)
	second, err := cache.GetOrInsert("fx_init", source)
	require.NoError(t, err)

	assert.Same(t, first, second, "byte-identical source shares one handle")
	assert.Equal(t, 1, backend.calls, "backend compiles each distinct source exactly once")
	assert.Equal(t, 1, cache.Len())
}

func TestShaderCacheDistinctSources(t *testing.T) {
	backend := &countingBackend{}
	cache := NewShaderCache(backend, nil)

	a, err := cache.GetOrInsert("fx_a", "fn a() {}")
	require.NoError(t, err)
	b, err := cache.GetOrInsert("fx_b", "fn b() {}")
	require.NoError(t, err)

	assert.NotSame(t, a, b)
	assert.NotEqual(t, a.Id, b.Id)
	assert.Equal(t, 2, backend.calls)
	assert.Equal(t, 2, cache.Len())
}

func TestShaderCacheFailureNotCached(t *testing.T) {
	backend := &countingBackend{failing: true}
	cache := NewShaderCache(backend, nil)

	_, err := cache.GetOrInsert("fx_bad", "fn broken( {}")
	require.Error(t, err)
	var ce *CompileError
	assert.ErrorAs(t, err, &ce)
	assert.Equal(t, "fx_bad", ce.Label)
	assert.Equal(t, 0, cache.Len(), "failed entries must not be cached")

	// After the effect is corrected the backend is consulted again.
	backend.failing = false
	shader, err := cache.GetOrInsert("fx_bad", "fn broken( {}")
	require.NoError(t, err)
	assert.NotNil(t, shader)
	assert.Equal(t, 2, backend.calls)
	assert.Equal(t, 1, cache.Len())
}

func TestShaderCacheConcurrentSameSource(t *testing.T) {
	backend := &countingBackend{}
	cache := NewShaderCache(backend, nil)

	const source = "fn shared() {}"
	results := make(chan *Shader, 8)
	for i := 0; i < 8; i++ {
		go func() {
			s, err := cache.GetOrInsert("fx", source)
			if err != nil {
				results <- nil
				return
			}
			results <- s
		}()
	}

	first := <-results
	require.NotNil(t, first)
	for i := 1; i < 8; i++ {
		assert.Same(t, first, <-results, "concurrent identical lookups share one handle")
	}
	assert.Equal(t, 1, backend.calls)
}
