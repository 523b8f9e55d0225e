package mappingcache

import (
	"context"
	"testing"
	"time"

	"github.com/caretide/ivrmap/cmd/ivrmap/ivr/score"
	"github.com/caretide/ivrmap/cmd/ivrmap/ivr/source"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() []score.ScoredMapping {
	return []score.ScoredMapping{
		{
			TargetField:   "Physician Name",
			SourceField:   "physician_name",
			CombinedScore: 1.0,
			Strategy:      "exact",
			Decision:      score.DecisionAutoAccept,
		},
	}
}

func TestCachePutGet(t *testing.T) {
	cache := New(DefaultConfig(), nil, zerolog.Nop())
	defer cache.Stop()
	ctx := context.Background()

	key := NewKey("ACZ_Distribution", "deadbeef", []source.SourceField{
		{Name: "physician_name", Provenance: source.ProvenanceFHIR, Type: "text"},
	})

	_, hit := cache.Get(ctx, key)
	assert.False(t, hit)

	cache.Put(ctx, key, sampleResult())
	result, hit := cache.Get(ctx, key)
	require.True(t, hit)
	assert.Equal(t, sampleResult(), result)
}

func TestCacheKeyIgnoresSourceValues(t *testing.T) {
	// Two requests with the same fields but different patient data must
	// share an entry: the key covers shape, never values.
	first := NewKey("ACZ_Distribution", "deadbeef", []source.SourceField{
		{Name: "physician_name", Value: "Dr. Jane Smith", Provenance: source.ProvenanceFHIR, Type: "text"},
		{Name: "dob", Value: "1955-03-12", Provenance: source.ProvenanceFHIR, Type: "date"},
	})
	second := NewKey("ACZ_Distribution", "deadbeef", []source.SourceField{
		{Name: "dob", Value: "1980-11-02", Provenance: source.ProvenanceOCR, Type: "date"},
		{Name: "physician_name", Value: "Dr. John Doe", Provenance: source.ProvenanceForm, Type: "text"},
	})

	assert.Equal(t, first.Hash(), second.Hash(), "field order and values must not affect the key")
}

func TestCacheKeyVariesWithShape(t *testing.T) {
	base := NewKey("ACZ_Distribution", "deadbeef", []source.SourceField{
		{Name: "dob", Type: "date"},
	})
	differentType := NewKey("ACZ_Distribution", "deadbeef", []source.SourceField{
		{Name: "dob", Type: "text"},
	})
	differentTemplate := NewKey("ACZ_Distribution", "cafef00d", []source.SourceField{
		{Name: "dob", Type: "date"},
	})
	differentManufacturer := NewKey("Advanced_Health", "deadbeef", []source.SourceField{
		{Name: "dob", Type: "date"},
	})

	assert.NotEqual(t, base.Hash(), differentType.Hash())
	assert.NotEqual(t, base.Hash(), differentTemplate.Hash())
	assert.NotEqual(t, base.Hash(), differentManufacturer.Hash())
}

func TestCacheTTLExpiry(t *testing.T) {
	config := DefaultConfig()
	config.DefaultTTL = 20 * time.Millisecond
	config.CleanupInterval = 0
	cache := New(config, nil, zerolog.Nop())
	defer cache.Stop()
	ctx := context.Background()

	key := NewKey("ACZ_Distribution", "deadbeef", nil)
	cache.Put(ctx, key, sampleResult())

	_, hit := cache.Get(ctx, key)
	require.True(t, hit)

	time.Sleep(40 * time.Millisecond)
	_, hit = cache.Get(ctx, key)
	assert.False(t, hit, "expired entry must read as a miss")
}

func TestCacheDisabled(t *testing.T) {
	config := DefaultConfig()
	config.Enabled = false
	cache := New(config, nil, zerolog.Nop())
	defer cache.Stop()
	ctx := context.Background()

	key := NewKey("ACZ_Distribution", "deadbeef", nil)
	cache.Put(ctx, key, sampleResult())

	_, hit := cache.Get(ctx, key)
	assert.False(t, hit)
}

func TestCacheBust(t *testing.T) {
	cache := New(DefaultConfig(), nil, zerolog.Nop())
	defer cache.Stop()
	ctx := context.Background()

	key := NewKey("ACZ_Distribution", "deadbeef", nil)
	cache.Put(ctx, key, sampleResult())
	cache.Bust(ctx, key)

	_, hit := cache.Get(ctx, key)
	assert.False(t, hit)
}

func TestCacheCleanupEnforcesMaxSize(t *testing.T) {
	config := DefaultConfig()
	config.MaxSize = 2
	config.CleanupInterval = 0
	cache := New(config, nil, zerolog.Nop())
	defer cache.Stop()
	ctx := context.Background()

	signatures := []string{"aaa", "bbb", "ccc", "ddd"}
	for _, signature := range signatures {
		cache.Put(ctx, NewKey("ACZ_Distribution", signature, nil), sampleResult())
		time.Sleep(2 * time.Millisecond)
	}

	cache.cleanup()

	remaining := 0
	for _, signature := range signatures {
		if _, hit := cache.Get(ctx, NewKey("ACZ_Distribution", signature, nil)); hit {
			remaining++
		}
	}
	assert.Equal(t, 2, remaining)
}
