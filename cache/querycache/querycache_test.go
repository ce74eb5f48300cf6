package querycache

import (
	"context"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"rfpflow/model/model"
	U "rfpflow/util"
)

func TestNewDefaultsCollection(t *testing.T) {
	assert.Equal(t, DefaultCollection, New(nil, "").collection)
	assert.Equal(t, "query_cache_staging", New(nil, "query_cache_staging").collection)
}

// Emulator backed tests below. The firestore client honors
// FIRESTORE_EMULATOR_HOST; without an emulator they are skipped.
func newEmulatorCache(t *testing.T) *Cache {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	ctx := context.Background()
	client, err := firestore.NewClient(ctx, "rfpflow-test")
	assert.Nil(t, err)
	t.Cleanup(func() { client.Close() })
	return New(client, "query_cache_test")
}

func TestStoreThenLookupRoundTrip(t *testing.T) {
	cache := newEmulatorCache(t)
	ctx := context.Background()

	query := "What is the minimum capital requirement? " + uuid.New().String()
	key := U.HashKeyUsingSha256Checksum(query)
	embedding := []float32{0.1, 0.2, 0.3}

	before := time.Now().Add(-time.Minute)
	err := cache.Store(ctx, key, query, "At least 8% of risk weighted assets.", embedding)
	assert.Nil(t, err)

	result := cache.Lookup(ctx, key)
	assert.Equal(t, model.LookupHit, result.Status)
	assert.Nil(t, result.Err)
	assert.Equal(t, query, result.Entry.Query)
	assert.Equal(t, "At least 8% of risk weighted assets.", result.Entry.Response)
	assert.Equal(t, embedding, result.Entry.Embedding)
	// Timestamp is assigned by the backend at write time, never by the caller.
	assert.True(t, result.Entry.Timestamp.After(before))
}

func TestSecondStoreOverwrites(t *testing.T) {
	cache := newEmulatorCache(t)
	ctx := context.Background()

	query := "Describe your uptime SLA. " + uuid.New().String()
	key := U.HashKeyUsingSha256Checksum(query)

	assert.Nil(t, cache.Store(ctx, key, query, "First answer.", []float32{0.1}))
	assert.Nil(t, cache.Store(ctx, key, query, "Second answer.", []float32{0.2}))

	result := cache.Lookup(ctx, key)
	assert.Equal(t, model.LookupHit, result.Status)
	assert.Equal(t, "Second answer.", result.Entry.Response)
	assert.Equal(t, []float32{0.2}, result.Entry.Embedding)
}

func TestLookupAbsentKeyIsMiss(t *testing.T) {
	cache := newEmulatorCache(t)
	ctx := context.Background()

	key := U.HashKeyUsingSha256Checksum("never stored " + uuid.New().String())
	result := cache.Lookup(ctx, key)

	// Absence is a miss, not a backend error.
	assert.Equal(t, model.LookupMiss, result.Status)
	assert.Nil(t, result.Entry)
	assert.Nil(t, result.Err)
}
