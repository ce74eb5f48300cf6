package querycache

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/pkg/errors"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"rfpflow/model/model"
)

const DefaultCollection = "query_cache"

// Cache is the durable exact-match answer cache. Keys are content hashes
// of the query text; one document per key, writes are upserts.
type Cache struct {
	client     *firestore.Client
	collection string
}

func New(client *firestore.Client, collection string) *Cache {
	if collection == "" {
		collection = DefaultCollection
	}
	return &Cache{client: client, collection: collection}
}

// Lookup fetches the entry stored under key. Absence is reported as
// LookupMiss; any other backend failure as LookupBackendError so callers
// can tell an outage from a miss.
func (c *Cache) Lookup(ctx context.Context, key string) model.LookupResult {
	snap, err := c.client.Collection(c.collection).Doc(key).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return model.LookupResult{Status: model.LookupMiss}
		}
		return model.LookupResult{
			Status: model.LookupBackendError,
			Err:    errors.Wrapf(err, "failed to read cache entry %s", key),
		}
	}

	var entry model.CacheEntry
	if err := snap.DataTo(&entry); err != nil {
		return model.LookupResult{
			Status: model.LookupBackendError,
			Err:    errors.Wrapf(err, "failed to decode cache entry %s", key),
		}
	}
	return model.LookupResult{Status: model.LookupHit, Entry: &entry}
}

// Store upserts the entry for key. The timestamp is assigned by the
// backend at write time. Last writer wins; there is no conflict detection
// since the only write path is miss-then-resolve.
func (c *Cache) Store(ctx context.Context, key, query, answer string, embedding []float32) error {
	_, err := c.client.Collection(c.collection).Doc(key).Set(ctx, map[string]interface{}{
		"query":     query,
		"response":  answer,
		"timestamp": firestore.ServerTimestamp,
		"embedding": embedding,
	})
	return errors.Wrapf(err, "failed to store cache entry %s", key)
}
