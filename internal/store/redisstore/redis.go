// Package redisstore stores roster documents in Redis.
//
// Each document is a hash at "{collection}:doc:{key}" and the set
// "{collection}:index" holds every key in the collection.
package redisstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/JonMunkholm/roster/internal/core"
)

// scanCount is the SSCAN page size hint.
const scanCount = 200

// Store is a core.Store backed by a go-redis client.
type Store struct {
	client     *redis.Client
	collection string
}

// New returns a Store scoped to collection. The client is owned by the caller.
func New(client *redis.Client, collection string) *Store {
	return &Store{client: client, collection: collection}
}

func (s *Store) docKey(key string) string {
	return s.collection + ":doc:" + key
}

func (s *Store) indexKey() string {
	return s.collection + ":index"
}

// UpsertBatch replaces every document inside one MULTI/EXEC transaction.
func (s *Store) UpsertBatch(ctx context.Context, docs []core.Document) error {
	if len(docs) == 0 {
		return nil
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, doc := range docs {
			k := s.docKey(doc.Key)
			pipe.Del(ctx, k)
			if len(doc.Fields) > 0 {
				values := make(map[string]interface{}, len(doc.Fields))
				for name, v := range doc.Fields {
					values[name] = v
				}
				pipe.HSet(ctx, k, values)
			}
			pipe.SAdd(ctx, s.indexKey(), doc.Key)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to upsert %d documents to Redis: %w", len(docs), err)
	}
	return nil
}

// Delete removes the document and its index entry. A missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.docKey(key))
		pipe.SRem(ctx, s.indexKey(), key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete document %s from Redis: %w", key, err)
	}
	return nil
}

// Scan walks the index with SSCAN and fetches each page of hashes in one
// pipeline. Keys whose hash has vanished are skipped.
func (s *Store) Scan(ctx context.Context, fn func(core.Document) error) error {
	var cursor uint64
	for {
		keys, next, err := s.client.SScan(ctx, s.indexKey(), cursor, "", scanCount).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return nil
			}
			return fmt.Errorf("failed to scan roster index: %w", err)
		}

		if len(keys) > 0 {
			if err := s.emitPage(ctx, keys, fn); err != nil {
				return err
			}
		}

		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

func (s *Store) emitPage(ctx context.Context, keys []string, fn func(core.Document) error) error {
	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringStringMapCmd, len(keys))
	for i, key := range keys {
		cmds[i] = pipe.HGetAll(ctx, s.docKey(key))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to read roster documents: %w", err)
	}

	for i, cmd := range cmds {
		fields, err := cmd.Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("failed to read document %s: %w", keys[i], err)
		}
		if len(fields) == 0 {
			continue
		}
		if err := fn(core.Document{Key: keys[i], Fields: fields}); err != nil {
			return err
		}
	}
	return nil
}

// Ping verifies the client can reach Redis.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
