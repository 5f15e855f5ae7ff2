package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "dgs"

// Redis stores each document as a JSON blob and maintains one sorted set
// per indexed field value, scored by insertion time, so FindNewest is a
// single ZREVRANGE. Conditional replace runs under WATCH: a concurrent
// writer aborts the transaction and the caller sees a precondition failure
// instead of a lost update.
type Redis struct {
	client      *redis.Client
	prefix      string
	collections map[string]Collection
	now         func() time.Time
}

// NewRedis builds a Redis-backed Store over the given collections.
func NewRedis(client *redis.Client, collections ...Collection) *Redis {
	s := &Redis{
		client:      client,
		prefix:      redisKeyPrefix,
		collections: make(map[string]Collection, len(collections)),
		now:         time.Now,
	}
	for _, c := range collections {
		s.collections[c.Name] = c
	}
	return s
}

func (s *Redis) docKey(collection, id string) string {
	return s.prefix + ":" + collection + ":" + id
}

func (s *Redis) indexKey(collection, field, value string) string {
	return s.prefix + ":" + collection + ":ix:" + field + ":" + value
}

func (s *Redis) collection(name string) (Collection, error) {
	c, ok := s.collections[name]
	if !ok {
		return Collection{}, fmt.Errorf("%w: %s", ErrUnknownCollection, name)
	}
	return c, nil
}

func (c Collection) indexed(field string) bool {
	for _, f := range c.IndexFields {
		if f == field {
			return true
		}
	}
	return false
}

func (s *Redis) Get(ctx context.Context, collection, id string) (Document, error) {
	if _, err := s.collection(collection); err != nil {
		return nil, err
	}
	data, err := s.client.Get(ctx, s.docKey(collection, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: corrupt document %s/%s: %v", ErrUnavailable, collection, id, err)
	}
	return doc, nil
}

func (s *Redis) FindNewest(ctx context.Context, collection, field, value string) (Document, error) {
	coll, err := s.collection(collection)
	if err != nil {
		return nil, err
	}
	if !coll.indexed(field) {
		return nil, fmt.Errorf("%w: %s.%s", ErrNotIndexed, collection, field)
	}
	ids, err := s.client.ZRevRange(ctx, s.indexKey(collection, field, value), 0, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(ids) == 0 {
		return nil, ErrNotFound
	}
	return s.Get(ctx, collection, ids[0])
}

func (s *Redis) Insert(ctx context.Context, collection string, doc Document) (string, error) {
	coll, err := s.collection(collection)
	if err != nil {
		return "", err
	}

	stored := doc.Clone()
	id, _ := stored[FieldID].(string)
	if id == "" {
		id = uuid.NewString()
		stored[FieldID] = id
	}
	etag := uuid.NewString()
	stored[FieldETag] = etag

	data, err := json.Marshal(stored)
	if err != nil {
		return "", err
	}

	score := float64(s.now().UnixNano())
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.docKey(collection, id), data, 0)
		for _, field := range coll.IndexFields {
			if v, ok := stored[field].(string); ok && v != "" {
				pipe.ZAdd(ctx, s.indexKey(collection, field, v), redis.Z{Score: score, Member: id})
			}
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return etag, nil
}

func (s *Redis) Replace(ctx context.Context, collection string, doc Document, expectedETag string) (string, error) {
	coll, err := s.collection(collection)
	if err != nil {
		return "", err
	}
	id, _ := doc[FieldID].(string)
	if id == "" {
		return "", ErrNotFound
	}

	const maxRetries = 4
	key := s.docKey(collection, id)

	for i := 0; i < maxRetries; i++ {
		var newETag string

		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if errors.Is(err, redis.Nil) {
				return ErrNotFound
			}
			if err != nil {
				return err
			}
			var current Document
			if err := json.Unmarshal(data, &current); err != nil {
				return fmt.Errorf("corrupt document %s/%s: %v", collection, id, err)
			}

			if expectedETag != "" {
				if stored, _ := current[FieldETag].(string); stored != expectedETag {
					return ErrPreconditionFailed
				}
			}

			stored := doc.Clone()
			if coll.PartitionField != "" {
				currentPK := current[coll.PartitionField]
				if pk, ok := stored[coll.PartitionField]; ok && currentPK != nil && pk != currentPK {
					return ErrPartitionChanged
				}
				stored[coll.PartitionField] = currentPK
			}
			newETag = uuid.NewString()
			stored[FieldETag] = newETag

			encoded, err := json.Marshal(stored)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, encoded, 0)
				score := float64(s.now().UnixNano())
				for _, field := range coll.IndexFields {
					oldV, _ := current[field].(string)
					newV, _ := stored[field].(string)
					if oldV == newV {
						continue
					}
					if oldV != "" {
						pipe.ZRem(ctx, s.indexKey(collection, field, oldV), id)
					}
					if newV != "" {
						pipe.ZAdd(ctx, s.indexKey(collection, field, newV), redis.Z{Score: score, Member: id})
					}
				}
				return nil
			})
			return err
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			switch {
			case errors.Is(err, ErrNotFound),
				errors.Is(err, ErrPreconditionFailed),
				errors.Is(err, ErrPartitionChanged):
				return "", err
			default:
				return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
			}
		}
		return newETag, nil
	}

	// The key kept changing under us; report it as a lost race.
	return "", ErrPreconditionFailed
}
