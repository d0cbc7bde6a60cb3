package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/testigo/testigo/internal/storage"
)

// Key layout:
//
//	testigo:session:<id>              session JSON
//	testigo:sessions                  set of session IDs
//	testigo:session:<id>:evidences    list of evidence IDs, creation order
//	testigo:session:<id>:pauses       list of pause IDs, creation order
//	testigo:pause:<id>                pause JSON
//	testigo:evidence:<id>             evidence JSON
//	testigo:evidence:<id>:assets      hash position -> asset ID
//	testigo:asset:<id>                asset JSON
//	testigo:evidence:seq              insertion sequence counter
const keyPrefix = "testigo"

func sessionKey(id string) string { return fmt.Sprintf("%s:session:%s", keyPrefix, id) }
func sessionSetKey() string       { return keyPrefix + ":sessions" }

func sessionEvidencesKey(id string) string {
	return fmt.Sprintf("%s:session:%s:evidences", keyPrefix, id)
}

func sessionPausesKey(id string) string { return fmt.Sprintf("%s:session:%s:pauses", keyPrefix, id) }
func evidenceKey(id string) string      { return fmt.Sprintf("%s:evidence:%s", keyPrefix, id) }

func evidenceAssetsKey(id string) string {
	return fmt.Sprintf("%s:evidence:%s:assets", keyPrefix, id)
}

func assetKey(id string) string { return fmt.Sprintf("%s:asset:%s", keyPrefix, id) }
func pauseKey(id string) string { return fmt.Sprintf("%s:pause:%s", keyPrefix, id) }
func evidenceSeqKey() string    { return keyPrefix + ":evidence:seq" }

func setJSON(ctx context.Context, client *redis.Client, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal value: %w", err)
	}
	return client.Set(ctx, key, data, 0).Err()
}

func getJSON[T any](ctx context.Context, client *redis.Client, key string) (*T, error) {
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("unmarshal value: %w", err)
	}
	return &value, nil
}

func getManyJSON[T any](ctx context.Context, client *redis.Client, keyFor func(string) string, ids []string) ([]T, error) {
	values := make([]T, 0, len(ids))
	for _, id := range ids {
		value, err := getJSON[T](ctx, client, keyFor(id))
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			return nil, err
		}
		values = append(values, *value)
	}
	return values, nil
}
