package testutil

import (
	"context"
	"testing"

	"github.com/go-redis/redis/v8"
)

// SeedRedis loads tables into a specific Redis database.
// The format is: { "TABLE": { "key": { "field": "value", ... }, ... }, ... }
// Each entry becomes a Redis hash at key "TABLE|key" with the given fields.
func SeedRedis(t *testing.T, addr string, db int, tables map[string]map[string]map[string]string) {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	defer client.Close()

	ctx := context.Background()

	for table, entries := range tables {
		for key, fields := range entries {
			redisKey := table + "|" + key
			if len(fields) == 0 {
				if err := client.HSet(ctx, redisKey, "NULL", "NULL").Err(); err != nil {
					t.Fatalf("seeding %s: %v", redisKey, err)
				}
				continue
			}
			args := make([]interface{}, 0, len(fields)*2)
			for k, v := range fields {
				args = append(args, k, v)
			}
			if err := client.HSet(ctx, redisKey, args...).Err(); err != nil {
				t.Fatalf("seeding %s: %v", redisKey, err)
			}
		}
	}
}

// ReadEntry returns all fields of "TABLE|key" in a specific Redis database.
func ReadEntry(t *testing.T, addr string, db int, table, key string) map[string]string {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	defer client.Close()

	fields, err := client.HGetAll(context.Background(), table+"|"+key).Result()
	if err != nil {
		t.Fatalf("reading %s|%s: %v", table, key, err)
	}
	return fields
}
