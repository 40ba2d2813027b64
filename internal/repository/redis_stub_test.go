package repository

import (
	"context"
	"path"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

type stubRedis struct {
	values map[string]string
	ttls   map[string]time.Duration
	getErr error
}

func newStubRedis() *stubRedis {
	return &stubRedis{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (s *stubRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if s.getErr != nil {
		return redis.NewStringResult("", s.getErr)
	}
	v, ok := s.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (s *stubRedis) Set(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	switch v := value.(type) {
	case []byte:
		s.values[key] = string(v)
	case string:
		s.values[key] = v
	}
	s.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (s *stubRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := s.values[k]; ok {
			delete(s.values, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (s *stubRedis) Scan(_ context.Context, _ uint64, match string, _ int64) *redis.ScanCmd {
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		if ok, _ := path.Match(match, k); ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return redis.NewScanCmdResult(keys, 0, nil)
}
