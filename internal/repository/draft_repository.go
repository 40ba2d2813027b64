package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/liquidation-verify-api/internal/workflow"
)

const draftKeyPrefix = "verification:draft:"

// ErrDraftNotFound is returned when no draft is stored for a distributor.
var ErrDraftNotFound = errors.New("draft not found")

// DraftRepository keeps one in-progress verification snapshot per distributor in Redis.
type DraftRepository struct {
	client redisKV
}

// NewDraftRepository constructs the repository.
func NewDraftRepository(client redis.UniversalClient) *DraftRepository {
	return &DraftRepository{client: client}
}

// DraftKey returns the Redis key holding the distributor's draft.
func DraftKey(distributorID string) string {
	return draftKeyPrefix + distributorID
}

// Save overwrites the distributor's draft.
func (r *DraftRepository) Save(ctx context.Context, draft workflow.Draft, ttl time.Duration) error {
	payload, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}
	if err := r.client.Set(ctx, DraftKey(draft.Distributor.ID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

// Get loads the distributor's draft.
func (r *DraftRepository) Get(ctx context.Context, distributorID string) (*workflow.Draft, error) {
	raw, err := r.client.Get(ctx, DraftKey(distributorID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrDraftNotFound
		}
		return nil, fmt.Errorf("get draft: %w", err)
	}
	var draft workflow.Draft
	if err := json.Unmarshal(raw, &draft); err != nil {
		return nil, fmt.Errorf("unmarshal draft: %w", err)
	}
	return &draft, nil
}

// Delete removes the distributor's draft.
func (r *DraftRepository) Delete(ctx context.Context, distributorID string) error {
	if err := r.client.Del(ctx, DraftKey(distributorID)).Err(); err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	return nil
}

// PurgeStale deletes every draft not saved on now's calendar day in loc.
// Unreadable drafts are deleted as well. It returns the number of keys removed.
func (r *DraftRepository) PurgeStale(ctx context.Context, now time.Time, loc *time.Location) (int, error) {
	removed := 0
	_, err := scanKeys(ctx, r.client, draftKeyPrefix+"*", func(key string) error {
		raw, err := r.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get draft %s: %w", key, err)
		}
		var draft workflow.Draft
		if json.Unmarshal(raw, &draft) == nil && draft.ValidOn(now, loc) {
			return nil
		}
		if err := r.client.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("delete draft %s: %w", key, err)
		}
		removed++
		return nil
	})
	return removed, err
}
