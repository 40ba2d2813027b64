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

// ErrSessionNotFound is returned when the operator has no open verification for a distributor.
var ErrSessionNotFound = errors.New("verification session not found")

// SessionRepository holds the live workflow between requests.
type SessionRepository struct {
	client redisKV
}

// NewSessionRepository constructs the repository.
func NewSessionRepository(client redis.UniversalClient) *SessionRepository {
	return &SessionRepository{client: client}
}

// SessionKey returns the Redis key for an operator's workflow on a distributor.
func SessionKey(operatorID, distributorID string) string {
	return fmt.Sprintf("verification:session:%s:%s", operatorID, distributorID)
}

// Save stores the workflow, replacing any previous state.
func (r *SessionRepository) Save(ctx context.Context, operatorID string, w *workflow.Workflow, ttl time.Duration) error {
	payload, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := r.client.Set(ctx, SessionKey(operatorID, w.Distributor.ID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Get loads the workflow.
func (r *SessionRepository) Get(ctx context.Context, operatorID, distributorID string) (*workflow.Workflow, error) {
	raw, err := r.client.Get(ctx, SessionKey(operatorID, distributorID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	var w workflow.Workflow
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	if w.Inputs == nil {
		w.Inputs = map[string]int{}
	}
	if w.Allocations == nil {
		w.Allocations = map[string]workflow.Allocation{}
	}
	return &w, nil
}

// Delete removes the workflow.
func (r *SessionRepository) Delete(ctx context.Context, operatorID, distributorID string) error {
	if err := r.client.Del(ctx, SessionKey(operatorID, distributorID)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
