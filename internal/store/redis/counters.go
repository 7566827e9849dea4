package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/MrSnakeDoc/cloudesk/internal/guard"
	"github.com/MrSnakeDoc/cloudesk/internal/logger"
)

const (
	counterAccepted      = "accepted"
	counterRejectedStale = "rejected_stale"
	counterRejectedEmpty = "rejected_empty"
	counterDeleted       = "deleted"
	counterRestored      = "restored"
)

// SlotStats summarizes one slot for the infra endpoint.
type SlotStats struct {
	Slot      string           `json:"slot"`
	Present   bool             `json:"present"`
	Bytes     int              `json:"bytes"`
	UpdatedAt int64            `json:"updatedAt,omitempty"`
	Populated bool             `json:"populated"`
	Counters  map[string]int64 `json:"counters"`
}

func (s *Store) countRejection(ctx context.Context, k guard.Kind, reason string) {
	field := counterRejectedStale
	if reason == guard.ReasonEmptyData {
		field = counterRejectedEmpty
	}
	if err := s.client.HIncrBy(ctx, s.keys.Counters(k.Slot), field, 1).Err(); err != nil {
		s.log.Warn("failed to count rejection", logger.String("slot", k.Slot), logger.Error(err))
	}
}

// Counters returns the write counters of a slot.
func (s *Store) Counters(ctx context.Context, k guard.Kind) (map[string]int64, error) {
	raw, err := s.client.HGetAll(ctx, s.keys.Counters(k.Slot)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get counters for %s: %w", k.Slot, err)
	}
	out := make(map[string]int64, len(raw))
	for field, v := range raw {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		out[field] = n
	}
	return out, nil
}

// Stats reads the slot and its counters.
func (s *Store) Stats(ctx context.Context, k guard.Kind) (SlotStats, error) {
	st := SlotStats{Slot: k.Slot}

	data, err := s.Get(ctx, k)
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		return st, err
	default:
		st.Present = true
		st.Bytes = len(data)
		if env, err := guard.Inspect(k, data); err == nil {
			st.UpdatedAt = env.UpdatedAt
			st.Populated = env.Populated
		}
	}

	if st.Counters, err = s.Counters(ctx, k); err != nil {
		return st, err
	}
	return st, nil
}
