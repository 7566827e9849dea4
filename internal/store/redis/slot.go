package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrSnakeDoc/cloudesk/internal/guard"
	"github.com/MrSnakeDoc/cloudesk/internal/logger"
	"github.com/redis/go-redis/v9"
)

// maxWriteAttempts bounds optimistic transaction retries when another
// writer touches the slot between WATCH and EXEC.
const maxWriteAttempts = 5

var (
	ErrNotFound   = errors.New("no stored snapshot")
	ErrContention = errors.New("slot write contention")
)

// Store keeps one snapshot per kind in a single Redis key. Values are
// stored verbatim and never expire.
type Store struct {
	client *redis.Client
	keys   Keys
	log    logger.Logger
}

func NewStore(client *redis.Client, prefix string, log logger.Logger) *Store {
	return &Store{
		client: client,
		keys:   NewKeys(prefix),
		log:    log.Named("store"),
	}
}

// Get returns the stored snapshot of k, or ErrNotFound.
func (s *Store) Get(ctx context.Context, k guard.Kind) ([]byte, error) {
	data, err := s.client.Get(ctx, s.keys.Slot(k.Slot)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get %s: %w", k.Slot, err)
	}
	return data, nil
}

// Write stores raw as the new snapshot of k unless the guard rejects it.
// The read, the guard evaluation and the replacement run under WATCH so a
// concurrent writer can never slip in between. A rejection is returned as
// a non-nil Conflict with a nil error.
func (s *Store) Write(ctx context.Context, k guard.Kind, raw []byte) (*guard.Conflict, error) {
	incoming, err := guard.Inspect(k, raw)
	if err != nil {
		return nil, err
	}

	key := s.keys.Slot(k.Slot)
	var conflict *guard.Conflict

	txf := func(tx *redis.Tx) error {
		conflict = nil

		stored, err := s.load(ctx, tx, k, key)
		if err != nil {
			return err
		}
		if conflict = guard.Evaluate(stored, incoming); conflict != nil {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, []byte(incoming.Raw), 0)
			p.HIncrBy(ctx, s.keys.Counters(k.Slot), counterAccepted, 1)
			return nil
		})
		return err
	}

	for attempt := 1; attempt <= maxWriteAttempts; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			if conflict != nil {
				s.countRejection(ctx, k, conflict.Reason)
				s.log.Info("write rejected",
					logger.String("slot", k.Slot),
					logger.String("reason", conflict.Reason),
					logger.Int64("client_ts", incoming.UpdatedAt))
			}
			return conflict, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			s.log.Debug("slot changed during write, retrying",
				logger.String("slot", k.Slot),
				logger.Int("attempt", attempt))
			continue
		}
		return nil, fmt.Errorf("failed to write %s: %w", k.Slot, err)
	}
	return nil, fmt.Errorf("%w: %s", ErrContention, k.Slot)
}

func (s *Store) load(ctx context.Context, tx *redis.Tx, k guard.Kind, key string) (*guard.Envelope, error) {
	cur, err := tx.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", k.Slot, err)
	}
	env, err := guard.Inspect(k, cur)
	if err != nil {
		// a value that is not a snapshot cannot protect anything
		s.log.Warn("stored value is not a snapshot, treating slot as empty",
			logger.String("slot", k.Slot), logger.Error(err))
		return nil, nil
	}
	return &env, nil
}

// Put replaces the snapshot without consulting the guard. It is reserved
// for user-initiated restores.
func (s *Store) Put(ctx context.Context, k guard.Kind, raw []byte) error {
	env, err := guard.Inspect(k, raw)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, s.keys.Slot(k.Slot), []byte(env.Raw), 0)
		p.HIncrBy(ctx, s.keys.Counters(k.Slot), counterRestored, 1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to put %s: %w", k.Slot, err)
	}
	return nil
}

// Delete removes the stored snapshot. Deleting an absent slot is not an error.
func (s *Store) Delete(ctx context.Context, k guard.Kind) error {
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, s.keys.Slot(k.Slot))
		p.HIncrBy(ctx, s.keys.Counters(k.Slot), counterDeleted, 1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", k.Slot, err)
	}
	return nil
}

// Ping reports whether Redis answers.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
