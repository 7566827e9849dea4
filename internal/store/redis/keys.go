package redis

import (
	"fmt"
	"strings"
)

const DefaultKeyPrefix = "cloudesk"

// Keys builds the Redis key names under a common prefix.
type Keys struct {
	prefix string
}

func NewKeys(prefix string) Keys {
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return Keys{prefix: prefix}
}

// Slot returns the key holding the snapshot of a slot.
func (k Keys) Slot(slot string) string {
	return fmt.Sprintf("%s:slot:%s", k.prefix, slot)
}

// Counters returns the hash key holding write counters of a slot.
func (k Keys) Counters(slot string) string {
	return fmt.Sprintf("%s:counters:%s", k.prefix, slot)
}

// SlotFromKey extracts the slot name from a slot key.
func (k Keys) SlotFromKey(key string) (string, error) {
	p := k.prefix + ":slot:"
	if !strings.HasPrefix(key, p) || len(key) == len(p) {
		return "", fmt.Errorf("invalid slot key: %s", key)
	}
	return key[len(p):], nil
}
