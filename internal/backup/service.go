// Package backup copies stored snapshots to an object store and restores
// them on request.
package backup

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/MrSnakeDoc/cloudesk/internal/guard"
	"github.com/MrSnakeDoc/cloudesk/internal/logger"
	redisstore "github.com/MrSnakeDoc/cloudesk/internal/store/redis"
)

const (
	// DefaultRetention matches the thirty day window backups are kept for.
	DefaultRetention = 30 * 24 * time.Hour

	namePrefix = "backup-"
	nameSuffix = ".json"
	nameLayout = "2006-01-02T15-04-05.000Z"
)

var (
	ErrNotFound    = errors.New("backup not found")
	ErrInvalidName = errors.New("invalid backup name")
)

// Slots is the snapshot store the service reads from and restores into.
type Slots interface {
	Get(ctx context.Context, k guard.Kind) ([]byte, error)
	Put(ctx context.Context, k guard.Kind, raw []byte) error
}

// Info describes one backup.
type Info struct {
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
}

type Service struct {
	objects ObjectStore
	slots   Slots
	log     logger.Logger
	now     func() time.Time
}

func NewService(objects ObjectStore, slots Slots, log logger.Logger) *Service {
	return &Service{
		objects: objects,
		slots:   slots,
		log:     log.Named("backup"),
		now:     time.Now,
	}
}

// objectName is "<slot>/backup-<UTC timestamp>.json".
func objectName(k guard.Kind, at time.Time) string {
	return path.Join(k.Slot, namePrefix+at.UTC().Format(nameLayout)+nameSuffix)
}

// parseName returns the creation time embedded in a backup object name.
func parseName(k guard.Kind, name string) (time.Time, error) {
	dir, file := path.Split(name)
	if dir != k.Slot+"/" || !strings.HasPrefix(file, namePrefix) || !strings.HasSuffix(file, nameSuffix) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(file, namePrefix), nameSuffix)
	t, err := time.Parse(nameLayout, stamp)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return t, nil
}

// Backup copies the current snapshot of k verbatim. It reports false when
// there is nothing stored.
func (s *Service) Backup(ctx context.Context, k guard.Kind) (Info, bool, error) {
	raw, err := s.slots.Get(ctx, k)
	if errors.Is(err, redisstore.ErrNotFound) {
		s.log.Debug("nothing to back up", logger.String("slot", k.Slot))
		return Info{}, false, nil
	}
	if err != nil {
		return Info{}, false, fmt.Errorf("read %s: %w", k.Slot, err)
	}

	at := s.now()
	name := objectName(k, at)
	meta := map[string]string{"kind": k.Name, "slot": k.Slot}
	if err := s.objects.Put(ctx, name, raw, meta); err != nil {
		return Info{}, false, err
	}

	s.log.Info("backup written", logger.String("name", name), logger.Int("bytes", len(raw)))
	return Info{Name: name, Kind: k.Name, Size: int64(len(raw)), CreatedAt: at.UTC().Truncate(time.Millisecond)}, true, nil
}

// List returns the backups of k, newest first. Objects not following the
// naming scheme are skipped.
func (s *Service) List(ctx context.Context, k guard.Kind) ([]Info, error) {
	objs, err := s.objects.List(ctx, k.Slot+"/")
	if err != nil {
		return nil, err
	}

	out := make([]Info, 0, len(objs))
	for _, o := range objs {
		at, err := parseName(k, o.Key)
		if err != nil {
			continue
		}
		out = append(out, Info{Name: o.Key, Kind: k.Name, Size: o.Size, CreatedAt: at})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Restore writes a backup back into the slot, bypassing the write guard.
// name may be given with or without the slot directory.
func (s *Service) Restore(ctx context.Context, k guard.Kind, name string) error {
	if !strings.Contains(name, "/") {
		name = path.Join(k.Slot, name)
	}
	if _, err := parseName(k, name); err != nil {
		return err
	}

	raw, err := s.objects.Get(ctx, name)
	if err != nil {
		return err
	}
	if err := s.slots.Put(ctx, k, raw); err != nil {
		return fmt.Errorf("restore %s: %w", name, err)
	}

	s.log.Warn("snapshot restored from backup", logger.String("slot", k.Slot), logger.String("name", name))
	return nil
}

// Prune removes backups of k older than retention. It returns how many were
// removed.
func (s *Service) Prune(ctx context.Context, k guard.Kind, retention time.Duration) (int, error) {
	backups, err := s.List(ctx, k)
	if err != nil {
		return 0, err
	}

	cutoff := s.now().Add(-retention)
	removed := 0
	for _, b := range backups {
		if !b.CreatedAt.Before(cutoff) {
			continue
		}
		if err := s.objects.Remove(ctx, b.Name); err != nil {
			return removed, err
		}
		removed++
	}

	if removed > 0 {
		s.log.Info("old backups pruned", logger.String("slot", k.Slot), logger.Int("removed", removed))
	}
	return removed, nil
}

// RunAll backs up and prunes every kind. Errors of one kind do not stop the
// others.
func (s *Service) RunAll(ctx context.Context, retention time.Duration) error {
	var errs []error
	for _, k := range guard.Kinds {
		if _, _, err := s.Backup(ctx, k); err != nil {
			errs = append(errs, fmt.Errorf("backup %s: %w", k.Name, err))
		}
		if _, err := s.Prune(ctx, k, retention); err != nil {
			errs = append(errs, fmt.Errorf("prune %s: %w", k.Name, err))
		}
	}
	return errors.Join(errs...)
}
