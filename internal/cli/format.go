package cli

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/MrSnakeDoc/cloudesk/internal/guard"
	"github.com/MrSnakeDoc/cloudesk/internal/syncengine"
)

var kindNames = []string{guard.Desktop.Name, guard.Files.Name}

func describe(st syncengine.Status) string {
	out := string(st.State)
	if st.Message != "" {
		out += ": " + st.Message
	}
	if !st.LastSyncAt.IsZero() {
		out += fmt.Sprintf(" (synced %s)", humanize.Time(st.LastSyncAt))
	}
	return out
}

// since renders a wire timestamp relative to now.
func since(ms int64) string {
	if ms <= 0 {
		return "never"
	}
	return humanize.Time(time.UnixMilli(ms))
}

func size(n int) string {
	return humanize.Bytes(uint64(max(n, 0)))
}
