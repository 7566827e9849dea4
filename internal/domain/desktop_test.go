package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

func newTestDesktop(t *testing.T, kinds ...WidgetKind) (*Desktop, []string) {
	t.Helper()
	d := NewDesktop()
	ids := make([]string, 0, len(kinds))
	for _, k := range kinds {
		w, err := d.CreateWidget(CreateParams{Type: k}, 1)
		if err != nil {
			t.Fatalf("CreateWidget(%s) error = %v", k, err)
		}
		ids = append(ids, w.ID)
	}
	return d, ids
}

func TestNewDesktopIsEmpty(t *testing.T) {
	d := NewDesktop()
	if !d.IsEmpty() {
		t.Error("fresh desktop should be empty")
	}
	if d.MaxZIndex != InitialMaxZIndex || d.Version != SchemaVersion {
		t.Errorf("MaxZIndex=%d Version=%d", d.MaxZIndex, d.Version)
	}

	raw, err := json.Marshal(d)
	if err != nil {
		t.Fatal(err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		t.Fatal(err)
	}
	if string(fields["widgets"]) != "[]" || string(fields["navigationSites"]) != "[]" {
		t.Errorf("empty collections should encode as [], got %s", raw)
	}
}

func TestIsEmptyConsidersNavigation(t *testing.T) {
	d := NewDesktop()
	d.AddNavigationSite(NavigationSite{Name: "Go", URL: "https://go.dev"})
	if d.IsEmpty() {
		t.Error("desktop with navigation should not be empty")
	}
}

func TestCreateWidgetStacksOnTop(t *testing.T) {
	d, ids := newTestDesktop(t, KindNote, KindTodo)
	a, _ := d.WidgetByID(ids[0])
	b, _ := d.WidgetByID(ids[1])
	if a.ZIndex != 101 || b.ZIndex != 102 || d.MaxZIndex != 102 {
		t.Errorf("z = %d, %d, max %d", a.ZIndex, b.ZIndex, d.MaxZIndex)
	}
}

func TestCreateWidgetUnknownKindLeavesDesktopUntouched(t *testing.T) {
	d := NewDesktop()
	if _, err := d.CreateWidget(CreateParams{Type: "nope"}, 1); !errors.Is(err, ErrUnknownWidgetKind) {
		t.Fatalf("err = %v", err)
	}
	if len(d.Widgets) != 0 || d.MaxZIndex != InitialMaxZIndex {
		t.Errorf("desktop changed: %d widgets, max %d", len(d.Widgets), d.MaxZIndex)
	}
}

func TestBringToFrontAndFocus(t *testing.T) {
	d, ids := newTestDesktop(t, KindNote, KindNote)

	if err := d.ToggleMinimize(ids[0]); err != nil {
		t.Fatal(err)
	}
	if got := d.MinimizedWidgets(); len(got) != 1 || got[0].ID != ids[0] {
		t.Fatalf("MinimizedWidgets() = %v", got)
	}

	if err := d.FocusWidget(ids[0]); err != nil {
		t.Fatal(err)
	}
	w, _ := d.WidgetByID(ids[0])
	if w.IsMinimized || w.ZIndex != d.MaxZIndex {
		t.Errorf("after focus: minimized=%v z=%d max=%d", w.IsMinimized, w.ZIndex, d.MaxZIndex)
	}

	sorted := d.SortedWidgets()
	if sorted[len(sorted)-1].ID != ids[0] {
		t.Errorf("top widget = %s, want %s", sorted[len(sorted)-1].ID, ids[0])
	}
}

func TestToggleMaximizeRestoresGeometry(t *testing.T) {
	d, ids := newTestDesktop(t, KindText)
	if err := d.UpdatePosition(ids[0], 30, 40, 2); err != nil {
		t.Fatal(err)
	}

	vp := Bounds{X: 0, Y: 0, Width: 1920, Height: 1080}
	if err := d.ToggleMaximize(ids[0], vp, 3); err != nil {
		t.Fatal(err)
	}
	w, _ := d.WidgetByID(ids[0])
	if !w.IsMaximized || w.Width != 1920 {
		t.Fatalf("maximized widget = %+v", w.WidgetBase)
	}

	if err := d.ToggleMaximize(ids[0], vp, 4); err != nil {
		t.Fatal(err)
	}
	w, _ = d.WidgetByID(ids[0])
	if w.IsMaximized || w.X != 30 || w.Y != 40 || w.Width != 560 || w.RestoreBounds != nil {
		t.Errorf("restored widget = %+v", w.WidgetBase)
	}
}

func TestTodoItems(t *testing.T) {
	d, ids := newTestDesktop(t, KindTodo, KindNote)

	item, err := d.AddTodoItem(ids[0], "write tests", 5)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.ToggleTodoItem(ids[0], item.ID, 6); err != nil {
		t.Fatal(err)
	}
	w, _ := d.WidgetByID(ids[0])
	if !w.Payload.(*TodoPayload).Items[0].Completed || w.UpdatedAt != 6 {
		t.Errorf("todo = %+v", w.Payload)
	}

	if err := d.DeleteTodoItem(ids[0], "missing", 7); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("delete missing err = %v", err)
	}
	if _, err := d.AddTodoItem(ids[1], "x", 7); !errors.Is(err, ErrWrongWidgetKind) {
		t.Errorf("add to note err = %v", err)
	}
	if err := d.DeleteTodoItem(ids[0], item.ID, 8); err != nil {
		t.Fatal(err)
	}
}

func TestBookmarks(t *testing.T) {
	d, ids := newTestDesktop(t, KindBookmark)
	b, err := d.AddBookmark(ids[0], "", "https://go.dev", 2)
	if err != nil {
		t.Fatal(err)
	}
	if b.Title != "https://go.dev" {
		t.Errorf("Title = %q, want url fallback", b.Title)
	}
	if err := d.DeleteBookmark(ids[0], b.ID, 3); err != nil {
		t.Fatal(err)
	}
	w, _ := d.WidgetByID(ids[0])
	if n := len(w.Payload.(*BookmarkPayload).Bookmarks); n != 0 {
		t.Errorf("bookmarks left = %d", n)
	}
}

func TestFolders(t *testing.T) {
	d, ids := newTestDesktop(t, KindFolder, KindNote, KindNote, KindFolder)
	folder, a, b, other := ids[0], ids[1], ids[2], ids[3]

	for _, id := range []string{a, b} {
		if err := d.AddToFolder(folder, id, 2); err != nil {
			t.Fatal(err)
		}
	}
	if err := d.ToggleMinimize(a); err != nil {
		t.Fatal(err)
	}
	if got := d.MinimizedWidgets(); len(got) != 0 {
		t.Errorf("folder children must not be listed as minimized: %v", got)
	}

	// moving into another folder unlinks from the first
	if err := d.AddToFolder(other, b, 3); err != nil {
		t.Fatal(err)
	}
	fw, _ := d.WidgetByID(folder)
	if ch := fw.Payload.(*FolderPayload).Children; len(ch) != 1 || ch[0] != a {
		t.Errorf("children = %v", ch)
	}

	if err := d.DeleteFolderWithChildren(folder); err != nil {
		t.Fatal(err)
	}
	if _, ok := d.WidgetByID(a); ok {
		t.Error("child should be deleted with its folder")
	}
	if _, ok := d.WidgetByID(b); !ok {
		t.Error("widget in another folder should survive")
	}
}

func TestDeleteWidgetUnlinksFromFolder(t *testing.T) {
	d, ids := newTestDesktop(t, KindFolder, KindNote)
	if err := d.AddToFolder(ids[0], ids[1], 2); err != nil {
		t.Fatal(err)
	}
	if err := d.DeleteWidget(ids[1]); err != nil {
		t.Fatal(err)
	}
	fw, _ := d.WidgetByID(ids[0])
	if ch := fw.Payload.(*FolderPayload).Children; len(ch) != 0 {
		t.Errorf("children = %v", ch)
	}
	if err := d.DeleteWidget(ids[1]); !errors.Is(err, ErrWidgetNotFound) {
		t.Errorf("second delete err = %v", err)
	}
}

func TestSetContentAndSearch(t *testing.T) {
	d, ids := newTestDesktop(t, KindNote, KindImage)
	if err := d.SetContent(ids[0], "Buy Coffee beans", 2); err != nil {
		t.Fatal(err)
	}
	if err := d.SetContent(ids[1], "nope", 2); !errors.Is(err, ErrWrongWidgetKind) {
		t.Errorf("image SetContent err = %v", err)
	}
	got := d.Search("coffee")
	if len(got) != 1 || got[0].ID != ids[0] {
		t.Errorf("Search() = %v", got)
	}
	if got := d.Search("  "); got != nil {
		t.Errorf("blank Search() = %v", got)
	}
}

func TestMergeNavigationDedupesByURL(t *testing.T) {
	d := NewDesktop()
	d.AddNavigationSite(NavigationSite{Name: "Go", URL: "https://go.dev/"})

	added := d.MergeNavigation([]NavigationSite{
		{Name: "Go again", URL: "https://GO.dev", Category: "Dev"},
		{Name: "Chi", URL: "https://go-chi.io", Category: "Dev"},
		{Name: "Redis", URL: "https://redis.io", Category: "dev"},
		{Name: "no url"},
	})
	if added != 2 {
		t.Fatalf("added = %d, want 2", added)
	}
	if len(d.Categories) != 1 {
		t.Fatalf("categories = %v", d.Categories)
	}
	for _, s := range d.NavigationSites[1:] {
		if s.Category != d.Categories[0].ID {
			t.Errorf("site %s category = %q", s.Name, s.Category)
		}
	}

	if err := d.RemoveNavigationSite(d.NavigationSites[0].ID); err != nil {
		t.Fatal(err)
	}
	if err := d.RemoveNavigationSite("missing"); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("err = %v", err)
	}
}

func TestSettings(t *testing.T) {
	d := NewDesktop()
	if err := d.SetTheme(ThemeDark); err != nil || d.ThemeMode != ThemeDark {
		t.Errorf("SetTheme(dark) = %v, mode %q", err, d.ThemeMode)
	}
	if err := d.SetTheme("neon"); !errors.Is(err, ErrInvalidTheme) {
		t.Errorf("SetTheme(neon) = %v", err)
	}

	for i := range SearchHistoryLimit + 5 {
		d.PushSearchHistory(fmt.Sprintf("q%d", i))
	}
	d.PushSearchHistory("q10")
	if len(d.SearchHistory) != SearchHistoryLimit {
		t.Errorf("history len = %d", len(d.SearchHistory))
	}
	if d.SearchHistory[0] != "q10" {
		t.Errorf("history head = %q", d.SearchHistory[0])
	}
	count := 0
	for _, q := range d.SearchHistory {
		if q == "q10" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("q10 appears %d times", count)
	}

	src := []string{"hn"}
	d.SetEnabledNewsSources(src)
	src[0] = "changed"
	if d.EnabledNewsSources[0] != "hn" {
		t.Error("SetEnabledNewsSources should copy its input")
	}
}

func TestDesktopJSONRoundTripKeepsPayloads(t *testing.T) {
	d, ids := newTestDesktop(t, KindTodo, KindFolder)
	if _, err := d.AddTodoItem(ids[0], "a", 2); err != nil {
		t.Fatal(err)
	}
	d.Stamp(1234)

	raw, err := json.Marshal(d)
	if err != nil {
		t.Fatal(err)
	}
	var back Desktop
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatal(err)
	}
	if back.Timestamp() != 1234 || len(back.Widgets) != 2 {
		t.Fatalf("decoded = %+v", back)
	}
	if _, ok := back.Widgets[0].Payload.(*TodoPayload); !ok {
		t.Errorf("payload type = %T", back.Widgets[0].Payload)
	}
}
