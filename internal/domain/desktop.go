package domain

import (
	"encoding/json"
	"slices"
	"sort"
	"strings"
)

// ThemeMode selects the desktop colour scheme.
type ThemeMode string

const (
	ThemeLight  ThemeMode = "light"
	ThemeDark   ThemeMode = "dark"
	ThemeSystem ThemeMode = "system"
)

const (
	// InitialMaxZIndex is the stacking floor of a fresh desktop.
	InitialMaxZIndex = 100

	// SearchHistoryLimit caps the number of remembered queries.
	SearchHistoryLimit = 20

	DefaultSearchEngine = "google"
)

// NavigationSite is a link shown in the navigation bar.
type NavigationSite struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	URL             string `json:"url"`
	Src             string `json:"src,omitempty"`
	BackgroundColor string `json:"backgroundColor,omitempty"`
	Category        string `json:"category,omitempty"`
}

// Category groups navigation sites.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// MindMap is stored opaquely; only its identity is interpreted.
type MindMap struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Data      json.RawMessage `json:"data,omitempty"`
	UpdatedAt int64           `json:"updatedAt"`
}

// Desktop is the whole-state snapshot of a user's workspace.
type Desktop struct {
	// ─────────────────────────────
	// Guarded collections
	// ─────────────────────────────

	// Widgets are kept in creation order. Stacking uses ZIndex.
	Widgets []Widget `json:"widgets"`

	NavigationSites []NavigationSite `json:"navigationSites"`

	// ─────────────────────────────
	// Auxiliary state
	// ─────────────────────────────

	Categories         []Category `json:"categories"`
	EnabledNewsSources []string   `json:"enabledNewsSources"`
	SearchHistory      []string   `json:"searchHistory"`
	SearchEngine       string     `json:"searchEngine"`
	BackgroundColor    string     `json:"backgroundColor"`
	ThemeMode          ThemeMode  `json:"themeMode"`
	MindMaps           []MindMap  `json:"mindMaps"`

	// ─────────────────────────────
	// Bookkeeping
	// ─────────────────────────────

	// MaxZIndex only grows.
	MaxZIndex int `json:"maxZIndex"`

	Version int `json:"version"`

	// UpdatedAt is the sole ordering key, unix milliseconds.
	UpdatedAt int64 `json:"updatedAt"`
}

// NewDesktop returns the empty desktop used on first run.
func NewDesktop() *Desktop {
	return &Desktop{
		Widgets:            []Widget{},
		NavigationSites:    []NavigationSite{},
		Categories:         []Category{},
		EnabledNewsSources: []string{},
		SearchHistory:      []string{},
		SearchEngine:       DefaultSearchEngine,
		ThemeMode:          ThemeSystem,
		MindMaps:           []MindMap{},
		MaxZIndex:          InitialMaxZIndex,
		Version:            SchemaVersion,
	}
}

func (d *Desktop) Timestamp() int64 { return d.UpdatedAt }
func (d *Desktop) Stamp(ms int64)   { d.UpdatedAt = ms }

// IsEmpty reports whether the desktop has neither widgets nor navigation.
func (d *Desktop) IsEmpty() bool {
	return len(d.Widgets) == 0 && len(d.NavigationSites) == 0
}

func (d *Desktop) indexOf(id string) int {
	return slices.IndexFunc(d.Widgets, func(w Widget) bool { return w.ID == id })
}

func (d *Desktop) widget(id string) (*Widget, error) {
	i := d.indexOf(id)
	if i < 0 {
		return nil, ErrWidgetNotFound
	}
	return &d.Widgets[i], nil
}

func (d *Desktop) nextZ() int {
	d.MaxZIndex++
	return d.MaxZIndex
}

// ─────────────────────────────
// Widget lifecycle
// ─────────────────────────────

// CreateWidget adds a widget on top of the stack and returns a copy of it.
func (d *Desktop) CreateWidget(p CreateParams, now int64) (Widget, error) {
	w, err := NewWidget(p, NewID(), d.MaxZIndex+1, now)
	if err != nil {
		return Widget{}, err
	}
	d.MaxZIndex++
	d.Widgets = append(d.Widgets, w)
	return w, nil
}

// DeleteWidget removes a widget and drops it from any folder holding it.
func (d *Desktop) DeleteWidget(id string) error {
	i := d.indexOf(id)
	if i < 0 {
		return ErrWidgetNotFound
	}
	d.Widgets = slices.Delete(d.Widgets, i, i+1)
	d.unlinkChild(id)
	return nil
}

// DeleteFolderWithChildren removes a folder together with every widget it
// contains.
func (d *Desktop) DeleteFolderWithChildren(id string) error {
	w, err := d.widget(id)
	if err != nil {
		return err
	}
	folder, ok := w.Payload.(*FolderPayload)
	if !ok {
		return ErrWrongWidgetKind
	}
	drop := make(map[string]struct{}, len(folder.Children)+1)
	drop[id] = struct{}{}
	for _, c := range folder.Children {
		drop[c] = struct{}{}
	}
	d.Widgets = slices.DeleteFunc(d.Widgets, func(w Widget) bool {
		_, gone := drop[w.ID]
		return gone
	})
	for c := range drop {
		d.unlinkChild(c)
	}
	return nil
}

func (d *Desktop) unlinkChild(id string) {
	for i := range d.Widgets {
		if f, ok := d.Widgets[i].Payload.(*FolderPayload); ok {
			f.Children = slices.DeleteFunc(f.Children, func(c string) bool { return c == id })
		}
	}
}

// ─────────────────────────────
// Geometry and stacking
// ─────────────────────────────

func (d *Desktop) UpdatePosition(id string, x, y float64, now int64) error {
	w, err := d.widget(id)
	if err != nil {
		return err
	}
	w.X, w.Y = x, y
	w.UpdatedAt = now
	return nil
}

func (d *Desktop) Resize(id string, width, height float64, now int64) error {
	w, err := d.widget(id)
	if err != nil {
		return err
	}
	w.Width, w.Height = width, height
	w.UpdatedAt = now
	return nil
}

// BringToFront lifts a widget above every other one.
func (d *Desktop) BringToFront(id string) error {
	w, err := d.widget(id)
	if err != nil {
		return err
	}
	if w.ZIndex == d.MaxZIndex {
		return nil
	}
	w.ZIndex = d.nextZ()
	return nil
}

func (d *Desktop) ToggleMinimize(id string) error {
	w, err := d.widget(id)
	if err != nil {
		return err
	}
	w.IsMinimized = !w.IsMinimized
	return nil
}

// ToggleMaximize switches a widget to the given viewport bounds, or back to
// the geometry it had before it was maximized.
func (d *Desktop) ToggleMaximize(id string, viewport Bounds, now int64) error {
	w, err := d.widget(id)
	if err != nil {
		return err
	}
	if w.IsMaximized {
		if w.RestoreBounds != nil {
			w.X, w.Y = w.RestoreBounds.X, w.RestoreBounds.Y
			w.Width, w.Height = w.RestoreBounds.Width, w.RestoreBounds.Height
		}
		w.RestoreBounds = nil
		w.IsMaximized = false
	} else {
		w.RestoreBounds = &Bounds{X: w.X, Y: w.Y, Width: w.Width, Height: w.Height}
		w.X, w.Y = viewport.X, viewport.Y
		w.Width, w.Height = viewport.Width, viewport.Height
		w.IsMaximized = true
		w.ZIndex = d.nextZ()
	}
	w.UpdatedAt = now
	return nil
}

// FocusWidget restores a minimized widget and brings it to the front.
func (d *Desktop) FocusWidget(id string) error {
	w, err := d.widget(id)
	if err != nil {
		return err
	}
	w.IsMinimized = false
	return d.BringToFront(id)
}

// ─────────────────────────────
// Payload edits
// ─────────────────────────────

// SetTitle renames a widget.
func (d *Desktop) SetTitle(id, title string, now int64) error {
	w, err := d.widget(id)
	if err != nil {
		return err
	}
	w.Title = title
	w.UpdatedAt = now
	return nil
}

// SetContent replaces the text of a note, text or markdown widget.
func (d *Desktop) SetContent(id, content string, now int64) error {
	w, err := d.widget(id)
	if err != nil {
		return err
	}
	switch p := w.Payload.(type) {
	case *NotePayload:
		p.Content = content
	case *TextPayload:
		p.Content = content
	case *MarkdownPayload:
		p.Content = content
	default:
		return ErrWrongWidgetKind
	}
	w.UpdatedAt = now
	return nil
}

func (d *Desktop) todo(id string) (*Widget, *TodoPayload, error) {
	w, err := d.widget(id)
	if err != nil {
		return nil, nil, err
	}
	p, ok := w.Payload.(*TodoPayload)
	if !ok {
		return nil, nil, ErrWrongWidgetKind
	}
	return w, p, nil
}

func (d *Desktop) AddTodoItem(id, text string, now int64) (TodoItem, error) {
	w, p, err := d.todo(id)
	if err != nil {
		return TodoItem{}, err
	}
	item := TodoItem{ID: NewID(), Text: text}
	p.Items = append(p.Items, item)
	w.UpdatedAt = now
	return item, nil
}

func (d *Desktop) ToggleTodoItem(id, itemID string, now int64) error {
	w, p, err := d.todo(id)
	if err != nil {
		return err
	}
	i := slices.IndexFunc(p.Items, func(it TodoItem) bool { return it.ID == itemID })
	if i < 0 {
		return ErrItemNotFound
	}
	p.Items[i].Completed = !p.Items[i].Completed
	w.UpdatedAt = now
	return nil
}

func (d *Desktop) DeleteTodoItem(id, itemID string, now int64) error {
	w, p, err := d.todo(id)
	if err != nil {
		return err
	}
	i := slices.IndexFunc(p.Items, func(it TodoItem) bool { return it.ID == itemID })
	if i < 0 {
		return ErrItemNotFound
	}
	p.Items = slices.Delete(p.Items, i, i+1)
	w.UpdatedAt = now
	return nil
}

func (d *Desktop) bookmarks(id string) (*Widget, *BookmarkPayload, error) {
	w, err := d.widget(id)
	if err != nil {
		return nil, nil, err
	}
	p, ok := w.Payload.(*BookmarkPayload)
	if !ok {
		return nil, nil, ErrWrongWidgetKind
	}
	return w, p, nil
}

func (d *Desktop) AddBookmark(id, title, url string, now int64) (Bookmark, error) {
	w, p, err := d.bookmarks(id)
	if err != nil {
		return Bookmark{}, err
	}
	if title == "" {
		title = url
	}
	b := Bookmark{ID: NewID(), Title: title, URL: url}
	p.Bookmarks = append(p.Bookmarks, b)
	w.UpdatedAt = now
	return b, nil
}

func (d *Desktop) DeleteBookmark(id, bookmarkID string, now int64) error {
	w, p, err := d.bookmarks(id)
	if err != nil {
		return err
	}
	i := slices.IndexFunc(p.Bookmarks, func(b Bookmark) bool { return b.ID == bookmarkID })
	if i < 0 {
		return ErrItemNotFound
	}
	p.Bookmarks = slices.Delete(p.Bookmarks, i, i+1)
	w.UpdatedAt = now
	return nil
}

// AddToFolder moves a widget into a folder. A widget lives in at most one
// folder, so it is unlinked from any previous one first.
func (d *Desktop) AddToFolder(folderID, widgetID string, now int64) error {
	if folderID == widgetID {
		return ErrWrongWidgetKind
	}
	fw, err := d.widget(folderID)
	if err != nil {
		return err
	}
	folder, ok := fw.Payload.(*FolderPayload)
	if !ok {
		return ErrWrongWidgetKind
	}
	if d.indexOf(widgetID) < 0 {
		return ErrWidgetNotFound
	}
	d.unlinkChild(widgetID)
	folder.Children = append(folder.Children, widgetID)
	fw.UpdatedAt = now
	return nil
}

func (d *Desktop) RemoveFromFolder(folderID, widgetID string, now int64) error {
	fw, err := d.widget(folderID)
	if err != nil {
		return err
	}
	folder, ok := fw.Payload.(*FolderPayload)
	if !ok {
		return ErrWrongWidgetKind
	}
	i := slices.Index(folder.Children, widgetID)
	if i < 0 {
		return ErrItemNotFound
	}
	folder.Children = slices.Delete(folder.Children, i, i+1)
	fw.UpdatedAt = now
	return nil
}

// ─────────────────────────────
// Navigation
// ─────────────────────────────

// AddNavigationSite appends a site, assigning an ID when missing.
func (d *Desktop) AddNavigationSite(site NavigationSite) NavigationSite {
	if site.ID == "" {
		site.ID = NewID()
	}
	d.NavigationSites = append(d.NavigationSites, site)
	return site
}

func (d *Desktop) RemoveNavigationSite(id string) error {
	i := slices.IndexFunc(d.NavigationSites, func(s NavigationSite) bool { return s.ID == id })
	if i < 0 {
		return ErrItemNotFound
	}
	d.NavigationSites = slices.Delete(d.NavigationSites, i, i+1)
	return nil
}

// EnsureCategory returns the ID of the category with the given name,
// creating it when needed.
func (d *Desktop) EnsureCategory(name string) string {
	for _, c := range d.Categories {
		if strings.EqualFold(c.Name, name) {
			return c.ID
		}
	}
	c := Category{ID: NewID(), Name: name}
	d.Categories = append(d.Categories, c)
	return c.ID
}

// MergeNavigation adds sites whose URL is not already present. Sites carry
// a category name in Category, which is resolved to a category ID. It
// returns the number of sites added.
func (d *Desktop) MergeNavigation(sites []NavigationSite) int {
	seen := make(map[string]struct{}, len(d.NavigationSites))
	for _, s := range d.NavigationSites {
		seen[normalizeURL(s.URL)] = struct{}{}
	}

	added := 0
	for _, s := range sites {
		key := normalizeURL(s.URL)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if s.Category != "" {
			s.Category = d.EnsureCategory(s.Category)
		}
		d.AddNavigationSite(s)
		added++
	}
	return added
}

func normalizeURL(u string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(u)), "/")
}

// ─────────────────────────────
// Settings
// ─────────────────────────────

func (d *Desktop) SetTheme(mode ThemeMode) error {
	switch mode {
	case ThemeLight, ThemeDark, ThemeSystem:
		d.ThemeMode = mode
		return nil
	default:
		return ErrInvalidTheme
	}
}

func (d *Desktop) SetBackgroundColor(color string) { d.BackgroundColor = color }
func (d *Desktop) SetSearchEngine(engine string)   { d.SearchEngine = engine }

// PushSearchHistory records a query at the front, removing an older
// duplicate and keeping at most SearchHistoryLimit entries.
func (d *Desktop) PushSearchHistory(query string) {
	query = strings.TrimSpace(query)
	if query == "" {
		return
	}
	history := slices.DeleteFunc(d.SearchHistory, func(q string) bool { return q == query })
	history = append([]string{query}, history...)
	if len(history) > SearchHistoryLimit {
		history = history[:SearchHistoryLimit]
	}
	d.SearchHistory = history
}

func (d *Desktop) SetEnabledNewsSources(sources []string) {
	d.EnabledNewsSources = slices.Clone(sources)
}

// ─────────────────────────────
// Queries
// ─────────────────────────────

func (d *Desktop) WidgetByID(id string) (Widget, bool) {
	i := d.indexOf(id)
	if i < 0 {
		return Widget{}, false
	}
	return d.Widgets[i], true
}

// SortedWidgets returns the widgets ordered bottom to top.
func (d *Desktop) SortedWidgets() []Widget {
	out := slices.Clone(d.Widgets)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ZIndex < out[j].ZIndex })
	return out
}

// MinimizedWidgets lists minimized widgets that are not inside a folder.
func (d *Desktop) MinimizedWidgets() []Widget {
	inFolder := d.folderChildren()
	var out []Widget
	for _, w := range d.Widgets {
		if !w.IsMinimized {
			continue
		}
		if _, hidden := inFolder[w.ID]; hidden {
			continue
		}
		out = append(out, w)
	}
	return out
}

func (d *Desktop) folderChildren() map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range d.Widgets {
		if f, ok := w.Payload.(*FolderPayload); ok {
			for _, c := range f.Children {
				set[c] = struct{}{}
			}
		}
	}
	return set
}

// Search returns widgets whose title or text content contains query,
// case-insensitively.
func (d *Desktop) Search(query string) []Widget {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	var out []Widget
	for i := range d.Widgets {
		if d.Widgets[i].matches(q) {
			out = append(out, d.Widgets[i])
		}
	}
	return out
}
