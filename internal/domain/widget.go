package domain

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"strings"
)

// WidgetKind is the tag of the widget union.
type WidgetKind string

const (
	KindNote     WidgetKind = "note"
	KindTodo     WidgetKind = "todo"
	KindBookmark WidgetKind = "bookmark"
	KindFolder   WidgetKind = "folder"
	KindText     WidgetKind = "text"
	KindImage    WidgetKind = "image"
	KindMarkdown WidgetKind = "markdown"
)

// NoteColors is the palette a new note picks from when no colour is given.
var NoteColors = []string{"#fff9c4", "#ffcdd2", "#c8e6c9", "#bbdefb", "#ffe0b2", "#f3e5f5"}

// Bounds is a widget geometry, kept to restore a maximized widget.
type Bounds struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// WidgetBase carries the fields every widget kind shares.
type WidgetBase struct {
	ID            string     `json:"id"`
	Type          WidgetKind `json:"type"`
	Title         string     `json:"title"`
	X             float64    `json:"x"`
	Y             float64    `json:"y"`
	Width         float64    `json:"width"`
	Height        float64    `json:"height"`
	ZIndex        int        `json:"zIndex"`
	IsMinimized   bool       `json:"isMinimized"`
	IsMaximized   bool       `json:"isMaximized"`
	RestoreBounds *Bounds    `json:"restoreBounds,omitempty"`
	CreatedAt     int64      `json:"createdAt"`
	UpdatedAt     int64      `json:"updatedAt"`
}

// Payload is the kind-specific part of a widget.
type Payload interface {
	Kind() WidgetKind
}

type TodoItem struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

type Bookmark struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	URL     string `json:"url"`
	Favicon string `json:"favicon,omitempty"`
}

type NotePayload struct {
	Content string `json:"content"`
	Color   string `json:"color"`
}

type TodoPayload struct {
	Items []TodoItem `json:"items"`
}

type BookmarkPayload struct {
	Bookmarks []Bookmark `json:"bookmarks"`
}

type FolderPayload struct {
	Children []string `json:"children"`
	IsOpen   bool     `json:"isOpen"`
}

type TextPayload struct {
	Content string `json:"content"`
}

type ImagePayload struct {
	Src      string  `json:"src"`
	Filename string  `json:"filename"`
	Scale    float64 `json:"scale"`
}

type MarkdownPayload struct {
	Content string `json:"content"`
}

// UnknownPayload keeps the fields of a widget kind this build does not know,
// so a snapshot written by a newer client survives a round trip.
type UnknownPayload struct {
	Tag    WidgetKind
	Fields map[string]json.RawMessage
}

func (*NotePayload) Kind() WidgetKind     { return KindNote }
func (*TodoPayload) Kind() WidgetKind     { return KindTodo }
func (*BookmarkPayload) Kind() WidgetKind { return KindBookmark }
func (*FolderPayload) Kind() WidgetKind   { return KindFolder }
func (*TextPayload) Kind() WidgetKind     { return KindText }
func (*ImagePayload) Kind() WidgetKind    { return KindImage }
func (*MarkdownPayload) Kind() WidgetKind { return KindMarkdown }
func (p *UnknownPayload) Kind() WidgetKind {
	return p.Tag
}

// Widget is a tagged union: a shared base plus a payload selected by Type.
// On the wire both are flattened into a single JSON object.
type Widget struct {
	WidgetBase
	Payload Payload
}

func newPayload(kind WidgetKind) (Payload, bool) {
	switch kind {
	case KindNote:
		return &NotePayload{}, true
	case KindTodo:
		return &TodoPayload{Items: []TodoItem{}}, true
	case KindBookmark:
		return &BookmarkPayload{Bookmarks: []Bookmark{}}, true
	case KindFolder:
		return &FolderPayload{Children: []string{}}, true
	case KindText:
		return &TextPayload{}, true
	case KindImage:
		return &ImagePayload{Scale: 1}, true
	case KindMarkdown:
		return &MarkdownPayload{}, true
	default:
		return nil, false
	}
}

// MarshalJSON flattens base and payload into one object.
func (w Widget) MarshalJSON() ([]byte, error) {
	fields := make(map[string]json.RawMessage)

	switch p := w.Payload.(type) {
	case nil:
	case *UnknownPayload:
		for k, v := range p.Fields {
			fields[k] = v
		}
	default:
		if err := spread(p, fields); err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", w.Type, err)
		}
	}

	// base fields win over anything the payload carried
	if err := spread(w.WidgetBase, fields); err != nil {
		return nil, fmt.Errorf("marshal widget base: %w", err)
	}
	return json.Marshal(fields)
}

// UnmarshalJSON reads the base, then decodes the same object into the payload
// matching the type tag.
func (w *Widget) UnmarshalJSON(data []byte) error {
	var base WidgetBase
	if err := json.Unmarshal(data, &base); err != nil {
		return fmt.Errorf("decode widget: %w", err)
	}

	p, known := newPayload(base.Type)
	if !known {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(data, &fields); err != nil {
			return fmt.Errorf("decode widget %s: %w", base.ID, err)
		}
		w.WidgetBase = base
		w.Payload = &UnknownPayload{Tag: base.Type, Fields: fields}
		return nil
	}

	if err := json.Unmarshal(data, p); err != nil {
		return fmt.Errorf("decode %s widget %s: %w", base.Type, base.ID, err)
	}
	w.WidgetBase = base
	w.Payload = p
	return nil
}

func spread(v any, into map[string]json.RawMessage) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return err
	}
	for k, f := range fields {
		into[k] = f
	}
	return nil
}

// CreateParams are the optional inputs of NewWidget. Zero values pick the
// per-kind defaults.
type CreateParams struct {
	Type     WidgetKind
	Title    string
	X        *float64
	Y        *float64
	Width    float64
	Height   float64
	Content  string
	Color    string
	Src      string
	Filename string
	Scale    float64
}

var defaultTitles = map[WidgetKind]string{
	KindNote:     "Note",
	KindTodo:     "Todo",
	KindBookmark: "Bookmarks",
	KindFolder:   "Folder",
	KindText:     "Text",
	KindImage:    "Image",
	KindMarkdown: "Markdown",
}

// NewWidget is the single widget factory. It dispatches on the kind tag and
// fails with ErrUnknownWidgetKind for anything else.
func NewWidget(p CreateParams, id string, zIndex int, now int64) (Widget, error) {
	payload, ok := newPayload(p.Type)
	if !ok {
		return Widget{}, fmt.Errorf("%w: %q", ErrUnknownWidgetKind, p.Type)
	}

	width, height := 280.0, 200.0
	switch p.Type {
	case KindTodo, KindFolder, KindText, KindMarkdown:
		width, height = 560, 400
	case KindImage:
		width, height = 400, 300
	}
	if p.Width > 0 {
		width = p.Width
	}
	if p.Height > 0 {
		height = p.Height
	}

	x := rand.Float64()*400 + 50
	if p.X != nil {
		x = *p.X
	}
	y := rand.Float64()*300 + 50
	if p.Y != nil {
		y = *p.Y
	}

	title := p.Title
	if title == "" {
		title = defaultTitles[p.Type] + "-" + randomSuffix()
	}

	switch pl := payload.(type) {
	case *NotePayload:
		pl.Content = p.Content
		pl.Color = p.Color
		if pl.Color == "" {
			pl.Color = NoteColors[rand.IntN(len(NoteColors))]
		}
	case *TextPayload:
		pl.Content = p.Content
	case *MarkdownPayload:
		pl.Content = p.Content
	case *ImagePayload:
		pl.Src = p.Src
		pl.Filename = p.Filename
		if p.Scale > 0 {
			pl.Scale = p.Scale
		}
	}

	return Widget{
		WidgetBase: WidgetBase{
			ID:        id,
			Type:      p.Type,
			Title:     title,
			X:         x,
			Y:         y,
			Width:     width,
			Height:    height,
			ZIndex:    zIndex,
			CreatedAt: now,
			UpdatedAt: now,
		},
		Payload: payload,
	}, nil
}

func randomSuffix() string {
	const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	var b strings.Builder
	for range 4 {
		b.WriteByte(alphabet[rand.IntN(len(alphabet))])
	}
	return b.String()
}

// matches reports whether the widget title or its text payload contains q
// (already lowercased).
func (w *Widget) matches(q string) bool {
	if strings.Contains(strings.ToLower(w.Title), q) {
		return true
	}
	switch p := w.Payload.(type) {
	case *NotePayload:
		return strings.Contains(strings.ToLower(p.Content), q)
	case *TextPayload:
		return strings.Contains(strings.ToLower(p.Content), q)
	case *MarkdownPayload:
		return strings.Contains(strings.ToLower(p.Content), q)
	case *TodoPayload:
		for _, it := range p.Items {
			if strings.Contains(strings.ToLower(it.Text), q) {
				return true
			}
		}
	case *BookmarkPayload:
		for _, b := range p.Bookmarks {
			if strings.Contains(strings.ToLower(b.Title), q) || strings.Contains(strings.ToLower(b.URL), q) {
				return true
			}
		}
	}
	return false
}
