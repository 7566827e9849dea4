package domain

import "slices"

// FileEntry describes a stored file. The binary lives elsewhere; only its
// metadata is synchronized.
type FileEntry struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	FolderID  string `json:"folderId,omitempty"`
	Size      int64  `json:"size"`
	MimeType  string `json:"mimeType,omitempty"`
	Key       string `json:"key,omitempty"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

type Folder struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ParentID  string `json:"parentId,omitempty"`
	CreatedAt int64  `json:"createdAt"`
}

// FileIndex is the file-metadata snapshot. It syncs with the same protocol
// as the desktop, guarded on files and folders.
type FileIndex struct {
	Files     []FileEntry `json:"files"`
	Folders   []Folder    `json:"folders"`
	Version   int         `json:"version"`
	UpdatedAt int64       `json:"updatedAt"`
}

func NewFileIndex() *FileIndex {
	return &FileIndex{
		Files:   []FileEntry{},
		Folders: []Folder{},
		Version: SchemaVersion,
	}
}

func (f *FileIndex) Timestamp() int64 { return f.UpdatedAt }
func (f *FileIndex) Stamp(ms int64)   { f.UpdatedAt = ms }

func (f *FileIndex) IsEmpty() bool {
	return len(f.Files) == 0 && len(f.Folders) == 0
}

func (f *FileIndex) hasFolder(id string) bool {
	return slices.ContainsFunc(f.Folders, func(fo Folder) bool { return fo.ID == id })
}

// AddFolder creates a folder. An empty parent means the root.
func (f *FileIndex) AddFolder(name, parentID string, now int64) (Folder, error) {
	if parentID != "" && !f.hasFolder(parentID) {
		return Folder{}, ErrFolderNotFound
	}
	fo := Folder{ID: NewID(), Name: name, ParentID: parentID, CreatedAt: now}
	f.Folders = append(f.Folders, fo)
	return fo, nil
}

// AddFile registers a file, assigning an ID when missing.
func (f *FileIndex) AddFile(e FileEntry, now int64) (FileEntry, error) {
	if e.FolderID != "" && !f.hasFolder(e.FolderID) {
		return FileEntry{}, ErrFolderNotFound
	}
	if e.ID == "" {
		e.ID = NewID()
	}
	e.CreatedAt = now
	e.UpdatedAt = now
	f.Files = append(f.Files, e)
	return e, nil
}

func (f *FileIndex) MoveFile(id, folderID string, now int64) error {
	if folderID != "" && !f.hasFolder(folderID) {
		return ErrFolderNotFound
	}
	i := slices.IndexFunc(f.Files, func(e FileEntry) bool { return e.ID == id })
	if i < 0 {
		return ErrFileNotFound
	}
	f.Files[i].FolderID = folderID
	f.Files[i].UpdatedAt = now
	return nil
}

func (f *FileIndex) RemoveFile(id string) error {
	i := slices.IndexFunc(f.Files, func(e FileEntry) bool { return e.ID == id })
	if i < 0 {
		return ErrFileNotFound
	}
	f.Files = slices.Delete(f.Files, i, i+1)
	return nil
}

// RemoveFolder deletes a folder. Its files and subfolders move up to the
// removed folder's parent.
func (f *FileIndex) RemoveFolder(id string, now int64) error {
	i := slices.IndexFunc(f.Folders, func(fo Folder) bool { return fo.ID == id })
	if i < 0 {
		return ErrFolderNotFound
	}
	parent := f.Folders[i].ParentID
	f.Folders = slices.Delete(f.Folders, i, i+1)
	for j := range f.Folders {
		if f.Folders[j].ParentID == id {
			f.Folders[j].ParentID = parent
		}
	}
	for j := range f.Files {
		if f.Files[j].FolderID == id {
			f.Files[j].FolderID = parent
			f.Files[j].UpdatedAt = now
		}
	}
	return nil
}

// FilesIn lists the files directly inside a folder ("" for the root).
func (f *FileIndex) FilesIn(folderID string) []FileEntry {
	var out []FileEntry
	for _, e := range f.Files {
		if e.FolderID == folderID {
			out = append(out, e)
		}
	}
	return out
}
