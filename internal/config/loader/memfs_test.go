package loader

import (
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"
)

// MemFS is an in-memory file system for testing.
type MemFS struct {
	files map[string][]byte
	mod   map[string]time.Time
}

func NewMemFS() *MemFS {
	return &MemFS{files: make(map[string][]byte), mod: make(map[string]time.Time)}
}

func (m *MemFS) AddFile(p string, content string) {
	m.files[p] = []byte(content)
	m.mod[p] = time.Date(2026, 1, 1, 0, 0, len(m.files), 0, time.UTC)
}

func (m *MemFS) ReadFile(p string) ([]byte, error) {
	data, ok := m.files[p]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return data, nil
}

func (m *MemFS) Stat(p string) (fs.FileInfo, error) {
	if _, ok := m.files[p]; ok {
		return &memFileInfo{name: path.Base(p), mod: m.mod[p]}, nil
	}
	for f := range m.files {
		if strings.HasPrefix(f, p+"/") {
			return &memFileInfo{name: path.Base(p), dir: true}, nil
		}
	}
	return nil, fs.ErrNotExist
}

func (m *MemFS) ReadDir(dir string) ([]fs.DirEntry, error) {
	var out []fs.DirEntry
	for f := range m.files {
		if path.Dir(f) == dir {
			out = append(out, fs.FileInfoToDirEntry(&memFileInfo{name: path.Base(f), mod: m.mod[f]}))
		}
	}
	if len(out) == 0 {
		if _, err := m.Stat(dir); err != nil {
			return nil, err
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out, nil
}

type memFileInfo struct {
	name string
	mod  time.Time
	dir  bool
}

func (f *memFileInfo) Name() string       { return f.name }
func (f *memFileInfo) Size() int64        { return 0 }
func (f *memFileInfo) Mode() fs.FileMode  { return 0644 }
func (f *memFileInfo) ModTime() time.Time { return f.mod }
func (f *memFileInfo) IsDir() bool        { return f.dir }
func (f *memFileInfo) Sys() any           { return nil }
