package filereader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"
)

// ErrInvalidPath indicates a path that would escape the storage root.
var ErrInvalidPath = errors.New("invalid path: escapes storage root")

// CleanPath validates an object path and returns its canonical form:
// slash-separated, relative, with no "." or ".." elements. A leading slash
// is dropped. Paths that are empty or climb out of the store report
// ErrInvalidPath.
func CleanPath(p string) (string, error) {
	cleaned := strings.TrimPrefix(path.Clean(filepath.ToSlash(p)), "/")
	if p == "" || cleaned == "." || !fs.ValidPath(cleaned) {
		return "", ErrInvalidPath
	}
	return cleaned, nil
}

// CleanPrefix is CleanPath for listing prefixes. The empty prefix, "." and
// "/" all mean the whole store and clean to "".
func CleanPrefix(p string) (string, error) {
	cleaned := strings.TrimPrefix(path.Clean(filepath.ToSlash(p)), "/")
	if cleaned == "." || cleaned == "" {
		return "", nil
	}
	if !fs.ValidPath(cleaned) {
		return "", ErrInvalidPath
	}
	return cleaned, nil
}

// -----------------------------------------------------------------------------
// Filesystem Store
// -----------------------------------------------------------------------------

// typesDir holds one sidecar file per object that was written with a
// content type. It is hidden from List and cannot be written through Put.
const typesDir = ".types"

// fsStore keeps objects as files under a directory. Every operation goes
// through an os.Root, so symlinks cannot lead outside the directory either.
type fsStore struct {
	dir string
}

// NewFS creates a Store over the existing directory dir.
func NewFS(dir string) (Store, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("filereader: %s is not a directory: %w", dir, os.ErrNotExist)
	}
	return &fsStore{dir: dir}, nil
}

// object resolves p to a path inside the root, refusing the types directory.
func (f *fsStore) object(p string) (string, error) {
	name, err := CleanPath(p)
	if err != nil {
		return "", err
	}
	if name == typesDir || strings.HasPrefix(name, typesDir+"/") {
		return "", ErrInvalidPath
	}
	return name, nil
}

func (f *fsStore) Put(_ context.Context, p string, r io.Reader, contentType string) error {
	name, err := f.object(p)
	if err != nil {
		return err
	}
	root, err := os.OpenRoot(f.dir)
	if err != nil {
		return err
	}
	defer closer(root)()

	if dir := path.Dir(name); dir != "." {
		if err := root.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	// O_EXCL claims the path; the type sidecar follows the content.
	file, err := root.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return ErrPathExists
	}
	if err != nil {
		return err
	}
	if _, err := io.Copy(file, r); err != nil {
		closer(file)()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}

	contentType = normalizeType(contentType)
	if contentType == "" {
		return nil
	}
	sidecar := path.Join(typesDir, name)
	if err := root.MkdirAll(path.Dir(sidecar), 0o755); err != nil {
		return err
	}
	return root.WriteFile(sidecar, []byte(contentType), 0o644)
}

func (f *fsStore) Get(_ context.Context, p string) (io.ReadCloser, ObjectInfo, error) {
	name, err := f.object(p)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	root, err := os.OpenRoot(f.dir)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	defer closer(root)()

	// Files opened through a root stay usable after it closes.
	file, err := root.Open(name)
	if err != nil {
		return nil, ObjectInfo{}, notFound(err)
	}
	st, err := file.Stat()
	if err != nil {
		closer(file)()
		return nil, ObjectInfo{}, err
	}
	if st.IsDir() {
		closer(file)()
		return nil, ObjectInfo{}, ErrNotFound
	}
	return file, f.info(root, name, st), nil
}

func (f *fsStore) Stat(_ context.Context, p string) (ObjectInfo, error) {
	name, err := f.object(p)
	if err != nil {
		return ObjectInfo{}, err
	}
	root, err := os.OpenRoot(f.dir)
	if err != nil {
		return ObjectInfo{}, err
	}
	defer closer(root)()

	st, err := root.Stat(name)
	if err != nil {
		return ObjectInfo{}, notFound(err)
	}
	if st.IsDir() {
		return ObjectInfo{}, ErrNotFound
	}
	return f.info(root, name, st), nil
}

// info combines file metadata with the recorded content type, if any.
func (f *fsStore) info(root *os.Root, name string, st fs.FileInfo) ObjectInfo {
	info := ObjectInfo{Size: st.Size(), ModTime: st.ModTime()}
	if typ, err := root.ReadFile(path.Join(typesDir, name)); err == nil {
		info.ContentType = normalizeType(string(typ))
	}
	return info
}

func (f *fsStore) List(_ context.Context, prefix string) ([]string, error) {
	start, err := CleanPrefix(prefix)
	if err != nil {
		return nil, err
	}
	if start == "" {
		start = "."
	}
	root, err := os.OpenRoot(f.dir)
	if err != nil {
		return nil, err
	}
	defer closer(root)()

	var paths []string
	err = fs.WalkDir(root.FS(), start, func(p string, d fs.DirEntry, err error) error {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return nil
		case err != nil:
			return err
		case d.IsDir() && p == typesDir:
			return fs.SkipDir
		case !d.IsDir():
			paths = append(paths, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

// notFound maps a missing-file error to ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	return err
}

// -----------------------------------------------------------------------------
// Memory Store
// -----------------------------------------------------------------------------

// memoryObject is an object held by a memory store.
type memoryObject struct {
	data []byte
	info ObjectInfo
}

// memoryStore keeps objects in a map. It is safe for concurrent use.
type memoryStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
}

// NewMemory creates an empty in-memory Store.
func NewMemory() Store {
	return &memoryStore{objects: make(map[string]memoryObject)}
}

func (m *memoryStore) Put(_ context.Context, p string, r io.Reader, contentType string) error {
	name, err := CleanPath(p)
	if err != nil {
		return err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.objects[name]; taken {
		return ErrPathExists
	}
	m.objects[name] = memoryObject{
		data: data,
		info: ObjectInfo{
			Size:        int64(len(data)),
			ContentType: normalizeType(contentType),
			ModTime:     time.Now(),
		},
	}
	return nil
}

func (m *memoryStore) lookup(p string) (memoryObject, error) {
	name, err := CleanPath(p)
	if err != nil {
		return memoryObject{}, err
	}
	m.mu.RLock()
	obj, ok := m.objects[name]
	m.mu.RUnlock()
	if !ok {
		return memoryObject{}, ErrNotFound
	}
	return obj, nil
}

// Get serves the stored bytes directly. Objects are write-once and readers
// cannot write through a bytes.Reader, so no copy is needed.
func (m *memoryStore) Get(_ context.Context, p string) (io.ReadCloser, ObjectInfo, error) {
	obj, err := m.lookup(p)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	return io.NopCloser(bytes.NewReader(obj.data)), obj.info, nil
}

func (m *memoryStore) Stat(_ context.Context, p string) (ObjectInfo, error) {
	obj, err := m.lookup(p)
	return obj.info, err
}

// List matches whole path elements: prefix "a" lists "a/x" but not "ab".
func (m *memoryStore) List(_ context.Context, prefix string) ([]string, error) {
	dir, err := CleanPrefix(prefix)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	var paths []string
	for name := range m.objects {
		if dir == "" || name == dir || strings.HasPrefix(name, dir+"/") {
			paths = append(paths, name)
		}
	}
	slices.Sort(paths)
	return paths, nil
}
