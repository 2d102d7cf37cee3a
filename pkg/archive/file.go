package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// maxNesting bounds how deep nested jars are followed.
const maxNesting = 2

// File is an artifact stored as a zip container on disk.
type File struct {
	Path string

	m *matcher
}

// NewFile creates a file artifact with the given options.
func NewFile(path string, opts Options) (*File, error) {
	m, err := compile(opts)
	if err != nil {
		return nil, err
	}
	return &File{Path: path, m: m}, nil
}

// Name returns the artifact's file name.
func (f *File) Name() string {
	return filepath.Base(f.Path)
}

// Open opens the container for a fresh pass over its entries.
func (f *File) Open() (EntryReader, error) {
	zr, err := zip.OpenReader(f.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w: %w", f.Path, ErrCorrupt, err)
	}
	return &fileReader{
		m:      f.m,
		closer: zr,
		stack:  []*frame{{files: zr.File}},
	}, nil
}

type frame struct {
	prefix string
	files  []*zip.File
	pos    int
}

type fileReader struct {
	m      *matcher
	closer io.Closer
	stack  []*frame
}

func (r *fileReader) Next() (*Entry, error) {
	for len(r.stack) > 0 {
		top := r.stack[len(r.stack)-1]
		if top.pos >= len(top.files) {
			r.stack = r.stack[:len(r.stack)-1]
			continue
		}
		f := top.files[top.pos]
		top.pos++
		if f.FileInfo().IsDir() {
			continue
		}

		depth := len(r.stack)
		if strings.HasSuffix(f.Name, ".jar") {
			if depth >= maxNesting || (depth == 1 && !r.m.inScope(f.Name)) {
				continue
			}
			data, err := readAll(f)
			if err != nil {
				return nil, fmt.Errorf("read %s%s: %w: %w", top.prefix, f.Name, ErrCorrupt, err)
			}
			zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
			if err != nil {
				return nil, fmt.Errorf("open %s%s: %w: %w", top.prefix, f.Name, ErrCorrupt, err)
			}
			r.stack = append(r.stack, &frame{prefix: top.prefix + f.Name + "!/", files: zr.File})
			continue
		}

		if depth == 1 && r.m.scope != nil {
			continue
		}
		kind, ok := r.m.classify(f.Name)
		if !ok {
			continue
		}
		data, err := readAll(f)
		if err != nil {
			return nil, fmt.Errorf("read %s%s: %w: %w", top.prefix, f.Name, ErrCorrupt, err)
		}
		return &Entry{Name: top.prefix + f.Name, Kind: kind, Data: data}, nil
	}
	return nil, io.EOF
}

func (r *fileReader) Close() error {
	r.stack = nil
	return r.closer.Close()
}

func readAll(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
