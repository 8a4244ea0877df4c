// Copyright (C) 2025-2026 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package settings

import (
	"bufio"
	"errors"
	"io"
)

const filePrefix = "file://"

// File is a setting value referring to an object in FileStorage. Files
// returned by Get are open and must be closed by the caller; files built
// with NewFileRef only carry a name and are used to store a reference.
type File struct {
	// Name is the storage name of the object.
	Name string
	// URL is the externally reachable address, filled in on Get.
	URL string
	// Binary reports whether content is returned unmodified. Text mode
	// translates "\r\n" and "\r" line endings to "\n".
	Binary bool

	rc io.ReadCloser
	r  io.Reader
}

// NewFileRef returns a File referring to an already stored object.
func NewFileRef(name string) *File {
	return &File{Name: name}
}

func openedFile(name, url string, rc io.ReadCloser, binary bool) *File {
	f := &File{Name: name, URL: url, Binary: binary, rc: rc, r: rc}
	if !binary {
		f.r = &newlineReader{br: bufio.NewReader(rc)}
	}
	return f
}

var errFileNotOpen = errors.New("settings: file reference is not open")

// Read implements io.Reader.
func (f *File) Read(p []byte) (int, error) {
	if f.r == nil {
		return 0, errFileNotOpen
	}
	return f.r.Read(p)
}

// Close releases the underlying object handle.
func (f *File) Close() error {
	if f.rc == nil {
		return nil
	}
	err := f.rc.Close()
	f.rc, f.r = nil, nil
	return err
}

type newlineReader struct {
	br *bufio.Reader
}

func (n *newlineReader) Read(p []byte) (int, error) {
	i := 0
	for i < len(p) {
		b, err := n.br.ReadByte()
		if err != nil {
			if i > 0 {
				return i, nil
			}
			return 0, err
		}
		if b == '\r' {
			if next, err := n.br.Peek(1); err == nil && next[0] == '\n' {
				_, _ = n.br.ReadByte()
			}
			b = '\n'
		}
		p[i] = b
		i++
	}
	return i, nil
}
