/*
 * File-backed block storage device.
 *
 * Copyright 2026, The segcore Authors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package storage provides the reference block-storage backend:
// FileBackedStorage, a regular file opened read/write on boot and
// closed on halt.
//
// Grounded on src/storage.py's FileBackedStorage (stat for size, open
// on boot, seek+read/write per block, close on halt). Backed by
// afero.Fs rather than the os package directly, so tests can exercise
// it against an in-memory filesystem.
package storage

import (
	"io"
	"os"
	"sync"

	"github.com/spf13/afero"

	"github.com/segcore/segcore/internal/vdevice"
)

// FileBackedStorage implements vdevice.Storage over a file on an
// afero filesystem.
type FileBackedStorage struct {
	fs   afero.Fs
	path string
	size uint32

	mu   sync.Mutex
	file afero.File
}

// NewFileBackedStorage stats path on fs to learn its size. The file
// itself is opened lazily by Boot.
func NewFileBackedStorage(fs afero.Fs, path string) (*FileBackedStorage, error) {
	info, err := fs.Stat(path)
	if err != nil {
		return nil, err
	}
	return &FileBackedStorage{
		fs:   fs,
		path: path,
		size: uint32(info.Size()),
	}, nil
}

// Boot opens the backing file read/write. Part of the machine's
// boot/halt lifecycle: devices boot after the memory controller and
// before cores.
func (s *FileBackedStorage) Boot() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := s.fs.OpenFile(s.path, os.O_RDWR, 0o644)
	if err != nil {
		return err
	}
	s.file = f
	return nil
}

// Halt closes the backing file. Pending writes are flushed by the
// underlying afero implementation before Close returns.
func (s *FileBackedStorage) Halt() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// Size implements vdevice.Storage.
func (s *FileBackedStorage) Size() uint32 {
	return s.size
}

// ReadBlocks implements vdevice.Storage.
func (s *FileBackedStorage) ReadBlocks(srcBlock uint16, cnt uint8) ([]byte, error) {
	if err := vdevice.BoundsCheck(s.size, srcBlock, cnt); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	buf := make([]byte, int(cnt)*vdevice.BlockSize)
	offset := int64(srcBlock) * vdevice.BlockSize
	if _, err := s.file.Seek(offset, 0); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(s.file, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// WriteBlocks implements vdevice.Storage.
func (s *FileBackedStorage) WriteBlocks(dstBlock uint16, cnt uint8, data []byte) error {
	if err := vdevice.BoundsCheck(s.size, dstBlock, cnt); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	offset := int64(dstBlock) * vdevice.BlockSize
	if _, err := s.file.Seek(offset, 0); err != nil {
		return err
	}
	_, err := s.file.Write(data)
	return err
}
