// DatKeeper
// Copyright (c) 2025 The DatKeeper Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of DatKeeper.
//
// DatKeeper is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// DatKeeper is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with DatKeeper.  If not, see <http://www.gnu.org/licenses/>.

// Package hasher computes the checksums catalogs identify ROMs by.
package hasher

import (
	"archive/zip"
	"context"
	"crypto/md5" //nolint:gosec // catalogs publish md5, it is not used for security
	"crypto/sha1" //nolint:gosec // catalogs publish sha1, it is not used for security
	"fmt"
	"hash"
	"hash/crc32"
	"io"
	"path/filepath"
	"strings"

	"github.com/bodgit/sevenzip"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// Options selects the secondary checksums. CRC32 is always computed.
type Options struct {
	MD5  bool
	SHA1 bool
}

// FileHash contains the hash information for a file, or for the single
// member of an archive when Member is set.
type FileHash struct {
	MD5    string
	SHA1   string
	Member string
	Size   int64
	CRC32  uint32
}

// CRC returns the CRC32 as 8 lowercase hex digits.
func (h *FileHash) CRC() string {
	return fmt.Sprintf("%08x", h.CRC32)
}

// IsArchive reports whether path has an archive extension the hasher can
// look inside.
func IsArchive(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zip", ".7z":
		return true
	default:
		return false
	}
}

// ComputeFileHashes hashes the file at path. A .zip or .7z holding exactly
// one file is hashed by that member's content. Any other archive, including
// one that fails to open, is hashed as a plain file.
//
// Hashing stops with ctx.Err() when ctx is cancelled mid-file.
func ComputeFileHashes(ctx context.Context, fs afero.Fs, path string, opts Options) (*FileHash, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func(f afero.File) {
		if closeErr := f.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Str("path", path).Msg("failed to close file")
		}
	}(f)

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to get file stats: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".zip":
		h, ok, err := hashZipMember(ctx, f, stat.Size(), opts)
		if ok || err != nil {
			return h, err
		}
	case ".7z":
		h, ok, err := hash7zMember(ctx, f, stat.Size(), opts)
		if ok || err != nil {
			return h, err
		}
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind file: %w", err)
	}
	return hashReader(ctx, f, stat.Size(), opts)
}

// hashZipMember returns ok=false when the archive is not a single-member
// zip, leaving the caller to hash the file itself.
func hashZipMember(
	ctx context.Context,
	f afero.File,
	size int64,
	opts Options,
) (*FileHash, bool, error) {
	zr, err := zip.NewReader(f, size)
	if err != nil {
		log.Debug().Err(err).Str("path", f.Name()).Msg("not a readable zip, hashing as file")
		return nil, false, nil
	}
	var member *zip.File
	for _, zf := range zr.File {
		if zf.FileInfo().IsDir() {
			continue
		}
		if member != nil {
			return nil, false, nil
		}
		member = zf
	}
	if member == nil {
		return nil, false, nil
	}

	rc, err := member.Open()
	if err != nil {
		return nil, false, fmt.Errorf("failed to open file in zip: %w", err)
	}
	defer func(rc io.ReadCloser) {
		if closeErr := rc.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close zip member")
		}
	}(rc)

	h, err := hashReader(ctx, rc, int64(member.UncompressedSize64), opts) //nolint:gosec // sizes fit
	if err != nil {
		return nil, false, err
	}
	h.Member = member.Name
	return h, true, nil
}

func hash7zMember(
	ctx context.Context,
	f afero.File,
	size int64,
	opts Options,
) (*FileHash, bool, error) {
	sr, err := sevenzip.NewReader(f, size)
	if err != nil {
		log.Debug().Err(err).Str("path", f.Name()).Msg("not a readable 7z, hashing as file")
		return nil, false, nil
	}
	var member *sevenzip.File
	for _, sf := range sr.File {
		if sf.FileInfo().IsDir() {
			continue
		}
		if member != nil {
			return nil, false, nil
		}
		member = sf
	}
	if member == nil {
		return nil, false, nil
	}

	rc, err := member.Open()
	if err != nil {
		return nil, false, fmt.Errorf("failed to open file in 7z: %w", err)
	}
	defer func(rc io.ReadCloser) {
		if closeErr := rc.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close 7z member")
		}
	}(rc)

	h, err := hashReader(ctx, rc, int64(member.UncompressedSize), opts) //nolint:gosec // sizes fit
	if err != nil {
		return nil, false, err
	}
	h.Member = member.Name
	return h, true, nil
}

// ctxReader fails reads once its context is done.
type ctxReader struct {
	ctx context.Context //nolint:containedctx // scoped to a single copy
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// hashReader computes all requested hashes in one pass over r.
func hashReader(ctx context.Context, r io.Reader, size int64, opts Options) (*FileHash, error) {
	crc := crc32.NewIEEE()
	writers := []io.Writer{crc}
	var md5Hash, sha1Hash hash.Hash
	if opts.MD5 {
		md5Hash = md5.New() //nolint:gosec // see import
		writers = append(writers, md5Hash)
	}
	if opts.SHA1 {
		sha1Hash = sha1.New() //nolint:gosec // see import
		writers = append(writers, sha1Hash)
	}

	n, err := io.Copy(io.MultiWriter(writers...), ctxReader{ctx: ctx, r: r})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("failed to read file for hashing: %w", err)
	}
	if n != size {
		log.Debug().Int64("expected", size).Int64("read", n).Msg("size changed while hashing")
		size = n
	}

	fh := &FileHash{CRC32: crc.Sum32(), Size: size}
	if md5Hash != nil {
		fh.MD5 = fmt.Sprintf("%x", md5Hash.Sum(nil))
	}
	if sha1Hash != nil {
		fh.SHA1 = fmt.Sprintf("%x", sha1Hash.Sum(nil))
	}
	return fh, nil
}

// Matches reports whether the computed hash agrees with expected values.
// Empty expected checksums are not compared.
func (h *FileHash) Matches(size int64, crc uint32, md5Sum, sha1Sum string) bool {
	if h.Size != size || h.CRC32 != crc {
		return false
	}
	if md5Sum != "" && h.MD5 != "" && !strings.EqualFold(h.MD5, md5Sum) {
		return false
	}
	if sha1Sum != "" && h.SHA1 != "" && !strings.EqualFold(h.SHA1, sha1Sum) {
		return false
	}
	return true
}
