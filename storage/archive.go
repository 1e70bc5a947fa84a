package storage

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	rardecode "github.com/nwaples/rardecode/v2"
)

const (
	maxArchiveBytes  int64 = 200 * 1024 * 1024
	archiveFormatZip       = "zip"
	archiveFormatRar       = "rar"
)

// ArchiveEntry is one document pulled out of an uploaded bundle.
type ArchiveEntry struct {
	Name        string
	Data        []byte
	ContentType string
}

// ExtractDocuments unpacks a zip or rar bundle into per-file entries. Entries
// larger than the single-document limit, directories, and junk paths are
// skipped; an archive that yields no usable file is an error.
func ExtractDocuments(fileHeader *multipart.FileHeader) ([]ArchiveEntry, error) {
	if fileHeader == nil {
		return nil, errors.New("archive file not provided")
	}
	if fileHeader.Size > 0 && fileHeader.Size > maxArchiveBytes {
		return nil, fmt.Errorf("archive size exceeds %d bytes", maxArchiveBytes)
	}

	src, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer src.Close()

	tmpFile, err := os.CreateTemp("", "hr-doc-archive-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		tmpFile.Close()
		os.Remove(tmpFile.Name())
	}()

	written, err := io.Copy(tmpFile, io.LimitReader(src, maxArchiveBytes+1))
	if err != nil {
		return nil, fmt.Errorf("copy archive: %w", err)
	}
	if written > maxArchiveBytes {
		return nil, fmt.Errorf("archive size exceeds %d bytes", maxArchiveBytes)
	}

	format, err := detectArchiveFormat(tmpFile, fileHeader.Filename)
	if err != nil {
		return nil, err
	}
	if _, err := tmpFile.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind temp file: %w", err)
	}

	var entries []ArchiveEntry
	switch format {
	case archiveFormatZip:
		entries, err = extractZipEntries(tmpFile, written)
	case archiveFormatRar:
		entries, err = extractRarEntries(tmpFile)
	default:
		err = errors.New("unsupported archive format")
	}
	if err != nil {
		return nil, err
	}

	if len(entries) == 0 {
		return nil, errors.New("archive contains no usable documents")
	}
	return entries, nil
}

func extractZipEntries(tmpFile *os.File, size int64) ([]ArchiveEntry, error) {
	reader, err := zip.NewReader(tmpFile, size)
	if err != nil {
		return nil, fmt.Errorf("parse zip archive: %w", err)
	}

	var entries []ArchiveEntry
	for _, file := range reader.File {
		sanitized, err := sanitizeArchiveEntry(file.Name)
		if err != nil {
			return nil, err
		}
		if sanitized == "" || file.FileInfo().IsDir() {
			continue
		}
		if file.UncompressedSize64 > uint64(maxDocumentBytes) {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("open entry %s: %w", sanitized, err)
		}
		data, err := readEntry(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read entry %s: %w", sanitized, err)
		}
		if data == nil {
			continue
		}

		entries = append(entries, buildArchiveEntry(sanitized, data))
	}
	return entries, nil
}

func extractRarEntries(tmpFile *os.File) ([]ArchiveEntry, error) {
	rr, err := rardecode.NewReader(tmpFile)
	if err != nil {
		return nil, fmt.Errorf("parse rar archive: %w", err)
	}

	var entries []ArchiveEntry
	for {
		header, err := rr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read rar entry: %w", err)
		}

		sanitized, err := sanitizeArchiveEntry(header.Name)
		if err != nil {
			return nil, err
		}
		if sanitized == "" || header.IsDir {
			if !header.IsDir {
				if _, err := io.Copy(io.Discard, rr); err != nil {
					return nil, fmt.Errorf("discard rar entry: %w", err)
				}
			}
			continue
		}

		data, err := readEntry(rr)
		if err != nil {
			return nil, fmt.Errorf("read entry %s: %w", sanitized, err)
		}
		if data == nil {
			continue
		}

		entries = append(entries, buildArchiveEntry(sanitized, data))
	}
	return entries, nil
}

// readEntry buffers one entry up to the single-document limit; a nil result
// means the entry was oversized and should be skipped.
func readEntry(r io.Reader) ([]byte, error) {
	var buffer bytes.Buffer
	written, err := io.Copy(&buffer, io.LimitReader(r, maxDocumentBytes+1))
	if err != nil {
		return nil, err
	}
	if written > maxDocumentBytes {
		if _, err := io.Copy(io.Discard, r); err != nil {
			return nil, err
		}
		return nil, nil
	}
	if written == 0 {
		return nil, nil
	}
	return buffer.Bytes(), nil
}

func buildArchiveEntry(relPath string, data []byte) ArchiveEntry {
	return ArchiveEntry{
		Name:        path.Base(relPath),
		Data:        data,
		ContentType: http.DetectContentType(data),
	}
}

func detectArchiveFormat(file *os.File, originalName string) (string, error) {
	ext := strings.ToLower(strings.TrimSpace(filepath.Ext(originalName)))
	switch ext {
	case ".zip":
		return archiveFormatZip, nil
	case ".rar":
		return archiveFormatRar, nil
	}

	var header [8]byte
	n, err := file.ReadAt(header[:], 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read archive header: %w", err)
	}
	headerSlice := header[:n]

	if len(headerSlice) >= 2 && headerSlice[0] == 0x50 && headerSlice[1] == 0x4b {
		return archiveFormatZip, nil
	}
	if len(headerSlice) >= 6 && bytes.Equal(headerSlice[:6], []byte{0x52, 0x61, 0x72, 0x21, 0x1a, 0x07}) {
		return archiveFormatRar, nil
	}

	if ext != "" {
		return "", fmt.Errorf("unsupported archive format %q", ext)
	}
	return "", errors.New("unsupported archive format, only .zip and .rar are accepted")
}

func sanitizeArchiveEntry(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", nil
	}

	normalized := strings.ReplaceAll(trimmed, "\\", "/")
	normalized = path.Clean(normalized)
	normalized = strings.TrimPrefix(normalized, "./")
	if normalized == "." || normalized == "" {
		return "", nil
	}
	if strings.HasPrefix(normalized, "../") {
		return "", fmt.Errorf("archive entry %q uses parent traversal", name)
	}
	lower := strings.ToLower(normalized)
	if strings.HasPrefix(lower, "__macosx/") || strings.HasSuffix(lower, ".ds_store") {
		return "", nil
	}
	return normalized, nil
}
