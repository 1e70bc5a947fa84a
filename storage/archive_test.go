package storage

import (
	"archive/zip"
	"bytes"
	"mime/multipart"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func uploadedFile(t *testing.T, filename string, data []byte) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("archive", filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	form, err := multipart.NewReader(&body, mw.Boundary()).ReadForm(int64(len(data)) + 4096)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })
	return form.File["archive"][0]
}

func TestExtractDocumentsZip(t *testing.T) {
	data := buildZip(t, map[string]string{
		"contracts/offer.txt": "offer letter",
		"certs/degree.txt":    "degree scan",
		"__MACOSX/junk":       "resource fork",
		"contracts/.DS_Store": "finder noise",
	})

	entries, err := ExtractDocuments(uploadedFile(t, "bundle.zip", data))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	names := []string{entries[0].Name, entries[1].Name}
	assert.Contains(t, names, "offer.txt")
	assert.Contains(t, names, "degree.txt")
	for _, entry := range entries {
		assert.NotEmpty(t, entry.Data)
		assert.True(t, strings.HasPrefix(entry.ContentType, "text/plain"))
	}
}

func TestExtractDocumentsRejectsTraversal(t *testing.T) {
	data := buildZip(t, map[string]string{"../../etc/passwd": "root:x:0:0"})

	_, err := ExtractDocuments(uploadedFile(t, "bundle.zip", data))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parent traversal")
}

func TestExtractDocumentsEmptyArchive(t *testing.T) {
	data := buildZip(t, map[string]string{"__MACOSX/only": "junk"})

	_, err := ExtractDocuments(uploadedFile(t, "bundle.zip", data))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no usable documents")
}

func TestExtractDocumentsDetectsZipWithoutExtension(t *testing.T) {
	data := buildZip(t, map[string]string{"note.txt": "hello"})

	entries, err := ExtractDocuments(uploadedFile(t, "bundle", data))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "note.txt", entries[0].Name)
}

func TestExtractDocumentsRejectsUnknownFormat(t *testing.T) {
	_, err := ExtractDocuments(uploadedFile(t, "bundle.7z", []byte("not an archive")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported archive format")
}

func TestSanitizeArchiveEntry(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"docs/a.txt", "docs/a.txt", false},
		{"  docs/a.txt  ", "docs/a.txt", false},
		{`docs\b.txt`, "docs/b.txt", false},
		{"./c.txt", "c.txt", false},
		{"", "", false},
		{".", "", false},
		{"__MACOSX/x", "", false},
		{"docs/.DS_Store", "", false},
		{"../escape.txt", "", true},
		{"docs/../../escape.txt", "", true},
	}
	for _, tc := range cases {
		got, err := sanitizeArchiveEntry(tc.in)
		if tc.wantErr {
			assert.Error(t, err, "input %q", tc.in)
			continue
		}
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
	}
}

func TestReadEntrySkipsOversized(t *testing.T) {
	small, err := readEntry(strings.NewReader("small payload"))
	require.NoError(t, err)
	assert.Equal(t, []byte("small payload"), small)

	empty, err := readEntry(strings.NewReader(""))
	require.NoError(t, err)
	assert.Nil(t, empty)
}
