package filestore

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screener/pkg/fingerprint"
	"screener/pkg/testutil"
)

func TestNew_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")

	s, err := New(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, s.Dir())

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestSave(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	stored, err := s.Save(strings.NewReader("quarterly figures"), "Q3 report.pdf")
	require.NoError(t, err)

	assert.Equal(t, "Q3 report.pdf", stored.OriginalName)
	assert.Equal(t, int64(len("quarterly figures")), stored.Size)
	assert.True(t, strings.HasPrefix(stored.Name, "Q3report_"))
	assert.True(t, strings.HasSuffix(stored.Name, ".pdf"))

	rc, err := stored.Open()
	require.NoError(t, err)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "quarterly figures", string(got))

	_, err = os.Stat(stored.Path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file must be renamed away")
}

func TestSave_SameNameDoesNotCollide(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	a, err := s.Save(strings.NewReader("first"), "report.txt")
	require.NoError(t, err)
	b, err := s.Save(strings.NewReader("second"), "report.txt")
	require.NoError(t, err)

	assert.NotEqual(t, a.Name, b.Name)
	hashA, err := fingerprint.File(a)
	require.NoError(t, err)
	assert.Equal(t, fingerprint.Text("first"), hashA)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("client went away") }

func TestSave_ReadErrorLeavesNothingBehind(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)

	_, err = s.Save(failingReader{}, "report.txt")
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestOpen_MissingFile(t *testing.T) {
	f := &StoredFile{Path: filepath.Join(t.TempDir(), "gone.pdf")}
	_, err := fingerprint.File(f)
	require.Error(t, err)
}

func TestRemove(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)
	stored, err := s.Save(strings.NewReader("x"), "a.txt")
	require.NoError(t, err)

	require.NoError(t, s.Remove(stored.Name))
	require.NoError(t, s.Remove(stored.Name))
	_, err = os.Stat(stored.Path)
	assert.True(t, os.IsNotExist(err))
}

func TestStorageName(t *testing.T) {
	cases := []struct {
		in     string
		prefix string
		suffix string
	}{
		{"report.PDF", "report_", ".pdf"},
		{"../../etc/passwd.txt", "passwd_", ".txt"},
		{`C:\Users\me\notes.docx`, "notes_", ".docx"},
		{"no-extension", "no-extension_", ""},
		{"???.txt", "file_", ".txt"},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			name := StorageName(tc.in)
			assert.True(t, strings.HasPrefix(name, tc.prefix), name)
			assert.True(t, strings.HasSuffix(name, tc.suffix), name)
			assert.NotContains(t, name, "/")
		})
	}
}

func TestStoredFile_HashesLikeTheUpload(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	testutil.Given(t, "an upload saved under a generated name", func(t *testing.T) {
		stored, err := s.Save(strings.NewReader("ledger rows"), "ledger.csv")
		require.NoError(t, err)

		testutil.When(t, "the stored copy is hashed", func(t *testing.T) {
			got, err := fingerprint.File(stored)
			require.NoError(t, err)

			testutil.Then(t, "the hash matches the original bytes", func(t *testing.T) {
				assert.Equal(t, fingerprint.Text("ledger rows"), got)
			})
			testutil.And(t, "the stored size matches the upload", func(t *testing.T) {
				assert.Equal(t, int64(len("ledger rows")), stored.Size)
			})
		})
	})
}
