// AngelaMos | 2026
// disk_test.go

package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/sheetsense/internal/core"
)

func newTestDisk(t *testing.T) *Disk {
	t.Helper()
	d, err := NewDisk(filepath.Join(t.TempDir(), "uploads"))
	require.NoError(t, err)
	return d
}

func TestDiskLifecycle(t *testing.T) {
	ctx := context.Background()
	d := newTestDisk(t)

	require.NoError(t, d.Put(ctx, "a.csv", []byte("x,y\n1,2\n")))

	assert.FileExists(t, filepath.Join(d.Dir(), "a.csv"))

	f, err := d.Open(ctx, "a.csv")
	require.NoError(t, err)
	content, err := io.ReadAll(f)
	require.NoError(t, f.Close())
	require.NoError(t, err)
	assert.Equal(t, "x,y\n1,2\n", string(content))

	require.NoError(t, d.Remove(ctx, "a.csv"))

	assert.NoFileExists(t, filepath.Join(d.Dir(), "a.csv"))

	_, err = d.Open(ctx, "a.csv")
	assert.ErrorIs(t, err, core.ErrNotFound)

	assert.NoError(t, d.Remove(ctx, "a.csv"), "removing twice is fine")
}

func TestDiskPutLeavesNoTempFiles(t *testing.T) {
	ctx := context.Background()
	d := newTestDisk(t)

	require.NoError(t, d.Put(ctx, "b.pdf", []byte("%PDF-1.4")))

	entries, err := os.ReadDir(d.Dir())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "b.pdf", entries[0].Name())
}

func TestDiskRejectsEscapingKeys(t *testing.T) {
	ctx := context.Background()
	d := newTestDisk(t)

	for _, key := range []string{"", ".", "..", "../x", "a/b", "/etc/passwd"} {
		err := d.Put(ctx, key, []byte("x"))
		assert.ErrorIs(t, err, core.ErrInvalidInput, "key %q", key)
	}
}

func TestDiskHonorsCancelledContext(t *testing.T) {
	d := newTestDisk(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, d.Put(ctx, "c.csv", []byte("x")), context.Canceled)
	assert.ErrorIs(t, d.Ping(ctx), context.Canceled)
}

func TestDiskPing(t *testing.T) {
	d := newTestDisk(t)
	require.NoError(t, d.Ping(context.Background()))

	require.NoError(t, os.RemoveAll(d.Dir()))
	assert.Error(t, d.Ping(context.Background()))
}

func TestNewKey(t *testing.T) {
	key := NewKey("report.csv")
	assert.Regexp(t, `^\d+-\d+-report\.csv$`, key)
	assert.NotEqual(t, key, NewKey("report.csv"))
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "report.xlsx", want: "report.xlsx"},
		{in: "../../etc/passwd", want: "passwd"},
		{in: `C:\Users\me\data.csv`, want: "data.csv"},
		{in: `a:b*c?.csv`, want: "a_b_c_.csv"},
		{in: "tab\tname.pdf", want: "tabname.pdf"},
		{in: "", want: "file"},
		{in: "..", want: "file"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeName(tt.in))
		})
	}

	long := strings.Repeat("é", 250) + ".csv"
	got := SanitizeName(long)
	assert.LessOrEqual(t, len(got), maxNameBytes)
	assert.True(t, utf8.ValidString(got))
	assert.True(t, strings.HasSuffix(got, ".csv"))
}

func TestWideCharacterNamesFitOnDisk(t *testing.T) {
	ctx := context.Background()
	d := newTestDisk(t)

	for _, name := range []string{
		strings.Repeat("报", 90) + ".csv",
		strings.Repeat("📊", 120) + ".xlsx",
	} {
		key := NewKey(name)
		assert.LessOrEqual(t, len(key), 255)
		assert.True(t, utf8.ValidString(key))
		require.NoError(t, d.Put(ctx, key, []byte("a\n1\n")))
		assert.FileExists(t, filepath.Join(d.Dir(), key))
	}
}
