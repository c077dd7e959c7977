package codec_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/modstage/burrow/codec"
)

func TestOpenQueryPasswordCaching(t *testing.T) {
	asks := 0
	q := codec.NewOpenQuery(nil, 0, "locked.7z", func() string {
		asks++
		return "hunter2"
	}, nil)

	assert.True(t, q.HasPassword())

	// greedy engines ask every time they touch an encrypted block
	for i := 0; i < 5; i++ {
		assert.Equal(t, "hunter2", q.Password())
	}
	assert.Equal(t, 1, asks)
}

func TestOpenQueryWithoutPassword(t *testing.T) {
	q := codec.NewOpenQuery(nil, 0, "plain.zip", nil, nil)

	assert.False(t, q.HasPassword())
	assert.Equal(t, "", q.Password())
}

func TestOpenQuerySubArchiveName(t *testing.T) {
	q := codec.NewOpenQuery(nil, 0, "bundle.tar.gz", nil, nil)
	assert.Equal(t, "bundle.tar.gz", q.DisplayName())
	assert.False(t, q.SubArchiveMode())

	q.EnterSubArchive("bundle.tar")
	assert.True(t, q.SubArchiveMode())
	assert.Equal(t, "bundle.tar", q.DisplayName())
}

func TestOpenQueryDeriveSharesPasswordState(t *testing.T) {
	asks := 0
	q := codec.NewOpenQuery(nil, 0, "outer.zip", func() string {
		asks++
		return "sekrit"
	}, nil)

	assert.Equal(t, "sekrit", q.Password())

	derived := q.Derive(nil, 0, "inner.zip")
	assert.True(t, derived.SubArchiveMode())
	assert.Equal(t, "inner.zip", derived.DisplayName())

	// the cached answer travels, the provider is not asked again
	assert.Equal(t, "sekrit", derived.Password())
	assert.Equal(t, 1, asks)
}

func TestOpenQueryVolumeStream(t *testing.T) {
	q := codec.NewOpenQuery(nil, 0, "multi.rar", nil, nil)
	dir := t.TempDir()

	// missing path: no stream, no error
	f, err := q.VolumeStream(filepath.Join(dir, "multi.r01"))
	assert.NoError(t, err)
	assert.Nil(t, f)

	// directories aren't streams either
	f, err = q.VolumeStream(dir)
	assert.NoError(t, err)
	assert.Nil(t, f)

	path := filepath.Join(dir, "multi.r01")
	assert.NoError(t, os.WriteFile(path, []byte("volume data"), 0644))

	f, err = q.VolumeStream(path)
	assert.NoError(t, err)
	if assert.NotNil(t, f) {
		buf := make([]byte, 11)
		_, err = f.ReadAt(buf, 0)
		assert.NoError(t, err)
		assert.Equal(t, []byte("volume data"), buf)
		assert.NoError(t, f.Close())
	}
}
