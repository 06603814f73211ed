package kinds_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/mill/internal/core/domain"
	"go.trai.ch/mill/internal/kinds"
	"go.uber.org/mock/gomock"
)

func TestLibrary_FetchRetriesWithBackoff(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		root := t.TempDir()
		tools, m := newToolbox(t)
		opts := &domain.RunOptions{OutputRoot: root, FetchAttempts: 3}
		lib := kinds.NewLibrary("junit", "suite", kinds.LibrarySpec{URL: "https://example.com/junit.jar", Sha: "abc"}, tools)
		dest := filepath.Join(opts.OutputDir(lib), "junit.jar")

		calls := 0
		m.fetcher.EXPECT().Fetch(gomock.Any(), "https://example.com/junit.jar", dest).DoAndReturn(
			func(context.Context, string, string) error {
				calls++
				if calls < 3 {
					return errors.New("connection reset")
				}
				require.NoError(t, os.MkdirAll(filepath.Dir(dest), 0o750))
				return os.WriteFile(dest, []byte("jar"), 0o600)
			}).Times(3)
		m.hasher.EXPECT().FileHash(dest).Return("abc", nil).AnyTimes()

		builder, err := lib.BuildTask(opts)
		require.NoError(t, err)

		needed, _, err := builder.NeedsBuild(domain.TimeStamp{})
		require.NoError(t, err)
		assert.True(t, needed)

		start := time.Now()
		require.NoError(t, builder.Build(context.Background(), discard()))
		assert.Equal(t, 300*time.Millisecond, time.Since(start))

		needed, reason, err := builder.NeedsBuild(domain.TimeStamp{})
		require.NoError(t, err)
		assert.False(t, needed, reason)
	})
}

func TestLibrary_FetchGivesUp(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		tools, m := newToolbox(t)
		opts := &domain.RunOptions{OutputRoot: t.TempDir(), FetchAttempts: 2}
		lib := kinds.NewLibrary("junit", "suite", kinds.LibrarySpec{URL: "https://example.com/junit.jar"}, tools)

		m.fetcher.EXPECT().Fetch(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("503")).Times(2)

		builder, err := lib.BuildTask(opts)
		require.NoError(t, err)
		err = builder.Build(context.Background(), discard())
		require.ErrorIs(t, err, domain.ErrFetchFailed)
		assert.ErrorContains(t, err, "503")
	})
}

func TestLibrary_ChecksumMismatchIsStale(t *testing.T) {
	root := t.TempDir()
	tools, m := newToolbox(t)
	opts := &domain.RunOptions{OutputRoot: root}
	lib := kinds.NewLibrary("lib", "suite", kinds.LibrarySpec{URL: "file:///tmp/lib.jar", Path: "lib.jar", Sha: "want"}, tools)
	dest := filepath.Join(opts.OutputDir(lib), "lib.jar")
	require.NoError(t, os.MkdirAll(filepath.Dir(dest), 0o750))
	require.NoError(t, os.WriteFile(dest, []byte("x"), 0o600))

	m.hasher.EXPECT().FileHash(dest).Return("got", nil)

	builder, err := lib.BuildTask(opts)
	require.NoError(t, err)
	needed, reason, err := builder.NeedsBuild(domain.TimeStamp{})
	require.NoError(t, err)
	assert.True(t, needed)
	assert.Contains(t, reason, domain.ErrChecksumMismatch.Error())
}

func TestLibrary_InPlace(t *testing.T) {
	tools, _ := newToolbox(t)
	lib := kinds.NewLibrary("local", "suite", kinds.LibrarySpec{Path: "/opt/lib.jar"}, tools)
	builder, err := lib.BuildTask(&domain.RunOptions{})
	require.NoError(t, err)

	needed, _, err := builder.NeedsBuild(domain.TimeStamp{})
	require.NoError(t, err)
	assert.False(t, needed)
	require.NoError(t, builder.Clean(context.Background(), false))
	assert.Equal(t, "/opt/lib.jar", builder.NewestOutput().Path())
}

func TestPlatformLibrary(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(home, "lib"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(home, "lib", "jfr.jar"), nil, 0o600))

	jdk := kinds.NewJdkLibrary("JFR", "suite", home, "lib/jfr.jar")
	assert.Equal(t, domain.KindJdkLibrary, jdk.Kind())
	assert.True(t, jdk.IsPlatformDependent())

	builder, err := jdk.BuildTask(&domain.RunOptions{})
	require.NoError(t, err)
	needed, _, err := builder.NeedsBuild(domain.TimeStamp{})
	require.NoError(t, err)
	assert.False(t, needed)
	assert.True(t, builder.NewestOutput().Exists())

	jre := kinds.NewJreLibrary("RT", "suite", "", "")
	builder, err = jre.BuildTask(&domain.RunOptions{})
	require.NoError(t, err)
	assert.False(t, builder.NewestOutput().Exists())
}
