package util

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveJsonCreatesDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "out.json")
	require.NoError(t, SaveJson(path, map[string]int{"episodes": 3}))

	bs, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"episodes":3}`, string(bs))
}

func TestCopyIntSlice(t *testing.T) {
	in := []int{1, 2, 3}
	out := CopyIntSlice(in)
	out[0] = 9
	assert.Equal(t, []int{1, 2, 3}, in)
	assert.Empty(t, CopyIntSlice(nil))
}

func TestParallelOutput(t *testing.T) {
	out := NewParallelOutput()
	out.Set("episode 1")
	assert.Equal(t, "episode 1", out.Get())
	assert.True(t, out.TrySet("episode 2"))
	assert.Equal(t, "episode 2", out.Get())
}

func TestTerminalPrinterStop(t *testing.T) {
	p := NewTerminalPrinter(time.Millisecond)
	out := p.NewOutput()
	p.Start(context.Background())
	out.Set("running")
	time.Sleep(5 * time.Millisecond)
	p.Stop()
	p.Stop()
}
