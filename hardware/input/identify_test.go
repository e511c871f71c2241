package input

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ttttcrngyblflpp/sc2remap/log2"
)

func TestAutoStrategyCandidates(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, name := range []string{"event0", "event12", "mouse0", "mice"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "by-id"), 0755))

	s := AutoStrategy{Log: log2.NewTest(t, log2.LDebug), Dir: dir}
	paths, err := s.candidates()
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "event0"),
		filepath.Join(dir, "event12"),
	}, paths)
}

// Unusable candidates are skipped, never fatal: virtual nodes and permission
// walls show up routinely in a real /dev/input.
func TestAutoStrategyProbeSkip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "event0")
	require.NoError(t, os.WriteFile(path, []byte("not a device"), 0644))

	s := AutoStrategy{Log: log2.NewTest(t, log2.LDebug), Dir: dir}
	assert.Nil(t, s.tryProbe(path))
}

func TestEventPath(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "/dev/input/event3", eventPath(DefaultDeviceDir, 3))
}
