package state

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/juju/errors"
	"golang.org/x/sys/unix"

	"github.com/ttttcrngyblflpp/sc2remap/helpers"
)

const pidFileName = "sc2remap.pid"

// PidLock takes the single-instance advisory lock under persist.root and
// records our pid in it. The lock lives as long as the returned file stays
// open; the kernel drops it with the handle, a crash cannot leave it stuck.
func (g *Global) PidLock() (*os.File, error) {
	path := filepath.Join(g.Config.Persist.Root, pidFileName)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, errors.Annotatef(err, "pidlock path=%s", path)
	}
	if err = unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = f.Close()
		return nil, errors.Annotatef(err, "pidlock path=%s another instance holds the lock", path)
	}
	if err = f.Truncate(0); err != nil {
		_ = f.Close()
		return nil, errors.Annotatef(err, "pidlock path=%s", path)
	}
	if err = helpers.WriteAll(f, []byte(fmt.Sprintf("%d\n", os.Getpid()))); err != nil {
		_ = f.Close()
		return nil, errors.Annotatef(err, "pidlock path=%s", path)
	}
	g.Log.Debugf("pidlock path=%s pid=%d", path, os.Getpid())
	return f, nil
}
