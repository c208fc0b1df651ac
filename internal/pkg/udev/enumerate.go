package udev

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	DefaultRunDir = "/run/udev"
	DefaultSysDir = "/sys"
)

// Enumerator resolves tags against the udev database kept under RunDir.
type Enumerator struct {
	RunDir string
	SysDir string
}

func NewEnumerator() Enumerator {
	return Enumerator{RunDir: DefaultRunDir, SysDir: DefaultSysDir}
}

// Find returns the first present device carrying tag, by device id order.
func (e Enumerator) Find(tag string) (Device, bool, error) {
	entries, err := os.ReadDir(filepath.Join(e.RunDir, "tags", tag))
	if errors.Is(err, fs.ErrNotExist) {
		return Device{}, false, nil
	}
	if err != nil {
		return Device{}, false, err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	for _, id := range names {
		sysPath, ok := e.resolve(id)
		if !ok {
			continue
		}
		real, err := filepath.EvalSymlinks(sysPath)
		if err != nil {
			continue
		}
		return Device{SysPath: real, DevPath: e.devPath(real), Tags: []string{tag}}, true, nil
	}
	return Device{}, false, nil
}

// resolve maps a udev device id ("c189:1", "b8:0", "+hwmon:hwmon2") to a sysfs path.
func (e Enumerator) resolve(id string) (string, bool) {
	if len(id) < 2 {
		return "", false
	}
	var candidates []string
	switch id[0] {
	case 'c':
		candidates = []string{filepath.Join(e.SysDir, "dev", "char", id[1:])}
	case 'b':
		candidates = []string{filepath.Join(e.SysDir, "dev", "block", id[1:])}
	case '+':
		subsystem, sysname, ok := strings.Cut(id[1:], ":")
		if !ok {
			return "", false
		}
		candidates = []string{
			filepath.Join(e.SysDir, "class", subsystem, sysname),
			filepath.Join(e.SysDir, "bus", subsystem, "devices", sysname),
		}
	default:
		return "", false
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, true
		}
	}
	return "", false
}

func (e Enumerator) devPath(sysPath string) string {
	root, err := filepath.EvalSymlinks(e.SysDir)
	if err != nil {
		root = e.SysDir
	}
	rel, err := filepath.Rel(root, sysPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return sysPath
	}
	return fmt.Sprintf("/%s", filepath.ToSlash(rel))
}
