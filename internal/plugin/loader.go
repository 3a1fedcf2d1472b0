package plugin

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
)

// ScriptInfo is a discovered script.
type ScriptInfo struct {
	Name string
	// Main is the file to run.
	Main  string
	Error error
}

// Loader discovers scripts in a list of directories.
type Loader struct {
	paths []string
}

// NewLoader creates a loader searching paths in order.
func NewLoader(paths ...string) *Loader {
	return &Loader{paths: paths}
}

// Paths returns the search paths.
func (l *Loader) Paths() []string {
	return l.paths
}

// Discover returns every script found, sorted by name. A name found in an
// earlier path shadows later ones. Missing paths are skipped.
func (l *Loader) Discover() ([]*ScriptInfo, error) {
	found := make(map[string]*ScriptInfo)
	for _, base := range l.paths {
		entries, err := os.ReadDir(base)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, errors.Wrapf(err, "read script path %s", base)
		}
		for _, entry := range entries {
			info := inspect(base, entry)
			if info == nil {
				continue
			}
			if _, seen := found[info.Name]; !seen {
				found[info.Name] = info
			}
		}
	}

	out := make([]*ScriptInfo, 0, len(found))
	for _, info := range found {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func inspect(base string, entry os.DirEntry) *ScriptInfo {
	path := filepath.Join(base, entry.Name())
	if !entry.IsDir() {
		if filepath.Ext(entry.Name()) != ".lua" {
			return nil
		}
		return &ScriptInfo{Name: strings.TrimSuffix(entry.Name(), ".lua"), Main: path}
	}

	info := &ScriptInfo{Name: entry.Name(), Main: filepath.Join(path, "init.lua")}
	if _, err := os.Stat(info.Main); err != nil {
		info.Error = errors.Wrapf(ErrNoEntryPoint, "%s", path)
	}
	return info
}
