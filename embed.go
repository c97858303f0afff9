// Package projtree provides embedded seed workspaces and an overlay
// filesystem that checks local disk first, falling back to embedded.
package projtree

import (
	"embed"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
)

//go:embed seed/*.json
var rawSeeds embed.FS

// Seeds is the embedded seed filesystem with the "seed/" prefix stripped.
var Seeds = mustSub(rawSeeds, "seed")

// DefaultSeed is the seed used by init when none is named.
const DefaultSeed = "starter"

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}

// SeedNames lists the seeds available in fsys, without the .json suffix.
func SeedNames(fsys fs.FS) ([]string, error) {
	matches, err := fs.Glob(fsys, "*.json")
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, strings.TrimSuffix(m, ".json"))
	}
	sort.Strings(names)
	return names, nil
}

// ReadSeed returns the workspace document for the named seed.
func ReadSeed(fsys fs.FS, name string) ([]byte, error) {
	return fs.ReadFile(fsys, name+".json")
}

// OverlayFS returns a filesystem that checks localDir on disk first,
// falling back to the embedded filesystem for files not found locally.
func OverlayFS(localDir string, embedded fs.FS) fs.FS {
	return overlayFS{localDir: localDir, embedded: embedded}
}

type overlayFS struct {
	localDir string
	embedded fs.FS
}

func (o overlayFS) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) || strings.Contains(name, `\`) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	f, err := os.Open(path.Join(o.localDir, name))
	if err == nil {
		return f, nil
	}
	return o.embedded.Open(name)
}
