package project

import (
	"errors"
	"os"
	"path/filepath"
	"sort"

	"github.com/example/podunit/internal/manifest"
	"github.com/go-logr/logr"
)

// ManifestCandidates lists manifest filenames in preference order.
var ManifestCandidates = []string{"docker-compose.yml", "compose.yml", "compose.yaml"}

// FindManifest returns the first candidate manifest present in dir.
func FindManifest(dir string) (string, bool) {
	for _, name := range ManifestCandidates {
		path := filepath.Join(dir, name)
		info, err := os.Stat(path)
		if err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

// Discover scans the immediate subdirectories of baseDir for compose projects.
// Directories without a manifest are skipped silently; unparseable manifests
// are logged and skipped. A missing base directory yields an empty result.
func Discover(baseDir string, log logr.Logger) map[string]*Descriptor {
	projects := map[string]*Descriptor{}
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		abs = baseDir
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Info("base directory does not exist", "baseDir", abs)
		} else {
			log.Error(err, "unable to read base directory", "baseDir", abs)
		}
		return projects
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	for _, entry := range entries {
		dir := filepath.Join(abs, entry.Name())
		if !isDir(entry, dir) {
			continue
		}
		d, err := Load(dir)
		if err != nil {
			if errors.Is(err, errNoManifest) || errors.Is(err, manifest.ErrEmpty) {
				continue
			}
			log.Error(err, "skipping project: manifest could not be parsed", "project", entry.Name())
			continue
		}
		projects[d.Name] = d
	}
	return projects
}

var errNoManifest = errors.New("no compose manifest found")

// Load builds a Descriptor for a single project directory.
func Load(dir string) (*Descriptor, error) {
	path, ok := FindManifest(dir)
	if !ok {
		return nil, errNoManifest
	}
	m, err := manifest.Load(path)
	if err != nil {
		return nil, err
	}
	return &Descriptor{
		Name:         filepath.Base(dir),
		Directory:    dir,
		ManifestPath: path,
		Config:       ParseConfig(m.Data),
		Services:     m.Services,
		Manifest:     m.Data,
	}, nil
}

func isDir(entry os.DirEntry, path string) bool {
	if entry.IsDir() {
		return true
	}
	if entry.Type()&os.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
