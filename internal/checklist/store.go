package checklist

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/clearfreight/customs-audit/internal/model"
)

// conventionalDir is the deployment path checked when no explicit directory
// is configured.
const conventionalDir = "/app/checklists"

// Store resolves, caches, and atomically replaces region checklists. The
// cache is the process's only shared mutable state: loads coalesce behind
// the lock and Replace is mutually exclusive with them.
type Store struct {
	dir string

	mu    sync.RWMutex
	cache map[model.Region]*Checklist
}

// NewStore builds a store. Resolution order: the explicit directory from
// configuration, the conventional deployment path if it exists, then a
// checklists directory next to the executable. The winning path is logged
// once.
func NewStore(explicitDir string) *Store {
	dir := resolveDir(explicitDir)
	zap.L().Info("checklist store initialized", zap.String("dir", dir))
	return &Store{
		dir:   dir,
		cache: make(map[model.Region]*Checklist),
	}
}

func resolveDir(explicitDir string) string {
	if explicitDir != "" {
		return explicitDir
	}
	if info, err := os.Stat(conventionalDir); err == nil && info.IsDir() {
		return conventionalDir
	}
	exe, err := os.Executable()
	if err != nil {
		return "checklists"
	}
	return filepath.Join(filepath.Dir(exe), "checklists")
}

// Path returns the checklist file path for a region.
func (s *Store) Path(region model.Region) string {
	return filepath.Join(s.dir, strings.ToLower(string(region))+"_checklist.json")
}

// Load returns the checklist for a region, reading and validating the file
// on first use and serving the cache afterwards.
func (s *Store) Load(region model.Region) (*Checklist, error) {
	s.mu.RLock()
	cached, ok := s.cache[region]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cached, ok := s.cache[region]; ok {
		return cached, nil
	}

	path := s.Path(region)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "checklist: read %s", path)
	}

	c, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if c.Region != region {
		return nil, eris.Errorf("checklist: file %s declares region %q", path, c.Region)
	}

	s.cache[region] = c
	zap.L().Info("loaded checklist",
		zap.String("region", string(region)),
		zap.String("version", c.Version),
		zap.Int("header_checks", len(c.HeaderChecks())),
		zap.Int("valuation_checks", len(c.ValuationChecks())),
	)
	return c, nil
}

// Replace validates the new content, verifies its region matches, rewrites
// the file atomically (temp file + rename), and evicts the cache so the
// next Load re-reads from disk.
func (s *Store) Replace(region model.Region, content []byte) error {
	c, err := Parse(content)
	if err != nil {
		return err
	}
	if c.Region != region {
		return eris.Errorf("checklist: region mismatch: content declares %q, request targets %q", c.Region, region)
	}

	pretty, err := prettyJSON(content)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.Path(region)
	tmp, err := os.CreateTemp(s.dir, "."+strings.ToLower(string(region))+"_checklist_*.json")
	if err != nil {
		return eris.Wrap(err, "checklist: create temp file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(pretty); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return eris.Wrap(err, "checklist: write temp file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return eris.Wrap(err, "checklist: close temp file")
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return eris.Wrap(err, "checklist: rename into place")
	}

	delete(s.cache, region)
	zap.L().Info("replaced checklist",
		zap.String("region", string(region)),
		zap.String("version", c.Version),
	)
	return nil
}

// Raw returns the current checklist file content for a region, bypassing
// the parsed cache. Used by the HTTP layer to serve the editor.
func (s *Store) Raw(region model.Region) ([]byte, error) {
	data, err := os.ReadFile(s.Path(region))
	if err != nil {
		return nil, eris.Wrapf(err, "checklist: read %s", s.Path(region))
	}
	return data, nil
}

func prettyJSON(content []byte) ([]byte, error) {
	var v any
	if err := json.Unmarshal(content, &v); err != nil {
		return nil, eris.Wrap(err, "checklist: reparse for formatting")
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, eris.Wrap(err, "checklist: format")
	}
	return append(out, '\n'), nil
}
