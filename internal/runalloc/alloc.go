// Package runalloc assigns race-safe, date-scoped run identifiers and
// creates the run directory skeleton.
package runalloc

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// DefaultMaxAttempts bounds the exclusive-create retry loop.
const DefaultMaxAttempts = 64

// ErrExhausted is returned when no unique run directory could be created
// within the attempt bound.
var ErrExhausted = eris.New("runalloc: attempts exhausted without a unique run directory")

var runSuffixPattern = regexp.MustCompile(`_run_(\d+)$`)

// Allocator hands out run identifiers of the form YYYY-MM-DD_run_NNN under
// a base directory.
type Allocator struct {
	base        string
	maxAttempts int
}

// New creates an allocator rooted at base. maxAttempts <= 0 selects
// DefaultMaxAttempts.
func New(base string, maxAttempts int) *Allocator {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Allocator{base: base, maxAttempts: maxAttempts}
}

// Allocate creates the next run directory for the given day and returns its
// identifier and its path under the base directory. Directory creation is exclusive: a collision
// with a concurrent allocator bumps the sequence number and retries, bounded
// by the configured attempt count.
func (a *Allocator) Allocate(now time.Time) (runID, runPath string, err error) {
	if err := os.MkdirAll(a.base, 0o755); err != nil {
		return "", "", eris.Wrap(err, "runalloc: create output base")
	}

	day := now.Format("2006-01-02")
	n := a.nextSequence(day)

	for attempt := 0; attempt < a.maxAttempts; attempt++ {
		candidate := fmt.Sprintf("%s_run_%03d", day, n)
		path := filepath.Join(a.base, candidate)

		mkErr := os.Mkdir(path, 0o755)
		if mkErr == nil {
			zap.L().Info("allocated run directory",
				zap.String("run_id", candidate),
				zap.String("run_path", path),
			)
			return candidate, path, nil
		}
		if !errors.Is(mkErr, fs.ErrExist) {
			return "", "", eris.Wrap(mkErr, "runalloc: create run directory")
		}

		// Another allocator won this sequence number.
		n++
	}

	return "", "", ErrExhausted
}

// nextSequence scans existing run directories for the day and returns
// 1 + max(existing), or 1 when none exist.
func (a *Allocator) nextSequence(day string) int {
	entries, err := os.ReadDir(a.base)
	if err != nil {
		return 1
	}

	maxSeen := 0
	prefix := day + "_run_"
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if len(name) < len(prefix) || name[:len(prefix)] != prefix {
			continue
		}
		m := runSuffixPattern.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		var seq int
		if _, scanErr := fmt.Sscanf(m[1], "%d", &seq); scanErr == nil && seq > maxSeen {
			maxSeen = seq
		}
	}
	return maxSeen + 1
}
