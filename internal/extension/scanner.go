package extension

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/loykin/castctl/internal/pkgmeta"
)

// DefaultMaxReads bounds concurrent per-extension manifest reads so a large
// install cannot exhaust file descriptors.
const DefaultMaxReads = 50

var vcsDirs = []string{".git", ".hg", ".svn"}

// Scanner enumerates installed extensions under an install directory and
// classifies each one. A Scanner holds no state between calls; scanning the
// same tree twice yields the same records.
type Scanner struct {
	InstallDir  string
	PackagesDir string // defaults to InstallDir/node_modules
	MaxReads    int64  // defaults to DefaultMaxReads
}

func (s *Scanner) packagesDir() string {
	if s.PackagesDir != "" {
		return s.PackagesDir
	}
	return filepath.Join(s.InstallDir, "node_modules")
}

func (s *Scanner) maxReads() int64 {
	if s.MaxReads > 0 {
		return s.MaxReads
	}
	return DefaultMaxReads
}

// Classify lists the packages directory and the application manifest
// concurrently, then partitions every extension-named entry into exactly one
// origin. Version resolution happens only for extraneous records; a single
// failed read aborts the whole scan.
func (s *Scanner) Classify(ctx context.Context) ([]Record, error) {
	var (
		entries  []os.DirEntry
		manifest *pkgmeta.Manifest
	)
	var g errgroup.Group
	g.Go(func() error {
		var err error
		entries, err = os.ReadDir(s.packagesDir())
		return err
	})
	g.Go(func() error {
		var err error
		manifest, err = pkgmeta.ReadDir(s.InstallDir)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	bundled := make(map[string]bool)
	for name := range manifest.Dependencies {
		if MatchesName(name) {
			bundled[name] = true
		}
	}

	var records []Record
	for _, e := range entries {
		name := e.Name()
		if !MatchesName(name) {
			continue
		}
		switch {
		case bundled[name]:
			records = append(records, Record{Name: name, Origin: Bundled})
		case e.Type()&os.ModeSymlink != 0:
			records = append(records, Record{Name: name, Origin: Symlinked})
		case s.underVersionControl(name):
			records = append(records, Record{Name: name, Origin: SourceControlled})
		default:
			records = append(records, Record{Name: name, Origin: Extraneous})
		}
	}

	if err := s.resolveVersions(ctx, records); err != nil {
		return nil, err
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Name < records[j].Name })
	return records, nil
}

// Extraneous returns the upgrade candidates as a name-to-version map.
// Iteration order is unspecified.
func (s *Scanner) Extraneous(ctx context.Context) (map[string]string, error) {
	records, err := s.Classify(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string)
	for _, r := range records {
		if r.Origin == Extraneous {
			out[r.Name] = r.InstalledVersion
		}
	}
	return out, nil
}

func (s *Scanner) underVersionControl(name string) bool {
	for _, vcs := range vcsDirs {
		if st, err := os.Stat(filepath.Join(s.packagesDir(), name, vcs)); err == nil && st.IsDir() {
			return true
		}
	}
	return false
}

// resolveVersions fills InstalledVersion for extraneous records, reading at
// most maxReads manifests at a time. Any read failure cancels the rest and
// aborts the scan; there are no partial results.
func (s *Scanner) resolveVersions(ctx context.Context, records []Record) error {
	sem := semaphore.NewWeighted(s.maxReads())
	g, gctx := errgroup.WithContext(ctx)
	for i := range records {
		if records[i].Origin != Extraneous {
			continue
		}
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)
			m, err := pkgmeta.ReadDir(filepath.Join(s.packagesDir(), records[i].Name))
			if err != nil {
				return fmt.Errorf("resolve %s: %w", records[i].Name, err)
			}
			records[i].InstalledVersion = m.Version
			return nil
		})
	}
	return g.Wait()
}
