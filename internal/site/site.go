// Package site assembles the publishable out/ tree: static assets
// copied from site/, the merged resources document, and a content
// manifest for cache-busting deploys.
package site

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/evcatalyst/nys-district-dashboard/internal/config"
)

const manifestName = "manifest.json"

// Builder copies static assets and writes the deployment manifest.
type Builder struct {
	paths  config.Paths
	roster []config.District
	logger *slog.Logger
}

func NewBuilder(paths config.Paths, roster []config.District, logger *slog.Logger) *Builder {
	return &Builder{paths: paths, roster: roster, logger: logger}
}

// Run copies site/ into out/, merges resources, and writes the
// manifest. An absent site/ directory is fine; the data and spec trees
// alone still make a deployable artifact.
func (b *Builder) Run() error {
	if err := os.MkdirAll(b.paths.OutDataDir(), 0o755); err != nil {
		return fmt.Errorf("creating out dir: %w", err)
	}

	if err := b.copyStatic(); err != nil {
		return err
	}
	if err := b.mergeResources(); err != nil {
		return err
	}
	return b.writeManifest()
}

func (b *Builder) copyStatic() error {
	src := b.paths.SiteDir()
	if _, err := os.Stat(src); err != nil {
		if os.IsNotExist(err) {
			b.logger.Warn("no site directory, skipping static copy", "dir", src)
			return nil
		}
		return err
	}

	copied := 0
	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		dst := filepath.Join(b.paths.OutDir(), rel)
		if d.IsDir() {
			return os.MkdirAll(dst, 0o755)
		}
		if err := copyFile(path, dst); err != nil {
			return fmt.Errorf("copying %s: %w", rel, err)
		}
		copied++
		return nil
	})
	if err != nil {
		return err
	}

	b.logger.Info("static assets copied", "files", copied)
	return nil
}

// mergeResources layers per-district BOCES attribution from the roster
// onto the curated resources document. A missing resources file yields
// a document holding only the district list.
func (b *Builder) mergeResources() error {
	merged := make(map[string]any)

	data, err := os.ReadFile(b.paths.ResourcesJSON())
	if err == nil {
		if err := json.Unmarshal(data, &merged); err != nil {
			return fmt.Errorf("parsing resources: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("reading resources: %w", err)
	}

	type districtEntry struct {
		Name  string `json:"name"`
		Slug  string `json:"slug"`
		BOCES string `json:"boces,omitempty"`
	}
	districts := make([]districtEntry, 0, len(b.roster))
	for _, d := range b.roster {
		districts = append(districts, districtEntry{
			Name:  d.Name,
			Slug:  d.Slug(),
			BOCES: d.BOCES,
		})
	}
	merged["districts"] = districts

	out, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return err
	}
	dst := filepath.Join(b.paths.OutDataDir(), "resources.json")
	if err := os.WriteFile(dst, out, 0o644); err != nil {
		return fmt.Errorf("writing merged resources: %w", err)
	}
	return nil
}

// writeManifest records the SHA-256 of every file under out/ keyed by
// its out-relative path. The manifest itself is excluded so successive
// builds over identical content produce identical manifests.
func (b *Builder) writeManifest() error {
	manifest := make(map[string]string)

	err := filepath.WalkDir(b.paths.OutDir(), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(b.paths.OutDir(), path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == manifestName || strings.HasPrefix(rel, ".") {
			return nil
		}
		sum, err := hashFile(path)
		if err != nil {
			return fmt.Errorf("hashing %s: %w", rel, err)
		}
		manifest[rel] = sum
		return nil
	})
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(b.paths.OutDir(), manifestName), data, 0o644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}

	b.logger.Info("manifest written", "files", len(manifest))
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
