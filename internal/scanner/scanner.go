package scanner

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/elgui/mcp-ragdocs/pkg/types"
)

// defaultSkipDirs are directories never worth scanning: version control,
// dependency trees, and build output.
var defaultSkipDirs = map[string]bool{
	".git":         true,
	".svn":         true,
	".hg":          true,
	"node_modules": true,
	"vendor":       true,
	".venv":        true,
	"venv":         true,
	"__pycache__":  true,
	".idea":        true,
	".vscode":      true,
	"dist":         true,
	"build":        true,
	"target":       true,
}

// ScannedFile is one regular file observed on disk with its identity and
// fingerprint inputs.
type ScannedFile struct {
	FileID      string
	RelPath     string
	AbsPath     string
	ContentHash string
	ModTime     time.Time
}

// Result is the outcome of one scan pass.
type Result struct {
	Files   []ScannedFile
	Skipped int // files skipped due to per-file I/O errors
}

// Scanner walks repository trees.
type Scanner struct {
	log *zap.Logger
}

// New creates a Scanner.
func New(log *zap.Logger) *Scanner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scanner{log: log}
}

// Scan walks the repository path and returns every candidate file with its
// content hash and mtime. Per-file read errors are counted and skipped;
// the walk continues for the rest of the tree.
func (s *Scanner) Scan(ctx context.Context, cfg *types.RepositoryConfig) (*Result, error) {
	root := filepath.Clean(cfg.Path)
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: stat %s: %v", types.ErrInvalidInput, root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", types.ErrInvalidInput, root)
	}

	repoID := types.RepositoryID(cfg.Name)
	result := &Result{}

	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			// Unreadable entries are skipped, not fatal.
			s.log.Warn("skipping unreadable entry", zap.String("path", path), zap.Error(err))
			result.Skipped++
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if info.IsDir() {
			name := info.Name()
			if defaultSkipDirs[name] || (strings.HasPrefix(name, ".") && path != root) {
				return filepath.SkipDir
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if !info.Mode().IsRegular() {
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)

		if !s.includeFile(relPath, cfg) {
			return nil
		}

		hash, empty, err := hashFile(path)
		if err != nil {
			s.log.Warn("skipping unreadable file", zap.String("path", path), zap.Error(err))
			result.Skipped++
			return nil
		}
		// Empty content is "content removed", not a zero-chunk index.
		if empty {
			return nil
		}

		result.Files = append(result.Files, ScannedFile{
			FileID:      types.FileID(repoID, relPath),
			RelPath:     relPath,
			AbsPath:     path,
			ContentHash: hash,
			ModTime:     info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}

	return result, nil
}

// includeFile applies exclude patterns, include patterns, and the
// per-extension include flag, in that order. Files with an extension the
// config does not know are skipped.
func (s *Scanner) includeFile(relPath string, cfg *types.RepositoryConfig) bool {
	for _, pattern := range cfg.Exclude {
		if matchPattern(pattern, relPath) {
			return false
		}
	}

	if len(cfg.Include) > 0 {
		included := false
		for _, pattern := range cfg.Include {
			if matchPattern(pattern, relPath) {
				included = true
				break
			}
		}
		if !included {
			return false
		}
	}

	ext := strings.ToLower(filepath.Ext(relPath))
	extCfg, ok := cfg.Extensions[ext]
	if !ok {
		return false
	}
	return extCfg.Include
}

// matchPattern matches a glob against the relative path, its basename, and
// the "dir/**" directory-prefix form.
func matchPattern(pattern, relPath string) bool {
	if matched, _ := filepath.Match(pattern, relPath); matched {
		return true
	}
	if matched, _ := filepath.Match(pattern, filepath.Base(relPath)); matched {
		return true
	}
	if strings.Contains(pattern, "**") {
		prefix := strings.TrimSuffix(pattern, "/**")
		if prefix != pattern && strings.HasPrefix(relPath, prefix+"/") {
			return true
		}
		// "**/*.py" style: match the trailing component anywhere.
		if rest, ok := strings.CutPrefix(pattern, "**/"); ok {
			if matched, _ := filepath.Match(rest, filepath.Base(relPath)); matched {
				return true
			}
		}
	}
	return false
}

// hashFile computes the hex SHA-256 of a file's content and reports
// whether the trimmed content is empty.
func hashFile(path string) (hash string, empty bool, err error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", false, err
	}
	if len(strings.TrimSpace(string(content))) == 0 {
		return "", true, nil
	}
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:]), false, nil
}
