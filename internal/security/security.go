package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Guard confines file-backed sources to an allow-list of directories. Roots
// are canonicalized once; every source path is resolved through symlinks and
// must land inside a root with a supported extension.
type Guard struct {
	roots []string
	exts  map[string]struct{}
}

// EnvAllowedDirs names the path-list variable read by NewGuardFromEnv.
const EnvAllowedDirs = "COMMANDCENTER_ALLOWED_DIRS"

// DefaultExtensions are the tabular formats the sources can read.
var DefaultExtensions = []string{".csv", ".xlsx", ".xlsm"}

var (
	// ErrNotAllowed indicates the path is outside the allow-list roots.
	ErrNotAllowed = errors.New("security: path not allowed")
	// ErrUnsupportedExtension indicates the file extension is not readable.
	ErrUnsupportedExtension = errors.New("security: unsupported file extension")
	// ErrNotFound indicates the file does not exist or is not accessible.
	ErrNotFound = errors.New("security: file not found")
	// ErrNoRoots is returned by Validate when nothing is allowed.
	ErrNoRoots = errors.New("security: no allowed directories configured")
)

// NewGuard builds a guard from directories and extensions (leading dot,
// case-insensitive). Nil extensions mean DefaultExtensions.
func NewGuard(dirs []string, extensions []string) (*Guard, error) {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	exts := make(map[string]struct{}, len(extensions))
	for _, e := range extensions {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" || !strings.HasPrefix(e, ".") {
			return nil, fmt.Errorf("security: invalid extension: %q", e)
		}
		exts[e] = struct{}{}
	}

	roots := make([]string, 0, len(dirs))
	for _, d := range dirs {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		real, err := canonical(d)
		if err != nil {
			return nil, fmt.Errorf("security: allow-list entry %q: %w", d, err)
		}
		info, err := os.Stat(real)
		if err != nil {
			return nil, fmt.Errorf("security: stat %q: %w", real, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("security: allow-list entry is not a directory: %q", real)
		}
		roots = append(roots, real)
	}
	return &Guard{roots: roots, exts: exts}, nil
}

// NewGuardFromEnv reads EnvAllowedDirs as an os.PathListSeparator list. An
// unset variable denies every path.
func NewGuardFromEnv() (*Guard, error) {
	var dirs []string
	if list := os.Getenv(EnvAllowedDirs); list != "" {
		dirs = filepath.SplitList(list)
	}
	return NewGuard(dirs, nil)
}

// Roots returns the canonical allow-list roots.
func (g *Guard) Roots() []string {
	out := make([]string, len(g.roots))
	copy(out, g.roots)
	return out
}

// Validate fails when no root is configured, so file sources can be rejected
// at startup rather than at first fetch.
func (g *Guard) Validate() error {
	if len(g.roots) == 0 {
		return ErrNoRoots
	}
	return nil
}

// Resolve returns the canonical path of an existing file inside a root.
func (g *Guard) Resolve(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", ErrNotAllowed
	}
	if _, ok := g.exts[strings.ToLower(filepath.Ext(path))]; !ok {
		return "", ErrUnsupportedExtension
	}
	real, err := canonical(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("security: resolve: %w", err)
	}
	info, err := os.Stat(real)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("security: stat: %w", err)
	}
	if info.IsDir() {
		return "", ErrNotAllowed
	}
	for _, root := range g.roots {
		if within(root, real) {
			return real, nil
		}
	}
	return "", ErrNotAllowed
}

func canonical(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", err
	}
	return filepath.Clean(real), nil
}

func within(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil || rel == "." || rel == "" {
		return false
	}
	return !strings.HasPrefix(filepath.Clean(rel), "..")
}
