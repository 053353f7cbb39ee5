// Package paths shortens absolute file system paths into stable, root-relative
// display paths for one test session.
package paths

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// StatFunc reports file information for a path. os.Stat is used by default.
type StatFunc func(name string) (fs.FileInfo, error)

// Normalizer remembers the roots discovered during a session and rewrites
// paths below them as "<root name>/<rest>".
//
// Roots are matched in the order they were recorded and the first match wins.
// A Normalizer belongs to a single session and is not safe for concurrent use.
type Normalizer struct {
	stat  StatFunc
	roots []root
}

type root struct {
	prefix string
	name   string
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithStat overrides how paths are inspected on disk.
func WithStat(stat StatFunc) Option {
	return func(n *Normalizer) {
		n.stat = stat
	}
}

// New creates an empty Normalizer.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{stat: os.Stat}
	for _, opt := range opts {
		opt(n)
	}

	return n
}

// Normalize returns the display path for p.
//
// Paths below a known root are rewritten against that root. Otherwise a
// directory becomes a new root, and a file registers its parent directory as
// a new root, unless diagnostic is set: warnings and errors may point at files
// outside the collected tree, so they never register roots and are returned
// unchanged when no known root covers them.
func (n *Normalizer) Normalize(p string, diagnostic bool) string {
	if p == "" {
		return p
	}

	p = path.Clean(filepath.ToSlash(p))

	if short, ok := n.lookup(p); ok {
		return short
	}

	info, err := n.stat(filepath.FromSlash(p))
	if err != nil {
		return p
	}

	if info.IsDir() {
		name := path.Base(p)
		n.roots = append(n.roots, root{prefix: p, name: name})

		return name
	}

	if info.Mode().IsRegular() && !diagnostic {
		parent := path.Dir(p)
		name := path.Base(parent)
		n.roots = append(n.roots, root{prefix: parent, name: name})

		return name + "/" + path.Base(p)
	}

	return p
}

func (n *Normalizer) lookup(p string) (string, bool) {
	for _, r := range n.roots {
		if p == r.prefix {
			return r.name, true
		}

		rest, ok := strings.CutPrefix(p, r.prefix)
		if ok && strings.HasPrefix(rest, "/") {
			return r.name + rest, true
		}
	}

	return "", false
}

// Roots returns the recorded root prefixes in registration order.
func (n *Normalizer) Roots() []string {
	prefixes := make([]string, len(n.roots))
	for i, r := range n.roots {
		prefixes[i] = r.prefix
	}

	return prefixes
}
