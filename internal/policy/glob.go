package policy

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// GlobSet matches a path against a set of glob patterns.
//
// Patterns are compiled without separators, so `*` and `?` cross `/`.
// Besides the usual `?`, `[abc]`, `[a-z]`, `[!abc]`, `{a,b}` and `\x`,
// `**` as a whole component also matches zero components:
//   - `**/x` matches `x`
//   - `a/**/z` matches `a/z`
//   - `a/**` matches `a` itself, so `**/.git/**` excludes `/home/u/.git`
//     as well as everything beneath it.
type GlobSet struct {
	patterns []string
	matchers []glob.Glob
}

// CompileGlobs compiles patterns into a GlobSet. Empty input yields a set
// that matches nothing.
func CompileGlobs(patterns []string) (*GlobSet, error) {
	set := &GlobSet{patterns: append([]string(nil), patterns...)}

	for _, p := range patterns {
		for _, variant := range expandDoubleStar(p) {
			g, err := glob.Compile(variant)
			if err != nil {
				return nil, fmt.Errorf("invalid exclude glob `%s`: %w", p, err)
			}
			set.matchers = append(set.matchers, g)
		}
	}
	return set, nil
}

// Match reports whether path matches any pattern. The path is normalized
// to forward slashes first.
func (g *GlobSet) Match(path string) bool {
	if g == nil {
		return false
	}
	path = filepath.ToSlash(path)
	for _, m := range g.matchers {
		if m.Match(path) {
			return true
		}
	}
	return false
}

// Patterns returns the source patterns in compile order.
func (g *GlobSet) Patterns() []string {
	if g == nil {
		return nil
	}
	return append([]string(nil), g.patterns...)
}

// expandDoubleStar returns p plus every variant with a `**` component
// collapsed to zero components.
func expandDoubleStar(p string) []string {
	switch {
	case p == "**":
		return []string{p}
	case strings.HasPrefix(p, "**/"):
		return cross(expandDoubleStar(p[3:]), func(rest string) []string {
			return []string{"**/" + rest, rest}
		})
	}

	if i := strings.Index(p, "/**/"); i >= 0 {
		head := p[:i]
		return cross(expandDoubleStar(p[i+3:]), func(rest string) []string {
			return []string{head + "/**" + rest, head + rest}
		})
	}

	if strings.HasSuffix(p, "/**") && len(p) > 3 {
		return []string{p, strings.TrimSuffix(p, "/**")}
	}
	return []string{p}
}

func cross(tails []string, f func(string) []string) []string {
	out := make([]string, 0, 2*len(tails))
	for _, t := range tails {
		out = append(out, f(t)...)
	}
	return out
}
