// Package files reads and searches the tree of one registered project.
//
// Callers resolve the project root first; everything here stays inside it.
// Walks skip VCS and dependency directories and anything the project's
// .gitignore files exclude.
package files

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	atlaserrors "atlas/internal/errors"
)

const (
	// MaxFileSize caps reads and the files grep will scan.
	MaxFileSize = 1 << 20
	// DefaultMaxResults is the grep match limit when none is given.
	DefaultMaxResults = 50
	// MaxGlobResults caps the number of paths a glob returns.
	MaxGlobResults = 1000
)

var skipDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	"node_modules": true,
	"__pycache__":  true,
	".venv":        true,
	"vendor":       true,
}

// ErrBinary is returned for files that are not UTF-8 text.
var ErrBinary = errors.New("binary file")

// Content is a file read from a project.
type Content struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// Match is one grep hit. Line is 1-based.
type Match struct {
	File    string `json:"file"`
	Line    int    `json:"line"`
	Content string `json:"content"`
}

// GrepResult holds matches in walk order.
type GrepResult struct {
	Matches   []Match `json:"matches"`
	Truncated bool    `json:"truncated"`
}

// GlobResult lists matching files relative to the project root.
type GlobResult struct {
	Files     []string `json:"files"`
	Count     int      `json:"count"`
	Truncated bool     `json:"truncated,omitempty"`
}

// Read returns the text of the file at path, reported under rel.
func Read(path, rel string) (*Content, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, atlaserrors.NewFileNotFoundError(rel)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", rel, err)
	}
	if info.IsDir() {
		return nil, atlaserrors.NewValidationError("path", fmt.Sprintf("%s is a directory", rel))
	}
	if info.Size() > MaxFileSize {
		return nil, atlaserrors.NewValidationError("path",
			fmt.Sprintf("%s is too large (%d bytes, limit %d)", rel, info.Size(), MaxFileSize))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", rel, err)
	}
	if isBinary(data) {
		return nil, atlaserrors.New(atlaserrors.Validation,
			fmt.Sprintf("path: %s is not UTF-8 text", rel), ErrBinary)
	}
	return &Content{Path: filepath.ToSlash(filepath.Clean(rel)), Content: string(data)}, nil
}

// GrepQuery selects lines to return from a project tree.
type GrepQuery struct {
	// Pattern is an RE2 regular expression.
	Pattern string
	// Glob restricts the files searched, matched against the slash-separated
	// path relative to the root.
	Glob       string
	MaxResults int
}

// Grep searches every text file under root for q.Pattern.
func Grep(ctx context.Context, root string, q GrepQuery) (*GrepResult, error) {
	re, err := regexp.Compile(q.Pattern)
	if err != nil {
		return nil, atlaserrors.New(atlaserrors.Validation, "pattern: invalid regex", err)
	}
	var filter *regexp.Regexp
	if q.Glob != "" {
		if filter, err = CompileGlob(q.Glob); err != nil {
			return nil, err
		}
	}
	limit := q.MaxResults
	if limit <= 0 {
		limit = DefaultMaxResults
	}

	res := &GrepResult{Matches: []Match{}}
	err = walk(ctx, root, func(path, rel string, d fs.DirEntry) error {
		if !d.Type().IsRegular() {
			return nil
		}
		if filter != nil && !filter.MatchString(rel) {
			return nil
		}
		return grepFile(path, rel, re, limit, res)
	})
	if errors.Is(err, errLimit) {
		err = nil
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

var errLimit = errors.New("result limit reached")

func grepFile(path, rel string, re *regexp.Regexp, limit int, res *GrepResult) error {
	info, err := os.Stat(path)
	if err != nil || info.Size() > MaxFileSize {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil || isBinary(data) {
		return nil
	}

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), MaxFileSize+1)
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSuffix(sc.Text(), "\r")
		if !re.MatchString(line) {
			continue
		}
		if len(res.Matches) == limit {
			res.Truncated = true
			return errLimit
		}
		res.Matches = append(res.Matches, Match{File: rel, Line: n, Content: line})
	}
	return nil
}

// Glob lists files under root matching pattern. "*" and "?" stay within one
// path segment and "**/" spans any number of directories, including none.
func Glob(ctx context.Context, root, pattern string) (*GlobResult, error) {
	re, err := CompileGlob(pattern)
	if err != nil {
		return nil, err
	}
	res := &GlobResult{Files: []string{}}
	err = walk(ctx, root, func(_, rel string, d fs.DirEntry) error {
		if d.IsDir() || !re.MatchString(rel) {
			return nil
		}
		if len(res.Files) == MaxGlobResults {
			res.Truncated = true
			return errLimit
		}
		res.Files = append(res.Files, rel)
		return nil
	})
	if errors.Is(err, errLimit) {
		err = nil
	}
	if err != nil {
		return nil, err
	}
	res.Count = len(res.Files)
	return res, nil
}

// CompileGlob turns a glob into an anchored regular expression over
// slash-separated relative paths.
func CompileGlob(pattern string) (*regexp.Regexp, error) {
	pattern = strings.TrimPrefix(filepath.ToSlash(pattern), "./")
	if pattern == "" || strings.HasPrefix(pattern, "/") || hasDotDot(pattern) {
		return nil, atlaserrors.NewValidationError("glob", fmt.Sprintf("%q must be a relative pattern inside the project", pattern))
	}
	re, err := regexp.Compile("^" + globToRegex(pattern) + "$")
	if err != nil {
		return nil, atlaserrors.New(atlaserrors.Validation, "glob: invalid pattern", err)
	}
	return re, nil
}

func hasDotDot(pattern string) bool {
	for _, seg := range strings.Split(pattern, "/") {
		if seg == ".." {
			return true
		}
	}
	return false
}

func globToRegex(glob string) string {
	var b strings.Builder
	for i := 0; i < len(glob); i++ {
		c := glob[i]
		switch c {
		case '*':
			if i+1 < len(glob) && glob[i+1] == '*' {
				if i+2 < len(glob) && glob[i+2] == '/' {
					b.WriteString("(?:.*/)?")
					i += 2
					continue
				}
				b.WriteString(".*")
				i++
				continue
			}
			b.WriteString("[^/]*")
		case '?':
			b.WriteString("[^/]")
		case '.', '+', '^', '$', '(', ')', '[', ']', '{', '}', '|', '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// walk visits every entry under root not excluded by skipDirs or the
// project's ignore files. rel is slash-separated.
func walk(ctx context.Context, root string, fn func(path, rel string, d fs.DirEntry) error) error {
	// Unreadable ignore files leave the walk unfiltered.
	patterns, _ := gitignore.ReadPatterns(osfs.New(root), nil)
	ignored := gitignore.NewMatcher(patterns)

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if path == root {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if ignored.Match(strings.Split(rel, "/"), d.IsDir()) || (d.IsDir() && skipDirs[d.Name()]) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		return fn(path, rel, d)
	})
}

func isBinary(data []byte) bool {
	return bytes.IndexByte(data, 0) >= 0 || !utf8.Valid(data)
}
