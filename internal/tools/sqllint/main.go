// Command sqllint checks that every inline SQL constant starts with a
// "--sql <uuid>" marker and that no two queries share a marker.
package main

import (
	"flag"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	statementPattern  = regexp.MustCompile(`(?im)^\s*(select|insert|update|delete|with|create)\b`)
	uuidMarkerPattern = regexp.MustCompile(`^--sql ([0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12})$`)
)

type violation struct {
	file    string
	name    string
	line    int
	message string
}

type query struct {
	file   string
	name   string
	line   int
	marker string
}

type linter struct {
	violations []violation
	seen       map[string]query
}

func newLinter() *linter {
	return &linter{seen: map[string]query{}}
}

func main() {
	flag.Parse()
	targets := flag.Args()
	if len(targets) == 0 {
		targets = []string{"."}
	}

	l := newLinter()
	for _, target := range targets {
		if err := l.walk(target); err != nil {
			fmt.Fprintf(os.Stderr, "sqllint: %v\n", err)
			os.Exit(1)
		}
	}

	if len(l.violations) > 0 {
		sort.Slice(l.violations, func(i, j int) bool {
			if l.violations[i].file != l.violations[j].file {
				return l.violations[i].file < l.violations[j].file
			}
			return l.violations[i].line < l.violations[j].line
		})
		fmt.Fprintln(os.Stderr, "sqllint: SQL audit marker violations")
		for _, v := range l.violations {
			fmt.Fprintf(os.Stderr, "  %s:%d %s (%s)\n", v.file, v.line, v.message, v.name)
		}
		os.Exit(1)
	}
}

func (l *linter) walk(target string) error {
	info, err := os.Stat(target)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		if filepath.Ext(target) != ".go" {
			return nil
		}
		return l.lintFile(target)
	}
	return filepath.WalkDir(target, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != target && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || name == "vendor") {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".go" || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		return l.lintFile(path)
	})
}

func (l *linter) lintFile(path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return l.lintSource(path, src)
}

func (l *linter) lintSource(path string, src []byte) error {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, src, parser.ParseComments)
	if err != nil {
		return err
	}
	ast.Inspect(file, func(n ast.Node) bool {
		vs, ok := n.(*ast.ValueSpec)
		if !ok {
			return true
		}
		for i, value := range vs.Values {
			bl, ok := value.(*ast.BasicLit)
			if !ok || bl.Kind != token.STRING {
				continue
			}
			raw, err := unquote(bl.Value)
			if err != nil || !statementPattern.MatchString(raw) {
				continue
			}
			name := specName(vs.Names, i)
			line := fset.Position(bl.Pos()).Line
			m := uuidMarkerPattern.FindStringSubmatch(firstLine(raw))
			if m == nil {
				l.violations = append(l.violations, violation{file: path, line: line, name: name, message: "missing or invalid --sql <uuid> marker"})
				continue
			}
			if prev, dup := l.seen[m[1]]; dup {
				l.violations = append(l.violations, violation{
					file:    path,
					line:    line,
					name:    name,
					message: fmt.Sprintf("marker %s already used by %s at %s:%d", m[1], prev.name, prev.file, prev.line),
				})
				continue
			}
			l.seen[m[1]] = query{file: path, name: name, line: line, marker: m[1]}
		}
		return true
	})
	return nil
}

func firstLine(s string) string {
	s = strings.TrimLeft(s, "\n\r \t")
	if idx := strings.IndexAny(s, "\n\r"); idx >= 0 {
		return strings.TrimSpace(s[:idx])
	}
	return strings.TrimSpace(s)
}

func unquote(v string) (string, error) {
	if len(v) == 0 {
		return v, nil
	}
	if v[0] == '`' {
		return v[1 : len(v)-1], nil
	}
	return strconv.Unquote(v)
}

func specName(idents []*ast.Ident, i int) string {
	if i < len(idents) && idents[i] != nil {
		return idents[i].Name
	}
	return "_"
}
