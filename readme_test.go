package relevancy

import (
	_ "embed"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

//go:embed README.md
var readme string

// goSnippets returns the bodies of the ```go fenced blocks in md.
func goSnippets(md string) []string {
	var (
		snippets []string
		current  []string
		inGo     bool
	)
	for _, line := range strings.Split(md, "\n") {
		switch {
		case !inGo && strings.HasPrefix(line, "```go"):
			inGo = true
			current = current[:0]
		case inGo && strings.HasPrefix(line, "```"):
			inGo = false
			snippets = append(snippets, strings.Join(current, "\n"))
		case inGo:
			current = append(current, line)
		}
	}
	return snippets
}

func TestGoSnippets(t *testing.T) {
	md := "intro\n```go\npackage main\n```\n```bash\nls\n```\n```go\nfunc main() {}\n```\n"
	got := goSnippets(md)
	if len(got) != 2 || got[0] != "package main" || got[1] != "func main() {}" {
		t.Fatalf("unexpected snippets: %q", got)
	}
}

func TestReadmeSnippets(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping README compilation in short mode")
	}

	snippets := goSnippets(readme)
	if len(snippets) == 0 {
		t.Fatal("No Go code snippets found in README.md")
	}

	for i, code := range snippets {
		t.Run(strconv.Itoa(i+1), func(t *testing.T) {
			t.Parallel()
			if out, err := buildSnippet(t.TempDir(), code); err != nil {
				t.Errorf("README snippet %d failed to compile: %v\n%s\n%s", i+1, err, out, code)
			}
		})
	}
}

// buildSnippet compiles code as a main package inside this module.
func buildSnippet(dir, code string) (string, error) {
	if !strings.HasPrefix(strings.TrimSpace(code), "package ") {
		code = "package main\n\n" + code
	}

	src := filepath.Join(dir, "snippet.go")
	if err := os.WriteFile(src, []byte(code), 0o644); err != nil {
		return "", err
	}

	out, err := exec.Command("go", "build", "-o", filepath.Join(dir, "snippet"), src).CombinedOutput()
	return string(out), err
}
