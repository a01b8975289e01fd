package shader

import (
	"bufio"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"strings"
)

var includeLine = regexp.MustCompile(`^\s*#include\s+"([^"]+)"\s*$`)

// Load reads name from fsys and expands #include lines. Paths are relative
// to the including file. Each file is expanded at most once; a file that
// includes itself, directly or not, is an error.
func Load(fsys fs.FS, name string) (string, error) {
	r := &resolver{fsys: fsys, done: make(map[string]bool)}
	var out strings.Builder
	if err := r.expand(&out, path.Clean(name), nil); err != nil {
		return "", err
	}
	return out.String(), nil
}

type resolver struct {
	fsys fs.FS
	done map[string]bool
}

func (r *resolver) expand(out *strings.Builder, name string, stack []string) error {
	for _, s := range stack {
		if s == name {
			return fmt.Errorf("include cycle: %s -> %s", strings.Join(stack, " -> "), name)
		}
	}
	if r.done[name] {
		return nil
	}

	data, err := fs.ReadFile(r.fsys, name)
	if err != nil {
		if len(stack) > 0 {
			return fmt.Errorf("%s: include %q: %w", stack[len(stack)-1], name, err)
		}
		return fmt.Errorf("read %q: %w", name, err)
	}

	stack = append(stack, name)
	sc := bufio.NewScanner(strings.NewReader(string(data)))
	for sc.Scan() {
		line := sc.Text()
		if m := includeLine.FindStringSubmatch(line); m != nil {
			dep := path.Join(path.Dir(name), m[1])
			if err := r.expand(out, dep, stack); err != nil {
				return err
			}
			continue
		}
		out.WriteString(line)
		out.WriteByte('\n')
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("scan %q: %w", name, err)
	}
	r.done[name] = true
	return nil
}
