package report

import (
	"path"
	"strconv"
	"strings"
)

var nameReplacer = strings.NewReplacer(`\`, "_", "/", "_", ".", "_", ":", "_")

// OutputName is the HTML file name for a debug-info filename.
func OutputName(filename string) string {
	return nameReplacer.Replace(filename) + ".html"
}

// uniqueNames assigns output names, suffixing collisions ("a_rs" and "a.rs"
// both map to a_rs.html).
func uniqueNames(filenames []string) map[string]string {
	out := make(map[string]string, len(filenames))
	used := make(map[string]int, len(filenames))
	for _, f := range filenames {
		name := OutputName(f)
		if n := used[name]; n > 0 {
			used[name] = n + 1
			name = strings.TrimSuffix(name, ".html") + "-" + strconv.Itoa(n+1) + ".html"
		} else {
			used[name] = 1
		}
		out[f] = name
	}
	return out
}

// Filter selects files by glob patterns. A pattern matches the whole
// filename or any trailing run of its path elements, so "src/*.rs" matches
// "/home/u/app/src/main.rs".
type Filter struct {
	Include []string
	Exclude []string
}

// Keep reports whether filename passes the filter. With no includes every
// file is included.
func (f Filter) Keep(filename string) bool {
	name := toSlash(filename)
	if len(f.Include) > 0 && !matchAny(f.Include, name) {
		return false
	}
	return !matchAny(f.Exclude, name)
}

func matchAny(patterns []string, name string) bool {
	for _, pat := range patterns {
		if matchSuffix(toSlash(pat), name) {
			return true
		}
	}
	return false
}

// toSlash also converts separators of Windows builds on other hosts.
func toSlash(s string) string {
	return strings.ReplaceAll(s, `\`, "/")
}

func matchSuffix(pat, name string) bool {
	for {
		if ok, _ := path.Match(pat, name); ok {
			return true
		}
		i := strings.IndexByte(name, '/')
		if i < 0 {
			return false
		}
		name = name[i+1:]
	}
}
