package settings

import "strings"

// detectIndent returns the indentation of the first indented key line in a
// TOML document, or two spaces when nothing is indented.
func detectIndent(data []byte) string {
	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimLeft(line, " \t")
		if trimmed == "" || trimmed[0] == '#' || trimmed[0] == '[' {
			continue
		}
		if len(trimmed) < len(line) {
			return line[:len(line)-len(trimmed)]
		}
	}
	return "  "
}
