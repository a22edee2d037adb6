package core

import (
	"os"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// FindLocalFiles expands glob patterns (including ** segments) into the
// regular files they match. Directories and symlinks are skipped.
func FindLocalFiles(patterns []string) ([]string, error) {
	var files []string
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, err
		}
		for _, name := range matches {
			info, err := os.Lstat(name)
			if err != nil {
				continue
			}
			if info.Mode().IsRegular() {
				files = append(files, name)
			}
		}
	}
	return files, nil
}

// ExpandCommand substitutes the {input} and {output} placeholders in every
// argument of a command template.
func ExpandCommand(template []string, input, output string) []string {
	r := strings.NewReplacer("{input}", input, "{output}", output)
	command := make([]string, len(template))
	for i, arg := range template {
		command[i] = r.Replace(arg)
	}
	return command
}
