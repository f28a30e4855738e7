package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ProjectDirName is the per-project state directory
const ProjectDirName = ".radscribe"

// findProjectDirFromCwd finds the .radscribe directory from the current working directory
func findProjectDirFromCwd() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return findProjectDir(cwd)
}

// findProjectDir finds the .radscribe directory starting from the given path
func findProjectDir(startDir string) (string, error) {
	// Make path absolute if it isn't already
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	// Walk up the directory tree
	dir := absDir
	for {
		candidate := filepath.Join(dir, ProjectDirName)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("not a radscribe project (no %s directory found)", ProjectDirName)
}

// readText returns the joined arguments, or stdin when there are none or
// the only argument is "-".
func readText(args []string, stdin io.Reader) (string, error) {
	if len(args) == 0 || (len(args) == 1 && args[0] == "-") {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return strings.TrimRight(string(data), "\r\n"), nil
	}
	return strings.Join(args, " "), nil
}
