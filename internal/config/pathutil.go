package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// ProjectRoot locates the repository root by walking upward from this file
// until it finds a directory containing go.mod or .git. Returns the working
// directory on failure.
func ProjectRoot() (string, error) {
	if _, file, _, ok := runtime.Caller(0); ok {
		dir := filepath.Dir(file)
		for i := 0; i < 8; i++ {
			if exists(filepath.Join(dir, "go.mod")) || exists(filepath.Join(dir, ".git")) {
				return dir, nil
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}
	wd, err := os.Getwd()
	if err != nil {
		return ".", err
	}
	return wd, nil
}

// MustProjectRoot is like ProjectRoot but swallows the error.
func MustProjectRoot() string {
	root, _ := ProjectRoot()
	return root
}

func exists(p string) bool { _, err := os.Stat(p); return err == nil }
