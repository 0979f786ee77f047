package mapfile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Entry is a board file discovered in a directory.
type Entry struct {
	Name string // file name without extension
	Path string
}

// Scan lists the board files in dir. Hidden files and subdirectories are skipped.
func Scan(dir string) ([]Entry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read board directory: %w", err)
	}

	var boards []Entry
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		boards = append(boards, Entry{
			Name: strings.TrimSuffix(name, filepath.Ext(name)),
			Path: filepath.Join(dir, name),
		})
	}

	sort.Slice(boards, func(i, j int) bool { return boards[i].Name < boards[j].Name })
	return boards, nil
}
