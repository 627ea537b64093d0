package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Archive moves the workbook into archiveDir and prunes the oldest archived
// workbooks beyond keep. The just-archived file is never pruned. keep <= 0
// disables pruning.
func Archive(path, archiveDir string, keep int) error {
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return fmt.Errorf("failed to create archive dir: %w", err)
	}

	name := filepath.Base(path)
	dest := filepath.Join(archiveDir, name)
	if err := moveFile(path, dest); err != nil {
		return fmt.Errorf("failed to archive workbook: %w", err)
	}

	if keep <= 0 {
		return nil
	}

	entries, err := os.ReadDir(archiveDir)
	if err != nil {
		return fmt.Errorf("failed to list archive dir: %w", err)
	}
	var workbooks []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".xlsx") {
			workbooks = append(workbooks, e.Name())
		}
	}
	if len(workbooks) <= keep {
		return nil
	}

	// Names embed the run date (prefix_YYYYMMDD.xlsx), so lexical order is
	// chronological order.
	sort.Strings(workbooks)
	for _, old := range workbooks[:len(workbooks)-keep] {
		if old == name {
			continue
		}
		if err := os.Remove(filepath.Join(archiveDir, old)); err != nil {
			return fmt.Errorf("failed to prune archived workbook %s: %w", old, err)
		}
	}
	return nil
}

// moveFile renames, falling back to copy+remove when the archive dir is on
// another filesystem.
func moveFile(src, dest string) error {
	if err := os.Rename(src, dest); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
