package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/roach88/utest/internal/suite"
)

// Error code constants for command-level failures. Suite loading errors
// carry the suite package's E01x codes.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No suite files found
	ErrCodeRunFailed   = "E004" // Suite run did not complete
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBadFilter   = "E006" // Invalid --filter pattern
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeStore       = "E008" // Run ledger error
)

// CommandError is a command-level failure with a code, reported before any
// suite is loaded.
type CommandError struct {
	Code    string
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// suiteExtensions are the file extensions suite.Load understands.
var suiteExtensions = map[string]bool{".yaml": true, ".yml": true, ".cue": true}

// FindSuiteFiles returns the suite files at path. A file is returned as is;
// a directory is walked for .yaml, .yml and .cue files, skipping golden
// and testdata-style subdirectories that start with "_" or ".".
// When filter is set, only files whose base name (without extension)
// matches the glob are kept. Results are sorted.
func FindSuiteFiles(path, filter string) ([]string, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, &CommandError{Code: ErrCodeNotFound, Message: fmt.Sprintf("path not found: %s", path)}
	}
	if err != nil {
		return nil, &CommandError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing path: %v", err)}
	}
	if filter != "" {
		if _, err := filepath.Match(filter, ""); err != nil {
			return nil, &CommandError{Code: ErrCodeBadFilter, Message: fmt.Sprintf("invalid filter pattern %q: %v", filter, err)}
		}
	}

	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if p != path && (name == "golden" || strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}

		ext := strings.ToLower(filepath.Ext(p))
		if !suiteExtensions[ext] {
			return nil
		}
		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
			if ok, _ := filepath.Match(filter, name); !ok {
				return nil
			}
		}
		files = append(files, p)
		return nil
	})
	if err != nil {
		return nil, &CommandError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(files) == 0 {
		return nil, &CommandError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no suite files found in %s", path)}
	}

	sort.Strings(files)
	return files, nil
}

// goldenFilePath returns the golden trace file of a suite file:
// <dir>/golden/<name>.golden.
func goldenFilePath(suiteFile string) string {
	dir := filepath.Dir(suiteFile)
	base := filepath.Base(suiteFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "golden", name+".golden")
}

// errorCode extracts the code of a CommandError or suite.LoadError.
func errorCode(err error) string {
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Code
	}
	var loadErr *suite.LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code
	}
	return ErrCodeGeneric
}

// errorLine returns the source line of a CUE-positioned load error, or 0.
func errorLine(err error) int {
	var loadErr *suite.LoadError
	if errors.As(err, &loadErr) && loadErr.Pos.IsValid() {
		return loadErr.Pos.Line()
	}
	return 0
}
