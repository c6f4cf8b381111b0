package suite

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaSource string

// Error codes reported by LoadError.
const (
	ErrCodeRead        = "E010" // file could not be read
	ErrCodeExtension   = "E011" // unsupported file extension
	ErrCodeYAML        = "E012" // YAML parse failed
	ErrCodeCUE         = "E013" // CUE compile failed
	ErrCodeSchema      = "E014" // schema violation
	ErrCodeInvalid     = "E015" // semantic validation failed
	ErrCodeSchemaBuild = "E016" // embedded schema does not compile
)

// LoadError represents an error that occurred while loading a suite.
type LoadError struct {
	Code    string
	Path    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsLoadError reports whether err is a LoadError with the given code.
func IsLoadError(err error, code string) bool {
	var le *LoadError
	return errors.As(err, &le) && le.Code == code
}

// Load reads a suite from a .yaml, .yml or .cue file, checks it against
// the suite schema and validates it.
func Load(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeRead, Path: path, Message: err.Error()}
	}

	var s *Suite
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		s, err = ParseYAML(data, path)
	case ".cue":
		s, err = ParseCUE(data, path)
	default:
		return nil, &LoadError{Code: ErrCodeExtension, Path: path, Message: fmt.Sprintf("unsupported suite file extension %q", filepath.Ext(path))}
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ParseYAML decodes a suite from YAML. Unknown fields are rejected.
func ParseYAML(data []byte, filename string) (*Suite, error) {
	var s Suite
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &LoadError{Code: ErrCodeYAML, Path: filename, Message: "empty suite file"}
		}
		return nil, &LoadError{Code: ErrCodeYAML, Path: filename, Message: fmt.Sprintf("failed to parse YAML: %v", err)}
	}

	ctx := cuecontext.New()
	def, err := suiteDefinition(ctx)
	if err != nil {
		return nil, err
	}
	v := def.Unify(ctx.Encode(&s))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, &LoadError{Code: ErrCodeSchema, Path: filename, Message: fmt.Sprintf("schema violation: %v", err)}
	}

	if err := Validate(&s); err != nil {
		return nil, &LoadError{Code: ErrCodeInvalid, Path: filename, Message: err.Error()}
	}
	return &s, nil
}

// ParseCUE compiles a suite written in CUE, unifies it with the suite
// schema and decodes it.
func ParseCUE(data []byte, filename string) (*Suite, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeCUE, Path: filename, Message: fmt.Sprintf("compiling CUE: %v", err), Pos: firstPos(err)}
	}

	def, err := suiteDefinition(ctx)
	if err != nil {
		return nil, err
	}
	u := def.Unify(v)
	if err := u.Validate(cue.Concrete(true)); err != nil {
		return nil, &LoadError{Code: ErrCodeSchema, Path: filename, Message: fmt.Sprintf("schema violation: %v", err), Pos: firstPos(err)}
	}

	var s Suite
	if err := u.Decode(&s); err != nil {
		return nil, &LoadError{Code: ErrCodeCUE, Path: filename, Message: fmt.Sprintf("decoding suite: %v", err), Pos: firstPos(err)}
	}

	if err := Validate(&s); err != nil {
		return nil, &LoadError{Code: ErrCodeInvalid, Path: filename, Message: err.Error()}
	}
	return &s, nil
}

func suiteDefinition(ctx *cue.Context) (cue.Value, error) {
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return cue.Value{}, &LoadError{Code: ErrCodeSchemaBuild, Message: err.Error()}
	}
	return schema.LookupPath(cue.ParsePath("#Suite")), nil
}

func firstPos(err error) token.Pos {
	for _, p := range cueerrors.Positions(err) {
		if p.IsValid() {
			return p
		}
	}
	return token.NoPos
}
