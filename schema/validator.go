package schema

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Validators for the embedded documents. Each compiles on first use.
var (
	Create = NewValidator("create.v1.json", CreateV1Schema, "request")
	Config = NewValidator("config.v1.json", ConfigV1Schema, "config")
)

// Validator checks decoded JSON documents against one embedded schema.
type Validator struct {
	name string
	raw  []byte
	root string

	once     sync.Once
	compiled *jsonschema.Schema
	err      error
}

// NewValidator returns a validator for raw. root names the document in error
// locations when the failing instance is the document itself.
func NewValidator(name string, raw []byte, root string) *Validator {
	return &Validator{name: name, raw: raw, root: root}
}

func (v *Validator) compile() (*jsonschema.Schema, error) {
	v.once.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource(v.name, bytes.NewReader(v.raw)); err != nil {
			v.err = fmt.Errorf("add schema resource %s: %w", v.name, err)
			return
		}
		v.compiled, v.err = compiler.Compile(v.name)
		if v.err != nil {
			v.err = fmt.Errorf("compile schema %s: %w", v.name, v.err)
		}
	})
	return v.compiled, v.err
}

// Validate checks doc, which must hold values as produced by encoding/json
// (use json.Decoder.UseNumber for numbers). Violations are returned as a
// *ValidationError.
func (v *Validator) Validate(doc any) error {
	compiled, err := v.compile()
	if err != nil {
		return err
	}
	err = compiled.Validate(doc)
	if err == nil {
		return nil
	}
	var vErr *jsonschema.ValidationError
	if errors.As(err, &vErr) {
		return &ValidationError{Problems: v.problems(vErr)}
	}
	return err
}

// ValidationError lists every schema violation found in a document, one
// line each, indented by nesting.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Problems, "\n")
}

func (v *Validator) problems(err *jsonschema.ValidationError) []string {
	var out []string
	var walk func(err *jsonschema.ValidationError, depth int)
	walk = func(err *jsonschema.ValidationError, depth int) {
		// Wrapper nodes only say which subschema failed; their causes carry
		// the detail.
		if len(err.Causes) == 0 || !strings.HasPrefix(err.Message, "doesn't validate with") {
			out = append(out, fmt.Sprintf("%s- %s: %s", strings.Repeat("  ", depth), v.location(err.InstanceLocation), err.Message))
			depth++
		}
		for _, cause := range err.Causes {
			walk(cause, depth)
		}
	}
	walk(err, 0)
	return out
}

// location renders a JSON pointer as a dotted path with [n] indexes.
func (v *Validator) location(ptr string) string {
	var b strings.Builder
	for _, segment := range strings.Split(strings.TrimPrefix(ptr, "/"), "/") {
		if segment == "" {
			continue
		}
		decoded := strings.ReplaceAll(strings.ReplaceAll(segment, "~1", "/"), "~0", "~")
		if _, err := strconv.Atoi(decoded); err == nil {
			fmt.Fprintf(&b, "[%s]", decoded)
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(decoded)
	}
	if b.Len() == 0 {
		return v.root
	}
	return b.String()
}
