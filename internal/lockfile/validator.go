package lockfile

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed schema/lockfile.schema.json
var schemaBytes []byte

var (
	compiledSchema *jsonschema.Schema
	compileOnce    sync.Once
	compileErr     error
	printer        = message.NewPrinter(language.English)
)

// getSchema compiles the embedded JSON schema once and returns it.
func getSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaBytes))
		if err != nil {
			compileErr = fmt.Errorf("unmarshaling schema JSON: %w", err)
			return
		}

		c := jsonschema.NewCompiler()
		if err := c.AddResource("lockfile.schema.json", doc); err != nil {
			compileErr = fmt.Errorf("adding schema resource: %w", err)
			return
		}
		compiledSchema, compileErr = c.Compile("lockfile.schema.json")
		if compileErr != nil {
			compileErr = fmt.Errorf("compiling schema: %w", compileErr)
		}
	})
	return compiledSchema, compileErr
}

// ValidateDocument checks raw lockfile bytes against the embedded schema.
// Any violation is a hard read error wrapping ErrMalformed: reconciliation
// never proceeds on an ambiguous lockfile.
func ValidateDocument(data []byte) error {
	schema, err := getSchema()
	if err != nil {
		return fmt.Errorf("loading lockfile schema: %w", err)
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if err := schema.Validate(inst); err != nil {
		if verr, ok := err.(*jsonschema.ValidationError); ok {
			return fmt.Errorf("%w: %s", ErrMalformed, formatValidationError(verr))
		}
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

// formatValidationError flattens the first few leaf causes into one line.
func formatValidationError(verr *jsonschema.ValidationError) string {
	var issues []string
	collectLeaves(verr, &issues)
	if len(issues) > 3 {
		issues = issues[:3]
	}
	out := ""
	for i, issue := range issues {
		if i > 0 {
			out += "; "
		}
		out += issue
	}
	return out
}

func collectLeaves(verr *jsonschema.ValidationError, out *[]string) {
	if len(verr.Causes) == 0 {
		path := "/" + strings.Join(verr.InstanceLocation, "/")
		msg := ""
		if verr.ErrorKind != nil {
			msg = verr.ErrorKind.LocalizedString(printer)
		}
		*out = append(*out, fmt.Sprintf("%s: %s", path, msg))
		return
	}
	for _, cause := range verr.Causes {
		collectLeaves(cause, out)
	}
}
