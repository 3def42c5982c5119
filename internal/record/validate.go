package record

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema.json
var schemaJSON []byte

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func schema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("record.schema.json", bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = err
			return
		}
		compiledSchema, schemaErr = compiler.Compile("record.schema.json")
	})
	return compiledSchema, schemaErr
}

// Validate reports whether the row can be written to Notion. Rows without a
// uid fail with ErrMissingUID before schema validation.
func (r Record) Validate() error {
	if r.UID() == "" {
		return ErrMissingUID
	}
	sch, err := schema()
	if err != nil {
		return fmt.Errorf("compile record schema: %w", err)
	}

	// The validator expects values shaped like decoded JSON.
	raw, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	if err := sch.Validate(doc); err != nil {
		return fmt.Errorf("invalid record: %w", err)
	}
	return nil
}
