// Package loader is the concrete, opaque-to-the-core loader: it
// produces pkg/collection.Collection values from files on disk (or any
// afero.Fs) and is consumed only by cmd/harrier. No package under
// pkg/executor, pkg/prepare, pkg/auth, pkg/resolve, pkg/runctx or
// pkg/collection ever imports this package — the core assumes whatever
// tree it's handed is well-formed.
package loader

import (
	"fmt"

	"github.com/spf13/afero"

	"github.com/blackcoderx/harrier/pkg/collection"
)

// Format names which concrete parser produced a Collection.
type Format string

const (
	FormatPostman Format = "postman"
	FormatOpenAPI Format = "openapi"
)

// SchemaError is raised by a Loader when a document fails structural
// validation or carries an unrecognized schema version: fatal at load,
// never reaching the executor.
type SchemaError struct {
	Format Format
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error (%s): %s", e.Format, e.Reason)
}

// Loader turns raw bytes into an already-typed collection.Collection
// tree, performing schema-version detection and structural validation
// before returning.
type Loader interface {
	Detect(content []byte) bool
	Load(content []byte) (*collection.Collection, error)
}

// Fs is the afero filesystem loaders read from; production code uses the
// OS filesystem, tests substitute afero.NewMemMapFs().
var Fs afero.Fs = afero.NewOsFs()

// LoadFile reads path via Fs and runs it through every registered Loader
// until one Detects it, returning SchemaError if none claims it or the
// winning one fails to parse.
func LoadFile(path string) (*collection.Collection, error) {
	data, err := afero.ReadFile(Fs, path)
	if err != nil {
		return nil, fmt.Errorf("loader: read %s: %w", path, err)
	}
	return LoadBytes(data)
}

// LoadBytes runs content through every registered Loader.
func LoadBytes(content []byte) (*collection.Collection, error) {
	for _, l := range registry {
		if l.Detect(content) {
			return l.Load(content)
		}
	}
	return nil, &SchemaError{Reason: "no registered loader recognized this document"}
}

var registry = []Loader{
	&PostmanLoader{},
	&OpenAPILoader{},
}
