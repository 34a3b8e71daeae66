package godeck

import (
	"errors"

	"github.com/brunobiangulo/godeck/extract"
)

var (
	// ErrDocumentUnreadable is returned when an input file cannot be opened
	// or is not a valid OOXML archive. Fatal for that file only; a batch
	// continues with its remaining inputs. It aliases the extraction
	// pipeline's sentinel so errors.Is matches at either layer.
	ErrDocumentUnreadable = extract.ErrUnreadable

	// ErrUnsupportedFormat is returned when an explicit input path is not a
	// .pptx presentation.
	ErrUnsupportedFormat = errors.New("godeck: unsupported file format")

	// ErrNoInputs is returned when input discovery finds nothing to convert.
	ErrNoInputs = errors.New("godeck: no input files found")

	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("godeck: invalid configuration")

	// ErrCatalogUnavailable is returned when the history catalog cannot be
	// opened or queried.
	ErrCatalogUnavailable = errors.New("godeck: catalog unavailable")
)
