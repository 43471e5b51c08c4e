package scrape

import (
	"errors"
	"fmt"
)

// StructureError means the markup anchor a parser is built around is missing
// entirely. That is a maintenance alarm (the site changed), not row noise,
// so it aborts the whole parse instead of returning an empty list.
type StructureError struct {
	Page     string
	Selector string
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("%s: expected markup %q not found", e.Page, e.Selector)
}

func IsStructureError(err error) bool {
	var se *StructureError
	return errors.As(err, &se)
}
