package extract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackzampolin/charter/internal/pages"
)

// ErrAllBatchesFailed is returned when no window produced a result.
var ErrAllBatchesFailed = errors.New("all batches failed")

// AllBatchesFailedError lists the windows of a run in which every window
// failed. It matches ErrAllBatchesFailed with errors.Is.
type AllBatchesFailedError struct {
	Ranges []pages.PageRange
	Errors []string
}

func (e *AllBatchesFailedError) Error() string {
	spans := make([]string, len(e.Ranges))
	for i, r := range e.Ranges {
		spans[i] = r.String()
	}
	msg := fmt.Sprintf("%s: pages %s", ErrAllBatchesFailed, strings.Join(spans, ", "))
	if len(e.Errors) > 0 {
		msg += ": " + e.Errors[len(e.Errors)-1]
	}
	return msg
}

func (e *AllBatchesFailedError) Is(target error) bool {
	return target == ErrAllBatchesFailed
}
