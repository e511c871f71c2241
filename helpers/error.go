package helpers

import (
	"strings"

	"github.com/juju/errors"
)

// FoldErrors collapses the error list accumulated by config validation into
// one error, nil when the list holds nothing real.
func FoldErrors(errs []error) error {
	ss := make([]string, 0, len(errs))
	for _, e := range errs {
		if e != nil {
			ss = append(ss, e.Error())
		}
	}
	if len(ss) == 0 {
		return nil
	}
	return errors.New(strings.Join(ss, "\n"))
}
