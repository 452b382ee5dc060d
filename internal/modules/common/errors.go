package common

import (
	"errors"
	"fmt"
)

// HandleErrors drains errCh and joins every non-nil error it received.
func HandleErrors(errCh <-chan error) error {
	var errs []error
	for err := range errCh {
		if err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%d collection errors: %w", len(errs), errors.Join(errs...))
}
