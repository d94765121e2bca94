package browser

import (
	"context"
	"errors"
	"fmt"

	"github.com/playwright-community/playwright-go"
)

// ErrNotInitialized is returned by Acquire before Initialize succeeded.
var ErrNotInitialized = errors.New("session manager not initialized")

// AcquisitionError reports that a browser resource could not be acquired.
// Resources acquired before the failure have already been released.
type AcquisitionError struct {
	// Resource is the resource that failed: browser, context or page
	Resource string
	Err      error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("failed to acquire %s: %v", e.Resource, e.Err)
}

func (e *AcquisitionError) Unwrap() error {
	return e.Err
}

// IsTimeout reports whether err is a Playwright timeout or an expired
// context deadline.
func IsTimeout(err error) bool {
	return errors.Is(err, playwright.ErrTimeout) || errors.Is(err, context.DeadlineExceeded)
}
