package lifecycle

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMandatoryMissing = errors.New("mandatory devices missing at startup")
	ErrMandatoryLost    = errors.New("mandatory devices lost at runtime")
)

// MandatoryError lists the mandatory devices that are offline. It matches
// either ErrMandatoryMissing or ErrMandatoryLost.
type MandatoryError struct {
	Reason  error
	Devices []string
}

func (e *MandatoryError) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, strings.Join(e.Devices, ", "))
}

func (e *MandatoryError) Unwrap() error { return e.Reason }
