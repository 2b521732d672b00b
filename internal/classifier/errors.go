package classifier

import "errors"

var (
	// ErrClassifierUnavailable covers timeouts, transport failures and open circuits.
	ErrClassifierUnavailable = errors.New("assisted classifier unavailable")
	// ErrMalformedClassifierOutput is returned when the model reply is not a valid verdict.
	ErrMalformedClassifierOutput = errors.New("malformed classifier output")
)
