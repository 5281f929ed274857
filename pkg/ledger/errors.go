package ledger

import "errors"

// Rejections. Every failed operation returns one of these, usually wrapped
// with a more specific reason. The wrapped message is stable and safe to
// branch on.
var (
	ErrInvalidPrice     = errors.New("invalid price")
	ErrIncorrectPayment = errors.New("incorrect payment")
	ErrNotListed        = errors.New("nft is not listed")
	ErrNotAuthorized    = errors.New("not authorized")
	ErrTransferFailed   = errors.New("transfer failed")
)

var codes = []struct {
	err  error
	code string
}{
	{ErrInvalidPrice, "InvalidPrice"},
	{ErrIncorrectPayment, "IncorrectPayment"},
	{ErrNotListed, "NotListed"},
	{ErrNotAuthorized, "NotAuthorized"},
	{ErrTransferFailed, "TransferFailed"},
}

// Code returns the taxonomy name of a rejection, or "" for errors that are
// not ledger rejections.
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return ""
}
