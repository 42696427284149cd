package ports

import (
	"context"

	"github.com/bnema/hrepl/internal/domain"
)

// ReplTransport owns the interpreter subprocess pipe. Execute sends one
// command line and returns the output framed up to the prompt sentinel;
// framing is the implementation's concern. At most one Execute call is in
// flight at a time; the Session lock enforces this from the caller side.
type ReplTransport interface {
	Execute(ctx context.Context, command string) (*domain.ReplOutput, error)
	Available() bool
	Starting() bool
	Start(ctx context.Context) error
	Exit(force bool) error
}
