package rbac

import (
	"fmt"

	"github.com/propertyhub/propertyhub/internal/platform/httpx"
)

var (
	// ErrUnauthenticated means no verified identity is attached to the request.
	ErrUnauthenticated = fmt.Errorf("%w: authentication required", httpx.ErrUnauthorized)
	// ErrForbidden means the identity's role lacks the capability.
	ErrForbidden = fmt.Errorf("%w: insufficient role", httpx.ErrForbidden)
)
