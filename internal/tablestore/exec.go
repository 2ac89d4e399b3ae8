package tablestore

import (
	"fmt"

	"github.com/and161185/sorryboard/internal/errs"
	"github.com/and161185/sorryboard/internal/model"
)

// ExecutionContext is the capability that decides which credentials a Client may attach.
// Only TrustedServer can ever yield the service role key.
type ExecutionContext struct {
	trusted    bool
	serviceKey string
}

// Browser returns a capability for untrusted callers: anon role only.
func Browser() ExecutionContext { return ExecutionContext{} }

// TrustedServer returns a capability that may use the service role key.
func TrustedServer(serviceKey string) ExecutionContext {
	return ExecutionContext{trusted: true, serviceKey: serviceKey}
}

// Trusted reports whether the capability allows the service role.
func (e ExecutionContext) Trusted() bool { return e.trusted }

func (e ExecutionContext) key(role model.Role, anonKey string) (string, error) {
	switch role {
	case model.RoleAnon, "":
		return anonKey, nil
	case model.RoleService:
		if !e.trusted {
			return "", errs.ErrElevatedForbidden
		}
		if e.serviceKey == "" {
			return "", fmt.Errorf("%w: service role key is not configured", errs.ErrConfig)
		}
		return e.serviceKey, nil
	default:
		return "", fmt.Errorf("%w: unknown role %q", errs.ErrConfig, role)
	}
}
