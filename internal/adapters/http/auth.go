package httpadapter

import (
	"net/http"
	"strings"

	"github.com/Shobhit-2204/PingUp/internal/domain"
	"github.com/Shobhit-2204/PingUp/pkg/errors"
)

// Authenticator resolves the verified user identity of a request. The
// real identity provider lives outside this service; adapters only need
// something that yields a user id.
type Authenticator interface {
	UserID(r *http.Request) (domain.UserID, error)
}

// HeaderAuthenticator trusts an upstream gateway to have verified the
// caller and to forward the id in a header: X-User-ID, or a bearer token
// carrying the id directly.
type HeaderAuthenticator struct{}

func (HeaderAuthenticator) UserID(r *http.Request) (domain.UserID, error) {
	if id := r.Header.Get("X-User-ID"); id != "" {
		return domain.UserID(id), nil
	}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		if id := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer ")); id != "" {
			return domain.UserID(id), nil
		}
	}
	return "", errors.Unauthorized("missing or invalid credentials")
}
