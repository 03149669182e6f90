// Package authorizer defines request authorization for the HTTP surface.
package authorizer

import "net/http"

// Provider authorizes an incoming request. A nil error admits the request;
// any configured provider admitting it is sufficient.
type Provider interface {
	Authorize(r *http.Request) error
}
