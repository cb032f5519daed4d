package channels

import "net/http"

// Channel is a chat surface that delivers user messages to the agent through
// HTTP routes on the gateway.
type Channel interface {
	Name() string
	RegisterRoutes(mux *http.ServeMux)
}
