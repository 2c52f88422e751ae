package caldav

import (
	"errors"
	"net/http"
)

// BasicAuthTransport implements http.RoundTripper and adds Basic Auth
// credentials to every outgoing request.
type BasicAuthTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
}

// NewBasicAuthTransport creates a BasicAuthTransport. If transport is nil,
// http.DefaultTransport is used.
func NewBasicAuthTransport(username, password string, transport http.RoundTripper) *BasicAuthTransport {
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &BasicAuthTransport{
		Username:  username,
		Password:  password,
		Transport: transport,
	}
}

// RoundTrip implements the http.RoundTripper interface
func (t *BasicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Username == "" {
		return nil, errors.New("basic auth username cannot be empty")
	}
	if t.Password == "" {
		return nil, errors.New("basic auth password cannot be empty")
	}
	req.SetBasicAuth(t.Username, t.Password)
	return t.Transport.RoundTrip(req)
}
