package vmrest

import "fmt"

// AuthenticationFailure is returned when vCenter refuses to open an API
// session. Message carries the server's response text verbatim.
type AuthenticationFailure struct {
	Status  int
	Message string
}

func (e *AuthenticationFailure) Error() string {
	return fmt.Sprintf("authentication failed: status=%d, %s", e.Status, e.Message)
}

// RemoteFailure is returned when an endpoint answers with HTTP 500.
type RemoteFailure struct {
	Status int
	Body   string
}

func (e *RemoteFailure) Error() string {
	return fmt.Sprintf("Request has failed: status=%d, %s", e.Status, e.Body)
}
