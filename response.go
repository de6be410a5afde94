package flotilla

// Response is implemented by HTTP response types that control their status
// code and headers.
type Response interface {
	// Code returns the HTTP response code.
	Code() int

	// Headers returns a map of HTTP headers specific to the response.
	Headers() map[string]string

	// Empty indicates if the response has content.
	Empty() bool
}
