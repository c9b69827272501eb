package erp

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// RemoteError is returned for every failed call: transport failures (network, non-2xx,
// undecodable body) set Transport, in-band ERP error envelopes carry Code/Message/Data.
type RemoteError struct {
	Model      string
	Method     string
	Code       int
	Message    string
	Data       json.RawMessage
	HTTPStatus int
	Transport  bool
	cause      error
}

func (e *RemoteError) Error() string {
	if e == nil {
		return ""
	}
	target := strings.Trim(e.Model+"."+e.Method, ".")
	if e.Transport {
		if e.cause != nil {
			return fmt.Sprintf("erp %s transport failure: %v", target, e.cause)
		}
		return fmt.Sprintf("erp %s transport failure: http %d", target, e.HTTPStatus)
	}
	return fmt.Sprintf("erp %s error %d: %s", target, e.Code, e.Raw())
}

func (e *RemoteError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// RemoteCode reports the in-band error code, or the HTTP status for transport failures.
func (e *RemoteError) RemoteCode() int {
	if e == nil {
		return 0
	}
	if e.Transport {
		return e.HTTPStatus
	}
	return e.Code
}

// Raw returns the most specific message the ERP produced.
func (e *RemoteError) Raw() string {
	if e == nil {
		return ""
	}
	if len(e.Data) > 0 {
		var data struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(e.Data, &data); err == nil && strings.TrimSpace(data.Message) != "" {
			return data.Message
		}
	}
	if e.Message != "" {
		return e.Message
	}
	if e.cause != nil {
		return e.cause.Error()
	}
	return ""
}

// AsRemote extracts a *RemoteError from an error chain.
func AsRemote(err error) (*RemoteError, bool) {
	var remote *RemoteError
	if errors.As(err, &remote) {
		return remote, true
	}
	return nil, false
}

// RawMessage is a convenience that returns the remote message for err or err.Error().
func RawMessage(err error) string {
	if err == nil {
		return ""
	}
	if remote, ok := AsRemote(err); ok {
		return remote.Raw()
	}
	return err.Error()
}

// NewInBandError builds the error the ERP would report in its error envelope.
func NewInBandError(code int, message, detail string) *RemoteError {
	var data json.RawMessage
	if detail != "" {
		data, _ = json.Marshal(map[string]string{"message": detail})
	}
	return &RemoteError{Code: code, Message: message, Data: data}
}

func newTransportError(status int, cause error) *RemoteError {
	return &RemoteError{HTTPStatus: status, Transport: true, cause: cause}
}
