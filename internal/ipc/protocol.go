package ipc

import (
	"encoding/json"
	"fmt"
)

// Commands understood by the daemon
const (
	CmdHistoryList   = "history.list"
	CmdHistoryGet    = "history.get"
	CmdHistoryAppend = "history.append"
	CmdHistoryDelete = "history.delete"
	CmdHistoryClear  = "history.clear"
	CmdHistoryCopy   = "history.copy"
	CmdHistoryWatch  = "history.watch"
	CmdHistoryStats  = "history.stats"
	CmdClipGet       = "clip.get"
	CmdStatus        = "status"
)

// Response statuses
const (
	StatusOK    = "ok"
	StatusError = "error"
	StatusEvent = "event"
)

// Error codes carried by error responses
const (
	CodeNotFound    = "not_found"
	CodeInvalid     = "invalid"
	CodePersistence = "persistence"
	CodeUserAction  = "user_action"
	CodeUnavailable = "unavailable"
	CodeUnknown     = "unknown_command"
	CodeInternal    = "internal"
)

// Request represents a command sent from the CLI to the daemon.
type Request struct {
	Command string                 `json:"command"`          // e.g. "history.list"
	Args    map[string]interface{} `json:"args,omitempty"`   // Command-specific arguments
	Stream  bool                   `json:"stream,omitempty"` // keep the connection open for events
}

// Response represents a reply from the daemon to the CLI.
type Response struct {
	Status  string          `json:"status"`            // "ok", "error" or "event"
	Message string          `json:"message,omitempty"` // Human-readable message or error
	Code    string          `json:"code,omitempty"`    // Machine-readable error code
	Data    json.RawMessage `json:"data,omitempty"`    // Command-specific payload
}

// RemoteError is an error response returned by the daemon
type RemoteError struct {
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

// OK builds a success response carrying data
func OK(data interface{}) *Response {
	return withData(StatusOK, data)
}

// Event builds a stream event carrying data
func Event(data interface{}) *Response {
	return withData(StatusEvent, data)
}

func withData(status string, data interface{}) *Response {
	resp := &Response{Status: status}
	if data == nil {
		return resp
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Errorf(CodeInternal, "failed to encode response: %v", err)
	}
	resp.Data = raw
	return resp
}

// Errorf builds an error response
func Errorf(code, format string, args ...interface{}) *Response {
	return &Response{Status: StatusError, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Err returns the response as an error, or nil on success
func (r *Response) Err() error {
	if r.Status != StatusError {
		return nil
	}
	return &RemoteError{Code: r.Code, Message: r.Message}
}

// Decode unmarshals the response data into v. A nil v only checks for errors.
func (r *Response) Decode(v interface{}) error {
	if err := r.Err(); err != nil {
		return err
	}
	if len(r.Data) == 0 || v == nil {
		return nil
	}
	return json.Unmarshal(r.Data, v)
}

// String returns a string argument or ""
func (r *Request) String(key string) string {
	if v, ok := r.Args[key].(string); ok {
		return v
	}
	return ""
}

// Int returns an integer argument or def. JSON numbers arrive as float64.
func (r *Request) Int(key string, def int) int {
	switch v := r.Args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return def
	}
}

// Strings returns a string list argument
func (r *Request) Strings(key string) []string {
	switch v := r.Args[key].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
