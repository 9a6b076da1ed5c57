// Package server provides the request/response socket server for hearthd.
package server

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"

	herr "github.com/hearthdesk/hearthd/errors"
)

// MaxEnvelopeSize bounds a single request or response body.
const MaxEnvelopeSize = 64 * 1024

// Request is the wire envelope sent by clients. Namespace selects a
// command router, Cmd the operation, Args its parameters.
type Request struct {
	Namespace string                 `json:"ns"`
	Cmd       string                 `json:"cmd"`
	Args      map[string]interface{} `json:"args,omitempty"`
}

// Response is the wire envelope returned for every request. Exactly one of
// Data and Error is meaningful, selected by OK. Error is a single string
// of the form "CODE: message" so that clients without the errors package
// can still read it as plain text.
type Response struct {
	OK    bool        `json:"ok"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

// OKResponse wraps data in a success envelope.
func OKResponse(data interface{}) Response {
	return Response{OK: true, Data: data}
}

// ErrResponse wraps any error in a failure envelope, keeping the
// structured code as the string's prefix.
func ErrResponse(err error) Response {
	var he *herr.HearthError
	if stderrors.As(err, &he) {
		return Response{OK: false, Error: fmt.Sprintf("%s: %s", he.Code, he.Message)}
	}
	return Response{OK: false, Error: fmt.Sprintf("%s: %s", herr.ErrCodeInternal, err.Error())}
}

// ReadRequest decodes one request envelope from r, enforcing the size cap.
func ReadRequest(r io.Reader) (Request, error) {
	var req Request
	raw, err := io.ReadAll(io.LimitReader(r, MaxEnvelopeSize+1))
	if err != nil {
		return req, herr.Wrap(err, herr.ErrCodeRequestInvalid, "failed to read request")
	}
	if len(raw) > MaxEnvelopeSize {
		return req, herr.New(herr.ErrCodeRequestTooLarge, "request exceeds maximum envelope size")
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		return req, herr.Wrap(err, herr.ErrCodeRequestInvalid, "malformed request envelope")
	}
	if req.Namespace == "" || req.Cmd == "" {
		return req, herr.New(herr.ErrCodeRequestInvalid, "request requires ns and cmd")
	}
	return req, nil
}

// WriteResponse encodes one response envelope to w.
func WriteResponse(w io.Writer, resp Response) error {
	return json.NewEncoder(w).Encode(resp)
}
