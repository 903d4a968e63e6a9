// Package mcpstdio adapts MCP tools/call requests arriving on stdin as
// line-delimited JSON-RPC into gate execution requests, and writes the
// gate's decision back as a JSON-RPC response on stdout. This is the
// optional agent-facing transport alongside the direct CLI invocation
// path (spec §6 "External Interfaces").
package mcpstdio

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"

	"github.com/sentinelgate/execgate/internal/adapter/inbound/preval"
)

// ErrNotARequest is returned when a decoded message is a response rather
// than a request (this adapter only speaks tools/call requests).
var ErrNotARequest = errors.New("mcpstdio: message is not a request")

// ErrUnsupportedMethod is returned for any method other than tools/call.
var ErrUnsupportedMethod = errors.New("mcpstdio: only tools/call is supported")

// toolCallArguments is the expected shape of a tools/call request's
// "arguments" object for this gate's single registered tool.
type toolCallArguments struct {
	Command   string   `json:"command"`
	Args      []string `json:"args"`
	SessionID string   `json:"session_id"`
	TurnID    string   `json:"turn_id"`
	AgentID   string   `json:"agent_id"`
}

type toolCallParams struct {
	Name      string            `json:"name"`
	Arguments toolCallArguments `json:"arguments"`
}

// ReadRequest decodes the next line-delimited JSON-RPC message from r and,
// if it is a tools/call request, converts it into a preval.Request plus
// the original request's id (needed to correlate the eventual response).
// Any other method is rejected with ErrUnsupportedMethod.
func ReadRequest(r *bufio.Reader) (preval.Request, jsonrpc.ID, error) {
	line, err := r.ReadBytes('\n')
	if err != nil && len(line) == 0 {
		return preval.Request{}, jsonrpc.ID{}, err
	}

	msg, err := jsonrpc.DecodeMessage(line)
	if err != nil {
		return preval.Request{}, jsonrpc.ID{}, fmt.Errorf("mcpstdio: decode message: %w", err)
	}

	req, ok := msg.(*jsonrpc.Request)
	if !ok {
		return preval.Request{}, jsonrpc.ID{}, ErrNotARequest
	}
	if req.Method != "tools/call" {
		return preval.Request{}, req.ID, ErrUnsupportedMethod
	}

	var params toolCallParams
	if req.Params != nil {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return preval.Request{}, req.ID, fmt.Errorf("mcpstdio: decode tools/call params: %w", err)
		}
	}

	return preval.Request{
		Command:   params.Arguments.Command,
		Args:      params.Arguments.Args,
		SessionID: params.Arguments.SessionID,
		TurnID:    params.Arguments.TurnID,
		AgentID:   params.Arguments.AgentID,
	}, req.ID, nil
}

// WriteResult encodes a successful tool result (the gate's decision) as a
// JSON-RPC response with the matching id and writes it to w.
func WriteResult(w io.Writer, id jsonrpc.ID, result interface{}) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("mcpstdio: marshal result: %w", err)
	}
	resp := &jsonrpc.Response{ID: id, Result: payload}
	return encodeAndWrite(w, resp)
}

// WriteError encodes a JSON-RPC error response for a rejected request.
func WriteError(w io.Writer, id jsonrpc.ID, code int64, message string) error {
	resp := &jsonrpc.Response{ID: id, Error: &jsonrpc.Error{Code: code, Message: message}}
	return encodeAndWrite(w, resp)
}

func encodeAndWrite(w io.Writer, resp *jsonrpc.Response) error {
	encoded, err := jsonrpc.EncodeMessage(resp)
	if err != nil {
		return fmt.Errorf("mcpstdio: encode response: %w", err)
	}
	if _, err := w.Write(append(encoded, '\n')); err != nil {
		return fmt.Errorf("mcpstdio: write response: %w", err)
	}
	return nil
}
