// Package transport issues JSON requests over HTTP and folds the answer into a
// single logical Reply.
//
// Servers speaking the streamable HTTP flavour of MCP may answer a POST either
// with a plain JSON document or with a short server-sent event stream. The
// stream can carry notification frames before the frame holding the actual
// JSON-RPC response, so the client keeps the last data payload that carries a
// response id and falls back to the final payload otherwise. The stream is
// split after the body has been read in full, so data lines have no length cap
// beyond the response itself.
//
// Unsuccessful HTTP statuses are returned as *Error so that callers can decide
// retryability from the status code.
package transport
