// Package rpc implements the JSON-RPC 2.0 API server for the wallet engine.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/Klingon-tech/trd-wallet/config"
	"github.com/Klingon-tech/trd-wallet/internal/engine"
	klog "github.com/Klingon-tech/trd-wallet/internal/log"
	"github.com/rs/zerolog"
)

// maxBodySize is the maximum allowed request body size (1 MB).
const maxBodySize = 1 << 20

// Server is the JSON-RPC 2.0 HTTP server.
type Server struct {
	addr        string
	engine      *engine.Engine
	server      *http.Server
	logger      zerolog.Logger
	ln          net.Listener
	allowedNets []*net.IPNet // Empty = allow all.
	corsOrigins []string     // Empty = no CORS headers.
}

// New creates a new RPC server. The rpcCfg parameter controls IP filtering
// and CORS. A zero-value RPCConfig allows all IPs and disables CORS.
func New(addr string, eng *engine.Engine, rpcCfg ...config.RPCConfig) *Server {
	s := &Server{
		addr:   addr,
		engine: eng,
		logger: klog.RPC,
	}

	if len(rpcCfg) > 0 {
		s.allowedNets = parseAllowedIPs(rpcCfg[0].AllowedIPs)
		s.corsOrigins = rpcCfg[0].CORSOrigins
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.withAccessControl(s.handleRequest))

	s.server = &http.Server{
		Handler:     mux,
		ReadTimeout: 30 * time.Second,
		// Broadcasts wait on the indexer.
		WriteTimeout: time.Minute,
	}

	return s
}

// parseAllowedIPs converts string IP/CIDR entries into net.IPNet.
func parseAllowedIPs(entries []string) []*net.IPNet {
	var nets []*net.IPNet
	for _, entry := range entries {
		_, ipNet, err := net.ParseCIDR(entry)
		if err == nil {
			nets = append(nets, ipNet)
			continue
		}
		// Try as a single IP (add /32 or /128).
		ip := net.ParseIP(entry)
		if ip == nil {
			continue
		}
		bits := 32
		if ip.To4() == nil {
			bits = 128
		}
		nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
	}
	return nets
}

// Start begins listening and serving in a background goroutine.
// It returns immediately after the listener is bound.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("rpc listen: %w", err)
	}
	s.ln = ln

	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("RPC server error")
		}
	}()

	s.logger.Info().Str("addr", ln.Addr().String()).Msg("RPC server listening")
	return nil
}

// Addr returns the listener address (useful when bound to :0).
func (s *Server) Addr() string {
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.addr
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// maxBatchSize caps the number of calls in one batch request.
const maxBatchSize = 100

// withAccessControl applies the IP allow-list and CORS policy, and answers
// preflight requests.
func (s *Server) withAccessControl(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if len(s.allowedNets) > 0 {
			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			ip := net.ParseIP(host)
			if ip == nil || !s.isIPAllowed(ip) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
		}

		s.setCORSHeaders(w, r)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next(w, r)
	}
}

// handleRequest reads a single call or a batch and writes the response.
func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, nil, CodeInvalidRequest, "only POST method is allowed")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		writeError(w, nil, CodeParseError, "failed to read request body")
		return
	}
	if len(body) > maxBodySize {
		writeError(w, nil, CodeInvalidRequest, "request body too large")
		return
	}

	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '[' {
		writeJSON(w, s.call(r.Context(), body))
		return
	}

	var batch []json.RawMessage
	if err := json.Unmarshal(body, &batch); err != nil {
		writeError(w, nil, CodeParseError, "invalid JSON")
		return
	}
	switch {
	case len(batch) == 0:
		writeError(w, nil, CodeInvalidRequest, "empty batch")
		return
	case len(batch) > maxBatchSize:
		writeError(w, nil, CodeInvalidRequest, fmt.Sprintf("batch exceeds %d calls", maxBatchSize))
		return
	}

	out := make([]Response, len(batch))
	for i, raw := range batch {
		out[i] = s.call(r.Context(), raw)
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

// call decodes and executes one JSON-RPC request.
func (s *Server) call(ctx context.Context, raw []byte) Response {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return Response{JSONRPC: "2.0", Error: &Error{Code: CodeParseError, Message: "invalid JSON"}}
	}
	if req.JSONRPC != "2.0" {
		return Response{
			JSONRPC: "2.0",
			Error:   &Error{Code: CodeInvalidRequest, Message: "jsonrpc must be \"2.0\""},
			ID:      req.ID,
		}
	}

	result, rpcErr := s.dispatch(ctx, &req)
	if rpcErr != nil {
		s.logger.Debug().
			Str("method", req.Method).
			Int("code", rpcErr.Code).
			Str("error", rpcErr.Message).
			Msg("RPC request failed")
		return Response{JSONRPC: "2.0", Error: rpcErr, ID: req.ID}
	}
	return Response{JSONRPC: "2.0", Result: result, ID: req.ID}
}

// dispatch routes a request to the appropriate handler.
func (s *Server) dispatch(ctx context.Context, req *Request) (interface{}, *Error) {
	switch req.Method {
	case "wallet_getBlockHeight":
		return s.handleGetBlockHeight(req)
	case "wallet_enableTokens":
		return s.handleEnableTokens(req)
	case "wallet_getTokenStatus":
		return s.handleGetTokenStatus(req)
	case "wallet_getBalance":
		return s.handleGetBalance(req)
	case "wallet_getTransactionCount":
		return s.handleGetTransactionCount(req)
	case "wallet_getTransactions":
		return s.handleGetTransactions(req)
	case "wallet_getFreshAddress":
		return s.handleGetFreshAddress(req)
	case "wallet_addGapLimitAddresses":
		return s.handleAddGapLimitAddresses(req)
	case "wallet_isAddressUsed":
		return s.handleIsAddressUsed(req)
	case "wallet_makeSpend":
		return s.handleMakeSpend(req)
	case "wallet_signTx":
		return s.handleSignTx(req)
	case "wallet_broadcastTx":
		return s.handleBroadcastTx(ctx, req)
	case "wallet_saveTx":
		return s.handleSaveTx(req)
	case "engine_getStatus":
		return s.engine.Status(), nil
	case "engine_getCapabilities":
		return s.engine.Capabilities(), nil
	default:
		return nil, &Error{Code: CodeMethodNotFound, Message: fmt.Sprintf("method %q not found", req.Method)}
	}
}

// writeJSON writes a JSON-RPC response.
func writeJSON(w http.ResponseWriter, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// writeError writes a JSON-RPC error response.
func writeError(w http.ResponseWriter, id interface{}, code int, message string) {
	writeJSON(w, Response{
		JSONRPC: "2.0",
		Error:   &Error{Code: code, Message: message},
		ID:      id,
	})
}

// isIPAllowed checks if the IP is in the allowed networks list.
func (s *Server) isIPAllowed(ip net.IP) bool {
	for _, n := range s.allowedNets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// setCORSHeaders adds CORS headers based on the configured origins.
func (s *Server) setCORSHeaders(w http.ResponseWriter, r *http.Request) {
	if len(s.corsOrigins) == 0 {
		return
	}

	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}

	allowed := false
	for _, o := range s.corsOrigins {
		if o == "*" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			allowed = true
			break
		}
		if o == origin {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			allowed = true
			break
		}
	}

	if allowed {
		w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	}
}

// parseParams unmarshals the request params into the given target.
func parseParams(req *Request, target interface{}) *Error {
	if req.Params == nil {
		return &Error{Code: CodeInvalidParams, Message: "params required"}
	}
	return parseOptionalParams(req, target)
}

// parseOptionalParams is like parseParams but leaves target untouched when
// the request carries no params.
func parseOptionalParams(req *Request, target interface{}) *Error {
	if req.Params == nil {
		return nil
	}

	data, err := json.Marshal(req.Params)
	if err != nil {
		return &Error{Code: CodeInvalidParams, Message: "invalid params"}
	}

	if err := json.Unmarshal(data, target); err != nil {
		return &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("invalid params: %v", err)}
	}
	return nil
}
