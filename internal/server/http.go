package server

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vk/burstfn/internal/auth"
	"github.com/vk/burstfn/internal/ctxlog"
	"github.com/vk/burstfn/internal/ctyconv"
	"github.com/vk/burstfn/internal/model"
)

// RequestIDHeader carries a caller-chosen request id.
const RequestIDHeader = "X-Request-Id"

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type functionInfo struct {
	Name     string   `json:"name"`
	Exports  []string `json:"exports"`
	Digest   string   `json:"digest"`
	LoadedAt string   `json:"loaded_at"`
}

func (s *Server) functionsHandler(w http.ResponseWriter, _ *http.Request) {
	out := []functionInfo{}
	if s.opts.Catalog != nil {
		for _, rec := range s.opts.Catalog.GetAll() {
			info := functionInfo{Name: rec.Name, LoadedAt: rec.LoadedAt.UTC().Format(time.RFC3339)}
			if rec.Artifact != nil {
				info.Exports = rec.Artifact.Exports
				info.Digest = rec.Artifact.Digest
			}
			out = append(out, info)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"functions": out})
}

func (s *Server) invokeHandler(w http.ResponseWriter, r *http.Request) {
	name := strings.Trim(r.PathValue("name"), "/")
	ec := &model.ExecutionContext{
		RequestID: requestID(r),
		Method:    r.Method,
		User:      auth.IdentityFrom(r.Context()),
		Query:     flatten(r.URL.Query()),
		Headers:   headers(r),
	}
	ctx := ctxlog.With(r.Context(), "request_id", ec.RequestID)
	logger := ctxlog.FromContext(ctx)
	w.Header().Set(RequestIDHeader, ec.RequestID)

	if name == "" {
		writeError(w, http.StatusNotFound, name, "function name is required")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.opts.RequestLimit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, name, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, name, err.Error())
		return
	}
	payload, err := ctyconv.FromJSON(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, name, err.Error())
		return
	}
	ec.Payload = payload

	logger.Debug("Invoking function over HTTP.", "function", name, "method", r.Method)
	result, err := s.opts.Invoker.Invoke(ctx, name, ec)
	if err != nil {
		status, fn, msg := classify(name, err)
		if status >= http.StatusInternalServerError {
			logger.Error("Function invocation failed.", "function", fn, "error", err)
		} else {
			logger.Debug("Function invocation rejected.", "function", name, "error", err)
		}
		writeError(w, status, fn, msg)
		return
	}

	data, err := ctyconv.ToJSON(result)
	if err != nil {
		logger.Error("Function result could not be encoded.", "function", name, "error", err)
		writeError(w, http.StatusInternalServerError, name, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func requestID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(RequestIDHeader)); id != "" {
		return id
	}
	return uuid.NewString()
}

func headers(r *http.Request) map[string]string {
	out := make(map[string]string, len(r.Header)+1)
	for k, v := range flatten(r.Header) {
		out[strings.ToLower(k)] = v
	}
	if _, ok := out["x-real-ip"]; !ok {
		if ip := clientIP(r); ip != "" {
			out["x-real-ip"] = ip
		}
	}
	return out
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// flatten keeps the first value of each key.
func flatten(m map[string][]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, vs := range m {
		if len(vs) > 0 {
			out[k] = vs[0]
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Function string `json:"function"`
	Message  string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, fn, msg string) {
	writeJSON(w, status, map[string]errorBody{"error": {Function: fn, Message: msg}})
}
