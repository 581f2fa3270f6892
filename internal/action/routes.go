package action

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"healthcost-actions/internal/handlers"
	"healthcost-actions/internal/observability"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// maxEnvelopeBytes bounds a single inbound envelope.
const maxEnvelopeBytes = 1 << 20

// HTTPActionGroup is the action group echoed for requests made through the
// per-operation shortcut routes.
const HTTPActionGroup = "http"

// RegisterRoutes mounts the action endpoints under /actions.
func RegisterRoutes(r chi.Router, d *Dispatcher) {
	r.Route("/actions", func(r chi.Router) {
		r.Post("/invoke", d.serveInvoke)
		r.Post("/{operation}", d.serveOperation)
		r.Get("/openapi.json", serveOpenAPIJSON)
		r.Get("/openapi.yaml", serveOpenAPIYAML)
	})
}

// serveInvoke handles POST /actions/invoke: the body is a complete inbound
// envelope and the reply is the outbound envelope, always 200 once the body
// is valid JSON.
func (d *Dispatcher) serveInvoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxEnvelopeBytes))
	if err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		observability.RecordError(ctx, trace.SpanFromContext(ctx), observability.TraceLogger(ctx, d.logger),
			errorCounter, "invoke", "could not read request body", err, status, w)
		return
	}
	if !json.Valid(raw) {
		observability.RecordError(ctx, trace.SpanFromContext(ctx), observability.TraceLogger(ctx, d.logger),
			errorCounter, "invoke", "invalid request body", errors.New("body is not valid JSON"), http.StatusBadRequest, w)
		return
	}

	_ = handlers.WriteJSON(w, http.StatusOK, d.Handle(ctx, raw))
}

// serveOperation handles POST /actions/{operation}: the body is a flat JSON
// object of parameters and the reply is the calculation result itself.
func (d *Dispatcher) serveOperation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	apiPath := "/" + chi.URLParam(r, "operation")

	params, err := decodeParamObject(http.MaxBytesReader(w, r.Body, maxEnvelopeBytes))
	if err != nil {
		observability.TraceLogger(ctx, d.logger).Warn("rejected operation parameters",
			zap.String("api_path", apiPath),
			zap.Error(err),
			zap.String("request_id", observability.RequestIDFromContext(ctx)),
		)
		handlers.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	req, err := NewRequest(HTTPActionGroup, apiPath, params)
	if err != nil {
		handlers.WriteError(w, http.StatusInternalServerError, "could not build request")
		return
	}

	resp := d.Dispatch(ctx, req)

	w.Header().Set("Content-Type", ContentTypeJSON)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, resp.Body()+"\n")
}

// decodeParamObject reads a JSON object of parameter name to value. An empty
// body means no parameters.
func decodeParamObject(body io.Reader) (map[string]string, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("could not read request body: %w", err)
	}
	if len(raw) == 0 {
		return map[string]string{}, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, errors.New("request body must be a JSON object of parameters")
	}

	params := make(map[string]string, len(obj))
	for name, value := range obj {
		if present(value) == nil {
			return nil, fmt.Errorf("parameter %q has no value", name)
		}
		text, err := wireText(value)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", name, err)
		}
		params[name] = text
	}
	return params, nil
}

func serveOpenAPIJSON(w http.ResponseWriter, r *http.Request) {
	doc, err := OpenAPIJSON()
	if err != nil {
		handlers.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", ContentTypeJSON)
	_, _ = w.Write(doc)
}

func serveOpenAPIYAML(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(OpenAPIYAML())
}
