package action

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"healthcost-actions/internal/costcalc"
	"healthcost-actions/internal/observability"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// tracer is the action group's dedicated OpenTelemetry tracer.
var tracer = otel.Tracer("action")

const (
	outcomeSuccess     = "success"
	outcomeFailure     = "failure"
	outcomeUnknownPath = "unknown_path"
	outcomeError       = "error"
)

// Options switches optional dispatcher behaviour.
type Options struct {
	// VerboseErrors appends agent, raw content, content type and raw
	// parameter list to dispatcher error messages. They are always logged.
	VerboseErrors bool
	// LenientJSON lets the price comparison repair malformed JSON.
	LenientJSON bool
}

// Dispatcher routes action envelopes to calculators. It holds no
// per-request state and is safe for concurrent use.
type Dispatcher struct {
	logger *zap.Logger
	opts   Options
	ops    map[string]Operation
}

func NewDispatcher(logger *zap.Logger, opts Options) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{
		logger: logger,
		opts:   opts,
	}
	d.ops = d.buildOperations()
	return d
}

// Paths lists the routed API paths in sorted order.
func (d *Dispatcher) Paths() []string {
	paths := make([]string, 0, len(d.ops))
	for path := range d.ops {
		paths = append(paths, path)
	}
	slices.Sort(paths)
	return paths
}

// dispatchError is the body for failures outside any calculator. It has no
// success key.
type dispatchError struct {
	Error string `json:"error"`
}

// Handle processes one raw inbound envelope. It never fails: whatever goes
// wrong is reported inside the response body and the envelope status stays 200.
func (d *Dispatcher) Handle(ctx context.Context, raw []byte) Response {
	observability.TraceLogger(ctx, d.logger).Info("received event",
		zap.ByteString("event", raw),
		zap.String("request_id", observability.RequestIDFromContext(ctx)),
	)

	req, err := ParseRequest(raw)
	return d.dispatch(ctx, req, err)
}

// Dispatch processes an already parsed request.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Response {
	return d.dispatch(ctx, req, nil)
}

func (d *Dispatcher) dispatch(ctx context.Context, req Request, parseErr error) Response {
	start := time.Now()
	requestID := observability.RequestIDFromContext(ctx)

	op, known := d.ops[req.APIPath]
	opName := op.Name
	if !known {
		opName = "unknown"
	}

	ctx, span := tracer.Start(ctx, "action."+opName,
		trace.WithAttributes(
			attribute.String("action.operation", opName),
			attribute.String("action.api_path", req.APIPath),
			attribute.String("action.group", req.ActionGroup),
			attribute.String("request.id", requestID),
		),
	)
	defer span.End()

	logger := observability.TraceLogger(ctx, d.logger).With(
		zap.String("operation", opName),
		zap.String("api_path", req.APIPath),
		zap.String("action_group", req.ActionGroup),
		zap.String("request_id", requestID),
	)

	var (
		body    any
		outcome string
	)

	err := parseErr
	if err == nil {
		var result costcalc.Result
		result, outcome, err = d.route(op, known, req)
		if err == nil {
			body = result
			if !known {
				body = dispatchError{Error: fmt.Sprintf("Unknown API path: %s", req.APIPath)}
			}
		}
	}

	if err != nil {
		outcome = outcomeError
		body = d.errorBody(err, req)

		span.RecordError(err)
		span.SetStatus(codes.Error, "action invocation failed")
		logger.Error("action invocation failed",
			zap.Error(err),
			zap.ByteString("agent", req.Agent),
			zap.ByteString("content", req.Content),
			zap.String("content_type", jsonKind(req.Content)),
			zap.ByteString("parameters", req.Parameters),
		)
	}

	text, encErr := encodeBody(body)
	if encErr != nil {
		outcome = outcomeError
		text, _ = encodeBody(d.errorBody(encErr, req))
		span.RecordError(encErr)
		logger.Error("encoding action result", zap.Error(encErr))
	}

	elapsed := float64(time.Since(start).Microseconds()) / 1000.0 // ms
	d.record(ctx, span, logger, opName, outcome, body, elapsed)

	return Response{
		MessageVersion: MessageVersion,
		Response: ActionResponse{
			ActionGroup:    req.ActionGroup,
			APIPath:        req.APIPath,
			HTTPMethod:     req.HTTPMethod,
			HTTPStatusCode: 200,
			ResponseBody: map[string]ResponseBody{
				ContentTypeJSON: {Body: text},
			},
		},
		SessionAttributes:       req.SessionAttributes,
		PromptSessionAttributes: req.PromptSessionAttributes,
	}
}

// route flattens the parameters and runs the calculator for op. A panic in
// the calculator is turned into an error like any other dispatch failure.
func (d *Dispatcher) route(op Operation, known bool, req Request) (result costcalc.Result, outcome string, err error) {
	params, err := req.FlattenParameters()
	if err != nil {
		return nil, "", err
	}
	if !known {
		return nil, outcomeUnknownPath, nil
	}

	defer func() {
		if r := recover(); r != nil {
			result, outcome, err = nil, "", fmt.Errorf("%s: %v", op.Name, r)
		}
	}()

	result = op.Calc(params)
	if !result.Succeeded() {
		return result, outcomeFailure, nil
	}
	return result, outcomeSuccess, nil
}

func (d *Dispatcher) errorBody(err error, req Request) dispatchError {
	msg := fmt.Sprintf("Error processing request: %v", err)
	if d.opts.VerboseErrors {
		msg = fmt.Sprintf("%s\n%s\n%s\n%s\n%s", msg,
			orNull(req.Agent), orNull(req.Content), jsonKind(req.Content), orNull(req.Parameters))
	}
	return dispatchError{Error: msg}
}

func (d *Dispatcher) record(ctx context.Context, span trace.Span, logger *zap.Logger, opName, outcome string, body any, elapsed float64) {
	attrs := metric.WithAttributes(
		attribute.String("operation", opName),
		attribute.String("outcome", outcome),
	)
	invocationCounter.Add(ctx, 1, attrs)
	durationHistogram.Record(ctx, elapsed, attrs)

	span.SetAttributes(attribute.String("action.outcome", outcome))

	switch outcome {
	case outcomeSuccess:
		if cmp, ok := body.(costcalc.PriceComparison); ok {
			savingsHistogram.Record(ctx, cmp.SavingsPercent)
		}
		span.SetStatus(codes.Ok, "")
		logger.Info("action completed", zap.Float64("duration_ms", elapsed))
	case outcomeFailure:
		if f, ok := body.(costcalc.Failure); ok {
			span.AddEvent("calculation.failed", trace.WithAttributes(attribute.String("error", f.Error)))
			logger.Warn("calculation failed", zap.String("error", f.Error), zap.Float64("duration_ms", elapsed))
		}
	case outcomeUnknownPath:
		errorCounter.Add(ctx, 1, attrs)
		span.SetStatus(codes.Error, "unknown API path")
		logger.Warn("unknown API path")
	case outcomeError:
		errorCounter.Add(ctx, 1, attrs)
	}
}

// encodeBody serialises a result without HTML escaping so hospital names
// such as "Women & Infants" survive verbatim.
func encodeBody(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

func orNull(raw json.RawMessage) string {
	if raw == nil {
		return "null"
	}
	return string(raw)
}
