package rpc

import (
	"context"
	"encoding/json"
	"net/http"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// Diagnostic is one reported build problem, shaped after wasmerr's
// taxonomy (spec.md §7) so a diagnostics client can group by Kind
// without depending on this module's Go error types.
type Diagnostic struct {
	Kind          string `json:"kind"` // "ParseError", "MissingFunction", "MissingClass", "UnsupportedConstruct", "AnnotationViolation", "IOFailure", or "Error" for anything else
	Detail        string `json:"detail"`
	SourceFile    string `json:"sourceFile,omitempty"`
	ClassName     string `json:"className,omitempty"`
	SignatureName string `json:"signatureName,omitempty"`
	LineNumber    int    `json:"lineNumber,omitempty"`
}

// CompileReport is the full result of one compilation pass, published
// over the Connect JSON endpoint.
type CompileReport struct {
	Success     bool                    `json:"success"`
	StartedAt   *timestamppb.Timestamp `json:"startedAt"`
	FinishedAt  *timestamppb.Timestamp `json:"finishedAt"`
	Diagnostics []Diagnostic            `json:"diagnostics"`
}

// DiagnosticsRequest is empty: the endpoint always reports the most
// recent compilation pass this server process ran.
type DiagnosticsRequest struct{}

// jsonCodec is a connect.Codec that marshals with encoding/json
// instead of protobuf, per SPEC_FULL.md §6.4: Connect's codec contract
// does not require protobuf messages, only a name and a
// marshal/unmarshal pair.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// DiagnosticsService serves the latest CompileReport as Connect JSON.
type DiagnosticsService struct {
	latest *CompileReport
}

// NewDiagnosticsService builds a service with no report yet (Success
// false, empty diagnostics) until the first SetReport call.
func NewDiagnosticsService() *DiagnosticsService {
	return &DiagnosticsService{latest: &CompileReport{}}
}

// SetReport records the outcome of the most recently finished
// compilation pass.
func (s *DiagnosticsService) SetReport(r *CompileReport) {
	s.latest = r
}

func (s *DiagnosticsService) getDiagnostics(
	ctx context.Context,
	req *connect.Request[DiagnosticsRequest],
) (*connect.Response[CompileReport], error) {
	return connect.NewResponse(s.latest), nil
}

// Handler builds an http.Handler serving GetDiagnostics at
// /cw2wasm.v1.Diagnostics/GetDiagnostics using the JSON codec.
func (s *DiagnosticsService) Handler() http.Handler {
	mux := http.NewServeMux()
	const path = "/cw2wasm.v1.Diagnostics/GetDiagnostics"
	handler := connect.NewUnaryHandler(
		path,
		s.getDiagnostics,
		connect.WithCodec(jsonCodec{}),
	)
	mux.Handle(path, handler)
	return mux
}
