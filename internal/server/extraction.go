package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/docrecon/internal/common"
	"github.com/joseph-ayodele/docrecon/internal/entity"
)

// DocumentProcessor is satisfied by *core.Processor.
type DocumentProcessor interface {
	Process(ctx context.Context, path, template string) (*entity.Result, error)
}

// ExtractionServer is the docrecon.v1.ExtractionService contract. Messages are
// well-known Structs so no generated code is needed:
//
//	request:  {"path": "...", "template": "..."}
//	response: {"id": "...", "source": "...", "template": "...", "payload": {...}}
type ExtractionServer interface {
	Extract(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

const extractMethod = "/docrecon.v1.ExtractionService/Extract"

var ExtractionServiceDesc = grpc.ServiceDesc{
	ServiceName: "docrecon.v1.ExtractionService",
	HandlerType: (*ExtractionServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Extract", Handler: extractHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "docrecon/v1/extraction.proto",
}

func RegisterExtractionServer(s grpc.ServiceRegistrar, srv ExtractionServer) {
	s.RegisterService(&ExtractionServiceDesc, srv)
}

func extractHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ExtractionServer).Extract(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: extractMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ExtractionServer).Extract(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

type ExtractionService struct {
	proc   DocumentProcessor
	logger *slog.Logger
}

func NewExtractionService(proc DocumentProcessor, logger *slog.Logger) *ExtractionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractionService{proc: proc, logger: logger}
}

// Extract implements ExtractionServer
func (s *ExtractionService) Extract(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	path := strings.TrimSpace(fields["path"].GetStringValue())
	template := strings.TrimSpace(fields["template"].GetStringValue())
	v := common.NewValidator().
		Field("path", path, common.Required).
		Field("template", template, common.Required)
	if err := v.StatusErr(); err != nil {
		s.logger.Error("invalid extract request", "path", path, "template", template, "error", v.ErrorMessage())
		return nil, err
	}

	ctx, requestID := common.EnsureRequestID(ctx)
	s.logger.Info("starting extraction", "path", path, "template", template, "request_id", requestID)
	res, err := s.proc.Process(ctx, path, template)
	if err != nil {
		s.logger.Error("extract.failed", "path", path, "template", template, "err", err)
		return nil, common.ToStatus(err)
	}

	out, err := resultStruct(res)
	if err != nil {
		s.logger.Error("extract.encode.failed", "path", path, "err", err)
		return nil, common.InternalErrorf("encode result: %v", err)
	}
	return out, nil
}

// resultStruct goes through JSON so the Struct matches the HTTP body exactly.
func resultStruct(res *entity.Result) (*structpb.Struct, error) {
	raw, err := json.Marshal(res.Payload())
	if err != nil {
		return nil, err
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	return structpb.NewStruct(map[string]any{
		"id":       res.ID.String(),
		"source":   res.Source,
		"template": string(res.Template),
		"payload":  payload,
	})
}

var _ ExtractionServer = (*ExtractionService)(nil)
