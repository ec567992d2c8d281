package oracle

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/desc/protoparse"
	"github.com/jhump/protoreflect/dynamic"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/descriptorpb"
)

//go:embed executor.proto
var executorProto string

const (
	protoFile     = "executor.proto"
	serviceName   = "diffsmith.oracle.Executor"
	runPairMethod = "/" + serviceName + "/RunPair"
)

type schema struct {
	service  *desc.ServiceDescriptor
	runPair  *desc.MethodDescriptor
	result   *desc.MessageDescriptor
	siteType *desc.MessageDescriptor
}

var (
	schemaOnce   sync.Once
	loadedSchema *schema
	schemaErr    error
)

type fieldKind = descriptorpb.FieldDescriptorProto_Type

// expectedFields pins the parts of the schema the conversions rely on.
var expectedFields = map[string]map[string]fieldKind{
	"diffsmith.oracle.RunPairRequest": {
		"track_output":     descriptorpb.FieldDescriptorProto_TYPE_BOOL,
		"debug_artifact":   descriptorpb.FieldDescriptorProto_TYPE_BYTES,
		"release_artifact": descriptorpb.FieldDescriptorProto_TYPE_BYTES,
	},
	"diffsmith.oracle.RunPairResponse": {
		"debug":   descriptorpb.FieldDescriptorProto_TYPE_MESSAGE,
		"release": descriptorpb.FieldDescriptorProto_TYPE_MESSAGE,
	},
	"diffsmith.oracle.RunResult": {
		"checksum":              descriptorpb.FieldDescriptorProto_TYPE_STRING,
		"checksum_sites":        descriptorpb.FieldDescriptorProto_TYPE_MESSAGE,
		"result_kind":           descriptorpb.FieldDescriptorProto_TYPE_STRING,
		"exception_type":        descriptorpb.FieldDescriptorProto_TYPE_STRING,
		"exception_text":        descriptorpb.FieldDescriptorProto_TYPE_STRING,
		"internal_failure_text": descriptorpb.FieldDescriptorProto_TYPE_STRING,
	},
	"diffsmith.oracle.ChecksumSite": {
		"id":    descriptorpb.FieldDescriptorProto_TYPE_STRING,
		"value": descriptorpb.FieldDescriptorProto_TYPE_STRING,
	},
}

// loadSchema parses the embedded service definition once.
func loadSchema() (*schema, error) {
	schemaOnce.Do(func() {
		parser := protoparse.Parser{
			Accessor: protoparse.FileContentsFromMap(map[string]string{protoFile: executorProto}),
		}
		fds, err := parser.ParseFiles(protoFile)
		if err != nil {
			schemaErr = fmt.Errorf("parsing executor schema: %w", err)
			return
		}
		fd := fds[0]
		for msgName, fields := range expectedFields {
			md := fd.FindMessage(msgName)
			if md == nil {
				schemaErr = fmt.Errorf("executor schema lacks message %s", msgName)
				return
			}
			for name, kind := range fields {
				f := md.FindFieldByName(name)
				if f == nil || f.GetType() != kind {
					schemaErr = fmt.Errorf("executor schema: %s.%s is not %v", msgName, name, kind)
					return
				}
			}
		}
		sd := fd.FindService(serviceName)
		if sd == nil {
			schemaErr = fmt.Errorf("executor schema lacks service %s", serviceName)
			return
		}
		md := sd.FindMethodByName("RunPair")
		if md == nil || md.IsClientStreaming() || md.IsServerStreaming() {
			schemaErr = errors.New("executor schema: RunPair must be unary")
			return
		}
		loadedSchema = &schema{
			service:  sd,
			runPair:  md,
			result:   fd.FindMessage("diffsmith.oracle.RunResult"),
			siteType: fd.FindMessage("diffsmith.oracle.ChecksumSite"),
		}
	})
	return loadedSchema, schemaErr
}

func setFields(m *dynamic.Message, fields map[string]interface{}) error {
	for name, v := range fields {
		if err := m.TrySetFieldByName(name, v); err != nil {
			return fmt.Errorf("setting %s: %w", name, err)
		}
	}
	return nil
}

func stringField(m *dynamic.Message, name string) string {
	v, _ := m.TryGetFieldByName(name)
	s, _ := v.(string)
	return s
}

func messageField(m *dynamic.Message, name string) *dynamic.Message {
	v, _ := m.TryGetFieldByName(name)
	sub, _ := v.(*dynamic.Message)
	return sub
}

func (s *schema) requestMessage(req PairRequest) (*dynamic.Message, error) {
	m := dynamic.NewMessage(s.runPair.GetInputType())
	err := setFields(m, map[string]interface{}{
		"track_output":     req.TrackOutput,
		"debug_artifact":   req.DebugArtifact,
		"release_artifact": req.ReleaseArtifact,
	})
	return m, err
}

func parseRequest(m *dynamic.Message) PairRequest {
	var req PairRequest
	if v, _ := m.TryGetFieldByName("track_output"); v != nil {
		req.TrackOutput, _ = v.(bool)
	}
	if v, _ := m.TryGetFieldByName("debug_artifact"); v != nil {
		req.DebugArtifact, _ = v.([]byte)
	}
	if v, _ := m.TryGetFieldByName("release_artifact"); v != nil {
		req.ReleaseArtifact, _ = v.([]byte)
	}
	return req
}

func (s *schema) resultMessage(r RunResult) (*dynamic.Message, error) {
	m := dynamic.NewMessage(s.result)
	err := setFields(m, map[string]interface{}{
		"checksum":              r.Checksum,
		"result_kind":           r.Kind.String(),
		"exception_type":        r.ExceptionType,
		"exception_text":        r.ExceptionText,
		"internal_failure_text": r.InternalFailureText,
	})
	if err != nil {
		return nil, err
	}
	for _, site := range r.ChecksumSites {
		sm := dynamic.NewMessage(s.siteType)
		if err := setFields(sm, map[string]interface{}{"id": site.ID, "value": site.Value}); err != nil {
			return nil, err
		}
		if err := m.TryAddRepeatedFieldByName("checksum_sites", sm); err != nil {
			return nil, fmt.Errorf("adding checksum site: %w", err)
		}
	}
	return m, nil
}

func parseResult(m *dynamic.Message) (RunResult, error) {
	if m == nil {
		return RunResult{}, errors.New("missing run result")
	}
	kind, err := ParseResultKind(stringField(m, "result_kind"))
	if err != nil {
		return RunResult{}, err
	}
	r := RunResult{
		Checksum:            stringField(m, "checksum"),
		Kind:                kind,
		ExceptionType:       stringField(m, "exception_type"),
		ExceptionText:       stringField(m, "exception_text"),
		InternalFailureText: stringField(m, "internal_failure_text"),
	}
	v, _ := m.TryGetFieldByName("checksum_sites")
	sites, _ := v.([]interface{})
	for _, item := range sites {
		sm, ok := item.(*dynamic.Message)
		if !ok {
			continue
		}
		r.ChecksumSites = append(r.ChecksumSites, ChecksumSite{ID: stringField(sm, "id"), Value: stringField(sm, "value")})
	}
	return r, nil
}

func (s *schema) responseMessage(res PairResult) (*dynamic.Message, error) {
	debug, err := s.resultMessage(res.Debug)
	if err != nil {
		return nil, err
	}
	release, err := s.resultMessage(res.Release)
	if err != nil {
		return nil, err
	}
	m := dynamic.NewMessage(s.runPair.GetOutputType())
	return m, setFields(m, map[string]interface{}{"debug": debug, "release": release})
}

func parseResponse(m *dynamic.Message) (PairResult, error) {
	debug, err := parseResult(messageField(m, "debug"))
	if err != nil {
		return PairResult{}, fmt.Errorf("debug: %w", err)
	}
	release, err := parseResult(messageField(m, "release"))
	if err != nil {
		return PairResult{}, fmt.Errorf("release: %w", err)
	}
	return PairResult{Debug: debug, Release: release}, nil
}

// RemoteWorker runs pairs on an executor served by another process,
// possibly on another host.
type RemoteWorker struct {
	conn   *grpc.ClientConn
	schema *schema
}

// Dial connects to a Server. The connection is established lazily.
func Dial(target string) (*RemoteWorker, error) {
	s, err := loadSchema()
	if err != nil {
		return nil, err
	}
	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dialing executor %s: %w", target, err)
	}
	return &RemoteWorker{conn: conn, schema: s}, nil
}

// RunPair maps the server's status codes back to the local errors.
func (r *RemoteWorker) RunPair(ctx context.Context, req PairRequest) (PairResult, error) {
	in, err := r.schema.requestMessage(req)
	if err != nil {
		return PairResult{}, err
	}
	out := dynamic.NewMessage(r.schema.runPair.GetOutputType())
	if err := r.conn.Invoke(ctx, runPairMethod, in, out); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return PairResult{}, ctxErr
		}
		switch status.Code(err) {
		case codes.DeadlineExceeded:
			return PairResult{}, ErrTimeout
		case codes.Aborted:
			return PairResult{}, fmt.Errorf("%w: %s", ErrWorkerCrashed, status.Convert(err).Message())
		}
		return PairResult{}, fmt.Errorf("remote RunPair: %w", err)
	}
	return parseResponse(out)
}

func (r *RemoteWorker) Close() error {
	return r.conn.Close()
}

// Server exposes a Runner, usually a Pool, as the Executor service.
type Server struct {
	runner Runner
	schema *schema
	grpc   *grpc.Server
}

// NewServer registers the Executor service on a new gRPC server.
func NewServer(runner Runner, opts ...grpc.ServerOption) (*Server, error) {
	sch, err := loadSchema()
	if err != nil {
		return nil, err
	}
	s := &Server{runner: runner, schema: sch, grpc: grpc.NewServer(opts...)}
	s.grpc.RegisterService(&grpc.ServiceDesc{
		ServiceName: serviceName,
		HandlerType: (*interface{})(nil),
		Methods: []grpc.MethodDesc{{
			MethodName: "RunPair",
			Handler:    runPairHandler,
		}},
		Metadata: protoFile,
	}, s)
	return s, nil
}

func runPairHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	s := srv.(*Server)
	in := dynamic.NewMessage(s.schema.runPair.GetInputType())
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return s.handle(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: runPairMethod}
	return interceptor(ctx, in, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return s.handle(ctx, req.(*dynamic.Message))
	})
}

func (s *Server) handle(ctx context.Context, in *dynamic.Message) (interface{}, error) {
	res, err := s.runner.RunPair(ctx, parseRequest(in))
	switch {
	case errors.Is(err, ErrTimeout):
		return nil, status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, ErrWorkerCrashed):
		return nil, status.Error(codes.Aborted, err.Error())
	case errors.Is(err, ErrPoolClosed):
		return nil, status.Error(codes.Unavailable, err.Error())
	case err != nil:
		return nil, status.Error(codes.Internal, err.Error())
	}
	out, err := s.schema.responseMessage(res)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// Serve accepts connections until Stop.
func (s *Server) Serve(lis net.Listener) error {
	return s.grpc.Serve(lis)
}

// Stop waits for in-flight requests and stops serving.
func (s *Server) Stop() {
	s.grpc.GracefulStop()
}
