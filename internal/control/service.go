package control

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"go.klb.dev/pulse/internal/clip"
	"go.klb.dev/pulse/internal/events"
	"go.klb.dev/pulse/internal/metrics"
	"go.klb.dev/pulse/internal/trigger"
	"go.klb.dev/pulse/internal/upload"
)

// TriggerName is the trigger name reported for presses that arrive over the
// control plane.
const TriggerName = "control"

// Uploader uploads caller-supplied base64 or data-URL images.
type Uploader interface {
	UploadBase64(ctx context.Context, s string) (upload.Outcome, error)
}

// StatsFunc returns a fresh metrics sample.
type StatsFunc func(ctx context.Context) (metrics.Stats, error)

// Deps are the agent components the control plane exposes.
type Deps struct {
	Bus        *events.Bus
	Hub        *events.Hub
	Uploader   Uploader
	Stats      StatsFunc
	Clipboard  clip.Source
	ConfigPath string
	// Token, when set, is required as a bearer credential on every call.
	Token string
}

// Service implements ControlServer and backs the REST handlers.
type Service struct {
	d Deps
}

// NewService returns a Service over d.
func NewService(d Deps) *Service {
	return &Service{d: d}
}

// errNoHandler is reported when a trigger is requested but nothing consumes it.
var errNoHandler = status.Error(codes.Unavailable, "no upload pipeline attached")

func (s *Service) trigger() error {
	if !s.d.Bus.HasTriggerHandler() {
		return errNoHandler
	}
	s.d.Bus.PublishTrigger(trigger.Press(TriggerName))
	return nil
}

func (s *Service) upload(ctx context.Context, data string) upload.Outcome {
	out, err := s.d.Uploader.UploadBase64(ctx, data)
	if err != nil {
		return upload.Failed(upload.Message(err))
	}
	return out
}

// Trigger implements ControlServer.Trigger.
func (s *Service) Trigger(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.BoolValue, error) {
	if err := s.auth(ctx); err != nil {
		return nil, err
	}
	if err := s.trigger(); err != nil {
		return nil, err
	}
	return wrapperspb.Bool(true), nil
}

// Upload implements ControlServer.Upload.
func (s *Service) Upload(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	if err := s.auth(ctx); err != nil {
		return nil, err
	}
	return structOrInternal(s.upload(ctx, req.GetValue()))
}

// Stats implements ControlServer.Stats.
func (s *Service) Stats(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	if err := s.auth(ctx); err != nil {
		return nil, err
	}
	st, err := s.d.Stats(ctx)
	if err != nil {
		return nil, status.Errorf(codes.Unavailable, "sample metrics: %v", err)
	}
	return structOrInternal(st)
}

// Clipboard implements ControlServer.Clipboard.
func (s *Service) Clipboard(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	if err := s.auth(ctx); err != nil {
		return nil, err
	}
	return structOrInternal(clip.PreviewOf(s.d.Clipboard))
}

// Events implements ControlServer.Events.
func (s *Service) Events(_ *emptypb.Empty, stream EventsStream) error {
	if err := s.auth(stream.Context()); err != nil {
		return err
	}

	p := events.NewChanPeer(32)
	s.d.Hub.Register(p)
	defer s.d.Hub.Unregister(p)

	for {
		select {
		case <-stream.Context().Done():
			return nil
		case ev := <-p.C():
			m, err := toStruct(ev)
			if err != nil {
				slog.Warn("drop unencodable event", "event", ev.Name, "err", err)
				continue
			}
			if err := stream.Send(m); err != nil {
				return err
			}
		}
	}
}

func structOrInternal(v any) (*structpb.Struct, error) {
	m, err := toStruct(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return m, nil
}

// auth validates the bearer token in ctx metadata. Skipped when no token is
// configured.
func (s *Service) auth(ctx context.Context) error {
	if s.d.Token == "" {
		return nil
	}
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return status.Error(codes.Unauthenticated, "missing metadata")
	}
	vals := md.Get("authorization")
	if len(vals) == 0 {
		return status.Error(codes.Unauthenticated, "missing authorization header")
	}
	if !tokenMatches(vals[0], s.d.Token) {
		return status.Error(codes.Unauthenticated, "invalid token")
	}
	return nil
}

func tokenMatches(header, token string) bool {
	got := strings.TrimPrefix(header, "Bearer ")
	return subtle.ConstantTimeCompare([]byte(got), []byte(token)) == 1
}
