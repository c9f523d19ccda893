package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/Billy-Davies-2/esports-draft/internal/dal"
	"github.com/Billy-Davies-2/esports-draft/internal/draft"
	"github.com/Billy-Davies-2/esports-draft/internal/logger"
	"github.com/Billy-Davies-2/esports-draft/internal/pubsub"
	"github.com/Billy-Davies-2/esports-draft/internal/service"
)

// UserMetadataKey carries the caller identity. A "userId" request field is
// used when the metadata is absent.
const UserMetadataKey = "x-user-id"

// Server implements the gRPC DraftService
type Server struct {
	svc    *service.Service
	events pubsub.Broker
}

// NewServer creates a new gRPC server
func NewServer(svc *service.Service, events pubsub.Broker) *Server {
	return &Server{
		svc:    svc,
		events: events,
	}
}

// Register attaches the draft service to a grpc.Server
func Register(gs *grpc.Server, s *Server) {
	gs.RegisterService(&ServiceDesc, s)
}

func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

func fromStruct(in *structpb.Struct, v any) error {
	data, err := json.Marshal(in.AsMap())
	if err != nil {
		return status.Errorf(codes.InvalidArgument, "decode request: %v", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return status.Errorf(codes.InvalidArgument, "decode request: %v", err)
	}
	return nil
}

func field(in *structpb.Struct, name string) string {
	if in == nil {
		return ""
	}
	if v, ok := in.GetFields()[name]; ok {
		return v.GetStringValue()
	}
	return ""
}

func required(in *structpb.Struct, name string) (string, error) {
	v := field(in, name)
	if v == "" {
		return "", status.Errorf(codes.InvalidArgument, "%s is required", name)
	}
	return v, nil
}

func callerID(ctx context.Context, in *structpb.Struct) (string, error) {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if ids := md.Get(UserMetadataKey); len(ids) > 0 && ids[0] != "" {
			return ids[0], nil
		}
	}
	if id := field(in, "userId"); id != "" {
		return id, nil
	}
	return "", status.Error(codes.Unauthenticated, "missing caller identity")
}

// toStatus maps service and store errors to gRPC codes
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	var rej *draft.Rejection
	switch {
	case errors.As(err, &rej):
		return status.Error(codes.FailedPrecondition, rej.Error())
	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrTeamNotFound),
		errors.Is(err, dal.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, service.ErrAlreadySubmitted),
		errors.Is(err, dal.ErrDuplicateSubmission):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, dal.ErrInvalidAmount),
		errors.Is(err, draft.ErrInvalidFilter):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		logger.Error("gRPC: request failed", "error", err)
		return status.Error(codes.Internal, err.Error())
	}
}

func respond(v any, err error) (*structpb.Struct, error) {
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(v)
}

// ListRounds returns {"rounds": [...]}
func (s *Server) ListRounds(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	rounds, err := s.svc.ListRounds(ctx)
	return respond(map[string]any{"rounds": rounds}, err)
}

// GetPool returns the candidate pool of roundId
func (s *Server) GetPool(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	roundID, err := required(req, "roundId")
	if err != nil {
		return nil, err
	}
	return respond(s.svc.Pool(ctx, roundID))
}

func (s *Server) CreateSession(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	user, err := callerID(ctx, req)
	if err != nil {
		return nil, err
	}
	roundID, err := required(req, "roundId")
	if err != nil {
		return nil, err
	}
	logger.Info("gRPC: Creating draft session", "user", user, "round", roundID)
	return respond(s.svc.CreateSession(ctx, user, roundID))
}

func (s *Server) GetSession(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.sessionCall(ctx, req, s.svc.GetSession)
}

type teamCall func(ctx context.Context, userID, sessionID, teamID string) (*service.SessionView, error)

// teamOp runs a roster operation taking sessionId and teamId. An empty
// teamId passes through when allowEmpty is set.
func (s *Server) teamOp(ctx context.Context, req *structpb.Struct, op teamCall, allowEmpty bool) (*structpb.Struct, error) {
	user, err := callerID(ctx, req)
	if err != nil {
		return nil, err
	}
	sessionID, err := required(req, "sessionId")
	if err != nil {
		return nil, err
	}
	teamID := field(req, "teamId")
	if teamID == "" && !allowEmpty {
		return nil, status.Error(codes.InvalidArgument, "teamId is required")
	}
	return respond(op(ctx, user, sessionID, teamID))
}

type sessionCallFn func(ctx context.Context, userID, sessionID string) (*service.SessionView, error)

func (s *Server) sessionCall(ctx context.Context, req *structpb.Struct, op sessionCallFn) (*structpb.Struct, error) {
	user, err := callerID(ctx, req)
	if err != nil {
		return nil, err
	}
	sessionID, err := required(req, "sessionId")
	if err != nil {
		return nil, err
	}
	return respond(op(ctx, user, sessionID))
}

func (s *Server) Toggle(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.teamOp(ctx, req, s.svc.Toggle, false)
}

func (s *Server) Remove(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.teamOp(ctx, req, s.svc.Remove, false)
}

func (s *Server) SetBench(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.teamOp(ctx, req, s.svc.SetBench, true)
}

func (s *Server) SetStar(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.teamOp(ctx, req, s.svc.SetStar, true)
}

func (s *Server) OpenSheet(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.sessionCall(ctx, req, s.svc.OpenSheet)
}

func (s *Server) SheetToggle(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.teamOp(ctx, req, s.svc.SheetToggle, false)
}

func (s *Server) ConfirmSheet(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.sessionCall(ctx, req, s.svc.ConfirmSheet)
}

func (s *Server) CancelSheet(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.sessionCall(ctx, req, s.svc.CancelSheet)
}

// Candidates reads the filter state from the "filters" field
func (s *Server) Candidates(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	user, err := callerID(ctx, req)
	if err != nil {
		return nil, err
	}
	sessionID, err := required(req, "sessionId")
	if err != nil {
		return nil, err
	}
	var f draft.FilterState
	if v, ok := req.GetFields()["filters"]; ok && v.GetStructValue() != nil {
		if err := fromStruct(v.GetStructValue(), &f); err != nil {
			return nil, err
		}
	}
	return respond(s.svc.Candidates(ctx, user, sessionID, f))
}

// Submit finalizes the roster; "confirmNoStar" confirms a roster without a star
func (s *Server) Submit(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	user, err := callerID(ctx, req)
	if err != nil {
		return nil, err
	}
	sessionID, err := required(req, "sessionId")
	if err != nil {
		return nil, err
	}
	confirm := req.GetFields()["confirmNoStar"].GetBoolValue()
	return respond(s.svc.Submit(ctx, user, sessionID, confirm))
}

func (s *Server) GetSubmission(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	user, err := callerID(ctx, req)
	if err != nil {
		return nil, err
	}
	roundID, err := required(req, "roundId")
	if err != nil {
		return nil, err
	}
	return respond(s.svc.GetSubmission(ctx, user, roundID))
}

func (s *Server) GetCredits(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	user, err := callerID(ctx, req)
	if err != nil {
		return nil, err
	}
	bal, err := s.svc.BonusCredits(ctx, user)
	return respond(map[string]any{"userId": user, "bonusCredits": bal}, err)
}

// StreamEvents streams the caller's session events and round-wide events.
// Optional roundId and sessionId fields narrow the stream.
func (s *Server) StreamEvents(req *structpb.Struct, stream grpc.ServerStream) error {
	user, err := callerID(stream.Context(), req)
	if err != nil {
		return err
	}
	roundID := field(req, "roundId")
	sessionID := field(req, "sessionId")

	ch := s.events.Subscribe()
	defer s.events.Unsubscribe(ch)
	logger.Debug("gRPC: Event stream opened", "user", user, "round", roundID, "session", sessionID)

	for {
		select {
		case <-stream.Context().Done():
			logger.Debug("gRPC: Event stream closed")
			return nil
		case event, ok := <-ch:
			if !ok {
				return nil
			}
			if !event.Matches(user, roundID, sessionID) {
				continue
			}
			msg, err := toStruct(event)
			if err != nil {
				logger.Warn("gRPC: Failed to encode event", "type", event.Type, "error", err)
				continue
			}
			if err := stream.SendMsg(msg); err != nil {
				return fmt.Errorf("send event: %w", err)
			}
		}
	}
}
