package grpc

import (
	"context"
	"encoding/base64"
	"errors"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/Billy-Davies-2/hitchart-input/internal/annotate"
	"github.com/Billy-Davies-2/hitchart-input/internal/export"
	"github.com/Billy-Davies-2/hitchart-input/internal/logger"
	"github.com/Billy-Davies-2/hitchart-input/internal/models"
	"github.com/Billy-Davies-2/hitchart-input/internal/pubsub"
	"github.com/Billy-Davies-2/hitchart-input/internal/roster"
	"github.com/Billy-Davies-2/hitchart-input/internal/session"
)

// Server implements AnnotationServiceServer
type Server struct {
	svc     *annotate.Service
	encoder *export.Encoder
	pubsub  *pubsub.PubSub
}

// NewServer creates a new gRPC server
func NewServer(svc *annotate.Service, encoder *export.Encoder, ps *pubsub.PubSub) *Server {
	return &Server{
		svc:     svc,
		encoder: encoder,
		pubsub:  ps,
	}
}

// Register adds the annotation and health services to s
func Register(s *grpc.Server, srv *Server) *health.Server {
	s.RegisterService(&ServiceDesc, srv)

	hs := health.NewServer()
	grpc_health_v1.RegisterHealthServer(s, hs)
	hs.SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	return hs
}

// UnaryLogger logs every unary call with its outcome
func UnaryLogger(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	code := status.Code(err)
	if code == codes.Internal || code == codes.Unknown {
		logger.Error("gRPC call failed", "method", info.FullMethod, "code", code.String(), "error", err)
	} else {
		logger.Debug("gRPC call", "method", info.FullMethod, "code", code.String(), "duration", time.Since(start))
	}
	return resp, err
}

type sessionRequest struct {
	Session string `json:"session"`
}

type selectRequest struct {
	Session   string           `json:"session"`
	Selection models.Selection `json:"selection"`
}

type clickRequest struct {
	Session   string            `json:"session"`
	X         *int              `json:"x"`
	Y         *int              `json:"y"`
	Selection *models.Selection `json:"selection,omitempty"`
}

type deleteRequest struct {
	Session string `json:"session"`
	ID      string `json:"id"`
}

type playersRequest struct {
	Team string `json:"team"`
}

// lookup resolves an existing session; gRPC callers start sessions explicitly
func (s *Server) lookup(id string) (*session.Session, error) {
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "session is required")
	}
	sess, ok := s.svc.Lookup(id)
	if !ok {
		return nil, status.Errorf(codes.NotFound, "session %s not found", id)
	}
	return sess, nil
}

// StartSession resumes the given session or starts a new one
func (s *Server) StartSession(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req sessionRequest
	if err := decodeStruct(in, &req); err != nil {
		return nil, err
	}
	sess := s.svc.Session(req.Session)
	logger.Debug("gRPC: session started", "session", sess.ID)
	return encodeStruct(map[string]any{"session": sess.ID, "schema": s.svc.Schema()})
}

// GetSession returns a snapshot of a session
func (s *Server) GetSession(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req sessionRequest
	if err := decodeStruct(in, &req); err != nil {
		return nil, err
	}
	sess, err := s.lookup(req.Session)
	if err != nil {
		return nil, err
	}
	return encodeStruct(s.svc.Snapshot(sess))
}

// Select stores the selection of a session
func (s *Server) Select(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req selectRequest
	if err := decodeStruct(in, &req); err != nil {
		return nil, err
	}
	sess, err := s.lookup(req.Session)
	if err != nil {
		return nil, err
	}
	sel, err := s.svc.Select(ctx, sess, req.Selection)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	return encodeStruct(map[string]any{"selection": sel})
}

// ObserveClick records a click unless it is ignored
func (s *Server) ObserveClick(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req clickRequest
	if err := decodeStruct(in, &req); err != nil {
		return nil, err
	}
	if req.X == nil || req.Y == nil {
		return nil, status.Error(codes.InvalidArgument, "x and y are required")
	}
	sess, err := s.lookup(req.Session)
	if err != nil {
		return nil, err
	}

	sel := sess.Selection()
	if req.Selection != nil {
		sel = *req.Selection
	}

	res, err := s.svc.Click(ctx, sess, models.Point{X: *req.X, Y: *req.Y}, sel)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	out := map[string]any{"created": res.Created}
	if res.Created {
		out["record"] = res.Record
	} else {
		out["reason"] = res.Reason
	}
	return encodeStruct(out)
}

// DeleteRecord removes a record; unknown ids are NotFound
func (s *Server) DeleteRecord(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req deleteRequest
	if err := decodeStruct(in, &req); err != nil {
		return nil, err
	}
	sess, err := s.lookup(req.Session)
	if err != nil {
		return nil, err
	}

	res := s.svc.Delete(sess, req.ID)
	if !res.Deleted {
		return nil, status.Errorf(codes.NotFound, "record %q not found", req.ID)
	}
	return encodeStruct(map[string]any{"deleted": true, "rerender": res.Rerender, "record": res.Record})
}

// Clear drops every record of a session
func (s *Server) Clear(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req sessionRequest
	if err := decodeStruct(in, &req); err != nil {
		return nil, err
	}
	sess, err := s.lookup(req.Session)
	if err != nil {
		return nil, err
	}
	s.svc.Clear(sess)
	return &structpb.Struct{}, nil
}

func (s *Server) rows(in *structpb.Struct) ([]models.Row, error) {
	var req sessionRequest
	if err := decodeStruct(in, &req); err != nil {
		return nil, err
	}
	sess, err := s.lookup(req.Session)
	if err != nil {
		return nil, err
	}
	rows, err := s.svc.Rows(sess)
	if errors.Is(err, session.ErrEmptyExport) {
		return nil, status.Error(codes.FailedPrecondition, err.Error())
	}
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return rows, nil
}

// ExportRows returns the export header and rows of a session
func (s *Server) ExportRows(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	rows, err := s.rows(in)
	if err != nil {
		return nil, err
	}
	return encodeStruct(map[string]any{
		"columns": models.Columns(s.svc.Schema()),
		"rows":    rows,
	})
}

// ExportCSV returns the encoded export file, base64 encoded
func (s *Server) ExportCSV(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	rows, err := s.rows(in)
	if err != nil {
		return nil, err
	}
	data, err := s.encoder.Encode(models.Columns(s.svc.Schema()), rows)
	if err != nil {
		return nil, status.Error(codes.FailedPrecondition, err.Error())
	}
	return encodeStruct(map[string]any{
		"fileName":    export.FileName,
		"contentType": export.ContentType,
		"data":        base64.StdEncoding.EncodeToString(data),
	})
}

// ListTeams returns the team names of the roster source
func (s *Server) ListTeams(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	teams := []string{}
	if src := s.svc.Roster(); src != nil {
		var err error
		if teams, err = src.Teams(ctx); err != nil {
			return nil, status.Error(codes.Internal, err.Error())
		}
	}
	return encodeStruct(map[string]any{"teams": teams})
}

// ListPlayers returns the roster of a team
func (s *Server) ListPlayers(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req playersRequest
	if err := decodeStruct(in, &req); err != nil {
		return nil, err
	}
	if req.Team == "" {
		return nil, status.Error(codes.InvalidArgument, "team is required")
	}
	src := s.svc.Roster()
	if src == nil {
		return nil, status.Error(codes.NotFound, roster.ErrUnknownTeam.Error())
	}

	players, err := src.Players(ctx, req.Team)
	var parseErr *roster.ParseError
	switch {
	case err == nil:
		return encodeStruct(map[string]any{"players": players})
	case errors.Is(err, roster.ErrUnknownTeam):
		return nil, status.Error(codes.NotFound, err.Error())
	case errors.As(err, &parseErr):
		return nil, status.Error(codes.FailedPrecondition, parseErr.Error())
	default:
		return nil, status.Error(codes.Internal, err.Error())
	}
}

// StreamEvents streams a session's events until the client goes away
func (s *Server) StreamEvents(in *structpb.Struct, stream grpc.ServerStream) error {
	var req sessionRequest
	if err := decodeStruct(in, &req); err != nil {
		return err
	}
	sess, err := s.lookup(req.Session)
	if err != nil {
		return err
	}

	logger.Debug("gRPC: New client connected to event stream", "session", sess.ID)
	events := s.pubsub.Subscribe()
	defer s.pubsub.Unsubscribe(events)

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if event.Session != "" && event.Session != sess.ID {
				continue
			}
			msg, err := encodeStruct(event)
			if err != nil {
				logger.Error("gRPC: Failed to encode event", "error", err, "event_type", event.Type)
				continue
			}
			if err := stream.SendMsg(msg); err != nil {
				logger.Error("gRPC: Failed to send event to stream", "error", err)
				return err
			}
		case <-stream.Context().Done():
			logger.Debug("gRPC: Client disconnected from event stream", "session", sess.ID)
			return nil
		}
	}
}
