// Package httpapi is the request layer: it parses form requests, lower-cases
// identifiers, calls the messaging service and maps its typed failures to
// HTTP statuses.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophmsg/internal/logging"
	"github.com/dmitrijs2005/gophmsg/internal/server/models"
	"github.com/dmitrijs2005/gophmsg/internal/server/services"
	"github.com/gorilla/mux"
)

// Messaging is the part of services.MessagingService the handlers use.
type Messaging interface {
	Register(ctx context.Context, userID, name, publicKey string) (*services.RegisterResult, error)
	SendDirect(ctx context.Context, senderID, token, recipientID, content string) (*services.SendResult, error)
	SendToGroup(ctx context.Context, senderID, token, groupID, content string) (*services.GroupSendResult, error)
	Fetch(ctx context.Context, userID, token string) ([]models.Message, error)
	Acknowledge(ctx context.Context, userID, token string) (*services.AckResult, error)
	CreateGroup(ctx context.Context, creatorID, token, groupID, name string) (*models.Group, error)
	AddMembers(ctx context.Context, requesterID, token, groupID string, memberIDs []string) (*services.AddMembersResult, error)
	RemoveMember(ctx context.Context, requesterID, token, groupID, memberID string) (*services.RemoveResult, error)
	LeaveGroup(ctx context.Context, userID, token, groupID string) (*services.LeaveResult, error)
	RenameGroup(ctx context.Context, requesterID, token, groupID, name string) error
	GetGroupDetails(ctx context.Context, requesterID, token, groupID string) (*services.GroupDetails, error)
	GetUserProfile(ctx context.Context, requesterID, token, userID string) (*models.PublicProfile, error)
}

type Server struct {
	address         string
	messaging       Messaging
	logger          logging.Logger
	shutdownTimeout time.Duration
}

func NewServer(address string, l logging.Logger, m Messaging, shutdownTimeout time.Duration) *Server {
	return &Server{
		address:         address,
		messaging:       m,
		logger:          l.With("module", "http_server"),
		shutdownTimeout: shutdownTimeout,
	}
}

// Handler returns the routed handler wrapped in the request id and access
// log middleware.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/ping", s.ping).Methods(http.MethodGet)
	r.HandleFunc("/register/", s.register).Methods(http.MethodPost)

	r.HandleFunc("/send/user/{recipient}/", s.sendDirect).Methods(http.MethodPost)
	r.HandleFunc("/send/group/{group_id}/", s.sendToGroup).Methods(http.MethodPost)
	r.HandleFunc("/get/", s.fetch).Methods(http.MethodPost)
	r.HandleFunc("/acknowledge/", s.acknowledge).Methods(http.MethodPost)

	r.HandleFunc("/group/create", s.createGroup).Methods(http.MethodPost)
	r.HandleFunc("/group/{group_id}/", s.groupDetails).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/group/{group_id}/add", s.addMembers).Methods(http.MethodPost)
	r.HandleFunc("/group/{group_id}/remove/", s.removeMember).Methods(http.MethodPost)
	r.HandleFunc("/group/{group_id}/leave", s.leaveGroup).Methods(http.MethodPost)
	r.HandleFunc("/group/{group_id}/rename", s.renameGroup).Methods(http.MethodPost)

	r.HandleFunc("/user/{user_id}/", s.userProfile).Methods(http.MethodGet)

	r.Use(requestID, s.accessLog)
	return r
}

// Run serves until ctx is canceled and then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.serve(ctx, listen)
}

func (s *Server) serve(ctx context.Context, listen net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
		defer cancel()
		errCh <- srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return <-errCh
}
