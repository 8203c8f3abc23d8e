package server

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// BuildInfo identifies the running binary in logs and health output.
type BuildInfo struct {
	Version string
	Commit  string
}

// Config is the explicit server configuration, constructed once at startup
// and passed in. Nothing here is read from globals after New returns.
type Config struct {
	Addr           string // e.g. ":8080"
	Build          BuildInfo
	SecretKey      string
	SessionTTL     time.Duration
	SecureCookies  bool
	MaxUploadBytes int64 // 0 = no limit
}

type Server struct {
	cfg        Config
	store      *Store
	blobs      BlobStore
	tokens     *TokenService
	metrics    *Metrics
	log        *logrus.Logger
	db         *sql.DB
	handler    http.Handler
	httpServer *http.Server
}

func New(cfg Config, db *sql.DB, blobs BlobStore, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.New()
	}
	s := &Server{
		cfg:     cfg,
		store:   NewStore(db),
		blobs:   blobs,
		tokens:  NewTokenService(cfg.SecretKey, cfg.SessionTTL),
		metrics: NewMetrics(),
		log:     log,
		db:      db,
	}

	r := mux.NewRouter()

	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/login", s.handleLoginPage).Methods(http.MethodGet)
	r.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/logout", s.handleLogout).Methods(http.MethodGet)

	r.Handle("/dashboard", s.requireUser(http.HandlerFunc(s.handleDashboard))).Methods(http.MethodGet)
	r.Handle("/dashboard/upload", s.requireUser(http.HandlerFunc(s.handleUpload))).Methods(http.MethodPost)
	r.Handle("/dashboard/download/{id:[0-9]+}", s.requireUser(http.HandlerFunc(s.handleDownload))).Methods(http.MethodGet)
	r.Handle("/dashboard/delete/{id:[0-9]+}", s.requireUser(http.HandlerFunc(s.handleDelete))).Methods(http.MethodPost)

	r.Handle("/admin", s.requireAdmin(http.HandlerFunc(s.handleAdminDashboard))).Methods(http.MethodGet)
	r.Handle("/admin/create_user", s.requireAdmin(http.HandlerFunc(s.handleCreateUser))).Methods(http.MethodPost)
	r.Handle("/admin/delete_user/{id:[0-9]+}", s.requireAdmin(http.HandlerFunc(s.handleDeleteUser))).Methods(http.MethodPost)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)

	// Wrap middleware: requestID -> access log -> router
	var handler http.Handler = r
	handler = s.accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	s.handler = handler

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

// Handler exposes the full middleware chain, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.httpServer.Serve(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
