package mock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/postcheck/packages/posts"
)

// GuardedPrefix is the path prefix under which writes need a bearer token.
const GuardedPrefix = "/664"

// Server is a fake posts backend.
type Server struct {
	router  *Router
	store   Store
	port    int
	delay   time.Duration
	verbose bool
	token   string
	logger  *log.Logger
}

// Option is a functional option for Server
type Option func(*Server)

// WithPort sets the server port
func WithPort(port int) Option {
	return func(s *Server) {
		s.port = port
	}
}

// WithDelay adds a delay to all responses
func WithDelay(delay time.Duration) Option {
	return func(s *Server) {
		s.delay = delay
	}
}

// WithVerbose enables verbose logging
func WithVerbose(verbose bool) Option {
	return func(s *Server) {
		s.verbose = verbose
	}
}

// WithStore replaces the default in-memory store.
func WithStore(store Store) Option {
	return func(s *Server) {
		if store != nil {
			s.store = store
		}
	}
}

// WithToken sets the bearer token accepted on guarded routes. Without a
// token every guarded write is rejected.
func WithToken(token string) Option {
	return func(s *Server) {
		s.token = token
	}
}

// WithLogger sets the logger used for request logging.
func WithLogger(logger *log.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates a new mock server
func NewServer(opts ...Option) *Server {
	s := &Server{
		router: NewRouter(),
		store:  NewMemoryStore(),
		port:   3000,
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerRoutes("", false)
	s.registerRoutes(GuardedPrefix, true)
	return s
}

func (s *Server) registerRoutes(prefix string, guarded bool) {
	collection := prefix + "/posts"
	item := collection + "/{id}"

	s.router.AddRoute(&Route{Method: "GET", PathPattern: collection, Name: "list posts", Handler: s.listPosts})
	s.router.AddRoute(&Route{Method: "GET", PathPattern: item, Name: "get post", Handler: s.getPost})
	s.router.AddRoute(&Route{Method: "POST", PathPattern: collection, Name: "create post", Guarded: guarded, Handler: s.createPost})
	s.router.AddRoute(&Route{Method: "PUT", PathPattern: item, Name: "update post", Guarded: guarded, Handler: s.updatePost})
	s.router.AddRoute(&Route{Method: "DELETE", PathPattern: item, Name: "delete post", Guarded: guarded, Handler: s.deletePost})
}

// Store returns the server's post store.
func (s *Server) Store() Store {
	return s.store
}

// Seed replaces the stored posts.
func (s *Server) Seed(ctx context.Context, list []posts.Post) error {
	return s.store.Seed(ctx, list)
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(s.handleRequest)
}

// Start starts the mock server
func (s *Server) Start() error {
	return s.StartWithContext(context.Background())
}

// StartWithContext starts the server with context for graceful shutdown
func (s *Server) StartWithContext(ctx context.Context) error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.logger.Printf("Mock server starting on http://localhost:%d", s.port)
	if s.verbose {
		for _, route := range s.router.routes {
			guard := ""
			if route.Guarded {
				guard = " (token)"
			}
			s.logger.Printf("  %s %s%s", route.Method, route.PathPattern, guard)
		}
	}

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// statusRecorder keeps the status code for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-r.Context().Done():
			return
		}
	}

	route, params := s.router.Match(r.Method, r.URL.Path)
	switch {
	case route == nil:
		writeJSON(rec, http.StatusNotFound, map[string]any{})
	case route.Guarded && !s.authorized(r):
		writeError(rec, http.StatusUnauthorized, "missing or invalid bearer token")
	default:
		route.Handler(rec, r, params)
	}

	if s.verbose {
		s.logger.Printf("%s %s -> %d (%s)", r.Method, r.URL.Path, rec.status, time.Since(start))
	}
}

func (s *Server) authorized(r *http.Request) bool {
	if s.token == "" {
		return false
	}
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return ok && token == s.token
}

func (s *Server) listPosts(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	list, err := s.store.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) getPost(w http.ResponseWriter, r *http.Request, params map[string]string) {
	id, ok := parseID(params)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{})
		return
	}
	p, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// createInput accepts the known post fields; anything else is dropped.
type createInput struct {
	UserID int64  `json:"userId"`
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

func (s *Server) createPost(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var in createInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if in.ID < 0 {
		writeError(w, http.StatusBadRequest, "id must be positive")
		return
	}

	p, err := s.store.Create(r.Context(), posts.Post(in))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) updatePost(w http.ResponseWriter, r *http.Request, params map[string]string) {
	id, ok := parseID(params)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{})
		return
	}

	var patch posts.PostPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	p, err := s.store.Update(r.Context(), id, patch)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) deletePost(w http.ResponseWriter, r *http.Request, params map[string]string) {
	id, ok := parseID(params)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{})
		return
	}
	if err := s.store.Delete(r.Context(), id); err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{})
}

func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, posts.ErrPostNotFound):
		writeJSON(w, http.StatusNotFound, map[string]any{})
	case errors.Is(err, posts.ErrDuplicateID):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func parseID(params map[string]string) (int64, bool) {
	id, err := strconv.ParseInt(params["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// GetRoutes returns all registered routes
func (s *Server) GetRoutes() []*Route {
	return s.router.routes
}
