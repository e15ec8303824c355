package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/handlers"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/ctfer-io/covalic/api/v1/challenge"
	"github.com/ctfer-io/covalic/api/v1/common"
	"github.com/ctfer-io/covalic/api/v1/folder"
	"github.com/ctfer-io/covalic/api/v1/group"
	"github.com/ctfer-io/covalic/api/v1/job"
	"github.com/ctfer-io/covalic/api/v1/phase"
	"github.com/ctfer-io/covalic/api/v1/submission"
	"github.com/ctfer-io/covalic/api/v1/token"
	"github.com/ctfer-io/covalic/api/v1/user"
	"github.com/ctfer-io/covalic/global"
	"github.com/ctfer-io/covalic/pkg/auth"
	"github.com/ctfer-io/covalic/pkg/jobs"
	"github.com/ctfer-io/covalic/pkg/store"
)

// Server is a helper to manage the API server.
type Server struct {
	Options

	tokens *token.Store
	users  *user.Store
	routes []common.Routable

	srv *http.Server
}

// Options to configure it once for all.
type Options struct {
	Port      int
	DB        *store.DB
	Scheduler jobs.Scheduler
}

// NewServer returns a fresh API server, with every resource wired to
// the store and scheduler.
func NewServer(opts Options) *Server {
	db := opts.DB
	tokens := token.NewStore(db, global.Conf.Auth.Secret, global.Conf.Auth.TokenTTL)
	users := user.NewStore(db, tokens)
	groups := group.NewStore(db)
	folders := folder.NewStore(db)
	js := job.NewStore(db, opts.Scheduler)
	subs := submission.NewStore(db, tokens, js)

	return &Server{
		Options: opts,
		tokens:  tokens,
		users:   users,
		routes: []common.Routable{
			users,
			groups,
			folders,
			folders.Files(),
			challenge.NewStore(db),
			phase.NewStore(db, subs, groups, folders),
			subs,
			js,
			tokens,
		},
	}
}

// Bootstrap creates the configured administrator on an empty store.
func (s *Server) Bootstrap(ctx context.Context) error {
	adm := global.Conf.Admin
	return s.users.Bootstrap(ctx, adm.Login, adm.Email, adm.Password)
}

// Handler returns the HTTP handler serving the API and the healthcheck.
func (s *Server) Handler(ctx context.Context) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer, logRequests, s.authenticate)

	r.Handle("/healthcheck", healthcheck(ctx, s.DB))
	r.Route(common.APIPrefix, func(r chi.Router) {
		for _, res := range s.routes {
			r.Route(res.Resource(), func(r chi.Router) {
				for _, rt := range res.Routes() {
					r.Method(rt.Method, rt.Pattern, handle(rt.Handler))
				}
			})
		}
	})

	h := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", auth.TokenHeader}),
	)(r)
	h = handlers.ProxyHeaders(h)
	return otelhttp.NewHandler(h, "covalic")
}

// Run starts serving in the background.
func (s *Server) Run(ctx context.Context) error {
	logger := global.Log()

	logger.Info(ctx, "api-server start listening",
		zap.Int("port", s.Port),
	)
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.Port))
	if err != nil {
		return err
	}

	s.srv = &http.Server{
		Handler:           s.Handler(ctx),
		ReadHeaderTimeout: time.Second,
		BaseContext: func(net.Listener) context.Context {
			return context.WithoutCancel(ctx)
		},
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "http server", zap.Error(err))
		}
	}()
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func handle(h common.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			writeError(r.Context(), w, err)
		}
	}
}

// authenticate resolves the request token, if any, to its user.
// An invalid token is rejected rather than treated as anonymous.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := auth.FromRequest(r)
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		u, tok, err := s.tokens.Authenticate(ctx, raw)
		if err != nil {
			writeError(ctx, w, err)
			return
		}
		ctx = global.WithUserID(common.WithUser(ctx, u, tok), u.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		global.Log().Info(r.Context(), "request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
