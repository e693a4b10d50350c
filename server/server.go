package server

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jrsteele09/go-jwt-grant/assertion"
	"github.com/jrsteele09/go-jwt-grant/clients"
	"github.com/jrsteele09/go-jwt-grant/credentials"
	"github.com/jrsteele09/go-jwt-grant/internal/config"
	"github.com/jrsteele09/go-jwt-grant/internal/errors"
	"github.com/jrsteele09/go-jwt-grant/internal/metrics"
	"github.com/jrsteele09/go-jwt-grant/internal/storage"
	"github.com/jrsteele09/go-jwt-grant/oauth"
	"github.com/jrsteele09/go-jwt-grant/owner"
	"github.com/jrsteele09/go-jwt-grant/request"
	"github.com/jrsteele09/go-jwt-grant/token"
	"github.com/jrsteele09/go-jwt-grant/users"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/jrsteele09/go-jwt-grant/server"

// Repos holds the registries the server reads.
type Repos struct {
	Clients clients.Repo   // Registered applications
	Users   users.UserRepo // Resource owners, used by the "users" delegate
}

type Server struct {
	env       string // Environment (e.g., "DEV", "PROD")
	mux       *http.ServeMux
	routes    []string
	config    config.Config
	repos     Repos
	issuer    *token.Issuer
	grant     *oauth.Server
	registry  *request.Registry
	extractor credentials.Extractor
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	nowFunc   func() time.Time
}

type Option func(*Server)

// WithNowFunc sets the clock used for assertion expiry and token issuance.
func WithNowFunc(now func() time.Time) Option {
	return func(s *Server) {
		s.nowFunc = now
	}
}

// WithMetrics shares m instead of creating a private set of collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// New wires the JWT bearer grant from config and serves it over HTTP.
func New(cfg config.Config, repos Repos, store token.Store, options ...Option) (*Server, error) {
	if repos.Clients == nil {
		return nil, fmt.Errorf("[Server New] clients repo is required")
	}
	if store == nil {
		return nil, fmt.Errorf("[Server New] token store is required")
	}
	// A shared store outlives a key generated at boot: tokens it hands back
	// would no longer verify after a restart or on another replica.
	if strings.EqualFold(cfg.GetStorageType(), storage.TypeRedis) && !cfg.HasPersistentSigningKey() {
		return nil, errors.Wrapf(errors.ErrEphemeralSigningKey,
			"[Server New] %s storage needs oauth.signing.secret or oauth.signing.private_key_file for %s",
			storage.TypeRedis, cfg.GetSigningAlgorithm())
	}

	s := &Server{
		env:     cfg.GetEnv(),
		mux:     http.NewServeMux(),
		config:  cfg,
		repos:   repos,
		tracer:  otel.Tracer(instrumentationName),
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}

	signer, err := newSigner(cfg)
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to create signer: %w", err)
	}
	s.issuer = token.NewIssuer(store, signer,
		token.WithIssuer(cfg.GetBaseURL()),
		token.WithAccessTokenExpiry(cfg.GetAccessTokenExpiry()),
		token.WithRefreshTokens(cfg.GetRefreshTokenEnabled(), cfg.GetRefreshTokenLength()),
		token.WithNowFunc(s.nowFunc),
	)

	delegate, err := owner.Build(cfg.GetResourceOwnerDelegate(), cfg.GetResourceOwnerDelegateOptions(), owner.Deps{Users: repos.Users})
	if err != nil {
		return nil, fmt.Errorf("[Server New] %w", err)
	}
	if _, ok := delegate.(owner.NoOp); ok {
		log.Warn().Msg("no resource owner delegate configured, the jwt bearer grant will not issue tokens")
	}

	codec := assertion.NewCodec(assertion.WithNowFunc(s.nowFunc))
	s.grant, err = oauth.NewServer(cfg, oauth.Deps{
		Clients: repos.Clients,
		Owners:  delegate,
		Codec:   codec,
		Issuer:  s.issuer,
	})
	if err != nil {
		return nil, fmt.Errorf("[Server New] %w", err)
	}

	s.extractor, err = credentials.FromConfig(cfg.GetClientCredentialsMethods(), assertion.NewResolver(codec, repos.Clients))
	if err != nil {
		return nil, fmt.Errorf("[Server New] %w", err)
	}

	s.registry = request.NewRegistry(cfg.GetGrantFlows(), cfg.GetResponseTypes())
	s.registry.RegisterToken(request.GrantTypeJWTBearer, request.JWT(s.grant))

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

// newSigner signs with the configured private key file for RSA and ECDSA
// algorithms, else with the shared secret or a key pair generated at boot.
func newSigner(cfg config.OAuthConfig) (token.Signer, error) {
	path := cfg.GetSigningPrivateKeyFile()
	if path == "" || strings.HasPrefix(strings.ToUpper(cfg.GetSigningAlgorithm()), "HS") {
		if !cfg.HasPersistentSigningKey() {
			log.Warn().Str("algorithm", cfg.GetSigningAlgorithm()).Msg("signing key generated at boot, issued tokens stop verifying on restart")
		}
		return token.NewSigner(cfg.GetSigningAlgorithm(), cfg.GetSigningSecret())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading signing key: %w", err)
	}
	return token.NewSignerFromPEM(cfg.GetSigningAlgorithm(), data)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) Registry() *request.Registry {
	return s.registry
}

func (s *Server) Metrics() *metrics.Metrics {
	return s.metrics
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	log.Info().Msgf("[%s] %s", colourMethod(method), path)
}
