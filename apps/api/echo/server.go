package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/academic"
	"github.com/trezcool/academia/core/access"
	"github.com/trezcool/academia/core/account"
	"github.com/trezcool/academia/core/session"
)

type (
	Deps struct {
		Validate    *validator.Validate
		Translator  ut.Translator
		AccountSvc  account.Service
		Resolver    *account.Resolver
		AcademicSvc academic.Service
		Sessions    session.Store
		Captcha     core.CaptchaVerifier
		Metrics     *Metrics
	}

	Server struct {
		conf     *core.Config
		logger   core.Logger
		deps     *Deps
		app      *echo.Echo
		guard    *access.Guard
		areas    map[string]access.Area // {route path: area}
		tokens   *tokenSigner
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(conf *core.Config, logger core.Logger, deps *Deps) *Server {
	vala.BeginValidation().Validate(
		vala.IsNotNil(conf, "conf"),
		vala.IsNotNil(logger, "logger"),
		vala.IsNotNil(deps, "deps"),
		vala.IsNotNil(deps.Validate, "deps.Validate"),
		vala.IsNotNil(deps.Translator, "deps.Translator"),
		vala.IsNotNil(deps.AccountSvc, "deps.AccountSvc"),
		vala.IsNotNil(deps.Resolver, "deps.Resolver"),
		vala.IsNotNil(deps.AcademicSvc, "deps.AcademicSvc"),
		vala.IsNotNil(deps.Sessions, "deps.Sessions"),
		vala.IsNotNil(deps.Captcha, "deps.Captcha"),
		vala.IsNotNil(deps.Metrics, "deps.Metrics"),
		vala.StringNotEmpty(conf.SecretKey, "conf.SecretKey"),
	).CheckAndPanic()

	s := &Server{
		conf:     conf,
		logger:   logger,
		deps:     deps,
		app:      echo.New(),
		areas:    make(map[string]access.Area),
		tokens:   newTokenSigner(conf),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	s.app.HideBanner = true
	s.app.Debug = s.conf.Debug
	s.app.Server.ReadTimeout = s.conf.Server.ReadTimeout
	s.app.Server.WriteTimeout = s.conf.Server.WriteTimeout
	if s.conf.Debug {
		s.app.Logger.SetLevel(log.DEBUG)
	} else {
		s.app.Logger.SetLevel(log.INFO)
	}

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(s.conf.Debug || s.conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(s.identify, s.guardAreas)

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.logger, s.deps.Translator, s.signalShutdown)

	s.registerRoutes()

	s.guard = access.NewGuard(
		s.app.Reverse(access.EndpointLoginPage),
		s.app.Reverse(access.EndpointLogin),
		s.app.Reverse(endpointPasswordReset),
		s.app.Reverse(endpointPasswordResetConfirm),
	)
}

// route registers h under path. Every path belongs to exactly one Area; unregistered paths are Shared.
func (s *Server) route(area access.Area, method, path string, h echo.HandlerFunc, name ...string) {
	r := s.app.Add(method, path, h)
	if len(name) > 0 {
		r.Name = name[0]
	}
	s.areas[path] = area
}

func (s *Server) registerRoutes() {
	auth := authApi{srv: s}
	s.route(access.AreaShared, http.MethodGet, "/", auth.loginPage, access.EndpointLoginPage)
	s.route(access.AreaShared, http.MethodPost, "/login", auth.login, access.EndpointLogin)
	s.route(access.AreaShared, http.MethodGet, "/logout", auth.logout)
	s.route(access.AreaShared, http.MethodPost, "/password-reset", auth.requestPasswordReset, endpointPasswordReset)
	s.route(access.AreaShared, http.MethodPost, "/password-reset/confirm", auth.confirmPasswordReset, endpointPasswordResetConfirm)

	portal := portalApi{srv: s}
	s.route(access.AreaShared, http.MethodGet, "/me", portal.me)
	s.route(access.AreaShared, http.MethodPost, "/push-token", portal.updatePushToken)
	s.route(access.AreaAdmin, http.MethodGet, "/admin/home", portal.adminHome, access.EndpointAdminHome)
	s.route(access.AreaStaff, http.MethodGet, "/staff/home", portal.staffHome, access.EndpointStaffHome)
	s.route(access.AreaStaff, http.MethodGet, "/staff/subjects", portal.staffSubjects)
	s.route(access.AreaStaff, http.MethodPut, "/staff/profile", portal.updateProfile)
	s.route(access.AreaStudent, http.MethodGet, "/student/home", portal.studentHome, access.EndpointStudentHome)
	s.route(access.AreaStudent, http.MethodPut, "/student/profile", portal.updateProfile)

	accounts := accountApi{srv: s}
	s.route(access.AreaAdmin, http.MethodGet, "/admin/accounts", accounts.query)
	s.route(access.AreaAdmin, http.MethodPost, "/admin/accounts", accounts.create)
	s.route(access.AreaAdmin, http.MethodGet, "/admin/accounts/:id", accounts.retrieve)
	s.route(access.AreaAdmin, http.MethodPut, "/admin/accounts/:id", accounts.update)
	s.route(access.AreaAdmin, http.MethodDelete, "/admin/accounts/:id", accounts.destroy)

	acad := academicApi{srv: s}
	s.route(access.AreaAdmin, http.MethodGet, "/admin/courses", acad.queryCourses)
	s.route(access.AreaAdmin, http.MethodPost, "/admin/courses", acad.createCourse)
	s.route(access.AreaAdmin, http.MethodGet, "/admin/courses/:id", acad.retrieveCourse)
	s.route(access.AreaAdmin, http.MethodPut, "/admin/courses/:id", acad.updateCourse)
	s.route(access.AreaAdmin, http.MethodDelete, "/admin/courses/:id", acad.destroyCourse)

	s.route(access.AreaAdmin, http.MethodGet, "/admin/sessions", acad.querySessions)
	s.route(access.AreaAdmin, http.MethodPost, "/admin/sessions", acad.createSession)
	s.route(access.AreaAdmin, http.MethodGet, "/admin/sessions/:id", acad.retrieveSession)
	s.route(access.AreaAdmin, http.MethodPut, "/admin/sessions/:id", acad.updateSession)
	s.route(access.AreaAdmin, http.MethodDelete, "/admin/sessions/:id", acad.destroySession)

	s.route(access.AreaAdmin, http.MethodGet, "/admin/subjects", acad.querySubjects)
	s.route(access.AreaAdmin, http.MethodPost, "/admin/subjects", acad.createSubject)
	s.route(access.AreaAdmin, http.MethodGet, "/admin/subjects/:id", acad.retrieveSubject)
	s.route(access.AreaAdmin, http.MethodPut, "/admin/subjects/:id", acad.updateSubject)
	s.route(access.AreaAdmin, http.MethodDelete, "/admin/subjects/:id", acad.destroySubject)
}

// guardAreas runs the access.Guard on every request. A redirect is terminal: the handler is not invoked.
func (s *Server) guardAreas(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		id := access.IdentityFrom(ctx.Request().Context())
		decision := s.guard.Decide(id, s.areas[ctx.Path()], ctx.Request().URL.Path)
		if decision.Allow {
			return next(ctx)
		}
		s.deps.Metrics.guardRedirects.WithLabelValues(decision.RedirectTo).Inc()
		return ctx.Redirect(http.StatusFound, s.app.Reverse(decision.RedirectTo))
	}
}

// Start listens on conf.Server.Address until the server is shut down. Listening errors are sent to Errors.
func (s *Server) Start() {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	if err := s.app.Start(s.conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already signaled
	}
}

// Shutdown gracefully stops the server, waiting for the outstanding requests until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

// Close stops the server immediately.
func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}
