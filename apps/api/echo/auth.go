package echoapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/access"
	"github.com/trezcool/academia/core/account"
	"github.com/trezcool/academia/core/session"
)

const (
	endpointPasswordReset        = "password-reset"
	endpointPasswordResetConfirm = "password-reset-confirm"

	contextSessionKey = "session"
	contextAccountKey = "account"
)

// login attempt outcomes
const (
	loginSuccess       = "success"
	loginNoMatch       = "no_match"
	loginCaptchaFailed = "captcha_failed"
	loginError         = "error"
)

var (
	errInvalidToken    = errors.New("invalid session token")
	errNoIdentity      = echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	passwordResetReply = SuccessResponse{
		Success: "If the email address supplied is associated with an account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	}
)

// tokenSigner issues the session cookie value: an HS256 JWT carrying the session ID.
type tokenSigner struct {
	method jwt.SigningMethod
	key    []byte
	issuer string
}

func newTokenSigner(conf *core.Config) *tokenSigner {
	return &tokenSigner{
		method: jwt.SigningMethodHS256,
		key:    []byte(conf.SecretKey),
		issuer: conf.AppName,
	}
}

func (ts *tokenSigner) sign(sess session.Session) (string, error) {
	claims := jwt.StandardClaims{
		Id:        sess.ID,
		Subject:   strconv.Itoa(sess.AccountID),
		Issuer:    ts.issuer,
		IssuedAt:  sess.CreatedAt.Unix(),
		ExpiresAt: sess.ExpiresAt.Unix(),
	}
	ss, err := jwt.NewWithClaims(ts.method, claims).SignedString(ts.key)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// parse returns the session ID carried by a valid, unexpired token.
func (ts *tokenSigner) parse(raw string) (string, error) {
	claims := new(jwt.StandardClaims)
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != ts.method.Alg() {
			return nil, errors.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return ts.key, nil
	})
	if err != nil || !token.Valid || claims.Id == "" {
		return "", errInvalidToken
	}
	return claims.Id, nil
}

// identify sets the access.Identity of the request from its session cookie.
// Missing, forged, expired and unknown sessions are anonymous, as are sessions of deleted accounts.
func (s *Server) identify(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		var id access.Identity

		if cookie, err := ctx.Cookie(s.conf.Server.SessionCookieName); err == nil {
			if sessID, err := s.tokens.parse(cookie.Value); err == nil {
				reqCtx := ctx.Request().Context()
				sess, err := s.deps.Sessions.Get(reqCtx, sessID)
				switch {
				case err == nil:
					acc, err := s.deps.AccountSvc.GetByID(reqCtx, sess.AccountID)
					switch {
					case err == nil:
						id = access.Identity{AccountID: sess.AccountID, Role: sess.Role}
						ctx.Set(contextSessionKey, sess)
						ctx.Set(contextAccountKey, acc)
					case errors.Cause(err) == account.ErrNotFound:
						// the account was deleted
						if err = s.deps.Sessions.Delete(reqCtx, sess.ID); err != nil {
							return errors.Wrap(err, "deleting orphan session")
						}
					default:
						return errors.Wrap(err, "finding session account")
					}
				case errors.Cause(err) != session.ErrNotFound:
					return errors.Wrap(err, "getting session")
				}
			}
		}

		req := ctx.Request()
		ctx.SetRequest(req.WithContext(access.WithIdentity(req.Context(), id)))
		return next(ctx)
	}
}

func (s *Server) setSessionCookie(ctx echo.Context, value string, expires time.Time) {
	ctx.SetCookie(&http.Cookie{
		Name:     s.conf.Server.SessionCookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   s.conf.Server.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// contextAccount returns the Account making the request.
func (s *Server) contextAccount(ctx echo.Context) (account.Account, error) {
	if acc, ok := ctx.Get(contextAccountKey).(account.Account); ok {
		return acc, nil
	}

	id := access.IdentityFrom(ctx.Request().Context())
	if !id.Authenticated() {
		return account.Account{}, errNoIdentity
	}
	acc, err := s.deps.AccountSvc.GetByID(ctx.Request().Context(), id.AccountID)
	if err != nil {
		return account.Account{}, errors.Wrap(err, "finding account by ID")
	}
	ctx.Set(contextAccountKey, acc)
	return acc, nil
}

type authApi struct {
	srv *Server
}

// loginPage redirects authenticated accounts to their home.
func (api authApi) loginPage(ctx echo.Context) error {
	id := access.IdentityFrom(ctx.Request().Context())
	if home, ok := access.Home(id.Role); ok && id.Authenticated() {
		return ctx.Redirect(http.StatusFound, api.srv.app.Reverse(home))
	}
	return ctx.JSON(http.StatusOK, echo.Map{
		"page":            access.EndpointLoginPage,
		"app":             api.srv.conf.AppName,
		"captcha_enabled": api.srv.conf.Captcha.Enabled,
	})
}

// login verifies the captcha, then the credentials. On success it starts a session and redirects to the role home.
func (api authApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}

	acc, err := api.authenticate(ctx, data)
	api.srv.deps.Metrics.loginAttempts.WithLabelValues(loginOutcome(err)).Inc()
	if err != nil {
		return err
	}

	home, ok := access.Home(acc.Role)
	if !ok {
		return errors.Wrapf(account.ErrInvalidRole, "account %d", acc.ID)
	}
	sess := session.New(acc, api.srv.conf.Server.SessionTTL)
	if err = api.srv.deps.Sessions.Save(ctx.Request().Context(), sess); err != nil {
		return errors.Wrap(err, "saving session")
	}
	token, err := api.srv.tokens.sign(sess)
	if err != nil {
		return err
	}
	api.srv.setSessionCookie(ctx, token, sess.ExpiresAt)
	return ctx.Redirect(http.StatusSeeOther, api.srv.app.Reverse(home))
}

func (api authApi) authenticate(ctx echo.Context, data LoginRequest) (account.Account, error) {
	reqCtx := ctx.Request().Context()
	if err := api.srv.deps.Captcha.Verify(reqCtx, data.CaptchaToken, ctx.RealIP()); err != nil {
		return account.Account{}, err
	}

	acc, err := api.srv.deps.Resolver.Resolve(reqCtx, data.Email, data.Password)
	if err != nil {
		return account.Account{}, err
	}
	if acc, err = api.srv.deps.AccountSvc.SetLastLogin(reqCtx, acc); err != nil {
		return account.Account{}, errors.Wrap(err, "setting lastLogin")
	}
	return acc, nil
}

func loginOutcome(err error) string {
	switch errors.Cause(err) {
	case nil:
		return loginSuccess
	case account.ErrNoMatch:
		return loginNoMatch
	case core.ErrCaptchaFailed:
		return loginCaptchaFailed
	default:
		return loginError
	}
}

func (api authApi) logout(ctx echo.Context) error {
	if sess, ok := ctx.Get(contextSessionKey).(session.Session); ok {
		if err := api.srv.deps.Sessions.Delete(ctx.Request().Context(), sess.ID); err != nil {
			return errors.Wrap(err, "deleting session")
		}
	}
	api.srv.setSessionCookie(ctx, "", time.Unix(0, 0))
	return ctx.Redirect(http.StatusSeeOther, api.srv.app.Reverse(access.EndpointLoginPage))
}

func (api authApi) requestPasswordReset(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := data.Validate(api.srv.deps.Validate); err != nil {
		return err
	}

	err := api.srv.deps.AccountSvc.RequestPasswordReset(ctx.Request().Context(), data.Email)
	if err != nil && errors.Cause(err) != account.ErrNotFound {
		// do not return errors to attackers
		api.srv.logger.Error("requesting password reset", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, passwordResetReply)
}

func (api authApi) confirmPasswordReset(ctx echo.Context) error {
	var data account.ResetPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetPassword")
	}
	if err := data.Validate(api.srv.deps.Validate); err != nil {
		return err
	}

	if err := api.srv.deps.AccountSvc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been reset with the new password."})
}

type (
	LoginRequest struct {
		Email        string `json:"email" form:"email"`
		Password     string `json:"password" form:"password"`
		CaptchaToken string `json:"captcha_token" form:"g-recaptcha-response"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" form:"email" validate:"required,email"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

func (pr *PasswordResetRequest) Validate(validate *validator.Validate) error {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
	return validate.Struct(pr)
}
