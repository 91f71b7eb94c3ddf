package echoapi

import (
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/bbpbat/portal/core"
	"github.com/bbpbat/portal/core/participant"
	"github.com/bbpbat/portal/core/session"
	"github.com/bbpbat/portal/services/portalapi"
)

const (
	headerRefreshToken = "X-Refresh-Token"
	headerAccessToken  = "X-Access-Token" // set when the access token was refreshed during the request

	contextSessionKey = "session"
	contextClaimsKey  = "claims"
)

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Access  string           `json:"access"`
		Refresh string           `json:"refresh"`
		User    participant.User `json:"user"`
	}

	RefreshRequest struct {
		Refresh string `json:"refresh" validate:"required"`
	}

	RefreshResponse struct {
		Access string `json:"access"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}

type authApi struct {
	api      *portalapi.Client
	validate *validator.Validate
}

func registerAuthAPI(g *echo.Group, auth echo.MiddlewareFunc, api *portalapi.Client, validate *validator.Validate) {
	h := authApi{api: api, validate: validate}

	ag := g.Group("/auth")
	ag.POST("/login", h.login)
	ag.POST("/refresh", h.refresh)
	ag.GET("/me", h.me, auth)
}

func (h *authApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(h.validate); err != nil {
		return err
	}

	sess, usr, err := h.api.Login(ctx.Request().Context(), data.Email, data.Password)
	if err != nil {
		return errors.Wrap(err, "logging in")
	}
	if !usr.IsParticipant() {
		return errHttpForbidden
	}
	tokens := sess.Tokens()
	return ctx.JSON(http.StatusOK, LoginResponse{Access: tokens.Access, Refresh: tokens.Refresh, User: usr})
}

func (h *authApi) refresh(ctx echo.Context) error {
	var data RefreshRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RefreshRequest")
	}
	if err := h.validate.Struct(&data); err != nil {
		return err
	}

	sess := session.New(session.Tokens{Refresh: data.Refresh})
	if err := h.api.RefreshAccess(ctx.Request().Context(), sess); err != nil {
		return errors.Wrap(err, "refreshing access token")
	}
	return ctx.JSON(http.StatusOK, RefreshResponse{Access: sess.AccessToken()})
}

// me returns the account behind the access token, as the API knows it.
func (h *authApi) me(ctx echo.Context) error {
	sess, err := contextSession(ctx)
	if err != nil {
		return err
	}
	usr, err := h.api.For(sess).Me(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "fetching account")
	}
	return ctx.JSON(http.StatusOK, usr)
}

// sessionMiddleware builds the participant's session from the request headers. The tokens
// are not verified here: the remote API does that on every call. When the API client had
// to refresh the access token, the new one is sent back in X-Access-Token.
func sessionMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			auth := ctx.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(auth, "Bearer ") {
				return errUnauthorized
			}
			access := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			if access == "" {
				return errUnauthorized
			}

			sess := session.New(session.Tokens{Access: access, Refresh: ctx.Request().Header.Get(headerRefreshToken)})
			claims, err := sess.Claims()
			if err != nil {
				return errUnauthorized
			}
			if claims.Role != participant.RoleParticipant {
				return errHttpForbidden
			}

			ctx.Set(contextSessionKey, sess)
			ctx.Set(contextClaimsKey, claims)
			ctx.Response().Before(func() {
				if newAccess := sess.AccessToken(); newAccess != "" && newAccess != access {
					ctx.Response().Header().Set(headerAccessToken, newAccess)
				}
			})
			return next(ctx)
		}
	}
}

func contextSession(ctx echo.Context) (*session.Session, error) {
	if sess, ok := ctx.Get(contextSessionKey).(*session.Session); ok {
		return sess, nil
	}
	return nil, errUnauthorized
}

func contextClaims(ctx echo.Context) (*session.Claims, error) {
	if claims, ok := ctx.Get(contextClaimsKey).(*session.Claims); ok {
		return claims, nil
	}
	return nil, errUnauthorized
}

// contextUser is the participant the request is about, as far as the token tells.
func contextUser(ctx echo.Context) participant.User {
	var usr participant.User
	if claims, err := contextClaims(ctx); err == nil {
		usr.ID = claims.UserID
		usr.FullName = claims.FullName
		usr.Role = claims.Role
	}
	return usr
}
