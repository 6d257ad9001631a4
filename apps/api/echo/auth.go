package echoapi

import (
	"context"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/trezcool/ead/core"
	"github.com/trezcool/ead/core/user"
)

const (
	contextTokenKey = "userToken"
	contextUserKey  = "user"
	tokenAudience   = "EAD"
)

// Claims are the JWT claims; the portal flags tell the frontends which portals the user may enter.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64    `json:"oriat,omitempty"` // issue time of the first token of a refresh chain
	Username     string   `json:"username,omitempty"`
	Email        string   `json:"email,omitempty"`
	IsAdmin      bool     `json:"is_admin,omitempty"`
	IsStudent    bool     `json:"is_student,omitempty"`
	IsPartner    bool     `json:"is_partner,omitempty"`
	IsPolo       bool     `json:"is_polo,omitempty"`
	Roles        []string `json:"roles,omitempty"`
}

// authenticator issues & refreshes stateless HS256 tokens. Nothing is kept server-side.
type authenticator struct {
	issuer       string
	key          []byte
	expiration   time.Duration
	refreshDelta time.Duration
	users        user.Service
}

func newAuthenticator(conf *core.Config, users user.Service) *authenticator {
	return &authenticator{
		issuer:       conf.AppName,
		key:          []byte(conf.SecretKey),
		expiration:   conf.Server.JWTExpirationDelta,
		refreshDelta: conf.Server.JWTRefreshExpirationDelta,
		users:        users,
	}
}

// middleware rejects requests without a valid bearer token and stores the parsed token in the context.
func (a *authenticator) middleware() echo.MiddlewareFunc {
	return middleware.JWTWithConfig(middleware.JWTConfig{
		SigningKey:    a.key,
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	})
}

// issue signs a token for usr. A zero origIssuedAt starts a new refresh chain.
func (a *authenticator) issue(usr user.User, origIssuedAt int64) (string, error) {
	now := time.Now()
	claims := &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    a.issuer,
			Subject:   usr.ID,
			Audience:  tokenAudience,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(a.expiration).Unix(),
		},
		OrigIssuedAt: lo.Ternary(origIssuedAt == 0, now.Unix(), origIssuedAt),
		Username:     usr.Username,
		Email:        usr.Email,
		IsAdmin:      usr.IsAdmin(),
		IsStudent:    usr.IsStudent(),
		IsPartner:    usr.IsPartner(),
		IsPolo:       usr.IsPolo(),
		Roles:        usr.Roles,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.key)
	return token, errors.Wrap(err, "signing token")
}

// login checks the credentials of an active user and records the login.
func (a *authenticator) login(ctx context.Context, uname, pwd string) (string, error) {
	usr, err := a.users.GetByUsernameOrEmail(ctx, uname)
	switch {
	case errors.Cause(err) == user.ErrNotFound:
		return "", errAuthenticationFailed
	case err != nil:
		return "", errors.Wrap(err, "finding user by username or email")
	case usr.CheckPassword(pwd) != nil:
		return "", errAuthenticationFailed
	case !usr.IsActive:
		return "", errAccountDeactivated
	}

	if usr, err = a.users.SetLastLogin(ctx, usr); err != nil {
		return "", errors.Wrap(err, "setting lastLogin")
	}
	return a.issue(usr, 0)
}

// refresh extends the context user's session until refreshDelta after the chain started.
func (a *authenticator) refresh(ctx echo.Context) (string, error) {
	claims, err := contextClaims(ctx)
	if err != nil {
		return "", err
	}
	usr, err := a.contextUser(ctx)
	if err != nil {
		return "", err
	}
	if !usr.IsActive {
		return "", errAccountDeactivated
	}
	if time.Now().After(time.Unix(claims.OrigIssuedAt, 0).Add(a.refreshDelta)) {
		return "", errRefreshExpired
	}
	return a.issue(usr, claims.OrigIssuedAt)
}

// contextUser loads the token's subject once per request.
// A user deleted since the token was issued is unauthenticated.
func (a *authenticator) contextUser(ctx echo.Context) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}
	claims, err := contextClaims(ctx)
	if err != nil {
		return user.User{}, err
	}

	usr, err := a.users.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return user.User{}, errUnauthorized
		}
		return user.User{}, errors.Wrap(err, "finding user by ID")
	}
	ctx.Set(contextUserKey, usr)
	return usr, nil
}

func contextClaims(ctx echo.Context) (Claims, error) {
	token, _ := ctx.Get(contextTokenKey).(*jwt.Token)
	if token == nil {
		return Claims{}, errUnauthorized
	}
	claims, ok := token.Claims.(*Claims)
	if !ok {
		return Claims{}, errUnauthorized
	}
	return *claims, nil
}
