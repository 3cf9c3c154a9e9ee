package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core"
	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core/user"
)

var (
	tokenContextKey  = "userToken"
	contextUserKey   = "user"
	contextPolicyKey = "policy"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	Username string   `json:"username,omitempty"`
	Email    string   `json:"email,omitempty"`
	Role     string   `json:"role,omitempty"` // admin | nurse | parent
	Roles    []string `json:"roles,omitempty"`
}

func newJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    tokenContextKey,
		Claims:        new(Claims),
	}
}

// authenticator issues tokens and resolves the caller behind them.
type authenticator struct {
	conf    *core.Config
	jwtConf middleware.JWTConfig
	svc     *user.Service
}

func (a authenticator) claimsFor(usr user.User) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    a.conf.AppName,
			Subject:   usr.ID,
			ExpiresAt: now.Add(a.conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Username: usr.Username,
		Email:    usr.Email,
		Role:     usr.PrimaryRole(),
		Roles:    usr.Roles,
	}
}

// GenerateToken generates a signed JWT token string representing the user's Claims.
func (a authenticator) GenerateToken(usr user.User) (string, error) {
	ss, _, err := a.issueToken(usr)
	return ss, err
}

// issueToken is GenerateToken, also returning the claims it signed.
func (a authenticator) issueToken(usr user.User) (string, *Claims, error) {
	claims := a.claimsFor(usr)
	method := jwt.GetSigningMethod(a.jwtConf.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(a.jwtConf.SigningKey)
	if err != nil {
		return "", nil, errors.Wrap(err, "signing token")
	}
	return ss, claims, nil
}

// GenerateToken signs a token for `usr` the way the API server configured with `conf` does.
func GenerateToken(conf *core.Config, usr user.User) (string, error) {
	a := authenticator{conf: conf, jwtConf: newJWTConfig(conf)}
	return a.GenerateToken(usr)
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(tokenContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// contextUser loads the caller once per request; deactivated accounts are refused even with a valid token.
func (a authenticator) contextUser(ctx echo.Context) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return user.User{}, err
	}
	usr, err := a.svc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if core.IsNotFound(err) {
			return user.User{}, errUnauthorized
		}
		return user.User{}, errors.Wrap(err, "finding user by ID")
	}
	if !usr.IsActive {
		return user.User{}, errAccountDeactivated
	}
	ctx.Set(contextUserKey, usr)
	return usr, nil
}
