package echoapi

import (
	"net/http"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/tripsync/core"
)

const (
	tokenContextKey   = "userToken"
	accountContextKey = "account"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	Email string `json:"email,omitempty"`
	Role  string `json:"role"`
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"token"`
		Role  string `json:"role"`
	}

	registerRequest struct {
		Name     string  `json:"name" validate:"notblank"`
		Email    string  `json:"email" validate:"required,email"`
		Password string  `json:"password" validate:"required"`
		Phone    string  `json:"phone"`
		Role     string  `json:"role" validate:"oneof=student driver parent admin"`
		Child    *string `json:"child"`
	}

	passwordChange struct {
		OldPassword string `json:"oldPassword" validate:"required"`
		NewPassword string `json:"newPassword" validate:"required,min=6"`
	}
)

func (s *server) jwtConfig() middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(s.opts.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    tokenContextKey,
		Claims:        new(Claims),
	}
}

func (s *server) claimsFor(acc account) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    s.opts.AppName,
			Subject:   acc.ID,
			ExpiresAt: now.Add(s.opts.TokenTTL).Unix(),
			IssuedAt:  now.Unix(),
		},
		Email: acc.Email,
		Role:  acc.Role,
	}
}

// GenerateToken generates a signed JWT token string representing the Claims.
func (s *server) GenerateToken(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString([]byte(s.opts.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(tokenContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errNotAuthenticated
}

// getContextAccount returns the account of the request's token.
func getContextAccount(ctx echo.Context) account {
	acc, _ := ctx.Get(accountContextKey).(account)
	return acc
}

// roleMiddleware loads the token's account and rejects roles not listed (any role when none).
func (s *server) roleMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			acc, ok := s.db.accountByID(claims.Subject)
			if !ok {
				return errInvalidToken
			}
			ctx.Set(accountContextKey, acc)
			if len(roles) == 0 {
				return next(ctx)
			}
			for _, role := range roles {
				if acc.Role == role {
					return next(ctx)
				}
			}
			return errForbidden
		}
	}
}

func bindValid(ctx echo.Context, v interface{}) error {
	if err := ctx.Bind(v); err != nil {
		return err
	}
	return core.Validate.Struct(v)
}

func (s *server) login(ctx echo.Context) error {
	var data LoginRequest
	if err := bindValid(ctx, &data); err != nil {
		return err
	}
	acc, ok := s.db.accountByEmail(data.Email)
	if !ok || acc.checkPassword(data.Password) != nil {
		return errLoginFailed
	}
	token, err := s.GenerateToken(s.claimsFor(acc))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, Role: acc.Role})
}

func (s *server) register(ctx echo.Context) error {
	var data registerRequest
	if err := bindValid(ctx, &data); err != nil {
		return err
	}
	acc := account{Name: core.CleanString(data.Name), Email: data.Email, Phone: core.CleanString(data.Phone), Role: data.Role}
	if data.Child != nil {
		acc.Child = core.CleanString(*data.Child)
	}
	acc, err := s.db.createAccount(acc, data.Password)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, echo.Map{
		"message": "User registered successfully",
		"user":    echo.Map{"_id": acc.ID, "name": acc.Name, "email": acc.Email, "role": acc.Role},
	})
}

func (s *server) changePassword(ctx echo.Context) error {
	var data passwordChange
	if err := bindValid(ctx, &data); err != nil {
		return err
	}
	if err := s.db.changePassword(getContextAccount(ctx).ID, data.OldPassword, data.NewPassword); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"message": "Password changed successfully"})
}
