package apisvc

import (
	"context"

	"github.com/trezcool/tripsync/core"
)

type (
	Credentials struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	// LoginResponse is the body of a successful POST /api/login.
	LoginResponse struct {
		Token string `json:"token"`
		Role  string `json:"role"`
	}
)

func (c Credentials) Validate() error { return core.Validate.Struct(c) }

// Login exchanges credentials for a bearer token and role.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	creds := Credentials{Email: core.CleanString(email, true), Password: password}
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	var res LoginResponse
	if err := c.Post(ctx, "/api/login", creds, &res); err != nil {
		return nil, err
	}
	if res.Token == "" {
		return nil, &core.APIError{Status: 200, Message: "Login failed: no token returned", Method: "POST", Path: "/api/login"}
	}
	return &res, nil
}
