package session

import (
	"context"

	"github.com/trezcool/tripsync/core"
)

type PasswordChange struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6,nefield=OldPassword"`
}

func (pc PasswordChange) Validate() error { return core.Validate.Struct(pc) }

// ChangePassword changes the logged in user's password; it is the same call for every role.
func ChangePassword(ctx context.Context, api core.API, oldPassword, newPassword string) error {
	pc := PasswordChange{OldPassword: oldPassword, NewPassword: newPassword}
	if err := pc.Validate(); err != nil {
		return err
	}
	return api.Post(ctx, "/api/auth/change-password", pc, nil)
}
