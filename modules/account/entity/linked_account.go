package entity

import (
	"time"

	"github.com/google/uuid"

	"schedshare/core/entity"
)

// LinkedAccount stores the OAuth credentials of an external provider account
// linked to a user. RefreshToken is encrypted at rest by the repository.
type LinkedAccount struct {
	entity.BaseEntity
	UserID         uuid.UUID  `db:"user_id" json:"user_id"`
	Provider       string     `db:"provider" json:"provider"`
	Email          string     `db:"email" json:"email"`
	AccessToken    *string    `db:"access_token" json:"-"`
	RefreshToken   *string    `db:"refresh_token" json:"-"`
	TokenExpiresAt *time.Time `db:"token_expires_at" json:"token_expires_at,omitempty"`
	IsActive       bool       `db:"is_active" json:"is_active"`
}

func (LinkedAccount) TableName() string {
	return "linked_accounts"
}
