package repository

import (
	"context"
	"database/sql"
	"time"

	"schedshare/core/crypto"
	"schedshare/core/database"
	"schedshare/core/logger"
	"schedshare/modules/account/entity"

	"github.com/google/uuid"
)

// Repository is the account store consumed by the sync engine's token
// provider. GetByUserAndProvider returns (nil, nil) when no account is linked.
type Repository interface {
	GetByUserAndProvider(ctx context.Context, userID uuid.UUID, provider string) (*entity.LinkedAccount, error)
	Upsert(ctx context.Context, acct *entity.LinkedAccount) error
	UpdateAccessToken(ctx context.Context, userID uuid.UUID, provider, accessToken string, expiresAt time.Time) error
	Deactivate(ctx context.Context, userID uuid.UUID, provider string) error
}

type accountRepository struct {
	db     database.IDatabase
	cipher *crypto.TokenCipher
}

func NewAccountRepository(db database.IDatabase, cipher *crypto.TokenCipher) Repository {
	return &accountRepository{db: db, cipher: cipher}
}

func (r *accountRepository) GetByUserAndProvider(ctx context.Context, userID uuid.UUID, provider string) (*entity.LinkedAccount, error) {
	var acct entity.LinkedAccount
	query := `
		SELECT id, user_id, provider, email, access_token, refresh_token, token_expires_at, is_active, created_at, updated_at
		FROM linked_accounts
		WHERE user_id = $1 AND provider = $2 AND is_active = true
	`
	err := r.db.GetContext(ctx, &acct, query, userID, provider)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("AccountRepository:GetByUserAndProvider:Error", "error", err, "user_id", userID, "provider", provider)
		return nil, err
	}

	if acct.RefreshToken != nil && *acct.RefreshToken != "" {
		plain, err := r.cipher.Decrypt(*acct.RefreshToken)
		if err != nil {
			logger.Error("AccountRepository:GetByUserAndProvider:DecryptError", "error", err, "user_id", userID)
			return nil, err
		}
		acct.RefreshToken = &plain
	}

	return &acct, nil
}

func (r *accountRepository) Upsert(ctx context.Context, acct *entity.LinkedAccount) error {
	stored := *acct
	if stored.RefreshToken != nil && *stored.RefreshToken != "" {
		enc, err := r.cipher.Encrypt(*stored.RefreshToken)
		if err != nil {
			logger.Error("AccountRepository:Upsert:EncryptError", "error", err, "user_id", acct.UserID)
			return err
		}
		stored.RefreshToken = &enc
	}

	query := `
		INSERT INTO linked_accounts (
			user_id, provider, email, access_token, refresh_token,
			token_expires_at, is_active, created_at, updated_at
		)
		VALUES (
			:user_id, :provider, :email, :access_token, :refresh_token,
			:token_expires_at, :is_active, NOW(), NOW()
		)
		ON CONFLICT (user_id, provider)
		DO UPDATE SET
			email = EXCLUDED.email,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_expires_at = EXCLUDED.token_expires_at,
			is_active = EXCLUDED.is_active,
			updated_at = NOW()
	`
	_, err := r.db.NamedExecContext(ctx, query, &stored)
	if err != nil {
		logger.Error("AccountRepository:Upsert:Error", "error", err, "user_id", acct.UserID)
		return err
	}
	return nil
}

func (r *accountRepository) UpdateAccessToken(ctx context.Context, userID uuid.UUID, provider, accessToken string, expiresAt time.Time) error {
	query := `
		UPDATE linked_accounts
		SET access_token = $1, token_expires_at = $2, updated_at = NOW()
		WHERE user_id = $3 AND provider = $4 AND is_active = true
	`
	if err := r.db.ExecContext(ctx, query, accessToken, expiresAt, userID, provider); err != nil {
		logger.Error("AccountRepository:UpdateAccessToken:Error", "error", err, "user_id", userID)
		return err
	}
	return nil
}

func (r *accountRepository) Deactivate(ctx context.Context, userID uuid.UUID, provider string) error {
	query := `
		UPDATE linked_accounts
		SET is_active = false, updated_at = NOW()
		WHERE user_id = $1 AND provider = $2
	`
	return r.db.ExecContext(ctx, query, userID, provider)
}
