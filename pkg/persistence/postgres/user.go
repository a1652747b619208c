package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/atelierhq/easel/pkg/models"
	"github.com/atelierhq/easel/pkg/persistence"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// storedUser carries the password hash, which the API representation of
// models.User deliberately omits.
type storedUser struct {
	models.User

	PasswordHash []byte `json:"password_hash"`
}

type userRepository struct {
	db *sql.DB
}

func (r *userRepository) Save(ctx context.Context, user *models.User) error {
	document, err := json.Marshal(&storedUser{User: *user, PasswordHash: user.PasswordHash})
	if err != nil {
		return persistence.NewStoreError("Save", user.ID, err)
	}

	query := `
		INSERT INTO users (id, email, document)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE
			SET email = EXCLUDED.email
			  , document = EXCLUDED.document
	`

	if _, err := r.db.ExecContext(ctx, query, user.ID, user.Email, document); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return persistence.ErrUserAlreadyExists
		}

		return persistence.NewStoreError("Save", user.ID, err)
	}

	return nil
}

func (r *userRepository) ByID(ctx context.Context, id string) (*models.User, error) {
	return r.byQuery(ctx, "ByID", id, "SELECT document FROM users WHERE id = $1")
}

func (r *userRepository) ByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.byQuery(ctx, "ByEmail", email, "SELECT document FROM users WHERE email = $1")
}

func (r *userRepository) byQuery(ctx context.Context, op, key, query string) (*models.User, error) {
	var document []byte

	err := r.db.QueryRowContext(ctx, query, key).Scan(&document)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrUserNotFound
		}

		return nil, persistence.NewStoreError(op, key, err)
	}

	var stored storedUser
	if err := json.Unmarshal(document, &stored); err != nil {
		return nil, persistence.NewStoreError(op, key, err)
	}

	user := stored.User
	user.PasswordHash = stored.PasswordHash

	return &user, nil
}
