package storage

import (
	"context"
	"fmt"

	"llm_proxy/internal/models"
)

// CredentialRepository reads credential rows from the external store.
// The table is owned by the operator tooling; this repository never writes.
type CredentialRepository struct {
	db *DB
}

// NewCredentialRepository creates a new credential repository.
func NewCredentialRepository(db *DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// ListAll returns every credential row currently in the store.
func (r *CredentialRepository) ListAll(ctx context.Context) ([]models.Credential, error) {
	var creds []models.Credential

	query := `SELECT token, owner_id, owner_name, created_at FROM user_keys`
	if err := r.db.conn.SelectContext(ctx, &creds, query); err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}

	return creds, nil
}
