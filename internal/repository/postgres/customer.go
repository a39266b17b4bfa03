package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Andres4532/solhana-storefront/pkg/database"
)

// CustomerRepository implements repository.CustomerRepository using PostgreSQL.
type CustomerRepository struct {
	pool database.DBTX
}

// NewCustomerRepository creates a new PostgreSQL-backed customer repository.
func NewCustomerRepository(pool database.DBTX) *CustomerRepository {
	return &CustomerRepository{pool: pool}
}

// UpsertByContact finds a customer by email (or phone when no email was
// given), creating one on first contact. Guests become customers the first
// time they check out; the name and phone are refreshed on later checkouts.
func (r *CustomerRepository) UpsertByContact(ctx context.Context, name, email, phone string) (string, error) {
	if email != "" {
		query := `
			INSERT INTO customers (id, name, email, phone, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $5)
			ON CONFLICT (email) DO UPDATE
			SET name = EXCLUDED.name, phone = EXCLUDED.phone, updated_at = EXCLUDED.updated_at
			RETURNING id`

		var id string
		err := r.pool.QueryRow(ctx, query, uuid.NewString(), name, email, phone, time.Now().UTC()).Scan(&id)
		if err != nil {
			return "", fmt.Errorf("upsert customer by email: %w", err)
		}
		return id, nil
	}

	query := `
		INSERT INTO customers (id, name, email, phone, created_at, updated_at)
		VALUES ($1, $2, NULL, $3, $4, $4)
		ON CONFLICT (phone) WHERE email IS NULL DO UPDATE
		SET name = EXCLUDED.name, updated_at = EXCLUDED.updated_at
		RETURNING id`

	var id string
	err := r.pool.QueryRow(ctx, query, uuid.NewString(), name, phone, time.Now().UTC()).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("upsert customer by phone: %w", err)
	}
	return id, nil
}
