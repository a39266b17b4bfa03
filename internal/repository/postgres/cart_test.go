package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Andres4532/solhana-storefront/internal/domain"
	"github.com/Andres4532/solhana-storefront/pkg/database"
	apperrors "github.com/Andres4532/solhana-storefront/pkg/errors"
)

func newCartRepo(t *testing.T) (*CartRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	return NewCartRepository(mock), mock
}

func strPtr(s string) *string { return &s }

var cartLineColumns = []string{
	"id", "customer_id", "session_id", "product_id", "variant_id",
	"quantity", "unit_price", "color", "size", "created_at", "updated_at",
}

func TestCartRepository_ListByOwner_EnrichesLines(t *testing.T) {
	repo, mock := newCartRepo(t)

	now := time.Now().UTC().Truncate(time.Microsecond)
	owner := domain.SessionOwner("session_1700000000000_abc123xyz")

	rows := pgxmock.NewRows(append(cartLineColumns,
		"name", "sku", "price", "discount_pct", "original_price", "image_url", "attributes",
	)).AddRow(
		"line-001", nil, strPtr("session_1700000000000_abc123xyz"), "prod-001", strPtr("var-001"),
		2, int64(4500), strPtr("Rojo"), strPtr("M"), now, now,
		"Vestido Lino", "VES-001", int64(5000), 10.0, nil, strPtr("https://cdn/img.jpg"),
		[]byte(`{"Color":"Rojo","TALLA":"M"}`),
	)

	mock.ExpectQuery("SELECT(.|\n)*FROM cart_lines cl").
		WithArgs("session_1700000000000_abc123xyz").
		WillReturnRows(rows)

	items, err := repo.ListByOwner(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, items, 1)

	item := items[0]
	assert.Equal(t, "line-001", item.ID)
	assert.Equal(t, int64(9000), item.Subtotal, "subtotal is unit price times quantity")
	assert.Equal(t, "Vestido Lino", item.ProductName)
	assert.Equal(t, 10.0, item.ProductDiscountPct)
	assert.Equal(t, "Rojo", item.VariantAttributes["Color"])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepository_ListByOwner_CustomerOwner(t *testing.T) {
	repo, mock := newCartRepo(t)

	rows := pgxmock.NewRows(append(cartLineColumns,
		"name", "sku", "price", "discount_pct", "original_price", "image_url", "attributes",
	))

	mock.ExpectQuery("WHERE cl.customer_id").
		WithArgs("cust-001").
		WillReturnRows(rows)

	items, err := repo.ListByOwner(context.Background(), domain.CustomerOwner("cust-001"))
	require.NoError(t, err)
	assert.Empty(t, items)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepository_FindLine_NotFound(t *testing.T) {
	repo, mock := newCartRepo(t)

	mock.ExpectQuery("SELECT(.|\n)*FROM cart_lines").
		WithArgs("cust-001", "prod-001", (*string)(nil)).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.FindLine(context.Background(), domain.CustomerOwner("cust-001"), "prod-001", nil)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepository_FindLine_Found(t *testing.T) {
	repo, mock := newCartRepo(t)

	now := time.Now().UTC().Truncate(time.Microsecond)
	rows := pgxmock.NewRows(cartLineColumns).AddRow(
		"line-001", strPtr("cust-001"), nil, "prod-001", strPtr("var-001"),
		1, int64(4500), strPtr("Rojo"), strPtr("M"), now, now,
	)

	mock.ExpectQuery("SELECT(.|\n)*FROM cart_lines").
		WithArgs("cust-001", "prod-001", strPtr("var-001")).
		WillReturnRows(rows)

	line, err := repo.FindLine(context.Background(), domain.CustomerOwner("cust-001"), "prod-001", strPtr("var-001"))
	require.NoError(t, err)
	assert.Equal(t, "line-001", line.ID)
	assert.Equal(t, 1, line.Quantity)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepository_InsertLine_Success(t *testing.T) {
	repo, mock := newCartRepo(t)

	now := time.Now().UTC().Truncate(time.Microsecond)
	line := &domain.CartLine{
		ID:        "line-001",
		SessionID: strPtr("session_1700000000000_abc123xyz"),
		ProductID: "prod-001",
		VariantID: strPtr("var-001"),
		Quantity:  1,
		UnitPrice: 4500,
		Color:     strPtr("Rojo"),
		Size:      strPtr("M"),
		CreatedAt: now,
		UpdatedAt: now,
	}

	mock.ExpectExec("INSERT INTO cart_lines").
		WithArgs(
			line.ID, line.CustomerID, line.SessionID, line.ProductID, line.VariantID,
			line.Quantity, line.UnitPrice, line.Color, line.Size, line.CreatedAt, line.UpdatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	assert.NoError(t, repo.InsertLine(context.Background(), line))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepository_UpdateQuantity_NotFound(t *testing.T) {
	repo, mock := newCartRepo(t)

	mock.ExpectExec("UPDATE cart_lines").
		WithArgs("line-missing", 3).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.UpdateQuantity(context.Background(), "line-missing", 3)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepository_DeleteAllForSession_UnknownTokenIsNoop(t *testing.T) {
	repo, mock := newCartRepo(t)

	mock.ExpectExec("DELETE FROM cart_lines WHERE session_id").
		WithArgs("session_1600000000000_oldoldold").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	assert.NoError(t, repo.DeleteAllForSession(context.Background(), "session_1600000000000_oldoldold"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepository_ReassignSession_MergesAndReowns(t *testing.T) {
	repo, mock := newCartRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE cart_lines AS c").
		WithArgs("session_1700000000000_abc123xyz", "cust-001").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("DELETE FROM cart_lines AS s").
		WithArgs("session_1700000000000_abc123xyz", "cust-001").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("UPDATE cart_lines").
		WithArgs("session_1700000000000_abc123xyz", "cust-001").
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))
	mock.ExpectQuery("SELECT count").
		WithArgs("cust-001").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectCommit()

	total, err := repo.ReassignSession(context.Background(), "session_1700000000000_abc123xyz", "cust-001")
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepository_ReassignSession_RollsBackOnError(t *testing.T) {
	repo, mock := newCartRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE cart_lines AS c").
		WithArgs("session_1700000000000_abc123xyz", "cust-001").
		WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	_, err := repo.ReassignSession(context.Background(), "session_1700000000000_abc123xyz", "cust-001")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "merge duplicate cart lines")

	assert.NoError(t, mock.ExpectationsWereMet())
}
