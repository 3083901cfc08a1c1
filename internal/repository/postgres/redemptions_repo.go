package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cardrelay/cardrelay/internal/models"
	repo "github.com/cardrelay/cardrelay/internal/repository"
)

type redemptionsRepo struct{ pool *pgxpool.Pool }

func (r *redemptionsRepo) Create(ctx context.Context, red models.Redemption) (models.Redemption, error) {
	const q = `
INSERT INTO redemptions (
  request_id, username, telco, declared_amount, serial, pin, status, confirmed_amount
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
RETURNING created_at;
`
	err := r.pool.QueryRow(
		ctx, q,
		red.RequestID, red.Username, red.Telco, red.DeclaredAmount,
		red.Serial, red.Pin, red.Status, red.ConfirmedAmount,
	).Scan(&red.CreatedAt)
	return red, err
}

func (r *redemptionsRepo) GetByRequestID(ctx context.Context, requestID string) (models.Redemption, error) {
	var red models.Redemption
	err := r.pool.QueryRow(
		ctx,
		`SELECT request_id, username, telco, declared_amount, serial, pin, status, confirmed_amount, created_at
		   FROM redemptions
		  WHERE request_id=$1`,
		requestID,
	).Scan(&red.RequestID, &red.Username, &red.Telco, &red.DeclaredAmount,
		&red.Serial, &red.Pin, &red.Status, &red.ConfirmedAmount, &red.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Redemption{}, repo.ErrNotFound
	}
	return red, err
}

func (r *redemptionsRepo) SetResult(ctx context.Context, requestID string, status models.RedemptionStatus, confirmedAmount int64) error {
	tag, err := r.pool.Exec(
		ctx,
		`UPDATE redemptions
		    SET status=$2, confirmed_amount=$3, updated_at=now()
		  WHERE request_id=$1`,
		requestID, status, confirmedAmount,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}
