package postgres

import (
	"context"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/and161185/rewear/internal/errs"
	"github.com/and161185/rewear/internal/model"
)

// SwapRepo implements SwapRepository using PostgreSQL.
type SwapRepo struct {
	q    querier
	lock bool
}

const swapCols = `id, requester_id, requester_item_id, receiver_id, receiver_item_id, status, created_at, updated_at`

// Create inserts a proposal.
func (r *SwapRepo) Create(ctx context.Context, s *model.SwapRequest) error {
	const q = `
INSERT INTO swap_requests (id, requester_id, requester_item_id, receiver_id, receiver_item_id, status)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING created_at, updated_at`
	err := r.q.QueryRow(ctx, q,
		s.ID, s.Requester.UserID, s.Requester.ItemID, s.Receiver.UserID, s.Receiver.ItemID, string(s.Status),
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	return classify(err)
}

// GetByID selects a proposal by id.
func (r *SwapRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.SwapRequest, error) {
	q := `SELECT ` + swapCols + ` FROM swap_requests WHERE id=$1` + forUpdate(r.lock)
	s, err := scanSwap(r.q.QueryRow(ctx, q, id))
	if err != nil {
		return nil, classify(err)
	}
	return s, nil
}

// ListPendingForUser returns pending proposals where the user is either party.
func (r *SwapRepo) ListPendingForUser(ctx context.Context, userID uuid.UUID) ([]model.SwapRequest, error) {
	const q = `SELECT ` + swapCols + ` FROM swap_requests
WHERE status='pending' AND (requester_id=$1 OR receiver_id=$1)
ORDER BY created_at DESC`
	rows, err := r.q.Query(ctx, q, userID)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var out []model.SwapRequest
	for rows.Next() {
		s, err := scanSwap(rows)
		if err != nil {
			return nil, classify(err)
		}
		out = append(out, *s)
	}
	return out, classify(rows.Err())
}

// TransitionStatus is a compare-and-set on the status column.
func (r *SwapRepo) TransitionStatus(ctx context.Context, id uuid.UUID, from, to model.SwapStatus) error {
	const q = `UPDATE swap_requests SET status=$3, updated_at=now() WHERE id=$1 AND status=$2`
	tag, err := r.q.Exec(ctx, q, id, string(from), string(to))
	if err != nil {
		return classify(err)
	}
	if tag.RowsAffected() == 0 {
		return missingOr(ctx, r.q, "swap_requests", id, errs.ErrPreconditionFailed)
	}
	return nil
}

func scanSwap(row pgx.Row) (*model.SwapRequest, error) {
	var (
		s  model.SwapRequest
		st string
	)
	err := row.Scan(&s.ID, &s.Requester.UserID, &s.Requester.ItemID, &s.Receiver.UserID, &s.Receiver.ItemID,
		&st, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.Status = model.SwapStatus(st)
	return &s, nil
}

// TxRepo implements TransactionRepository using PostgreSQL.
type TxRepo struct{ q querier }

const txCols = `id, user_id, type, description, points_change, related_items, related_users, created_at`

// Append inserts ledger records. Callers batch them inside Store.Atomic.
func (r *TxRepo) Append(ctx context.Context, txs ...model.Transaction) error {
	const q = `
INSERT INTO transactions (id, user_id, type, description, points_change, related_items, related_users)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for _, t := range txs {
		if _, err := r.q.Exec(ctx, q, t.ID, t.UserID, string(t.Type), t.Description, t.PointsChange,
			uuidsOrEmpty(t.RelatedItems), uuidsOrEmpty(t.RelatedUsers)); err != nil {
			return classify(err)
		}
	}
	return nil
}

// ListByUser returns the newest records first.
func (r *TxRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]model.Transaction, error) {
	if limit > 0 {
		return r.list(ctx, `SELECT `+txCols+` FROM transactions WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2`, userID, limit)
	}
	return r.list(ctx, `SELECT `+txCols+` FROM transactions WHERE user_id=$1 ORDER BY created_at DESC`, userID)
}

// ListByUserAndType returns the user's records of one type, newest first.
func (r *TxRepo) ListByUserAndType(ctx context.Context, userID uuid.UUID, typ model.TxType) ([]model.Transaction, error) {
	return r.list(ctx, `SELECT `+txCols+` FROM transactions WHERE user_id=$1 AND type=$2 ORDER BY created_at DESC`, userID, string(typ))
}

func (r *TxRepo) list(ctx context.Context, q string, args ...any) ([]model.Transaction, error) {
	rows, err := r.q.Query(ctx, q, args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var out []model.Transaction
	for rows.Next() {
		var (
			t   model.Transaction
			typ string
		)
		if err := rows.Scan(&t.ID, &t.UserID, &typ, &t.Description, &t.PointsChange,
			&t.RelatedItems, &t.RelatedUsers, &t.CreatedAt); err != nil {
			return nil, classify(err)
		}
		t.Type = model.TxType(typ)
		out = append(out, t)
	}
	return out, classify(rows.Err())
}

func uuidsOrEmpty(ids []uuid.UUID) []uuid.UUID {
	if ids == nil {
		return []uuid.UUID{}
	}
	return ids
}
