package memory

import (
	"context"
	"slices"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/rewear/internal/errs"
	"github.com/and161185/rewear/internal/model"
)

type swapRepo struct{ s *Store }

func (r *swapRepo) Create(_ context.Context, sr *model.SwapRequest) error {
	return r.s.write(func(st *state) error {
		if _, ok := st.swaps[sr.ID]; ok {
			return errs.ErrAlreadyExists
		}
		now := r.s.db.clock.Now()
		sr.CreatedAt, sr.UpdatedAt = now, now
		st.swaps[sr.ID] = *sr
		st.swapOrder = append(st.swapOrder, sr.ID)
		return nil
	})
}

func (r *swapRepo) GetByID(_ context.Context, id uuid.UUID) (*model.SwapRequest, error) {
	var out model.SwapRequest
	err := r.s.read(func(st *state) error {
		sr, ok := st.swaps[id]
		if !ok {
			return errs.ErrNotFound
		}
		out = sr
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *swapRepo) ListPendingForUser(_ context.Context, userID uuid.UUID) ([]model.SwapRequest, error) {
	var out []model.SwapRequest
	err := r.s.read(func(st *state) error {
		for i := len(st.swapOrder) - 1; i >= 0; i-- {
			sr := st.swaps[st.swapOrder[i]]
			if sr.Status == model.SwapPending && sr.Involves(userID) {
				out = append(out, sr)
			}
		}
		return nil
	})
	slices.SortStableFunc(out, func(a, b model.SwapRequest) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, err
}

func (r *swapRepo) TransitionStatus(_ context.Context, id uuid.UUID, from, to model.SwapStatus) error {
	return r.s.write(func(st *state) error {
		sr, ok := st.swaps[id]
		if !ok {
			return errs.ErrNotFound
		}
		if sr.Status != from {
			return errs.ErrPreconditionFailed
		}
		sr.Status = to
		sr.UpdatedAt = r.s.db.clock.Now()
		st.swaps[id] = sr
		return nil
	})
}

type txRepo struct{ s *Store }

func (r *txRepo) Append(_ context.Context, txs ...model.Transaction) error {
	return r.s.write(func(st *state) error {
		now := r.s.db.clock.Now()
		for _, t := range txs {
			t.CreatedAt = now
			st.txs = append(st.txs, t)
		}
		return nil
	})
}

func (r *txRepo) ListByUser(_ context.Context, userID uuid.UUID, limit int) ([]model.Transaction, error) {
	out := r.newestFirst(func(t model.Transaction) bool { return t.UserID == userID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *txRepo) ListByUserAndType(_ context.Context, userID uuid.UUID, typ model.TxType) ([]model.Transaction, error) {
	return r.newestFirst(func(t model.Transaction) bool { return t.UserID == userID && t.Type == typ }), nil
}

func (r *txRepo) newestFirst(match func(model.Transaction) bool) []model.Transaction {
	var out []model.Transaction
	_ = r.s.read(func(st *state) error {
		for i := len(st.txs) - 1; i >= 0; i-- {
			if match(st.txs[i]) {
				out = append(out, st.txs[i])
			}
		}
		return nil
	})
	return out
}
