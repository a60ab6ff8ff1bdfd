package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/rewear/internal/errs"
	"github.com/and161185/rewear/internal/model"
)

type itemRepo struct{ s *Store }

func (r *itemRepo) Create(_ context.Context, it *model.Item) error {
	return r.s.write(func(st *state) error {
		if _, ok := st.items[it.ID]; ok {
			return errs.ErrAlreadyExists
		}
		now := r.s.db.clock.Now()
		it.CreatedAt, it.UpdatedAt = now, now
		cp := *it
		cp.Tags = slices.Clone(it.Tags)
		cp.Images = slices.Clone(it.Images)
		st.items[it.ID] = cp
		st.itemOrder = append(st.itemOrder, it.ID)
		return nil
	})
}

func (r *itemRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Item, error) {
	var out model.Item
	err := r.s.read(func(st *state) error {
		it, ok := st.items[id]
		if !ok {
			return errs.ErrNotFound
		}
		out = it
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// collect returns matching items, newest inserted first.
func (r *itemRepo) collect(match func(model.Item) bool) ([]model.Item, error) {
	var out []model.Item
	err := r.s.read(func(st *state) error {
		for i := len(st.itemOrder) - 1; i >= 0; i-- {
			if it := st.items[st.itemOrder[i]]; match(it) {
				out = append(out, it)
			}
		}
		return nil
	})
	return out, err
}

func (r *itemRepo) ListApproved(_ context.Context, f model.ItemFilter) ([]model.Item, error) {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	out, err := r.collect(func(it model.Item) bool {
		if it.Status != model.ItemApproved {
			return false
		}
		if search != "" && !matchesSearch(it, search) {
			return false
		}
		if len(f.Tags) > 0 && !slices.ContainsFunc(f.Tags, func(t string) bool { return slices.Contains(it.Tags, t) }) {
			return false
		}
		return f.Category == "" || it.Category.Main == f.Category
	})
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(out, itemOrder(f.Sort))
	return out, nil
}

func matchesSearch(it model.Item, q string) bool {
	for _, s := range []string{it.Name, it.Description, it.Brand, strings.Join(it.Tags, " ")} {
		if strings.Contains(strings.ToLower(s), q) {
			return true
		}
	}
	return false
}

// itemOrder mirrors the SQL ordering, with nil prices lowest.
func itemOrder(s model.ItemSort) func(a, b model.Item) int {
	newest := func(a, b model.Item) int { return b.CreatedAt.Compare(a.CreatedAt) }
	price := func(it model.Item) (int64, bool) {
		if it.PointsValue == nil {
			return 0, false
		}
		return *it.PointsValue, true
	}
	byPrice := func(a, b model.Item) int {
		pa, oka := price(a)
		pb, okb := price(b)
		switch {
		case !oka && !okb:
			return 0
		case !oka:
			return -1
		case !okb:
			return 1
		}
		return cmp.Compare(pa, pb)
	}
	switch s {
	case model.SortOldest:
		return func(a, b model.Item) int { return a.CreatedAt.Compare(b.CreatedAt) }
	case model.SortPointsAsc:
		return func(a, b model.Item) int { return cmp.Or(byPrice(a, b), newest(a, b)) }
	case model.SortPointsDesc:
		return func(a, b model.Item) int { return cmp.Or(byPrice(b, a), newest(a, b)) }
	default:
		return newest
	}
}

func (r *itemRepo) ListByStatus(_ context.Context, status model.ItemStatus) ([]model.Item, error) {
	out, err := r.collect(func(it model.Item) bool { return it.Status == status })
	if err != nil {
		return nil, err
	}
	slices.Reverse(out)
	slices.SortStableFunc(out, itemOrder(model.SortOldest))
	return out, nil
}

func (r *itemRepo) ListByUploader(_ context.Context, userID uuid.UUID) ([]model.Item, error) {
	out, err := r.collect(func(it model.Item) bool { return it.Uploader.UserID == userID })
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(out, itemOrder(model.SortNewest))
	return out, nil
}

func (r *itemRepo) TransitionStatus(_ context.Context, id uuid.UUID, from, to model.ItemStatus) error {
	return r.s.write(func(st *state) error {
		it, ok := st.items[id]
		if !ok {
			return errs.ErrNotFound
		}
		if it.Status != from {
			return errs.ErrPreconditionFailed
		}
		it.Status = to
		it.UpdatedAt = r.s.db.clock.Now()
		st.items[id] = it
		return nil
	})
}

func (r *itemRepo) Moderate(_ context.Context, id uuid.UUID, to model.ItemStatus, adminID uuid.UUID, reason string) error {
	return r.s.write(func(st *state) error {
		it, ok := st.items[id]
		if !ok {
			return errs.ErrNotFound
		}
		if it.Status != model.ItemPending {
			return errs.ErrPreconditionFailed
		}
		it.Status = to
		it.RejectionReason = reason
		it.ApprovedBy = nil
		if to == model.ItemApproved {
			it.ApprovedBy = &adminID
		}
		it.UpdatedAt = r.s.db.clock.Now()
		st.items[id] = it
		return nil
	})
}
