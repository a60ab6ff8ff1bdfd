package memory

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/rewear/internal/errs"
	"github.com/and161185/rewear/internal/model"
)

type userRepo struct{ s *Store }

func (r *userRepo) Create(_ context.Context, u *model.User) error {
	return r.s.write(func(st *state) error {
		email := normEmail(u.Email)
		if _, ok := st.users[u.ID]; ok {
			return errs.ErrAlreadyExists
		}
		if _, ok := st.userEmails[email]; ok {
			return errs.ErrAlreadyExists
		}
		for _, other := range st.users {
			if strings.EqualFold(other.Username, u.Username) {
				return errs.ErrAlreadyExists
			}
		}
		now := r.s.db.clock.Now()
		u.CreatedAt, u.UpdatedAt = now, now
		st.users[u.ID] = *u
		st.userEmails[email] = u.ID
		return nil
	})
}

func (r *userRepo) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	var out model.User
	err := r.s.read(func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return errs.ErrNotFound
		}
		out = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var id uuid.UUID
	err := r.s.read(func(st *state) error {
		var ok bool
		if id, ok = st.userEmails[normEmail(email)]; !ok {
			return errs.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *userRepo) AdjustPoints(_ context.Context, id uuid.UUID, delta int64) (int64, error) {
	var balance int64
	err := r.s.write(func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return errs.ErrNotFound
		}
		if u.Points+delta < 0 {
			return errs.ErrInsufficientPoints
		}
		u.Points += delta
		u.UpdatedAt = r.s.db.clock.Now()
		st.users[id] = u
		balance = u.Points
		return nil
	})
	return balance, err
}

func (r *userRepo) SetLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	return r.s.write(func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return errs.ErrNotFound
		}
		u.LastLogin = &at
		u.UpdatedAt = r.s.db.clock.Now()
		st.users[id] = u
		return nil
	})
}

type adminRepo struct{ s *Store }

func (r *adminRepo) Create(_ context.Context, a *model.Admin) error {
	return r.s.write(func(st *state) error {
		email := normEmail(a.Email)
		if _, ok := st.admins[a.ID]; ok {
			return errs.ErrAlreadyExists
		}
		if _, ok := st.adminEmails[email]; ok {
			return errs.ErrAlreadyExists
		}
		a.CreatedAt = r.s.db.clock.Now()
		st.admins[a.ID] = *a
		st.adminEmails[email] = a.ID
		return nil
	})
}

func (r *adminRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Admin, error) {
	var out model.Admin
	err := r.s.read(func(st *state) error {
		a, ok := st.admins[id]
		if !ok {
			return errs.ErrNotFound
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *adminRepo) GetByEmail(ctx context.Context, email string) (*model.Admin, error) {
	var id uuid.UUID
	err := r.s.read(func(st *state) error {
		var ok bool
		if id, ok = st.adminEmails[normEmail(email)]; !ok {
			return errs.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *adminRepo) ListPending(_ context.Context) ([]model.Admin, error) {
	var out []model.Admin
	err := r.s.read(func(st *state) error {
		for _, a := range st.admins {
			if !a.Approved {
				out = append(out, a)
			}
		}
		return nil
	})
	sortAdmins(out)
	return out, err
}

func (r *adminRepo) Approve(_ context.Context, id, approverID uuid.UUID) error {
	return r.s.write(func(st *state) error {
		a, ok := st.admins[id]
		if !ok {
			return errs.ErrNotFound
		}
		if a.Approved {
			return errs.ErrPreconditionFailed
		}
		a.Approved = true
		a.ApprovedBy = &approverID
		st.admins[id] = a
		return nil
	})
}

func sortAdmins(as []model.Admin) {
	slices.SortStableFunc(as, func(a, b model.Admin) int { return a.CreatedAt.Compare(b.CreatedAt) })
}
