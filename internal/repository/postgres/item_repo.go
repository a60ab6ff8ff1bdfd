package postgres

import (
	"context"
	"strconv"
	"strings"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/and161185/rewear/internal/errs"
	"github.com/and161185/rewear/internal/model"
)

// ItemRepo implements ItemRepository using PostgreSQL.
type ItemRepo struct {
	q    querier
	lock bool
}

// NewItemRepo constructs an item repository outside of any transaction.
func NewItemRepo(db *DB) *ItemRepo { return &ItemRepo{q: db.Pool} }

const itemCols = `id, name, description, brand, category_main, category_sub, tags, images,
uploader_id, uploader_username, listing_type, points_value, status, rejection_reason, approved_by,
created_at, updated_at`

// Create inserts a listing.
func (r *ItemRepo) Create(ctx context.Context, it *model.Item) error {
	const q = `
INSERT INTO items (id, name, description, brand, category_main, category_sub, tags, images,
uploader_id, uploader_username, listing_type, points_value, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
RETURNING created_at, updated_at`
	err := r.q.QueryRow(ctx, q,
		it.ID, it.Name, it.Description, it.Brand, it.Category.Main, it.Category.Sub, it.Tags, it.Images,
		it.Uploader.UserID, it.Uploader.Username, string(it.ListingType), it.PointsValue, string(it.Status),
	).Scan(&it.CreatedAt, &it.UpdatedAt)
	return classify(err)
}

// GetByID returns a single item by id.
func (r *ItemRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Item, error) {
	q := `SELECT ` + itemCols + ` FROM items WHERE id=$1` + forUpdate(r.lock)
	it, err := scanItem(r.q.QueryRow(ctx, q, id))
	if err != nil {
		return nil, classify(err)
	}
	return it, nil
}

// ListApproved returns approved items narrowed by the filter.
func (r *ItemRepo) ListApproved(ctx context.Context, f model.ItemFilter) ([]model.Item, error) {
	var sb strings.Builder
	args := []any{string(model.ItemApproved)}
	sb.WriteString(`SELECT ` + itemCols + ` FROM items WHERE status=$1`)

	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, likePattern(s))
		n := "$" + strconv.Itoa(len(args))
		sb.WriteString(` AND (name ILIKE ` + n + ` OR description ILIKE ` + n +
			` OR brand ILIKE ` + n + ` OR array_to_string(tags, ' ') ILIKE ` + n + `)`)
	}
	if len(f.Tags) > 0 {
		args = append(args, f.Tags)
		sb.WriteString(` AND tags && $` + strconv.Itoa(len(args)))
	}
	if f.Category != "" {
		args = append(args, f.Category)
		sb.WriteString(` AND category_main = $` + strconv.Itoa(len(args)))
	}
	sb.WriteString(` ORDER BY ` + orderBy(f.Sort))

	return r.list(ctx, sb.String(), args...)
}

// ListByStatus returns items in status, oldest first.
func (r *ItemRepo) ListByStatus(ctx context.Context, status model.ItemStatus) ([]model.Item, error) {
	q := `SELECT ` + itemCols + ` FROM items WHERE status=$1 ORDER BY created_at ASC`
	return r.list(ctx, q, string(status))
}

// ListByUploader returns a user's items, newest first.
func (r *ItemRepo) ListByUploader(ctx context.Context, userID uuid.UUID) ([]model.Item, error) {
	q := `SELECT ` + itemCols + ` FROM items WHERE uploader_id=$1 ORDER BY created_at DESC`
	return r.list(ctx, q, userID)
}

// TransitionStatus is a compare-and-set on the status column.
func (r *ItemRepo) TransitionStatus(ctx context.Context, id uuid.UUID, from, to model.ItemStatus) error {
	const q = `UPDATE items SET status=$3, updated_at=now() WHERE id=$1 AND status=$2`
	tag, err := r.q.Exec(ctx, q, id, string(from), string(to))
	if err != nil {
		return classify(err)
	}
	if tag.RowsAffected() == 0 {
		return missingOr(ctx, r.q, "items", id, errs.ErrPreconditionFailed)
	}
	return nil
}

// Moderate applies an admin decision to a pending item.
func (r *ItemRepo) Moderate(ctx context.Context, id uuid.UUID, to model.ItemStatus, adminID uuid.UUID, reason string) error {
	var approvedBy *uuid.UUID
	if to == model.ItemApproved {
		approvedBy = &adminID
	}
	const q = `
UPDATE items
SET status=$2, approved_by=$3, rejection_reason=$4, updated_at=now()
WHERE id=$1 AND status='pending'`
	tag, err := r.q.Exec(ctx, q, id, string(to), approvedBy, reason)
	if err != nil {
		return classify(err)
	}
	if tag.RowsAffected() == 0 {
		return missingOr(ctx, r.q, "items", id, errs.ErrPreconditionFailed)
	}
	return nil
}

func (r *ItemRepo) list(ctx context.Context, q string, args ...any) ([]model.Item, error) {
	rows, err := r.q.Query(ctx, q, args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var out []model.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, classify(err)
		}
		out = append(out, *it)
	}
	return out, classify(rows.Err())
}

func scanItem(row pgx.Row) (*model.Item, error) {
	var (
		it     model.Item
		lt, st string
	)
	err := row.Scan(
		&it.ID, &it.Name, &it.Description, &it.Brand, &it.Category.Main, &it.Category.Sub, &it.Tags, &it.Images,
		&it.Uploader.UserID, &it.Uploader.Username, &lt, &it.PointsValue, &st, &it.RejectionReason, &it.ApprovedBy,
		&it.CreatedAt, &it.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	it.ListingType = model.ListingType(lt)
	it.Status = model.ItemStatus(st)
	return &it, nil
}

// orderBy mirrors document-store null ordering: nulls sort lowest.
func orderBy(s model.ItemSort) string {
	switch s {
	case model.SortOldest:
		return "created_at ASC"
	case model.SortPointsAsc:
		return "points_value ASC NULLS FIRST, created_at DESC"
	case model.SortPointsDesc:
		return "points_value DESC NULLS LAST, created_at DESC"
	default:
		return "created_at DESC"
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(s string) string { return "%" + likeEscaper.Replace(s) + "%" }
