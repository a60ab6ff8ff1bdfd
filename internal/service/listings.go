package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/rewear/internal/errs"
	"github.com/and161185/rewear/internal/imagecheck"
	"github.com/and161185/rewear/internal/model"
	"github.com/and161185/rewear/internal/repository"
)

// ListingInput is what a user submits to list an item.
type ListingInput struct {
	Name        string
	Description string
	Brand       string
	Category    model.Category
	Tags        []string
	Images      []string
	ListingType model.ListingType
	PointsValue *int64
}

// ListingService defines catalogue operations.
type ListingService interface {
	// CreateListing submits an item for moderation.
	CreateListing(ctx context.Context, uploaderID uuid.UUID, in ListingInput) (*model.Item, error)
	// ListApproved returns the public catalogue.
	ListApproved(ctx context.Context, f model.ItemFilter) ([]model.Item, error)
	// GetItem returns one item by id.
	GetItem(ctx context.Context, id uuid.UUID) (*model.Item, error)
}

type ListingServiceImpl struct {
	store repository.Store
}

var _ ListingService = (*ListingServiceImpl)(nil)

// NewListingService constructs ListingService.
func NewListingService(store repository.Store) *ListingServiceImpl {
	return &ListingServiceImpl{store: store}
}

// Validate checks required fields, tags, images and the pricing rule.
func (in *ListingInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Description) == "" || strings.TrimSpace(in.Category.Main) == "" {
		return fmt.Errorf("%w: name, description and category are required", errs.ErrInvalidArgument)
	}
	if !in.ListingType.Valid() {
		return fmt.Errorf("%w: listing type must be swap or redeem", errs.ErrInvalidArgument)
	}
	for _, t := range in.Tags {
		if !model.ValidTag(t) {
			return fmt.Errorf("%w: unknown tag %q", errs.ErrInvalidArgument, t)
		}
	}
	if err := imagecheck.ValidateAll(in.Images); err != nil {
		return err
	}
	probe := model.Item{ListingType: in.ListingType, PointsValue: in.PointsValue}
	if err := probe.CheckPricing(); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrInvalidArgument, err)
	}
	return nil
}

// CreateListing stores a pending item owned by uploaderID.
func (s *ListingServiceImpl) CreateListing(ctx context.Context, uploaderID uuid.UUID, in ListingInput) (*model.Item, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	u, err := s.store.Users().GetByID(ctx, uploaderID)
	if err != nil {
		return nil, err
	}
	it := &model.Item{
		ID:          newID(),
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Brand:       strings.TrimSpace(in.Brand),
		Category:    model.Category{Main: strings.TrimSpace(in.Category.Main), Sub: strings.TrimSpace(in.Category.Sub)},
		Tags:        dedupe(in.Tags),
		Images:      in.Images,
		Uploader:    model.Uploader{UserID: u.ID, Username: u.Username},
		ListingType: in.ListingType,
		PointsValue: in.PointsValue,
		Status:      model.ItemPending,
	}
	if err := s.store.Items().Create(ctx, it); err != nil {
		return nil, err
	}
	return it, nil
}

// ListApproved delegates to the repository after normalizing the filter.
func (s *ListingServiceImpl) ListApproved(ctx context.Context, f model.ItemFilter) ([]model.Item, error) {
	switch f.Sort {
	case "", model.SortNewest, model.SortOldest, model.SortPointsAsc, model.SortPointsDesc:
	default:
		return nil, fmt.Errorf("%w: unknown sort %q", errs.ErrInvalidArgument, f.Sort)
	}
	return s.store.Items().ListApproved(ctx, f)
}

// GetItem returns the item regardless of status.
func (s *ListingServiceImpl) GetItem(ctx context.Context, id uuid.UUID) (*model.Item, error) {
	return s.store.Items().GetByID(ctx, id)
}

func dedupe(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		if _, ok := seen[t]; !ok {
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}
