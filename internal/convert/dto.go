// Package convert maps domain models to and from the JSON bodies of the HTTP API.
package convert

import (
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/rewear/internal/model"
	"github.com/and161185/rewear/internal/service"
)

// --- requests (client -> server) ---

// SignupRequest is shared by user and admin sign-up.
type SignupRequest struct {
	Username string `json:"username" binding:"required,min=3,max=32,alphanum"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=128"`
}

// LoginRequest is shared by user and admin login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type CategoryBody struct {
	Main string `json:"main" binding:"required"`
	Sub  string `json:"sub"`
}

// ListingRequest creates a listing. Tags are checked against the closed tag set.
type ListingRequest struct {
	Name        string       `json:"name" binding:"required,max=200"`
	Description string       `json:"description" binding:"required"`
	Brand       string       `json:"brand"`
	Category    CategoryBody `json:"category" binding:"required"`
	Tags        []string     `json:"tags" binding:"omitempty,dive,listingtag"`
	Images      []string     `json:"images" binding:"required,min=1,dive,required"`
	ListingType string       `json:"listingType" binding:"required,oneof=swap redeem"`
	PointsValue *int64       `json:"pointsValue" binding:"omitempty,gt=0"`
}

// SwapProposalRequest offers RequesterItemID for ReceiverItemID.
type SwapProposalRequest struct {
	ReceiverItemID  string `json:"receiverItemId" binding:"required,uuid"`
	RequesterItemID string `json:"requesterItemId" binding:"required,uuid"`
}

// SwapResponseRequest carries the receiver's decision.
type SwapResponseRequest struct {
	Response string `json:"response" binding:"required,oneof=accepted rejected"`
}

// ModerateRequest approves or rejects a pending listing.
type ModerateRequest struct {
	Action          string `json:"action" binding:"required,oneof=approve reject"`
	RejectionReason string `json:"rejectionReason"`
}

// ToListingInput converts the request body into the service input.
func (r ListingRequest) ToListingInput() service.ListingInput {
	tags := make([]string, 0, len(r.Tags))
	for _, t := range r.Tags {
		tags = append(tags, strings.ToLower(strings.TrimSpace(t)))
	}
	return service.ListingInput{
		Name:        r.Name,
		Description: r.Description,
		Brand:       r.Brand,
		Category:    model.Category{Main: r.Category.Main, Sub: r.Category.Sub},
		Tags:        tags,
		Images:      r.Images,
		ListingType: model.ListingType(r.ListingType),
		PointsValue: r.PointsValue,
	}
}

// ItemFilter builds a catalogue filter from query values. tags is comma separated.
func ItemFilter(search, tags, category, sort string) model.ItemFilter {
	f := model.ItemFilter{
		Search:   strings.TrimSpace(search),
		Category: strings.TrimSpace(category),
		Sort:     model.ItemSort(strings.TrimSpace(sort)),
	}
	for _, t := range strings.Split(tags, ",") {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			f.Tags = append(f.Tags, t)
		}
	}
	return f
}

// --- responses (server -> client) ---

type User struct {
	ID             string     `json:"id"`
	Username       string     `json:"username"`
	Email          string     `json:"email"`
	ProfilePicture string     `json:"profilePicture"`
	Points         int64      `json:"points"`
	LastLogin      *time.Time `json:"lastLogin,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

type Admin struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	Approved   bool      `json:"approved"`
	ApprovedBy *string   `json:"approvedBy,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

type Uploader struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

type Item struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	Description     string       `json:"description"`
	Brand           string       `json:"brand"`
	Category        CategoryBody `json:"category"`
	Tags            []string     `json:"tags"`
	Images          []string     `json:"images"`
	Uploader        Uploader     `json:"uploader"`
	ListingType     string       `json:"listingType"`
	PointsValue     *int64       `json:"pointsValue,omitempty"`
	Status          string       `json:"status"`
	RejectionReason string       `json:"rejectionReason,omitempty"`
	ApprovedBy      *string      `json:"approvedBy,omitempty"`
	CreatedAt       time.Time    `json:"createdAt"`
	UpdatedAt       time.Time    `json:"updatedAt"`
}

type SwapParty struct {
	UserID string `json:"userId"`
	ItemID string `json:"itemId"`
}

type SwapRequest struct {
	ID        string    `json:"id"`
	Requester SwapParty `json:"requester"`
	Receiver  SwapParty `json:"receiver"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Transaction struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	Description  string    `json:"description"`
	PointsChange int64     `json:"pointsChange"`
	RelatedItems []string  `json:"relatedItems"`
	RelatedUsers []string  `json:"relatedUsers"`
	CreatedAt    time.Time `json:"createdAt"`
}

type ItemsOverview struct {
	Listed   int `json:"listed"`
	Swapped  int `json:"swapped"`
	Redeemed int `json:"redeemed"`
	Rejected int `json:"rejected"`
}

type Dashboard struct {
	Profile               User          `json:"profile"`
	ItemsOverview         ItemsOverview `json:"itemsOverview"`
	Items                 []Item        `json:"items"`
	OngoingSwaps          []SwapRequest `json:"ongoingSwaps"`
	CompletedTransactions []Transaction `json:"completedTransactions"`
	LoginDates            []string      `json:"loginDates"`
}

type DailyBonus struct {
	Awarded bool  `json:"awarded"`
	Points  int64 `json:"points"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type LoginResponse struct {
	Token      string     `json:"token"`
	User       User       `json:"user"`
	DailyBonus DailyBonus `json:"dailyBonus"`
}

type AdminAuthResponse struct {
	Token string `json:"token"`
	Admin Admin  `json:"admin"`
}

type RedeemResponse struct {
	NewPoints int64 `json:"newPoints"`
}

func optID(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func ids(in []uuid.UUID) []string {
	out := make([]string, 0, len(in))
	for _, id := range in {
		out = append(out, id.String())
	}
	return out
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// ToUser omits credentials.
func ToUser(u model.User) User {
	return User{
		ID:             u.ID.String(),
		Username:       u.Username,
		Email:          u.Email,
		ProfilePicture: u.ProfilePictureURL,
		Points:         u.Points,
		LastLogin:      u.LastLogin,
		CreatedAt:      u.CreatedAt,
	}
}

func ToAdmin(a model.Admin) Admin {
	return Admin{
		ID:         a.ID.String(),
		Username:   a.Username,
		Email:      a.Email,
		Approved:   a.Approved,
		ApprovedBy: optID(a.ApprovedBy),
		CreatedAt:  a.CreatedAt,
	}
}

func ToAdmins(as []model.Admin) []Admin {
	out := make([]Admin, 0, len(as))
	for _, a := range as {
		out = append(out, ToAdmin(a))
	}
	return out
}

func ToItem(it model.Item) Item {
	return Item{
		ID:              it.ID.String(),
		Name:            it.Name,
		Description:     it.Description,
		Brand:           it.Brand,
		Category:        CategoryBody{Main: it.Category.Main, Sub: it.Category.Sub},
		Tags:            orEmpty(it.Tags),
		Images:          orEmpty(it.Images),
		Uploader:        Uploader{UserID: it.Uploader.UserID.String(), Username: it.Uploader.Username},
		ListingType:     string(it.ListingType),
		PointsValue:     it.PointsValue,
		Status:          string(it.Status),
		RejectionReason: it.RejectionReason,
		ApprovedBy:      optID(it.ApprovedBy),
		CreatedAt:       it.CreatedAt,
		UpdatedAt:       it.UpdatedAt,
	}
}

func ToItems(items []model.Item) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		out = append(out, ToItem(it))
	}
	return out
}

func ToSwap(s model.SwapRequest) SwapRequest {
	return SwapRequest{
		ID:        s.ID.String(),
		Requester: SwapParty{UserID: s.Requester.UserID.String(), ItemID: s.Requester.ItemID.String()},
		Receiver:  SwapParty{UserID: s.Receiver.UserID.String(), ItemID: s.Receiver.ItemID.String()},
		Status:    string(s.Status),
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func ToSwaps(ss []model.SwapRequest) []SwapRequest {
	out := make([]SwapRequest, 0, len(ss))
	for _, s := range ss {
		out = append(out, ToSwap(s))
	}
	return out
}

func ToTransaction(t model.Transaction) Transaction {
	return Transaction{
		ID:           t.ID.String(),
		Type:         string(t.Type),
		Description:  t.Description,
		PointsChange: t.PointsChange,
		RelatedItems: ids(t.RelatedItems),
		RelatedUsers: ids(t.RelatedUsers),
		CreatedAt:    t.CreatedAt,
	}
}

func ToDashboard(d model.Dashboard) Dashboard {
	txs := make([]Transaction, 0, len(d.CompletedTransactions))
	for _, t := range d.CompletedTransactions {
		txs = append(txs, ToTransaction(t))
	}
	return Dashboard{
		Profile: ToUser(d.Profile),
		ItemsOverview: ItemsOverview{
			Listed:   d.ItemsOverview.Listed,
			Swapped:  d.ItemsOverview.Swapped,
			Redeemed: d.ItemsOverview.Redeemed,
			Rejected: d.ItemsOverview.Rejected,
		},
		Items:                 ToItems(d.Items),
		OngoingSwaps:          ToSwaps(d.OngoingSwaps),
		CompletedTransactions: txs,
		LoginDates:            orEmpty(d.LoginDates),
	}
}

func ToLoginResponse(r service.LoginResult) LoginResponse {
	return LoginResponse{
		Token:      r.Tokens.AccessToken,
		User:       ToUser(r.User),
		DailyBonus: DailyBonus{Awarded: r.DailyBonus.Awarded, Points: r.DailyBonus.Points},
	}
}
