// Package service contains the application services: settlement, authentication,
// listings, moderation and the user dashboard.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/andres-erbsen/clock"
	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	pkgcrypto "github.com/and161185/rewear/internal/crypto"
	"github.com/and161185/rewear/internal/errs"
	"github.com/and161185/rewear/internal/limiter"
	"github.com/and161185/rewear/internal/model"
	"github.com/and161185/rewear/internal/repository"
	"github.com/and161185/rewear/internal/revocation"
)

// tokenLeeway tolerates clock skew when validating exp/iat.
const tokenLeeway = 30 * time.Second

// LoginResult is returned by a successful user login.
type LoginResult struct {
	Tokens     model.Tokens
	User       model.User
	DailyBonus DailyBonus
}

// AuthService defines account and token operations.
type AuthService interface {
	// Register creates a user with the starting points grant and signs them in.
	Register(ctx context.Context, username, email, password string) (model.Tokens, model.User, error)
	// Login applies rate limiting, checks credentials and awards the daily bonus.
	Login(ctx context.Context, email, password, ip string) (LoginResult, error)
	// Logout revokes the caller's token until it expires.
	Logout(ctx context.Context, p model.Principal) error
	// Profile returns the user behind a principal.
	Profile(ctx context.Context, userID uuid.UUID) (*model.User, error)
	// RegisterAdmin creates an unapproved admin account.
	RegisterAdmin(ctx context.Context, username, email, password string) (model.Admin, error)
	// LoginAdmin authenticates an approved admin.
	LoginAdmin(ctx context.Context, email, password, ip string) (model.Tokens, model.Admin, error)
	// Authenticate resolves an access token into a principal.
	Authenticate(ctx context.Context, token string) (model.Principal, error)
}

// AuthConfig holds token and onboarding settings.
type AuthConfig struct {
	SignKey        []byte
	AccessTTL      time.Duration
	StartingPoints int64
}

// bonusAwarder is the slice of SettlementService that login needs.
type bonusAwarder interface {
	AwardDailyBonus(ctx context.Context, userID uuid.UUID, now time.Time) (DailyBonus, error)
}

type AuthServiceImpl struct {
	users   repository.UserRepository
	admins  repository.AdminRepository
	bonus   bonusAwarder
	hasher  *pkgcrypto.Hasher
	lim     limiter.Limiter
	revoked revocation.Store
	cfg     AuthConfig
	clock   clock.Clock
	log     *zap.Logger
}

var _ AuthService = (*AuthServiceImpl)(nil)

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(store repository.Store, bonus bonusAwarder, hasher *pkgcrypto.Hasher, lim limiter.Limiter,
	revoked revocation.Store, cfg AuthConfig, clk clock.Clock, log *zap.Logger,
) *AuthServiceImpl {
	if clk == nil {
		clk = clock.New()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthServiceImpl{
		users:   store.Users(),
		admins:  store.Admins(),
		bonus:   bonus,
		hasher:  hasher,
		lim:     lim,
		revoked: revoked,
		cfg:     cfg,
		clock:   clk,
		log:     log.With(zap.String("component", "auth")),
	}
}

type credentials struct {
	username, email, password string
}

func normalize(username, email, password string) (credentials, error) {
	c := credentials{
		username: strings.ToLower(strings.TrimSpace(username)),
		email:    limiter.NormalizeEmail(email),
		password: password,
	}
	if c.username == "" || c.email == "" || c.password == "" {
		return c, fmt.Errorf("%w: username, email and password are required", errs.ErrInvalidArgument)
	}
	if !strings.Contains(c.email, "@") {
		return c, fmt.Errorf("%w: malformed email", errs.ErrInvalidArgument)
	}
	return c, nil
}

// Register creates a new user record with a per-user salt.
func (s *AuthServiceImpl) Register(ctx context.Context, username, email, password string) (model.Tokens, model.User, error) {
	c, err := normalize(username, email, password)
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	hash, salt, err := s.hasher.Hash(c.password)
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	u := &model.User{
		ID:                newID(),
		Username:          c.username,
		Email:             c.email,
		PwdHash:           hash,
		SaltAuth:          salt,
		ProfilePictureURL: model.DefaultProfilePicture,
		Points:            s.cfg.StartingPoints,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return model.Tokens{}, model.User{}, err
	}
	tok, err := s.issueAccessToken(u.ID, model.RoleUser)
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	s.log.Info("user registered", zap.Stringer("user_id", u.ID))
	return tok, *u, nil
}

// checkRate consults the limiter before credentials are looked at.
func (s *AuthServiceImpl) checkRate(ctx context.Context, key string, ipHash []byte) error {
	allowed, _, err := s.lim.Allow(ctx, key, ipHash)
	if err != nil {
		return err
	}
	if !allowed {
		return errs.ErrRateLimited
	}
	return nil
}

// failed records a bad attempt and picks the error to report.
func (s *AuthServiceImpl) failed(ctx context.Context, key string, ipHash []byte) error {
	if blocked, _, ferr := s.lim.Failure(ctx, key, ipHash); ferr == nil && blocked {
		return errs.ErrRateLimited
	} else if ferr != nil {
		s.log.Warn("limiter failure not recorded", zap.Error(ferr))
	}
	return errs.ErrUnauthorized
}

// Login authenticates with rate limiting by (email, ip) and awards the daily bonus.
func (s *AuthServiceImpl) Login(ctx context.Context, email, password, ip string) (LoginResult, error) {
	key := limiter.NormalizeEmail(email)
	ipHash := limiter.HashIP(ip)
	if err := s.checkRate(ctx, key, ipHash); err != nil {
		return LoginResult{}, err
	}

	u, err := s.users.GetByEmail(ctx, key)
	if err != nil && !errors.Is(err, errs.ErrNotFound) {
		return LoginResult{}, err
	}
	if err != nil || !s.hasher.Verify(password, u.SaltAuth, u.PwdHash) {
		// missing user and wrong password look the same to the caller
		return LoginResult{}, s.failed(ctx, key, ipHash)
	}
	_ = s.lim.Success(ctx, key, ipHash)

	now := s.clock.Now()
	bonus, err := s.bonus.AwardDailyBonus(ctx, u.ID, now)
	if err != nil {
		return LoginResult{}, err
	}
	u.Points = bonus.Points
	u.LastLogin = &now

	tok, err := s.issueAccessToken(u.ID, model.RoleUser)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{Tokens: tok, User: *u, DailyBonus: bonus}, nil
}

// Logout stores the token id in the revocation store.
func (s *AuthServiceImpl) Logout(ctx context.Context, p model.Principal) error {
	if p.TokenID == "" {
		return errs.ErrUnauthorized
	}
	return s.revoked.Revoke(ctx, p.TokenID, p.ExpiresAt)
}

// Profile loads the user.
func (s *AuthServiceImpl) Profile(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	return s.users.GetByID(ctx, userID)
}

// RegisterAdmin creates an admin awaiting approval by an existing admin.
func (s *AuthServiceImpl) RegisterAdmin(ctx context.Context, username, email, password string) (model.Admin, error) {
	c, err := normalize(username, email, password)
	if err != nil {
		return model.Admin{}, err
	}
	hash, salt, err := s.hasher.Hash(c.password)
	if err != nil {
		return model.Admin{}, err
	}
	a := &model.Admin{ID: newID(), Username: c.username, Email: c.email, PwdHash: hash, SaltAuth: salt}
	if err := s.admins.Create(ctx, a); err != nil {
		return model.Admin{}, err
	}
	s.log.Info("admin registered", zap.Stringer("admin_id", a.ID))
	return *a, nil
}

// LoginAdmin authenticates an admin; unapproved accounts get errs.ErrForbidden.
func (s *AuthServiceImpl) LoginAdmin(ctx context.Context, email, password, ip string) (model.Tokens, model.Admin, error) {
	key := "admin:" + limiter.NormalizeEmail(email)
	ipHash := limiter.HashIP(ip)
	if err := s.checkRate(ctx, key, ipHash); err != nil {
		return model.Tokens{}, model.Admin{}, err
	}

	a, err := s.admins.GetByEmail(ctx, limiter.NormalizeEmail(email))
	if err != nil && !errors.Is(err, errs.ErrNotFound) {
		return model.Tokens{}, model.Admin{}, err
	}
	if err != nil || !s.hasher.Verify(password, a.SaltAuth, a.PwdHash) {
		return model.Tokens{}, model.Admin{}, s.failed(ctx, key, ipHash)
	}
	_ = s.lim.Success(ctx, key, ipHash)
	if !a.Approved {
		return model.Tokens{}, model.Admin{}, fmt.Errorf("%w: admin not approved yet", errs.ErrForbidden)
	}

	tok, err := s.issueAccessToken(a.ID, model.RoleAdmin)
	if err != nil {
		return model.Tokens{}, model.Admin{}, err
	}
	return tok, *a, nil
}

type claims struct {
	Role model.Role `json:"role"`
	jwt.RegisteredClaims
}

// issueAccessToken creates a signed HS256 JWT for the given subject.
func (s *AuthServiceImpl) issueAccessToken(subject uuid.UUID, role model.Role) (model.Tokens, error) {
	now := s.clock.Now()
	exp := now.Add(s.cfg.AccessTTL)
	jti := newID().String()
	c := claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   subject.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.cfg.SignKey)
	if err != nil {
		return model.Tokens{}, err
	}
	return model.Tokens{AccessToken: signed, TokenID: jti, ExpiresAt: exp}, nil
}

// Authenticate validates signature, expiry and revocation.
func (s *AuthServiceImpl) Authenticate(ctx context.Context, token string) (model.Principal, error) {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) { return s.cfg.SignKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(tokenLeeway),
		jwt.WithTimeFunc(s.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return model.Principal{}, fmt.Errorf("%w: %v", errs.ErrUnauthorized, err)
	}
	id, err := uuid.FromString(c.Subject)
	if err != nil || (c.Role != model.RoleUser && c.Role != model.RoleAdmin) {
		return model.Principal{}, errs.ErrUnauthorized
	}
	if c.ID != "" {
		revoked, err := s.revoked.IsRevoked(ctx, c.ID)
		if err != nil {
			return model.Principal{}, err
		}
		if revoked {
			return model.Principal{}, fmt.Errorf("%w: token revoked", errs.ErrUnauthorized)
		}
	}
	return model.Principal{ID: id, Role: c.Role, TokenID: c.ID, ExpiresAt: c.ExpiresAt.Time}, nil
}
