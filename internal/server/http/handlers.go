package httpserver

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid/v5"

	"github.com/and161185/rewear/internal/convert"
	"github.com/and161185/rewear/internal/errs"
	"github.com/and161185/rewear/internal/model"
	"github.com/and161185/rewear/internal/service"
)

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		abort(c, fmt.Errorf("%w: %v", errs.ErrInvalidArgument, err))
		return false
	}
	return true
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.FromString(c.Param(name))
	if err != nil {
		abort(c, fmt.Errorf("%w: %s is not a valid id", errs.ErrInvalidArgument, name))
		return uuid.Nil, false
	}
	return id, true
}

// caller aborts the request when no principal is present.
func caller(c *gin.Context) (model.Principal, bool) {
	p, err := principal(c)
	if err != nil {
		abort(c, err)
		return model.Principal{}, false
	}
	return p, true
}

func (h *handler) setTokenCookie(c *gin.Context, tok string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(tokenCookie, tok, int(h.opts.TokenTTL.Seconds()), "/", "", h.opts.CookieSecure, true)
}

// --- auth ---

func (h *handler) signup(c *gin.Context) {
	var req convert.SignupRequest
	if !bindJSON(c, &req) {
		return
	}
	tok, u, err := h.svc.Auth.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		abort(c, err)
		return
	}
	h.setTokenCookie(c, tok.AccessToken)
	c.JSON(http.StatusCreated, convert.AuthResponse{Token: tok.AccessToken, User: convert.ToUser(u)})
}

func (h *handler) login(c *gin.Context) {
	var req convert.LoginRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.svc.Auth.Login(c.Request.Context(), req.Email, req.Password, c.ClientIP())
	if err != nil {
		abort(c, err)
		return
	}
	h.setTokenCookie(c, res.Tokens.AccessToken)
	c.JSON(http.StatusOK, convert.ToLoginResponse(res))
}

func (h *handler) logout(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	if err := h.svc.Auth.Logout(c.Request.Context(), p); err != nil {
		abort(c, err)
		return
	}
	c.SetCookie(tokenCookie, "", -1, "/", "", h.opts.CookieSecure, true)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (h *handler) profile(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	u, err := h.svc.Auth.Profile(c.Request.Context(), p.ID)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, convert.ToUser(*u))
}

func (h *handler) adminSignup(c *gin.Context) {
	var req convert.SignupRequest
	if !bindJSON(c, &req) {
		return
	}
	a, err := h.svc.Auth.RegisterAdmin(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, convert.ToAdmin(a))
}

func (h *handler) adminLogin(c *gin.Context) {
	var req convert.LoginRequest
	if !bindJSON(c, &req) {
		return
	}
	tok, a, err := h.svc.Auth.LoginAdmin(c.Request.Context(), req.Email, req.Password, c.ClientIP())
	if err != nil {
		abort(c, err)
		return
	}
	h.setTokenCookie(c, tok.AccessToken)
	c.JSON(http.StatusOK, convert.AdminAuthResponse{Token: tok.AccessToken, Admin: convert.ToAdmin(a)})
}

// --- items ---

func (h *handler) listItems(c *gin.Context) {
	f := convert.ItemFilter(c.Query("search"), c.Query("tags"), c.Query("category"), c.Query("sort"))
	items, err := h.svc.Listings.ListApproved(c.Request.Context(), f)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, convert.ToItems(items))
}

func (h *handler) getItem(c *gin.Context) {
	id, ok := uuidParam(c, "itemId")
	if !ok {
		return
	}
	it, err := h.svc.Listings.GetItem(c.Request.Context(), id)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, convert.ToItem(*it))
}

func (h *handler) createListing(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	var req convert.ListingRequest
	if !bindJSON(c, &req) {
		return
	}
	it, err := h.svc.Listings.CreateListing(c.Request.Context(), p.ID, req.ToListingInput())
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, convert.ToItem(*it))
}

func (h *handler) redeem(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "itemId")
	if !ok {
		return
	}
	res, err := h.svc.Settlement.Redeem(c.Request.Context(), id, p.ID)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, convert.RedeemResponse{NewPoints: res.NewBalance})
}

// --- swaps ---

func (h *handler) proposeSwap(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	var req convert.SwapProposalRequest
	if !bindJSON(c, &req) {
		return
	}
	// binding already checked both ids
	sr, err := h.svc.Settlement.ProposeSwap(c.Request.Context(),
		uuid.FromStringOrNil(req.ReceiverItemID), uuid.FromStringOrNil(req.RequesterItemID), p.ID)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, convert.ToSwap(*sr))
}

func (h *handler) respondToSwap(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "swapRequestId")
	if !ok {
		return
	}
	var req convert.SwapResponseRequest
	if !bindJSON(c, &req) {
		return
	}
	sr, err := h.svc.Settlement.RespondToSwap(c.Request.Context(), id, p.ID, model.SwapDecision(req.Response))
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, convert.ToSwap(*sr))
}

func (h *handler) cancelSwap(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "swapRequestId")
	if !ok {
		return
	}
	sr, err := h.svc.Settlement.CancelSwap(c.Request.Context(), id, p.ID)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, convert.ToSwap(*sr))
}

// --- users ---

func (h *handler) dashboard(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	d, err := h.svc.Dashboard.Dashboard(c.Request.Context(), p.ID)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, convert.ToDashboard(*d))
}

// --- admin ---

func (h *handler) pendingAdmins(c *gin.Context) {
	as, err := h.svc.Moderation.ListPendingAdmins(c.Request.Context())
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, convert.ToAdmins(as))
}

func (h *handler) approveAdmin(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "adminId")
	if !ok {
		return
	}
	a, err := h.svc.Moderation.ApproveAdmin(c.Request.Context(), p.ID, id)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, convert.ToAdmin(*a))
}

func (h *handler) pendingItems(c *gin.Context) {
	items, err := h.svc.Moderation.ListPendingItems(c.Request.Context())
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, convert.ToItems(items))
}

func (h *handler) moderateItem(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "itemId")
	if !ok {
		return
	}
	var req convert.ModerateRequest
	if !bindJSON(c, &req) {
		return
	}
	it, err := h.svc.Moderation.ModerateItem(c.Request.Context(), p.ID, id, service.ModerationAction(req.Action), req.RejectionReason)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, convert.ToItem(*it))
}
