package main

import (
	"errors"
	"net/http"
	"strconv"

	"tourcart/internal/booking"
	"tourcart/internal/cartstore"

	"github.com/go-chi/chi/v5"
)

// store picks the cart tier from the session's authentication state. The
// merge reconciler is the only code that may touch both tiers in one call.
func (app *application) store(sess booking.Session) cartstore.Store {
	if sess.Authenticated() {
		return app.userCarts
	}
	return app.guestCarts
}

type addItemPayload struct {
	ItemID          int64   `json:"item_id" validate:"required,gt=0"`
	TemplateID      int64   `json:"template_id"`
	VendorID        int64   `json:"vendor_id"`
	Quantity        int     `json:"quantity" validate:"required,gt=0"`
	UnitPriceCents  int64   `json:"unit_price_cents" validate:"gte=0"`
	ScheduledDate   *string `json:"scheduled_date" validate:"omitempty,datetime=2006-01-02"`
	StartTime       *string `json:"start_time" validate:"omitempty,datetime=15:04"`
	DurationMinutes int     `json:"duration_minutes" validate:"gte=0"`
	ProductType     string  `json:"product_type" validate:"required,producttype"`
}

type updateQuantityPayload struct {
	ItemID   int64 `json:"item_id" validate:"required,gt=0"`
	Quantity int   `json:"quantity" validate:"gte=0"`
}

type cartResponse struct {
	OwnerKey   string             `json:"owner_key"`
	Items      []booking.CartItem `json:"items"`
	TotalCents int64              `json:"total_cents"`
}

func toCartResponse(cart *booking.Cart) cartResponse {
	items := cart.Items
	if items == nil {
		items = []booking.CartItem{}
	}
	return cartResponse{
		OwnerKey:   cart.OwnerKey,
		Items:      items,
		TotalCents: cart.TotalCents(),
	}
}

// failureResponse maps a validation failure to its status code. Conflicting
// and oversold selections are conflicts with live state; an unpublished item
// is unprocessable; malformed input is a plain bad request.
func (app *application) failureResponse(w http.ResponseWriter, r *http.Request, f *booking.ValidationFailure) {
	switch f.Kind {
	case booking.FailureTimeConflict, booking.FailureInsufficientQuantity:
		app.conflictResponse(w, r, f.Message())
	case booking.FailureItemUnavailable:
		app.unprocessableEntityResponse(w, r, f.Message())
	default:
		app.badRequestResponse(w, r, f)
	}
}

// GetCart godoc
//
//	@Summary		Current cart
//	@Description	Returns the session's cart: the server-backed cart for authenticated sessions, the locally persisted cart for guests.
//	@Tags			Cart
//	@Produce		json
//	@Success		200	{object}	cartResponse
//	@Failure		502	{object}	error
//	@Security		ApiKeyAuth
//	@Router			/cart [get]
func (app *application) getCartHandler(w http.ResponseWriter, r *http.Request) {
	sess := getSessionFromContext(r)

	cart, err := app.store(sess).CurrentCart(r.Context(), sess)
	if err != nil {
		app.badGatewayResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, toCartResponse(cart)); err != nil {
		app.internalServerError(w, r, err)
	}
}

// AddToCart godoc
//
//	@Summary		Add an item to the cart
//	@Description	Validates availability, quantity and time conflicts before the item is stored. Re-adding an item merges quantities.
//	@Tags			Cart
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		addItemPayload	true	"Item to add"
//	@Success		201		{object}	cartResponse
//	@Failure		400		{object}	error	"Malformed selection"
//	@Failure		409		{object}	error	"Time conflict or insufficient quantity"
//	@Failure		422		{object}	error	"Item unavailable"
//	@Failure		502		{object}	error	"Cart service write failed"
//	@Security		ApiKeyAuth
//	@Router			/cart/add [post]
func (app *application) addToCartHandler(w http.ResponseWriter, r *http.Request) {
	var payload addItemPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	sess := getSessionFromContext(r)
	item := booking.CartItem{
		ItemID:          payload.ItemID,
		TemplateID:      payload.TemplateID,
		VendorID:        payload.VendorID,
		Quantity:        payload.Quantity,
		UnitPriceCents:  payload.UnitPriceCents,
		ScheduledDate:   payload.ScheduledDate,
		StartTime:       payload.StartTime,
		DurationMinutes: payload.DurationMinutes,
		ProductType:     booking.ProductType(payload.ProductType),
	}

	store := app.store(sess)
	failure, err := store.AddItem(r.Context(), sess, item)
	if err != nil {
		app.badGatewayResponse(w, r, err)
		return
	}
	if failure != nil {
		app.failureResponse(w, r, failure)
		return
	}

	cart, err := store.CurrentCart(r.Context(), sess)
	if err != nil {
		app.badGatewayResponse(w, r, err)
		return
	}
	if err := app.jsonResponse(w, http.StatusCreated, toCartResponse(cart)); err != nil {
		app.internalServerError(w, r, err)
	}
}

// UpdateCartItem godoc
//
//	@Summary		Change an item's quantity
//	@Description	Re-validates availability for the new quantity. Quantity zero removes the item.
//	@Tags			Cart
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		updateQuantityPayload	true	"New quantity"
//	@Success		200		{object}	cartResponse
//	@Failure		400		{object}	error
//	@Failure		404		{object}	error
//	@Failure		409		{object}	error
//	@Failure		502		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/cart/update [put]
func (app *application) updateCartItemHandler(w http.ResponseWriter, r *http.Request) {
	var payload updateQuantityPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	sess := getSessionFromContext(r)
	store := app.store(sess)

	failure, err := store.UpdateItemQuantity(r.Context(), sess, payload.ItemID, payload.Quantity)
	if err != nil {
		if errors.Is(err, cartstore.ErrItemNotFound) {
			app.notFoundResponse(w, r, err)
			return
		}
		app.badGatewayResponse(w, r, err)
		return
	}
	if failure != nil {
		app.failureResponse(w, r, failure)
		return
	}

	cart, err := store.CurrentCart(r.Context(), sess)
	if err != nil {
		app.badGatewayResponse(w, r, err)
		return
	}
	if err := app.jsonResponse(w, http.StatusOK, toCartResponse(cart)); err != nil {
		app.internalServerError(w, r, err)
	}
}

// RemoveCartItem godoc
//
//	@Summary		Remove an item
//	@Tags			Cart
//	@Produce		json
//	@Param			itemID	path		int	true	"Item ID"
//	@Success		200		{object}	cartResponse
//	@Failure		404		{object}	error
//	@Failure		502		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/cart/item/{itemID} [delete]
func (app *application) removeCartItemHandler(w http.ResponseWriter, r *http.Request) {
	itemID, err := strconv.ParseInt(chi.URLParam(r, "itemID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	sess := getSessionFromContext(r)
	store := app.store(sess)

	if err := store.RemoveItem(r.Context(), sess, itemID); err != nil {
		if errors.Is(err, cartstore.ErrItemNotFound) {
			app.notFoundResponse(w, r, err)
			return
		}
		app.badGatewayResponse(w, r, err)
		return
	}

	cart, err := store.CurrentCart(r.Context(), sess)
	if err != nil {
		app.badGatewayResponse(w, r, err)
		return
	}
	if err := app.jsonResponse(w, http.StatusOK, toCartResponse(cart)); err != nil {
		app.internalServerError(w, r, err)
	}
}

// ClearCart godoc
//
//	@Summary		Empty the cart
//	@Tags			Cart
//	@Produce		json
//	@Success		204
//	@Failure		502	{object}	error
//	@Security		ApiKeyAuth
//	@Router			/cart/clear [delete]
func (app *application) clearCartHandler(w http.ResponseWriter, r *http.Request) {
	sess := getSessionFromContext(r)

	if err := app.store(sess).Clear(r.Context(), sess); err != nil {
		app.badGatewayResponse(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
