package main

import (
	"context"
	"fmt"
	"net/http"

	"tourcart/internal/booking"
	"tourcart/internal/mailer"
	"tourcart/internal/notifications"
)

type loginPayload struct {
	Email    string `json:"email" validate:"omitempty,email"`
	Username string `json:"username" validate:"omitempty,max=100"`
}

type mergeFailureLine struct {
	ItemID int64  `json:"item_id"`
	Reason string `json:"reason"`
}

// Login godoc
//
//	@Summary		Complete a login transition
//	@Description	Called once when a session goes from guest to authenticated. Drains the guest cart into the account cart item-by-item, re-validating each against the account cart's live state, and reports per-item outcomes. The guest cart is cleared afterward even when some items fail.
//	@Tags			Session
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		loginPayload	false	"Optional contact details for the merge summary"
//	@Success		200		{object}	booking.MergeReport
//	@Failure		401		{object}	error
//	@Failure		502		{object}	error	"Merge interrupted by a cart service failure; guest cart kept for retry"
//	@Security		ApiKeyAuth
//	@Router			/session/login [post]
func (app *application) loginHandler(w http.ResponseWriter, r *http.Request) {
	sess := getSessionFromContext(r)
	if !sess.Authenticated() {
		app.unauthorizedErrorResponse(w, r, fmt.Errorf("login transition requires a bearer token"))
		return
	}

	var payload loginPayload
	if r.ContentLength > 0 {
		if err := readJSON(w, r, &payload); err != nil {
			app.badRequestResponse(w, r, err)
			return
		}
		if err := Validate.Struct(payload); err != nil {
			app.badRequestResponse(w, r, err)
			return
		}
	}

	report := booking.MergeReport{}

	// The merge runs only when this browser actually carried a guest cart.
	if cookie, err := r.Cookie(guestCookieName); err == nil && cookie.Value != "" {
		guestSess := booking.Session{OwnerKey: "guest:" + cookie.Value}

		report, err = app.reconciler.Merge(r.Context(), guestSess, sess)
		if err != nil {
			app.badGatewayResponse(w, r, err)
			return
		}

		// The guest identity is spent; a second login must not find it.
		http.SetCookie(w, &http.Cookie{
			Name:     guestCookieName,
			Value:    "",
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   -1,
		})

		if report.Failed() > 0 && app.mailer != nil && payload.Email != "" {
			app.sendMergeReportMail(payload, report)
		}
	}

	if err := app.jsonResponse(w, http.StatusOK, report); err != nil {
		app.internalServerError(w, r, err)
	}
}

func (app *application) sendMergeReportMail(payload loginPayload, report booking.MergeReport) {
	failures := make([]mergeFailureLine, 0, report.Failed())
	for _, o := range report.Outcomes {
		if o.Failure != nil {
			failures = append(failures, mergeFailureLine{ItemID: o.ItemID, Reason: o.Failure.Message()})
		}
	}

	username := payload.Username
	if username == "" {
		username = "there"
	}

	email := payload.Email
	succeeded := report.Succeeded()

	notifications.CallAsync(func(_ context.Context) error {
		_, err := app.mailer.Send(mailer.MergeReportTemplate, username, email, map[string]any{
			"Username":  username,
			"Succeeded": succeeded,
			"Failed":    len(failures),
			"Failures":  failures,
			"AppName":   mailer.FromName,
		})
		return err
	})
}
