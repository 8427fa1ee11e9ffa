package controllers

import (
	"net/http"

	"github.com/angelmondragon/checkout-backend/api/middleware"
	"github.com/angelmondragon/checkout-backend/api/responses"
)

func PublicPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"scope": "public", "status": "ok"})
	}
}

// AdminPing echoes the authenticated back-office identity.
func AdminPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{
			"scope":   "admin",
			"status":  "ok",
			"subject": middleware.SubjectFromContext(r.Context()),
			"role":    middleware.RoleFromContext(r.Context()),
		})
	}
}
