package auth

import (
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"
)

// RequireSession loads the console session into the request context
// and sends visitors without one to loginPath.
func RequireSession(store Store, loginPath string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := store.Load(r)
			if err != nil {
				if !errors.Is(err, ErrNoSession) {
					log.Printf("Error loading session: %v", err)
				}
				http.Redirect(w, r, loginPath, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}
