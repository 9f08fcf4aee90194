package www

import (
	"encoding/json"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

const sessionName = "fieldcore"

// requireAuth gates mutating routes behind the session cookie. With no admin
// hash configured (dev installs, tests) everything is open.
func (h *Handlers) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.engine.AppConfig().Web.AdminPasswordHash == "" || h.isAuthenticated(r) {
			next.ServeHTTP(w, r)
			return
		}
		h.jsonError(w, "authentication required", http.StatusUnauthorized)
	})
}

func (h *Handlers) isAuthenticated(r *http.Request) bool {
	sess, err := h.sessionStore.Get(r, sessionName)
	if err != nil {
		return false
	}
	authed, _ := sess.Values["authenticated"].(bool)
	return authed
}

func (h *Handlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid request", http.StatusBadRequest)
		return
	}
	hash := h.engine.AppConfig().Web.AdminPasswordHash
	if hash == "" {
		h.jsonOK(w, map[string]bool{"authenticated": true})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)); err != nil {
		h.jsonError(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	sess, _ := h.sessionStore.Get(r, sessionName)
	sess.Values["authenticated"] = true
	if err := sess.Save(r, w); err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, map[string]bool{"authenticated": true})
}

func (h *Handlers) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess, _ := h.sessionStore.Get(r, sessionName)
	delete(sess.Values, "authenticated")
	sess.Options.MaxAge = -1
	sess.Save(r, w)
	h.jsonOK(w, map[string]bool{"authenticated": false})
}
