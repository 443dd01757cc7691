package http

import (
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"strings"
)

const (
	sessionCookie = "cashflow_session"
	flashCookie   = "cashflow_flash"

	sessionIDBytes = 16
	sessionMaxAge  = 30 * 24 * 60 * 60
)

// flash is a one-shot message carried across a POST/redirect/GET.
type flash struct {
	Kind    string // "ok" or "error"
	Message string
}

// sessionID returns the caller's session, issuing a new cookie when the
// request carries none or a malformed one.
func sessionID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil && validSessionID(c.Value) {
		return c.Value
	}
	id := randomHex(sessionIDBytes)
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	// Later reads in the same request see the new ID.
	r.AddCookie(&http.Cookie{Name: sessionCookie, Value: id})
	return id
}

func validSessionID(s string) bool {
	if len(s) != 2*sessionIDBytes {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

func setFlash(w http.ResponseWriter, kind, message string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    kind + "." + base64.RawURLEncoding.EncodeToString([]byte(message)),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash reads and clears the pending flash message, if any.
func popFlash(w http.ResponseWriter, r *http.Request) *flash {
	c, err := r.Cookie(flashCookie)
	if err != nil {
		return nil
	}
	http.SetCookie(w, &http.Cookie{Name: flashCookie, Value: "", Path: "/", MaxAge: -1})

	kind, encoded, ok := strings.Cut(c.Value, ".")
	if !ok || (kind != "ok" && kind != "error") {
		return nil
	}
	msg, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil
	}
	return &flash{Kind: kind, Message: string(msg)}
}

// redirectHome finishes a POST with a redirect back to the page.
func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
