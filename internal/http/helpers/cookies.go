package helpers

import (
	"net/http"
	"strings"
	"time"
)

// CookieSettings are the attributes shared by every cookie the service
// sets, taken from config at startup.
type CookieSettings struct {
	Domain   string
	SameSite string
	Secure   bool
}

func parseSameSite(s string) http.SameSite {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// BuildCookie builds an HttpOnly cookie expiring at exp.
func BuildCookie(name, value string, exp time.Time, cs CookieSettings) *http.Cookie {
	ck := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   cs.Secure,
		SameSite: parseSameSite(cs.SameSite),
	}
	if d := strings.TrimSpace(cs.Domain); d != "" {
		ck.Domain = d
	}
	if !exp.IsZero() {
		ck.Expires = exp.UTC()
		ck.MaxAge = int(time.Until(exp).Seconds())
	}
	return ck
}

// BuildDeletionCookie builds the expired counterpart that clears name.
func BuildDeletionCookie(name string, cs CookieSettings) *http.Cookie {
	ck := &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   cs.Secure,
		SameSite: parseSameSite(cs.SameSite),
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
	}
	if d := strings.TrimSpace(cs.Domain); d != "" {
		ck.Domain = d
	}
	return ck
}
