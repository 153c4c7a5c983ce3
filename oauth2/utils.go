// Package oauth2 provides the Google and Facebook authentication strategies.
// Each wraps an authorization-code handshake with a state cookie, fetches the
// provider profile on callback, and resolves the external subject ID to a
// local identity through the resolver.
package oauth2

import (
	"crypto/rand"
	"encoding/base64"
	"log"
	"net/http"
	"time"
)

const (
	stateCookieName       = "oauthstate"
	callbackURLCookieName = "oauthCallbackURL"
)

func generateStateOauthCookie(w http.ResponseWriter) string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		log.Println("Error generating rand: ", err)
	}
	state := base64.URLEncoding.EncodeToString(b)
	http.SetCookie(w, &http.Cookie{
		Name:    stateCookieName,
		Value:   state,
		Path:    "/",
		Expires: time.Now().Add(time.Hour),
	})
	return state
}

func setCallbackURLCookie(w http.ResponseWriter, callbackURL string) {
	http.SetCookie(w, &http.Cookie{
		Name:    callbackURLCookieName,
		Value:   callbackURL,
		Path:    "/",
		Expires: time.Now().Add(24 * time.Hour),
		MaxAge:  120, // keep this short
	})
}

func clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:    name,
		Value:   "",
		Path:    "/",
		MaxAge:  -1,
		Expires: time.Now(),
	})
}

// CallbackURL returns and clears the remembered post-login destination, or
// empty if none was set during Initiate.
func CallbackURL(w http.ResponseWriter, r *http.Request) string {
	cookie, _ := r.Cookie(callbackURLCookieName)
	if cookie == nil || cookie.Value == "" {
		return ""
	}
	clearCookie(w, callbackURLCookieName)
	return cookie.Value
}
