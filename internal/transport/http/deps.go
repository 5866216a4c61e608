// Package http wires the REST and websocket surface of the notification
// core onto a chi router.
package http

import (
	"net/http"

	"github.com/orbitest-backend/internal/application/notify"
	jwtinfra "github.com/orbitest-backend/internal/infrastructure/jwt"
)

// Deps holds everything the router mounts. WSStudents/WSMentors are the
// upgrade endpoints of the socket layer; JWTProvider may be nil in local
// development, which disables auth entirely.
type Deps struct {
	Notify      notify.Service
	WSStudents  http.HandlerFunc
	WSMentors   http.HandlerFunc
	JWTProvider *jwtinfra.Provider
}
