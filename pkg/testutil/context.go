package testutil

import (
	"net/http"

	id "dossier/pkg/domain"
	"dossier/pkg/requestcontext"
)

// AsUser puts the caller identity on req the way the auth middleware does.
// A nil userID leaves the request anonymous.
func AsUser(req *http.Request, userID id.UserID, role string) *http.Request {
	if userID.IsNil() {
		return req
	}
	ctx := requestcontext.WithUserID(req.Context(), userID)
	ctx = requestcontext.WithRole(ctx, role)
	return req.WithContext(ctx)
}
