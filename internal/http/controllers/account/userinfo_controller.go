package account

import (
	"net/http"

	"github.com/fedgate/fedgate/internal/federation"
	dto "github.com/fedgate/fedgate/internal/http/dto/account"
	httperrors "github.com/fedgate/fedgate/internal/http/errors"
	"github.com/fedgate/fedgate/internal/http/helpers"
	mw "github.com/fedgate/fedgate/internal/http/middlewares"
)

// UserInfoController reflects the current identity's claims. It reads
// the verified token only; no store round trip.
type UserInfoController struct{}

// UserInfo handles GET /api/account/userInfo.
func (c *UserInfoController) UserInfo(w http.ResponseWriter, r *http.Request) {
	auth := mw.GetAuth(r.Context())
	if !auth.Authenticated {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}

	helpers.WriteJSON(w, http.StatusOK, dto.UserInfoDTO{
		Email:         auth.Claims[federation.ClaimEmail],
		FullName:      auth.Claims[federation.ClaimName],
		AvatarURL:     auth.Claims[federation.ClaimAvatarURL],
		IsRegistered:  auth.Claims[federation.ClaimRegistered] == "true",
		LoginProvider: auth.Claims[federation.ClaimProvider],
	})
}
