package account

import (
	"net/http"
	"strconv"
	"strings"

	dto "github.com/fedgate/fedgate/internal/http/dto/account"
	httperrors "github.com/fedgate/fedgate/internal/http/errors"
	"github.com/fedgate/fedgate/internal/http/helpers"
	"github.com/fedgate/fedgate/internal/observability/logger"
)

// ProvidersController lists the configured external providers.
type ProvidersController struct {
	deps Deps
}

// List handles GET /api/account/externalLogins.
func (c *ProvidersController) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("ProvidersController.List"))

	q := r.URL.Query()
	returnURL := strings.TrimSpace(q.Get("returnUrl"))
	if returnURL == "" {
		returnURL = "/"
	}
	generateState := false
	if v := q.Get("generateState"); v != "" {
		generateState, _ = strconv.ParseBool(v)
	}

	descs, err := c.deps.Registry.List(c.deps.BaseURL, returnURL, generateState)
	if err != nil {
		log.Error("descriptor listing failed", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternalServerError.WithCause(err))
		return
	}

	out := make([]dto.ExternalLoginDTO, 0, len(descs))
	for _, d := range descs {
		out = append(out, dto.ExternalLoginDTO{
			Name:  d.Provider.String(),
			URL:   d.URL,
			State: d.State,
		})
	}

	log.Debug("listed providers", logger.Count(len(out)))
	helpers.WriteJSON(w, http.StatusOK, out)
}
