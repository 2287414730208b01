package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/catalogpilot/catalogpilot/internal/apiserver/database"
	"github.com/catalogpilot/catalogpilot/internal/bigcommerce"
	"github.com/catalogpilot/catalogpilot/internal/common/dto"
	"github.com/catalogpilot/catalogpilot/internal/common/errorx"
	"github.com/gin-gonic/gin"
)

// GetSettings returns the BigCommerce settings with the token masked
func (h *Handler) GetSettings(c *gin.Context) {
	settings, err := h.db.GetAPISettings(c.Request.Context(), companyID(c))
	if errors.Is(err, errorx.ErrNotFound) {
		c.JSON(http.StatusOK, dto.NewSettingsResponse(nil))
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSettingsResponse(settings))
}

// SaveSettings upserts the credentials. An omitted token keeps the saved one.
func (h *Handler) SaveSettings(c *gin.Context) {
	var req dto.SettingsRequest
	if !h.bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()
	cid := companyID(c)

	token := strings.TrimSpace(req.AccessToken)
	if token == "" {
		existing, err := h.db.GetAPISettings(ctx, cid)
		switch {
		case errors.Is(err, errorx.ErrNotFound):
			h.fail(c, errorx.ErrInvalidInput.WithMessage("accessToken is required"))
			return
		case err != nil:
			h.fail(c, err)
			return
		}
		token = existing.AccessToken
	}

	saved, err := h.db.SaveAPISettings(ctx, &database.APISettings{
		CompanyID:   cid,
		StoreHash:   strings.TrimSpace(req.StoreHash),
		AccessToken: token,
		ClientID:    strings.TrimSpace(req.ClientID),
		ShowStock:   req.ShowStock,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.catalog.InvalidateCategories(ctx, cid)
	c.JSON(http.StatusOK, dto.NewSettingsResponse(saved))
}

// TestSettings pings the store with the given credentials, falling back to the saved ones
func (h *Handler) TestSettings(c *gin.Context) {
	var req dto.TestConnectionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.fail(c, errorx.ErrInvalidInput.WithMessage(err.Error()))
		return
	}
	ctx := c.Request.Context()
	cid := companyID(c)

	creds := bigcommerce.Credentials{
		StoreHash:   strings.TrimSpace(req.StoreHash),
		AccessToken: strings.TrimSpace(req.AccessToken),
	}
	var (
		info *bigcommerce.StoreInfo
		err  error
	)
	if creds.StoreHash == "" && creds.AccessToken == "" {
		info, err = h.catalog.TestConnection(ctx, cid)
	} else {
		info, err = h.testMerged(c, creds)
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.TestConnectionResponse{OK: true, StoreName: info.Name, Domain: info.Domain})
}

// testMerged fills the missing half of creds from the saved settings
func (h *Handler) testMerged(c *gin.Context, creds bigcommerce.Credentials) (*bigcommerce.StoreInfo, error) {
	ctx := c.Request.Context()
	if creds.StoreHash == "" || creds.AccessToken == "" {
		saved, err := h.db.GetAPISettings(ctx, companyID(c))
		if errors.Is(err, errorx.ErrNotFound) {
			return nil, errorx.ErrInvalidInput.WithMessage("storeHash and accessToken are required")
		}
		if err != nil {
			return nil, err
		}
		if creds.StoreHash == "" {
			creds.StoreHash = saved.StoreHash
		}
		if creds.AccessToken == "" {
			creds.AccessToken = saved.AccessToken
		}
	}
	return h.catalog.TestCredentials(ctx, creds)
}
