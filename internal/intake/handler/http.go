// Package handler exposes the intake flow over HTTP with gin.
package handler

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"recruit-intake/internal/catalog"
	"recruit-intake/internal/intake/domain"
	"recruit-intake/internal/intake/service"
	"recruit-intake/internal/intake/store"
	"recruit-intake/internal/intake/validation"
	"recruit-intake/internal/notify"
	"recruit-intake/internal/security"
)

// Handler serves the intake API.
type Handler struct {
	ctl      *service.Controller
	sessions *store.Store
	tokens   *security.TokenProvider
	catalog  *catalog.Catalog
	dev      *notify.DevNotifier
	logger   *zap.Logger
}

// NewHandler returns a Handler. dev is non-nil only when the dev notifier channel is active; it enables
// the code read-back route.
func NewHandler(ctl *service.Controller, sessions *store.Store, tokens *security.TokenProvider, cat *catalog.Catalog, dev *notify.DevNotifier, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{ctl: ctl, sessions: sessions, tokens: tokens, catalog: cat, dev: dev, logger: logger}
}

// Register mounts the intake routes on r.
func (h *Handler) Register(r gin.IRouter) {
	v1 := r.Group("/v1")
	v1.GET("/catalog/regions", h.listRegions)
	v1.GET("/catalog/regions/:region/cities", h.listCities)
	v1.POST("/intake/sessions", h.openSession)

	s := v1.Group("/intake/sessions/:id", h.requireSession)
	s.GET("", h.getSession)
	s.DELETE("", h.closeSession)
	s.POST("/contact", h.submitContact)
	s.POST("/personal", h.submitPersonal)
	s.POST("/professional", h.submitProfessional)
	s.POST("/professional/skip", h.skipProfessional)
	s.POST("/back", h.back)
	s.POST("/edit", h.edit)
	s.POST("/verification/request", h.requestCode)
	s.POST("/verification/resend", h.resend)
	s.POST("/verification/verify", h.verify)
	s.POST("/finalize", h.finalize)

	if h.dev != nil {
		r.GET("/dev/intake/otp", h.devCode)
	}
}

func (h *Handler) openSession(c *gin.Context) {
	var req openSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{ErrorCode: "bad_request", Message: "invalid JSON body"})
		return
	}
	s, err := h.ctl.NewSession(c.Request.Context(), req.JobID, req.CompanyID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	token, exp, err := h.tokens.Issue(s.ID, s.JobID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.sessions.Put(s)
	c.JSON(http.StatusCreated, openSessionResponse{SessionID: s.ID, Token: token, ExpiresAt: exp, Step: string(s.Step)})
}

func (h *Handler) getSession(c *gin.Context) {
	c.JSON(http.StatusOK, toSessionResponse(h.ctl.Snapshot(sessionFrom(c))))
}

func (h *Handler) closeSession(c *gin.Context) {
	s := sessionFrom(c)
	h.ctl.Close(c.Request.Context(), s)
	h.sessions.Delete(s.ID)
	c.Status(http.StatusNoContent)
}

// maxContactBody bounds the whole multipart request: the attachment limit plus room for the text fields.
const maxContactBody = validation.MaxAttachmentBytes + 1<<20

func (h *Handler) submitContact(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxContactBody)
	in := validation.ContactInput{
		Name:  c.PostForm("name"),
		Phone: c.PostForm("phone"),
		Email: c.PostForm("email"),
	}
	fh, err := c.FormFile("attachment")
	var tooLarge *http.MaxBytesError
	switch {
	case err == nil:
		att, err := readAttachment(fh)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{ErrorCode: "bad_request", Message: "could not read attachment", Field: "attachment"})
			return
		}
		in.Attachment = att
	case errors.As(err, &tooLarge):
		h.writeError(c, &validation.FieldError{Field: "attachment", Code: validation.CodeAttachmentTooLarge, Message: "resume must be at most 5 MB"})
		return
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		// validation reports the missing attachment after the text fields
	default:
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{ErrorCode: "bad_request", Message: "invalid multipart body"})
		return
	}
	h.respond(c, h.ctl.SubmitContact(c.Request.Context(), sessionFrom(c), in))
}

// readAttachment reads at most one byte past the size limit so oversize files fail validation
// without being buffered whole.
func readAttachment(fh *multipart.FileHeader) (*domain.Attachment, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, validation.MaxAttachmentBytes+1))
	if err != nil {
		return nil, err
	}
	return &domain.Attachment{FileName: fh.Filename, ContentType: fh.Header.Get("Content-Type"), Data: data}, nil
}

func (h *Handler) submitPersonal(c *gin.Context) {
	var req personalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{ErrorCode: "bad_request", Message: "invalid JSON body"})
		return
	}
	h.respond(c, h.ctl.SubmitPersonal(c.Request.Context(), sessionFrom(c), validation.PersonalInput{
		Region: req.Region, City: req.City, Sex: req.Sex, BirthDate: req.BirthDate,
	}))
}

func (h *Handler) submitProfessional(c *gin.Context) {
	var req professionalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{ErrorCode: "bad_request", Message: "invalid JSON body"})
		return
	}
	h.respond(c, h.ctl.SubmitProfessional(c.Request.Context(), sessionFrom(c), validation.ProfessionalInput{
		PrimaryRole: req.PrimaryRole, ExtraRoles: req.ExtraRoles,
	}))
}

func (h *Handler) skipProfessional(c *gin.Context) {
	h.respond(c, h.ctl.SkipProfessional(c.Request.Context(), sessionFrom(c)))
}

func (h *Handler) back(c *gin.Context) {
	h.respond(c, h.ctl.Back(c.Request.Context(), sessionFrom(c)))
}

func (h *Handler) edit(c *gin.Context) {
	h.respond(c, h.ctl.Edit(c.Request.Context(), sessionFrom(c)))
}

func (h *Handler) requestCode(c *gin.Context) {
	h.respond(c, h.ctl.RequestCode(c.Request.Context(), sessionFrom(c)))
}

func (h *Handler) resend(c *gin.Context) {
	h.respond(c, h.ctl.Resend(c.Request.Context(), sessionFrom(c)))
}

func (h *Handler) verify(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, errorResponse{
			ErrorCode: validation.CodeRequired, Message: "enter the code you received", Field: "code",
		})
		return
	}
	_, err := h.ctl.Verify(c.Request.Context(), sessionFrom(c), req.Code)
	h.respond(c, err)
}

func (h *Handler) finalize(c *gin.Context) {
	_, err := h.ctl.Finalize(c.Request.Context(), sessionFrom(c))
	h.respond(c, err)
}

// respond writes the session view on success. A duplicate application is reported as a plain success.
func (h *Handler) respond(c *gin.Context, err error) {
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toSessionResponse(h.ctl.Snapshot(sessionFrom(c))))
}

func (h *Handler) listRegions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"regions": h.catalog.Regions()})
}

func (h *Handler) listCities(c *gin.Context) {
	region := c.Param("region")
	cities, err := h.catalog.Cities(region)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, errorResponse{ErrorCode: validation.CodeInvalidRegion, Message: "unknown region", Field: "region"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"region": region, "cities": cities})
}

func (h *Handler) devCode(c *gin.Context) {
	code, ok := h.dev.LastCode(c.Query("session_id"))
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, errorResponse{ErrorCode: "not_found", Message: "no code for session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": code})
}
