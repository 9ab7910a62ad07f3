package http

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/herbalscanner/backend/internal/domain"
	"github.com/herbalscanner/backend/internal/usecase"
)

const (
	serviceName    = "herbalscanner-backend"
	serviceVersion = "1.0.0"

	uploadField    = "file"
	maxUploadBytes = 20 << 20

	msgIdentifyFailed = "Could not identify the plant. Please check your connection and try again."
	msgInvalidRequest = "Invalid request"
)

// Dependencies holds what the handlers need
type Dependencies struct {
	Auth      *usecase.AuthService
	History   *usecase.HistoryService
	Scans     *usecase.ScanService
	Library   domain.PlantCatalog
	Uploads   afero.Fs
	UploadDir string
	Logger    *slog.Logger
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	auth      *usecase.AuthService
	history   *usecase.HistoryService
	scans     *usecase.ScanService
	library   domain.PlantCatalog
	uploads   afero.Fs
	uploadDir string
	logger    *slog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(deps Dependencies) *Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	uploads := deps.Uploads
	if uploads == nil {
		uploads = afero.NewOsFs()
	}

	return &Handler{
		auth:      deps.Auth,
		history:   deps.History,
		scans:     deps.Scans,
		library:   deps.Library,
		uploads:   uploads,
		uploadDir: deps.UploadDir,
		logger:    logger.With("component", "http"),
	}
}

// scanResponse adds the display tier to a stored scan
type scanResponse struct {
	domain.ScanResult
	ConfidenceLevel string `json:"confidenceLevel"`
}

func newScanResponse(scan domain.ScanResult) scanResponse {
	return scanResponse{ScanResult: scan, ConfidenceLevel: scan.ConfidenceLevel()}
}

func newScanListResponse(scans []domain.ScanResult) gin.H {
	out := make([]scanResponse, len(scans))
	for i, scan := range scans {
		out[i] = newScanResponse(scan)
	}
	return gin.H{"scans": out, "total": len(out)}
}

type notesRequest struct {
	Notes *string `json:"notes" binding:"required"`
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": serviceName,
		"version": serviceVersion,
	})
}

// Signup handles account creation
func (h *Handler) Signup(c *gin.Context) {
	var req domain.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please fill in all fields"})
		return
	}

	user, err := h.auth.Signup(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// Login handles credential checks
func (h *Handler) Login(c *gin.Context) {
	var req domain.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please enter email and password"})
		return
	}

	user, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// Logout clears the current session
func (h *Handler) Logout(c *gin.Context) {
	if err := h.auth.Logout(c.Request.Context()); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Session returns the logged-in user
func (h *Handler) Session(c *gin.Context) {
	user, err := h.auth.CurrentSession(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// CreateScan stores the uploaded photo and runs identification on it
func (h *Handler) CreateScan(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)

	fileHeader, err := c.FormFile(uploadField)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A photo is required in the 'file' field"})
		return
	}

	imageRef, err := h.saveUpload(fileHeader)
	if err != nil {
		h.respondError(c, err)
		return
	}

	scan, err := h.scans.Identify(c.Request.Context(), imageRef)
	if err != nil {
		// No scan refers to the photo, so it is not kept
		if rmErr := h.uploads.Remove(imageRef); rmErr != nil {
			h.logger.Warn("failed to remove upload", "path", imageRef, "error", rmErr)
		}
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, newScanResponse(*scan))
}

// ListScans returns the history, or only bookmarks with ?bookmarked=true
func (h *Handler) ListScans(c *gin.Context) {
	bookmarkedOnly := false
	if raw := c.Query("bookmarked"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bookmarked must be true or false"})
			return
		}
		bookmarkedOnly = v
	}

	var (
		scans []domain.ScanResult
		err   error
	)
	if bookmarkedOnly {
		scans, err = h.history.Bookmarked(c.Request.Context())
	} else {
		scans, err = h.history.Load(c.Request.Context())
	}
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, newScanListResponse(scans))
}

// GetScan returns one scan
func (h *Handler) GetScan(c *gin.Context) {
	scan, err := h.history.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newScanResponse(*scan))
}

// ToggleBookmark flips the bookmark flag of one scan
func (h *Handler) ToggleBookmark(c *gin.Context) {
	scan, err := h.history.ToggleBookmark(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newScanResponse(*scan))
}

// UpdateNotes replaces the notes of one scan
func (h *Handler) UpdateNotes(c *gin.Context) {
	var req notesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "notes is required"})
		return
	}

	scan, err := h.history.UpdateNotes(c.Request.Context(), c.Param("id"), *req.Notes)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newScanResponse(*scan))
}

// DeleteScan removes one scan
func (h *Handler) DeleteScan(c *gin.Context) {
	if err := h.history.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Stats summarizes the history
func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.history.Stats(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// SearchLibrary filters the plant library by ?q=
func (h *Handler) SearchLibrary(c *gin.Context) {
	plants := h.library.Search(c.Query("q"))
	c.JSON(http.StatusOK, gin.H{"plants": plants, "total": len(plants)})
}

// GetPlant returns one library profile
func (h *Handler) GetPlant(c *gin.Context) {
	plant, err := h.library.Get(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, plant)
}

// saveUpload copies the photo unchanged under the upload dir and returns its path.
// The stored name is random; only the extension survives from the client name.
func (h *Handler) saveUpload(fileHeader *multipart.FileHeader) (string, error) {
	src, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("%w: open upload: %v", domain.ErrInvalidRequest, err)
	}
	defer src.Close()

	if err := h.uploads.MkdirAll(h.uploadDir, 0o755); err != nil {
		return "", fmt.Errorf("%w: create upload dir: %v", domain.ErrStorageUnavailable, err)
	}

	path := filepath.Join(h.uploadDir, uuid.NewString()+uploadExt(fileHeader.Filename))
	dst, err := h.uploads.Create(path)
	if err != nil {
		return "", fmt.Errorf("%w: create upload: %v", domain.ErrStorageUnavailable, err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		_ = h.uploads.Remove(path)
		return "", fmt.Errorf("%w: write upload: %v", domain.ErrStorageUnavailable, err)
	}
	if err := dst.Close(); err != nil {
		_ = h.uploads.Remove(path)
		return "", fmt.Errorf("%w: close upload: %v", domain.ErrStorageUnavailable, err)
	}

	return path, nil
}

// uploadExt keeps .png so the classifier is told image/png; everything else is stored as .jpg
func uploadExt(filename string) string {
	if strings.EqualFold(filepath.Ext(filename), ".png") {
		return ".png"
	}
	return ".jpg"
}

// respondError maps domain errors to status codes and user-facing messages
func (h *Handler) respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	var respErr *domain.ResponseError
	switch {
	case errors.As(err, &respErr):
		c.JSON(http.StatusBadGateway, gin.H{
			"error":  fmt.Sprintf("Prediction failed (%d)", respErr.StatusCode),
			"status": respErr.StatusCode,
			"detail": respErr.Body,
		})
	case errors.Is(err, domain.ErrNetwork):
		c.JSON(http.StatusBadGateway, gin.H{"error": msgIdentifyFailed})
	case errors.Is(err, domain.ErrPredictionResponse):
		c.JSON(http.StatusBadGateway, gin.H{"error": "Prediction service returned an unreadable response"})
	case errors.Is(err, domain.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
	case errors.Is(err, domain.ErrNotAuthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not logged in"})
	case errors.Is(err, domain.ErrDuplicateEmail):
		c.JSON(http.StatusConflict, gin.H{"error": "An account with this email already exists"})
	case errors.Is(err, domain.ErrScanNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Scan not found"})
	case errors.Is(err, domain.ErrPlantNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Plant not found"})
	case errors.Is(err, domain.ErrInvalidRequest):
		h.logger.Warn("invalid request", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidRequest})
	case errors.Is(err, domain.ErrStorageUnavailable):
		h.logger.Error("storage failure", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Storage temporarily unavailable"})
	default:
		h.logger.Error("unhandled error", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
