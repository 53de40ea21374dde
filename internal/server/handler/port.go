package handler

import (
	"errors"
	"net/http"

	"github.com/canopy-pki/canopy/internal/camgmt/port"
	"github.com/canopy-pki/canopy/internal/camgmt/registry"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PortHandler exposes bulk export and import of the configuration. Archives
// are written to and read from directories on the server host.
type PortHandler struct {
	reg      *registry.Registry
	logger   *zap.Logger
	onChange func()
}

// NewPortHandler creates a PortHandler.
func NewPortHandler(reg *registry.Registry, logger *zap.Logger) *PortHandler {
	return &PortHandler{reg: reg, logger: logger}
}

// SetChangeListener registers a callback invoked after a successful import,
// so the serving side can rebuild its issuer view.
func (h *PortHandler) SetChangeListener(fn func()) {
	h.onChange = fn
}

// Register mounts the export/import routes on the provided (authenticated)
// router group.
func (h *PortHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/export", h.Export)
	rg.POST("/import", h.Import)
}

type exportRequest struct {
	Dir             string `json:"dir" binding:"required"`
	InlineThreshold int    `json:"inline_threshold"`
}

// Export handles POST /admin/export — writes the current configuration as an
// archive directory.
func (h *PortHandler) Export(c *gin.Context) {
	var req exportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	exp := port.Exporter{
		InlineThreshold: req.InlineThreshold,
		Logger:          h.logger,
	}
	progress, err := exp.Export(c.Request.Context(), h.reg.Conf(), req.Dir)
	if err != nil {
		if errors.Is(err, port.ErrCanceled) {
			c.JSON(http.StatusRequestTimeout, gin.H{
				"error":    "export canceled",
				"progress": progress.Counts,
			})
			return
		}
		h.logger.Error("export failed", zap.String("dir", req.Dir), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "configuration exported",
		"progress": progress.Counts,
	})
}

type importRequest struct {
	Dir    string `json:"dir" binding:"required"`
	Strict bool   `json:"strict"`
}

// Import handles POST /admin/import — reads an archive directory and applies
// it through the registry.
func (h *PortHandler) Import(c *gin.Context) {
	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	imp := port.Importer{
		Strict: req.Strict,
		Logger: h.logger,
	}
	progress, err := imp.Import(c.Request.Context(), req.Dir, h.reg)
	if err != nil {
		if errors.Is(err, port.ErrCanceled) {
			c.JSON(http.StatusRequestTimeout, gin.H{
				"error":    "import canceled",
				"progress": progress.Counts,
			})
			return
		}
		h.logger.Error("import failed", zap.String("dir", req.Dir), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if h.onChange != nil {
		h.onChange()
	}
	c.JSON(http.StatusOK, gin.H{
		"message":  "configuration imported",
		"progress": progress.Counts,
	})
}
