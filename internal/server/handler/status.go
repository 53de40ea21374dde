package handler

import (
	"encoding/hex"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/canopy-pki/canopy/internal/status"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// StatusHandler serves public certificate status queries.
type StatusHandler struct {
	resolver *status.Resolver
	store    *status.IssuerStore
	logger   *zap.Logger
}

// NewStatusHandler creates a StatusHandler.
func NewStatusHandler(resolver *status.Resolver, store *status.IssuerStore, logger *zap.Logger) *StatusHandler {
	return &StatusHandler{resolver: resolver, store: store, logger: logger}
}

// Register mounts the status routes on the provided router group.
func (h *StatusHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/issuers", h.ListIssuers)
	rg.GET("/issuers/:caID/cert/:serial", h.QueryByIssuerID)
	rg.GET("/status", h.QueryByFingerprint)
}

type statusResponse struct {
	Status    string     `json:"status"`
	CaID      int        `json:"ca_id,omitempty"`
	Reason    int        `json:"reason,omitempty"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

func toResponse(res status.Result) statusResponse {
	out := statusResponse{
		Status: res.Status.String(),
		CaID:   res.CaID,
		Reason: res.Reason,
	}
	if !res.RevokedAt.IsZero() {
		t := res.RevokedAt
		out.RevokedAt = &t
	}
	return out
}

// ListIssuers handles GET /issuers — the ids of all loaded issuers.
func (h *StatusHandler) ListIssuers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"issuer_ids": h.store.IDs()})
}

// QueryByIssuerID handles GET /issuers/:caID/cert/:serial. The serial is
// hexadecimal.
func (h *StatusHandler) QueryByIssuerID(c *gin.Context) {
	caID, err := strconv.Atoi(c.Param("caID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid issuer id"})
		return
	}
	serial, ok := parseSerial(c.Param("serial"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid serial number"})
		return
	}

	res := h.resolver.ResolveByIssuerID(caID, serial)
	RecordStatusQuery(res.Status.String())
	c.JSON(http.StatusOK, toResponse(res))
}

// QueryByFingerprint handles GET /status?fingerprint=<hex>&serial=<hex>. The
// fingerprint is the SHA-256 digest over the issuer's subject and public key.
func (h *StatusHandler) QueryByFingerprint(c *gin.Context) {
	fp, err := hex.DecodeString(strings.ToLower(c.Query("fingerprint")))
	if err != nil || len(fp) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid issuer fingerprint"})
		return
	}
	serial, ok := parseSerial(c.Query("serial"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid serial number"})
		return
	}

	res := h.resolver.ResolveByFingerprint(fp, serial)
	RecordStatusQuery(res.Status.String())
	c.JSON(http.StatusOK, toResponse(res))
}

func parseSerial(s string) (*big.Int, bool) {
	s = strings.TrimPrefix(strings.ToLower(s), "0x")
	if s == "" {
		return nil, false
	}
	return new(big.Int).SetString(s, 16)
}
