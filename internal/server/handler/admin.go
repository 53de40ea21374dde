package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/canopy-pki/canopy/internal/camgmt/model"
	"github.com/canopy-pki/canopy/internal/camgmt/registry"
	"github.com/canopy-pki/canopy/internal/camgmt/repository"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AdminHandler exposes the CA configuration registry over the admin API.
// Every mutation goes through the registry, so validation and persistence
// behave exactly as they do for bulk import.
type AdminHandler struct {
	reg      *registry.Registry
	logger   *zap.Logger
	onChange func()
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(reg *registry.Registry, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{reg: reg, logger: logger}
}

// SetChangeListener registers a callback invoked after every successful
// CA-affecting mutation, so the serving side can rebuild its issuer view.
func (h *AdminHandler) SetChangeListener(fn func()) {
	h.onChange = fn
}

func (h *AdminHandler) notifyChange() {
	if h.onChange != nil {
		h.onChange()
	}
}

// Register mounts the admin CRUD routes on the provided (authenticated)
// router group.
func (h *AdminHandler) Register(rg *gin.RouterGroup) {
	cas := rg.Group("/cas")
	{
		cas.GET("", h.ListCas)
		cas.POST("", h.AddCa)
		cas.GET("/:name", h.GetCa)
		cas.PATCH("/:name", h.UpdateCa)
		cas.DELETE("/:name", h.RemoveCa)
		cas.POST("/:name/revoke", h.RevokeCa)
		cas.POST("/:name/unrevoke", h.UnrevokeCa)

		cas.GET("/:name/aliases", h.ListCaAliases)
		cas.GET("/:name/requestors", h.ListCaRequestors)
		cas.POST("/:name/requestors", h.AddCaRequestor)
		cas.DELETE("/:name/requestors/:requestor", h.RemoveCaRequestor)
		cas.GET("/:name/users", h.ListCaUsers)
		cas.POST("/:name/users", h.AddCaUser)
		cas.DELETE("/:name/users/:user", h.RemoveCaUser)
		cas.GET("/:name/profiles", h.ListCaProfiles)
		cas.POST("/:name/profiles/:profile", h.AddCaProfile)
		cas.DELETE("/:name/profiles/:profile", h.RemoveCaProfile)
		cas.GET("/:name/publishers", h.ListCaPublishers)
		cas.POST("/:name/publishers/:publisher", h.AddCaPublisher)
		cas.DELETE("/:name/publishers/:publisher", h.RemoveCaPublisher)

		cas.GET("/:name/scep", h.GetScep)
		cas.POST("/:name/scep", h.AddScep)
		cas.DELETE("/:name/scep", h.RemoveScep)
	}

	aliases := rg.Group("/aliases")
	{
		aliases.POST("", h.AddAlias)
		aliases.DELETE("/:name", h.RemoveAlias)
	}

	registerNamed(rg, "/profiles", namedRoutes[*model.ProfileEntry]{
		list: h.reg.ProfileNames,
		get:  h.reg.Profile,
		add:  h.reg.AddProfile,
		del:  h.reg.RemoveProfile,
		name: func(e *model.ProfileEntry) string { return e.Name },
	}, "profile", h)
	registerNamed(rg, "/requestors", namedRoutes[*model.RequestorEntry]{
		list: h.reg.RequestorNames,
		get:  h.reg.Requestor,
		add:  h.reg.AddRequestor,
		del:  h.reg.RemoveRequestor,
		name: func(e *model.RequestorEntry) string { return e.Name },
	}, "requestor", h)
	registerNamed(rg, "/publishers", namedRoutes[*model.PublisherEntry]{
		list: h.reg.PublisherNames,
		get:  h.reg.Publisher,
		add:  h.reg.AddPublisher,
		del:  h.reg.RemovePublisher,
		name: func(e *model.PublisherEntry) string { return e.Name },
	}, "publisher", h)
	registerNamed(rg, "/signers", namedRoutes[*model.SignerEntry]{
		get:  h.reg.Signer,
		add:  h.reg.AddSigner,
		del:  h.reg.RemoveSigner,
		name: func(e *model.SignerEntry) string { return e.Name },
	}, "signer", h)
	registerNamed(rg, "/crl-signers", namedRoutes[*model.CrlSignerEntry]{
		get:  h.reg.CrlSigner,
		add:  h.reg.AddCrlSigner,
		del:  h.reg.RemoveCrlSigner,
		name: func(e *model.CrlSignerEntry) string { return e.Name },
	}, "crl_signer", h)
	registerNamed(rg, "/responders", namedRoutes[*model.ResponderEntry]{
		get:  h.reg.Responder,
		add:  h.reg.AddResponder,
		del:  h.reg.RemoveResponder,
		name: func(e *model.ResponderEntry) string { return e.Name },
	}, "responder", h)
	registerNamed(rg, "/cmp-controls", namedRoutes[*model.CmpControlEntry]{
		get:  h.reg.CmpControl,
		add:  h.reg.AddCmpControl,
		del:  h.reg.RemoveCmpControl,
		name: func(e *model.CmpControlEntry) string { return e.Name },
	}, "cmp_control", h)

	users := rg.Group("/users")
	{
		users.GET("", h.ListUsers)
		users.POST("", h.AddUser)
		users.GET("/:name", h.GetUser)
		users.DELETE("/:name", h.RemoveUser)
	}
}

// writeError maps registry errors onto HTTP status codes with the standard
// JSON error envelope.
func (h *AdminHandler) writeError(c *gin.Context, err error) {
	var verr *model.ValidationError
	switch {
	case errors.Is(err, registry.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, registry.ErrDuplicate), errors.Is(err, registry.ErrInUse):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrStorage):
		h.logger.Error("storage failure", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage unavailable"})
	default:
		h.logger.Error("admin request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// ─── CA entries ──────────────────────────────────────────────────────────────

// caRequest mirrors the operator-facing string surface: enumerations arrive
// as names (or their numeric aliases) and the validity as a Go duration.
type caRequest struct {
	ID     int    `json:"id" binding:"required"`
	Name   string `json:"name" binding:"required"`
	Status string `json:"status"`
	SnLen  int    `json:"sn_len"`

	CaCertURIs   []string `json:"cacert_uris"`
	CrlURIs      []string `json:"crl_uris"`
	DeltaCrlURIs []string `json:"deltacrl_uris"`
	OcspURIs     []string `json:"ocsp_uris"`

	MaxValidity string `json:"max_validity" binding:"required"`

	SignerType string `json:"signer_type" binding:"required"`
	SignerConf string `json:"signer_conf"`
	CertPEM    string `json:"cert_pem"`

	CrlSigner  string `json:"crl_signer"`
	Responder  string `json:"responder"`
	CmpControl string `json:"cmp_control"`

	Permissions      []string `json:"permissions"`
	DuplicateKey     string   `json:"duplicate_key"`
	DuplicateSubject string   `json:"duplicate_subject"`
	SaveRequest      bool     `json:"save_request"`
	ValidityMode     string   `json:"validity_mode"`

	ExpirationPeriod    int    `json:"expiration_period"`
	NumCrls             int    `json:"num_crls"`
	KeepExpiredCertDays int    `json:"keep_expired_cert_days"`
	NextCrlNo           int64  `json:"next_crl_no"`
	ExtraControl        string `json:"extra_control"`
}

func (req *caRequest) toEntry() (*model.CaEntry, error) {
	var verrs []error

	status, ok := model.ParseCaStatus(req.Status)
	if !ok {
		verrs = append(verrs, &model.ValidationError{
			Kind: "ca", Name: req.Name, Field: "status",
			Reason: "unknown status " + req.Status,
		})
	}
	dupKey, ok := model.ParseDuplicationMode(req.DuplicateKey)
	if !ok {
		verrs = append(verrs, &model.ValidationError{
			Kind: "ca", Name: req.Name, Field: "duplicate_key",
			Reason: "unknown duplication mode " + req.DuplicateKey,
		})
	}
	dupSubj, ok := model.ParseDuplicationMode(req.DuplicateSubject)
	if !ok {
		verrs = append(verrs, &model.ValidationError{
			Kind: "ca", Name: req.Name, Field: "duplicate_subject",
			Reason: "unknown duplication mode " + req.DuplicateSubject,
		})
	}
	vmode, ok := model.ParseValidityMode(req.ValidityMode)
	if !ok {
		verrs = append(verrs, &model.ValidationError{
			Kind: "ca", Name: req.Name, Field: "validity_mode",
			Reason: "unknown validity mode " + req.ValidityMode,
		})
	}
	perms, invalid := model.ParsePermissions(req.Permissions)
	for _, bad := range invalid {
		verrs = append(verrs, &model.ValidationError{
			Kind: "ca", Name: req.Name, Field: "permissions",
			Reason: "unknown permission " + bad,
		})
	}
	maxValidity, err := time.ParseDuration(req.MaxValidity)
	if err != nil {
		verrs = append(verrs, &model.ValidationError{
			Kind: "ca", Name: req.Name, Field: "max_validity",
			Reason: err.Error(),
		})
	}
	if len(verrs) > 0 {
		return nil, errors.Join(verrs...)
	}

	return &model.CaEntry{
		ID:     req.ID,
		Name:   req.Name,
		Status: status,

		SerialNoLen: req.SnLen,
		Uris: model.CaUris{
			CaCertURIs:   req.CaCertURIs,
			CrlURIs:      req.CrlURIs,
			DeltaCrlURIs: req.DeltaCrlURIs,
			OcspURIs:     req.OcspURIs,
		},

		MaxValidity: maxValidity,

		SignerType: req.SignerType,
		SignerConf: req.SignerConf,
		CertPEM:    req.CertPEM,

		CrlSignerName:  req.CrlSigner,
		ResponderName:  req.Responder,
		CmpControlName: req.CmpControl,

		Permissions:          perms,
		DuplicateKeyMode:     dupKey,
		DuplicateSubjectMode: dupSubj,
		SaveRequest:          req.SaveRequest,
		ValidityMode:         vmode,

		ExpirationPeriodDays: req.ExpirationPeriod,
		NumCrls:              req.NumCrls,
		KeepExpiredCertDays:  req.KeepExpiredCertDays,
		NextCrlNo:            req.NextCrlNo,
		ExtraControl:         req.ExtraControl,
	}, nil
}

// ListCas handles GET /admin/cas.
func (h *AdminHandler) ListCas(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"cas": h.reg.CaNames()})
}

// GetCa handles GET /admin/cas/:name.
func (h *AdminHandler) GetCa(c *gin.Context) {
	ca, ok := h.reg.CaByName(c.Param("name"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "CA not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ca":      ca,
		"aliases": h.reg.AliasesForCa(ca.ID),
	})
}

// AddCa handles POST /admin/cas.
func (h *AdminHandler) AddCa(c *gin.Context) {
	var req caRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ca, err := req.toEntry()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err = h.reg.AddCa(c.Request.Context(), ca)
	RecordConfigMutation("ca", err)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.notifyChange()
	c.JSON(http.StatusCreated, gin.H{"message": "added CA " + ca.Name})
}

// caChangesRequest is the PATCH body: absent fields keep the prior value,
// model.ClearValue clears the clearable ones.
type caChangesRequest struct {
	Status      *string `json:"status"`
	SnLen       *int    `json:"sn_len"`
	MaxValidity *string `json:"max_validity"`

	CaCertURIs   []string `json:"cacert_uris"`
	CrlURIs      []string `json:"crl_uris"`
	DeltaCrlURIs []string `json:"deltacrl_uris"`
	OcspURIs     []string `json:"ocsp_uris"`

	SignerType *string `json:"signer_type"`
	SignerConf *string `json:"signer_conf"`
	CertPEM    *string `json:"cert_pem"`

	CrlSigner  *string `json:"crl_signer"`
	Responder  *string `json:"responder"`
	CmpControl *string `json:"cmp_control"`

	Permissions      []string `json:"permissions"`
	DuplicateKey     *string  `json:"duplicate_key"`
	DuplicateSubject *string  `json:"duplicate_subject"`
	SaveRequest      *bool    `json:"save_request"`
	ValidityMode     *string  `json:"validity_mode"`

	ExpirationPeriod    *int    `json:"expiration_period"`
	NumCrls             *int    `json:"num_crls"`
	KeepExpiredCertDays *int    `json:"keep_expired_cert_days"`
	NextCrlNo           *int64  `json:"next_crl_no"`
	ExtraControl        *string `json:"extra_control"`
}

// UpdateCa handles PATCH /admin/cas/:name.
func (h *AdminHandler) UpdateCa(c *gin.Context) {
	var req caChangesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ch := registry.CaChanges{
		Status:      req.Status,
		SerialNoLen: req.SnLen,

		CaCertURIs:   req.CaCertURIs,
		CrlURIs:      req.CrlURIs,
		DeltaCrlURIs: req.DeltaCrlURIs,
		OcspURIs:     req.OcspURIs,

		SignerType: req.SignerType,
		SignerConf: req.SignerConf,
		CertPEM:    req.CertPEM,

		CrlSignerName:  req.CrlSigner,
		ResponderName:  req.Responder,
		CmpControlName: req.CmpControl,

		Permissions:      req.Permissions,
		DuplicateKey:     req.DuplicateKey,
		DuplicateSubject: req.DuplicateSubject,
		SaveRequest:      req.SaveRequest,
		ValidityMode:     req.ValidityMode,

		ExpirationPeriodDays: req.ExpirationPeriod,
		NumCrls:              req.NumCrls,
		KeepExpiredCertDays:  req.KeepExpiredCertDays,
		NextCrlNo:            req.NextCrlNo,
		ExtraControl:         req.ExtraControl,
	}
	if req.MaxValidity != nil {
		d, err := time.ParseDuration(*req.MaxValidity)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid max_validity: " + err.Error()})
			return
		}
		ch.MaxValidity = &d
	}

	desc, err := h.reg.ChangeCa(c.Request.Context(), c.Param("name"), ch)
	RecordConfigMutation("ca", err)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.notifyChange()
	c.JSON(http.StatusOK, gin.H{"message": desc})
}

// RemoveCa handles DELETE /admin/cas/:name.
func (h *AdminHandler) RemoveCa(c *gin.Context) {
	name := c.Param("name")
	err := h.reg.RemoveCa(c.Request.Context(), name)
	RecordConfigMutation("ca", err)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.notifyChange()
	c.JSON(http.StatusOK, gin.H{"message": "removed CA " + name})
}

type revokeRequest struct {
	Reason       int        `json:"reason"`
	RevokedAt    *time.Time `json:"revoked_at"`
	InvalidityAt *time.Time `json:"invalidity_at"`
}

// RevokeCa handles POST /admin/cas/:name/revoke.
func (h *AdminHandler) RevokeCa(c *gin.Context) {
	var req revokeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rev := model.RevocationInfo{Reason: model.CRLReason(req.Reason)}
	if req.RevokedAt != nil {
		rev.RevokedAt = *req.RevokedAt
	}
	if req.InvalidityAt != nil {
		rev.InvalidityAt = *req.InvalidityAt
	}

	name := c.Param("name")
	err := h.reg.RevokeCa(c.Request.Context(), name, rev)
	RecordConfigMutation("ca", err)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.notifyChange()
	c.JSON(http.StatusOK, gin.H{"message": "revoked CA " + name})
}

// UnrevokeCa handles POST /admin/cas/:name/unrevoke.
func (h *AdminHandler) UnrevokeCa(c *gin.Context) {
	name := c.Param("name")
	err := h.reg.UnrevokeCa(c.Request.Context(), name)
	RecordConfigMutation("ca", err)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.notifyChange()
	c.JSON(http.StatusOK, gin.H{"message": "unrevoked CA " + name})
}

// ─── Aliases ─────────────────────────────────────────────────────────────────

// ListCaAliases handles GET /admin/cas/:name/aliases.
func (h *AdminHandler) ListCaAliases(c *gin.Context) {
	ca, ok := h.reg.CaByName(c.Param("name"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "CA not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"aliases": h.reg.AliasesForCa(ca.ID)})
}

// AddAlias handles POST /admin/aliases.
func (h *AdminHandler) AddAlias(c *gin.Context) {
	var alias model.CaAlias
	if err := c.ShouldBindJSON(&alias); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err := h.reg.AddCaAlias(c.Request.Context(), alias)
	RecordConfigMutation("ca_alias", err)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "added alias " + alias.Name})
}

// RemoveAlias handles DELETE /admin/aliases/:name.
func (h *AdminHandler) RemoveAlias(c *gin.Context) {
	name := c.Param("name")
	err := h.reg.RemoveCaAlias(c.Request.Context(), name)
	RecordConfigMutation("ca_alias", err)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "removed alias " + name})
}

// ─── SCEP ────────────────────────────────────────────────────────────────────

func (h *AdminHandler) caID(c *gin.Context) (int, bool) {
	ca, ok := h.reg.CaByName(c.Param("name"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "CA not found"})
		return 0, false
	}
	return ca.ID, true
}

// GetScep handles GET /admin/cas/:name/scep.
func (h *AdminHandler) GetScep(c *gin.Context) {
	id, ok := h.caID(c)
	if !ok {
		return
	}
	scep, ok := h.reg.Scep(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no SCEP entry for this CA"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"scep": scep})
}

type scepRequest struct {
	Active    bool     `json:"active"`
	Profiles  []string `json:"profiles"`
	Responder string   `json:"responder"`
	Control   string   `json:"control"`
}

// AddScep handles POST /admin/cas/:name/scep.
func (h *AdminHandler) AddScep(c *gin.Context) {
	id, ok := h.caID(c)
	if !ok {
		return
	}
	var req scepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	entry := &model.ScepEntry{
		CaID:          id,
		Active:        req.Active,
		Profiles:      req.Profiles,
		ResponderName: req.Responder,
		Control:       req.Control,
	}
	err := h.reg.AddScep(c.Request.Context(), entry)
	RecordConfigMutation("scep", err)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "added SCEP entry for CA " + c.Param("name")})
}

// RemoveScep handles DELETE /admin/cas/:name/scep.
func (h *AdminHandler) RemoveScep(c *gin.Context) {
	id, ok := h.caID(c)
	if !ok {
		return
	}
	err := h.reg.RemoveScep(c.Request.Context(), id)
	RecordConfigMutation("scep", err)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "removed SCEP entry for CA " + c.Param("name")})
}

// ─── CA associations ─────────────────────────────────────────────────────────

// ListCaRequestors handles GET /admin/cas/:name/requestors.
func (h *AdminHandler) ListCaRequestors(c *gin.Context) {
	id, ok := h.caID(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"requestors": h.reg.RequestorsForCa(id)})
}

type caRequestorRequest struct {
	Requestor   string   `json:"requestor" binding:"required"`
	RA          bool     `json:"ra"`
	Permissions []string `json:"permissions"`
	Profiles    []string `json:"profiles"`
}

// AddCaRequestor handles POST /admin/cas/:name/requestors.
func (h *AdminHandler) AddCaRequestor(c *gin.Context) {
	var req caRequestorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	perms, invalid := model.ParsePermissions(req.Permissions)
	if len(invalid) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown permissions: " + joinQuoted(invalid)})
		return
	}

	a := model.CaHasRequestor{
		RequestorName: req.Requestor,
		RA:            req.RA,
		Permissions:   perms,
		Profiles:      req.Profiles,
	}
	err := h.reg.AddRequestorToCa(c.Request.Context(), c.Param("name"), a)
	RecordConfigMutation("ca_requestor", err)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "added requestor " + req.Requestor + " to CA " + c.Param("name"),
	})
}

// RemoveCaRequestor handles DELETE /admin/cas/:name/requestors/:requestor.
func (h *AdminHandler) RemoveCaRequestor(c *gin.Context) {
	err := h.reg.RemoveRequestorFromCa(c.Request.Context(), c.Param("name"), c.Param("requestor"))
	RecordConfigMutation("ca_requestor", err)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "removed requestor " + c.Param("requestor") + " from CA " + c.Param("name"),
	})
}

// ListCaUsers handles GET /admin/cas/:name/users.
func (h *AdminHandler) ListCaUsers(c *gin.Context) {
	id, ok := h.caID(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": h.reg.UsersForCa(id)})
}

type caUserRequest struct {
	User        string   `json:"user" binding:"required"`
	Permissions []string `json:"permissions"`
	Profiles    []string `json:"profiles"`
}

// AddCaUser handles POST /admin/cas/:name/users.
func (h *AdminHandler) AddCaUser(c *gin.Context) {
	var req caUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	perms, invalid := model.ParsePermissions(req.Permissions)
	if len(invalid) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown permissions: " + joinQuoted(invalid)})
		return
	}

	a := model.CaHasUser{
		UserName:    req.User,
		Permissions: perms,
		Profiles:    req.Profiles,
	}
	err := h.reg.AddUserToCa(c.Request.Context(), c.Param("name"), a)
	RecordConfigMutation("ca_user", err)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "added user " + req.User + " to CA " + c.Param("name"),
	})
}

// RemoveCaUser handles DELETE /admin/cas/:name/users/:user.
func (h *AdminHandler) RemoveCaUser(c *gin.Context) {
	err := h.reg.RemoveUserFromCa(c.Request.Context(), c.Param("name"), c.Param("user"))
	RecordConfigMutation("ca_user", err)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "removed user " + c.Param("user") + " from CA " + c.Param("name"),
	})
}

// ListCaProfiles handles GET /admin/cas/:name/profiles.
func (h *AdminHandler) ListCaProfiles(c *gin.Context) {
	id, ok := h.caID(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile_ids": h.reg.ProfileIDsForCa(id)})
}

// AddCaProfile handles POST /admin/cas/:name/profiles/:profile.
func (h *AdminHandler) AddCaProfile(c *gin.Context) {
	err := h.reg.AddProfileToCa(c.Request.Context(), c.Param("name"), c.Param("profile"))
	RecordConfigMutation("ca_profile", err)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "added profile " + c.Param("profile") + " to CA " + c.Param("name"),
	})
}

// RemoveCaProfile handles DELETE /admin/cas/:name/profiles/:profile.
func (h *AdminHandler) RemoveCaProfile(c *gin.Context) {
	err := h.reg.RemoveProfileFromCa(c.Request.Context(), c.Param("name"), c.Param("profile"))
	RecordConfigMutation("ca_profile", err)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "removed profile " + c.Param("profile") + " from CA " + c.Param("name"),
	})
}

// ListCaPublishers handles GET /admin/cas/:name/publishers.
func (h *AdminHandler) ListCaPublishers(c *gin.Context) {
	id, ok := h.caID(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"publisher_ids": h.reg.PublisherIDsForCa(id)})
}

// AddCaPublisher handles POST /admin/cas/:name/publishers/:publisher.
func (h *AdminHandler) AddCaPublisher(c *gin.Context) {
	err := h.reg.AddPublisherToCa(c.Request.Context(), c.Param("name"), c.Param("publisher"))
	RecordConfigMutation("ca_publisher", err)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "added publisher " + c.Param("publisher") + " to CA " + c.Param("name"),
	})
}

// RemoveCaPublisher handles DELETE /admin/cas/:name/publishers/:publisher.
func (h *AdminHandler) RemoveCaPublisher(c *gin.Context) {
	err := h.reg.RemovePublisherFromCa(c.Request.Context(), c.Param("name"), c.Param("publisher"))
	RecordConfigMutation("ca_publisher", err)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "removed publisher " + c.Param("publisher") + " from CA " + c.Param("name"),
	})
}

// ─── Users ───────────────────────────────────────────────────────────────────

// ListUsers handles GET /admin/users.
func (h *AdminHandler) ListUsers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"users": h.reg.UserNames()})
}

// GetUser handles GET /admin/users/:name. The password hash never leaves the
// server.
func (h *AdminHandler) GetUser(c *gin.Context) {
	u, ok := h.reg.User(c.Param("name"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	u.PasswordHash = ""
	c.JSON(http.StatusOK, gin.H{"user": u})
}

type userRequest struct {
	ID       int    `json:"id" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Active   bool   `json:"active"`
	Password string `json:"password" binding:"required"`
}

// AddUser handles POST /admin/users.
func (h *AdminHandler) AddUser(c *gin.Context) {
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	u := &model.UserEntry{ID: req.ID, Name: req.Name, Active: req.Active}
	if err := u.SetPassword(req.Password); err != nil {
		h.logger.Error("hash user password", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	err := h.reg.AddUser(c.Request.Context(), u)
	RecordConfigMutation("user", err)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "added user " + u.Name})
}

// RemoveUser handles DELETE /admin/users/:name.
func (h *AdminHandler) RemoveUser(c *gin.Context) {
	name := c.Param("name")
	err := h.reg.RemoveUser(c.Request.Context(), name)
	RecordConfigMutation("user", err)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "removed user " + name})
}

func joinQuoted(names []string) string {
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ", "
		}
		out += `"` + n + `"`
	}
	return out
}
