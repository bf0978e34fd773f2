package httpapi

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"labstock/internal/core"
	"labstock/internal/report"
	"labstock/pkg/domain"
)

type unitLevelBody struct {
	Remaining *int `json:"remaining" binding:"required"`
}

type userBody struct {
	Name string      `json:"name" binding:"required"`
	Role domain.Role `json:"role" binding:"required"`
}

type currentUserBody struct {
	ID string `json:"id" binding:"required"`
}

type reportBody struct {
	Format   report.Format   `json:"format"`
	Currency domain.Currency `json:"currency"`
	OrgName  string          `json:"org_name"`
}

func (h *Handler) listChemicals(c *gin.Context) {
	chems, err := h.svc.ListChemicals(c.Request.Context())
	if err != nil {
		replyErr(c, err)
		return
	}
	replyData(c, http.StatusOK, chems, domain.Result{})
}

func (h *Handler) getChemical(c *gin.Context) {
	chem, err := h.svc.GetChemical(c.Request.Context(), c.Param("id"))
	if err != nil {
		replyErr(c, err)
		return
	}
	replyData(c, http.StatusOK, chem, domain.Result{})
}

func (h *Handler) addChemical(c *gin.Context) {
	var draft domain.ChemicalDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		replyBadRequest(c, err)
		return
	}
	chem, res, err := h.svc.SaveChemical(c.Request.Context(), domain.DraftEdit(draft))
	if err != nil {
		replyErr(c, err)
		return
	}
	replyData(c, http.StatusCreated, chem, res)
}

// updateChemical replaces the editable fields. Stock only moves through the
// ledger, so current_stock in the body is ignored.
func (h *Handler) updateChemical(c *gin.Context) {
	var draft domain.ChemicalDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		replyBadRequest(c, err)
		return
	}
	record := draft.Chemical()
	record.ID = c.Param("id")
	chem, res, err := h.svc.SaveChemical(c.Request.Context(), domain.PersistedEdit(record))
	if err != nil {
		replyErr(c, err)
		return
	}
	replyData(c, http.StatusOK, chem, res)
}

func (h *Handler) openUnit(c *gin.Context) {
	chem, unit, res, err := h.svc.OpenUnit(c.Request.Context(), c.Param("id"))
	if err != nil {
		replyErr(c, err)
		return
	}
	replyData(c, http.StatusCreated, gin.H{"chemical": chem, "unit": unit}, res)
}

func (h *Handler) setUnitLevel(c *gin.Context) {
	var body unitLevelBody
	if err := c.ShouldBindJSON(&body); err != nil {
		replyBadRequest(c, err)
		return
	}
	chem, res, err := h.svc.SetUnitLevel(c.Request.Context(), c.Param("id"), c.Param("unitID"), domain.FillLevel(*body.Remaining))
	if err != nil {
		replyErr(c, err)
		return
	}
	replyData(c, http.StatusOK, chem, res)
}

func (h *Handler) closeUnit(c *gin.Context) {
	chem, res, err := h.svc.CloseUnit(c.Request.Context(), c.Param("id"), c.Param("unitID"))
	if err != nil {
		replyErr(c, err)
		return
	}
	replyData(c, http.StatusOK, chem, res)
}

func (h *Handler) listTransactions(c *gin.Context) {
	txs, err := h.svc.ListTransactions(c.Request.Context())
	if err != nil {
		replyErr(c, err)
		return
	}
	replyData(c, http.StatusOK, txs, domain.Result{})
}

func (h *Handler) recordTransaction(c *gin.Context) {
	var req core.TransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		replyBadRequest(c, err)
		return
	}
	tr, res, err := h.svc.RecordTransaction(c.Request.Context(), req)
	if err != nil {
		replyErr(c, err)
		return
	}
	replyData(c, http.StatusCreated, tr, res)
}

func (h *Handler) listUsers(c *gin.Context) {
	users, err := h.svc.ListUsers(c.Request.Context())
	if err != nil {
		replyErr(c, err)
		return
	}
	replyData(c, http.StatusOK, users, domain.Result{})
}

func (h *Handler) addUser(c *gin.Context) {
	var body userBody
	if err := c.ShouldBindJSON(&body); err != nil {
		replyBadRequest(c, err)
		return
	}
	user, res, err := h.svc.AddUser(c.Request.Context(), body.Name, body.Role)
	if err != nil {
		replyErr(c, err)
		return
	}
	replyData(c, http.StatusCreated, user, res)
}

func (h *Handler) deleteUser(c *gin.Context) {
	res, err := h.svc.DeleteUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		replyErr(c, err)
		return
	}
	replyData(c, http.StatusOK, gin.H{"id": c.Param("id")}, res)
}

func (h *Handler) currentUser(c *gin.Context) {
	user, err := h.svc.CurrentUser(c.Request.Context())
	if err != nil {
		replyErr(c, err)
		return
	}
	replyData(c, http.StatusOK, user, domain.Result{})
}

func (h *Handler) setCurrentUser(c *gin.Context) {
	var body currentUserBody
	if err := c.ShouldBindJSON(&body); err != nil {
		replyBadRequest(c, err)
		return
	}
	user, err := h.svc.SetCurrentUser(c.Request.Context(), body.ID)
	if err != nil {
		replyErr(c, err)
		return
	}
	replyData(c, http.StatusOK, user, domain.Result{})
}

func (h *Handler) reorder(c *gin.Context) {
	settings, err := settingsFrom(c.Query("currency"), c.Query("org_name"))
	if err != nil {
		replyErr(c, err)
		return
	}
	plan, err := h.svc.Reorder(c.Request.Context(), settings)
	if err != nil {
		replyErr(c, err)
		return
	}
	replyData(c, http.StatusOK, plan, domain.Result{})
}

func (h *Handler) dashboard(c *gin.Context) {
	d, err := h.svc.Dashboard(c.Request.Context())
	if err != nil {
		replyErr(c, err)
		return
	}
	replyData(c, http.StatusOK, d, domain.Result{})
}

func (h *Handler) createReport(c *gin.Context) {
	var body reportBody
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			replyBadRequest(c, err)
			return
		}
	}
	settings, err := settingsFrom(string(body.Currency), body.OrgName)
	if err != nil {
		replyErr(c, err)
		return
	}
	ctx := c.Request.Context()
	plan, err := h.svc.Reorder(ctx, settings)
	if err != nil {
		replyErr(c, err)
		return
	}
	var requestedBy string
	if user, err := h.svc.CurrentUser(ctx); err == nil {
		requestedBy = user.Name
	}
	job, err := h.reports.Enqueue(ctx, report.Input{Plan: plan, Format: body.Format, RequestedBy: requestedBy})
	if err != nil {
		replyErr(c, err)
		return
	}
	replyData(c, http.StatusAccepted, job, domain.Result{})
}

func (h *Handler) getReport(c *gin.Context) {
	job, ok := h.reports.Get(c.Param("id"))
	if !ok {
		replyErr(c, report.ErrJobNotFound)
		return
	}
	replyData(c, http.StatusOK, job, domain.Result{})
}

func (h *Handler) reportContent(c *gin.Context) {
	job, rc, err := h.reports.Open(c.Request.Context(), c.Param("id"))
	if err != nil {
		replyErr(c, err)
		return
	}
	defer func() { _ = rc.Close() }()
	c.Header("Content-Type", job.Artifact.ContentType)
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, rc)
}

// settingsFrom validates optional currency and organisation overrides. Empty
// values fall back to the service defaults.
func settingsFrom(currency, orgName string) (domain.AppSettings, error) {
	cur := domain.Currency(strings.ToUpper(strings.TrimSpace(currency)))
	switch cur {
	case "", domain.CurrencyUSD, domain.CurrencyTWD:
	default:
		return domain.AppSettings{}, domain.InvalidInputError{Field: "currency", Reason: "must be USD or TWD"}
	}
	return domain.AppSettings{Currency: cur, OrgName: strings.TrimSpace(orgName)}, nil
}
