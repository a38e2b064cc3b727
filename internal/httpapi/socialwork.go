package httpapi

import (
	"net/http"

	"legal-clinic/internal/clinic"
	"legal-clinic/internal/socialwork"
	"legal-clinic/internal/store"

	"github.com/gin-gonic/gin"
)

// --- Social work ---

type statusRequest struct {
	Status       clinic.SocialWorkStatus `json:"status"`
	Observations string                  `json:"observations"`
}

func (h Handlers) CreateCase(c *gin.Context) {
	uid, ok := actor(c)
	if !ok {
		return
	}
	var in socialwork.CaseInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid json")
		return
	}
	sw, err := h.SocialWork.Create(c.Request.Context(), uid, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sw)
}

func (h Handlers) ListCases(c *gin.Context) {
	from, to, ok := queryRange(c)
	if !ok {
		return
	}
	status := clinic.SocialWorkStatus(c.Query("status"))
	if status != "" && !status.Valid() {
		badRequest(c, "status must be Activo or Inactivo")
		return
	}
	list, err := h.SocialWork.List(c.Request.Context(), store.SocialWorkFilter{Status: status, EnteredFrom: from, EnteredTo: to})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": list})
}

func (h Handlers) GetCase(c *gin.Context) {
	sw, err := h.SocialWork.Get(c.Request.Context(), c.Param("number"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sw)
}

func (h Handlers) UpdateCase(c *gin.Context) {
	uid, ok := actor(c)
	if !ok {
		return
	}
	var p socialwork.CasePatch
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, "invalid json")
		return
	}
	sw, err := h.SocialWork.Update(c.Request.Context(), uid, c.Param("number"), p)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sw)
}

func (h Handlers) UpdateCaseStatus(c *gin.Context) {
	uid, ok := actor(c)
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	number := c.Param("number")
	updated, err := h.SocialWork.UpdateStatus(c.Request.Context(), uid, number, req.Status, req.Observations)
	if err != nil {
		writeError(c, err)
		return
	}
	if !updated {
		writeError(c, clinic.NotFound(clinic.EntitySocialWork, number))
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": true})
}

func (h Handlers) DeleteCase(c *gin.Context) {
	uid, ok := actor(c)
	if !ok {
		return
	}
	sw, err := h.SocialWork.Delete(c.Request.Context(), uid, c.Param("number"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sw)
}
