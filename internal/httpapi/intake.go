package httpapi

import (
	"errors"
	"net/http"

	"legal-clinic/internal/clinic"
	"legal-clinic/internal/intake"
	"legal-clinic/internal/store"

	"github.com/gin-gonic/gin"
)

// --- Consultations ---

func (h Handlers) CreateIntake(c *gin.Context) {
	uid, ok := actor(c)
	if !ok {
		return
	}
	var req intake.IntakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	res, err := h.Intake.CreateIntake(c.Request.Context(), uid, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h Handlers) CreateConsultation(c *gin.Context) {
	uid, ok := actor(c)
	if !ok {
		return
	}
	var in intake.ConsultationInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid json")
		return
	}
	res, err := h.Intake.CreateConsultation(c.Request.Context(), uid, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h Handlers) ListConsultations(c *gin.Context) {
	from, to, ok := queryRange(c)
	if !ok {
		return
	}
	list, err := h.Intake.List(c.Request.Context(), store.ConsultationFilter{
		ClientID: c.Query("client_id"),
		Status:   c.Query("status"),
		Type:     c.Query("type"),
		Subject:  c.Query("subject"),
		From:     from,
		To:       to,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": list})
}

func (h Handlers) GetConsultation(c *gin.Context) {
	cons, err := h.Intake.Get(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}
	ev, err := h.Intake.Evidence(c.Request.Context(), cons.Code)
	if err != nil {
		writeError(c, err)
		return
	}
	body := gin.H{"consultation": cons, "evidence": ev}
	if h.SocialWork != nil {
		sw, err := h.SocialWork.GetByConsultation(c.Request.Context(), cons.Code)
		switch {
		case err == nil:
			body["social_work"] = sw
		case !errors.Is(err, clinic.ErrNotFound):
			writeError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, body)
}

func (h Handlers) UpdateConsultation(c *gin.Context) {
	uid, ok := actor(c)
	if !ok {
		return
	}
	var p intake.ConsultationPatch
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, "invalid json")
		return
	}
	cons, err := h.Intake.UpdateConsultation(c.Request.Context(), uid, c.Param("code"), p)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cons)
}

func (h Handlers) DeleteConsultation(c *gin.Context) {
	uid, ok := actor(c)
	if !ok {
		return
	}
	cons, err := h.Intake.DeleteConsultation(c.Request.Context(), uid, c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cons)
}
