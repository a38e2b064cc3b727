package httpapi

import (
	"encoding/json"
	"net/http"

	"legal-clinic/internal/sectors"

	"github.com/gin-gonic/gin"
)

// --- Sectors ---

func (h Handlers) ListSectors(c *gin.Context) {
	if name := c.Query("name"); name != "" {
		zone, err := h.Sectors.ZoneOf(c.Request.Context(), name)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"name": name, "zone": zone})
		return
	}
	list, err := h.Sectors.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": list})
}

func (h Handlers) GetSector(c *gin.Context) {
	v, err := h.Sectors.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// CreateSectors accepts a single sector object or an array of them.
func (h Handlers) CreateSectors(c *gin.Context) {
	uid, ok := actor(c)
	if !ok {
		return
	}
	var raw json.RawMessage
	if err := c.ShouldBindJSON(&raw); err != nil {
		badRequest(c, "invalid json")
		return
	}
	var in []sectors.Input
	if err := json.Unmarshal(raw, &in); err != nil {
		var one sectors.Input
		if err := json.Unmarshal(raw, &one); err != nil {
			badRequest(c, "invalid json")
			return
		}
		in = []sectors.Input{one}
	}
	out, err := h.Sectors.Create(c.Request.Context(), uid, in...)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"items": out})
}

func (h Handlers) UpdateSector(c *gin.Context) {
	uid, ok := actor(c)
	if !ok {
		return
	}
	var in sectors.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid json")
		return
	}
	v, err := h.Sectors.Update(c.Request.Context(), uid, c.Param("id"), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h Handlers) DeleteSector(c *gin.Context) {
	uid, ok := actor(c)
	if !ok {
		return
	}
	if err := h.Sectors.Delete(c.Request.Context(), uid, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
