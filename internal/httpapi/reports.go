package httpapi

import (
	"bytes"
	"fmt"
	"net/http"

	"legal-clinic/internal/reporting"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// --- Reports ---

func (h Handlers) ConsultationSummary(c *gin.Context) {
	from, to, ok := queryRange(c)
	if !ok {
		return
	}
	out, err := h.Reports.ConsultationSummary(c.Request.Context(), reporting.TimeRange{From: from, To: to})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) SocialWorkWorkbook(c *gin.Context) {
	from, to, ok := queryRange(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := h.Reports.SocialWorkWorkbook(c.Request.Context(), reporting.TimeRange{From: from, To: to}, &buf); err != nil {
		writeError(c, err)
		return
	}
	name := fmt.Sprintf("trabajo-social_%s_%s.xlsx", from.Format("20060102"), to.Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h Handlers) AttentionSheet(c *gin.Context) {
	code := c.Param("code")
	var buf bytes.Buffer
	if err := h.Reports.AttentionSheet(c.Request.Context(), code, &buf); err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", "hoja-atencion_"+code+".pdf"))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
