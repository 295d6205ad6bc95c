package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"rms_pipeline/internal/preprocess"
	"rms_pipeline/internal/service"
)

const statusOK = "ok"

// logAndJSONError logs err under logKey and answers with userMsg only.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// paramsFor applies per-request overrides to the server defaults.
func (h *Handler) paramsFor(sensitivity, windowHours *float64, failFast *bool) service.Params {
	p := h.params
	if sensitivity != nil {
		p.Outlier.Sensitivity = *sensitivity
	}
	if windowHours != nil {
		p.Outlier.Window = preprocess.WindowFromHours(*windowHours)
	}
	if failFast != nil {
		p.FailFast = *failFast
	}
	return p
}

// respondRun writes the run summary. Units rejected before the run are listed
// under errors next to the others. A fail-fast abort answers 422 with the
// partial summary attached.
func (h *Handler) respondRun(c *gin.Context, report service.RunReport, runErr error, loadErrs []string, rejected map[string]error) {
	resp := toRunResponse(report)
	resp.LoadErrors = loadErrs
	for id, err := range rejected {
		resp.Errors[id] = err.Error()
	}
	if runErr != nil {
		if h.log != nil {
			h.log.Warnw("run_aborted", "run_id", report.RunID, "err", runErr)
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": runErr.Error(), "run": resp})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Process units
// @Description  Cleans, enriches and aligns alarms for the posted units. Failing units, including ones with unparseable timestamps or misaligned columns, are listed under errors unless fail_fast is set.
// @Tags         pipeline
// @Accept       json
// @Produce      json
// @Param        body  body      ProcessRequest  true  "Units and optional tuning"
// @Success      200   {object}  RunResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      422   {object}  map[string]interface{}  "error, run"
// @Router       /api/v1/process [post]
// @Security     BearerAuth
func (h *Handler) process(c *gin.Context) {
	var req ProcessRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}

	p := h.paramsFor(req.Sensitivity, req.WindowHours, req.FailFast)
	if err := p.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	units, invalid := toRecords(req.Units)
	if len(invalid) > 0 && h.log != nil {
		h.log.Warnw("units_rejected", "count", len(invalid), "err", firstInvalid(invalid))
	}
	if p.FailFast && len(invalid) > 0 {
		h.respondRun(c, service.RunReport{}, firstInvalid(invalid), nil, invalid)
		return
	}

	report, err := h.services.Pipeline.Run(c.Request.Context(), units, p)
	if errors.Is(err, preprocess.ErrInvalidConfig) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.respondRun(c, report, err, nil, invalid)
}
