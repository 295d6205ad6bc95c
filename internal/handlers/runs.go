package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/multierr"

	"rms_pipeline/internal/models"
	"rms_pipeline/internal/service"
)

const (
	errFromInvalid = "invalid 'from' time; use RFC3339 or YYYY-MM-DD"
	errToInvalid   = "invalid 'to' time; use RFC3339 or YYYY-MM-DD"
)

// isDateOnly reports a YYYY-MM-DD query value.
func isDateOnly(s string) bool {
	return !strings.ContainsAny(s, "T ")
}

// parseUnitsQuery splits ?units=a,b,c.
func parseUnitsQuery(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, id := range strings.Split(s, ",") {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}

func queryFloat(c *gin.Context, key string) (*float64, error) {
	s := c.Query(key)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %q: %s", key, s)
	}
	return &v, nil
}

func queryBool(c *gin.Context, key string) (*bool, error) {
	s := c.Query(key)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return nil, fmt.Errorf("invalid %q: %s", key, s)
	}
	return &v, nil
}

// parseRunFilter reads units, from and to. A date-only 'to' covers that whole day.
func parseRunFilter(c *gin.Context) (service.UnitFilter, string) {
	f := service.UnitFilter{Units: parseUnitsQuery(c.Query("units"))}
	if qs := c.Query("from"); qs != "" {
		from, err := models.ParseTimestamp(qs)
		if err != nil {
			return f, errFromInvalid
		}
		f.From = from
	}
	if qs := c.Query("to"); qs != "" {
		to, err := models.ParseTimestamp(qs)
		if err != nil {
			return f, errToInvalid
		}
		if isDateOnly(qs) {
			to = to.Add(24*time.Hour - time.Nanosecond).UTC()
		}
		f.To = to
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.From.After(f.To) {
		return f, "'from' must be <= 'to'"
	}
	return f, ""
}

// @Summary      Run over the configured source
// @Description  Loads units from the configured CSV folder or SQLite file and runs the pipeline. Dates accept RFC3339, 'YYYY-MM-DD HH:MM:SS' or 'YYYY-MM-DD'; a date-only 'to' is end-of-day inclusive.
// @Tags         pipeline
// @Produce      json
// @Param        units         query  string  false  "Comma-separated unit ids; all units when empty"  example(pump1,pump2)
// @Param        from          query  string  false  "Start of range"  example(2024-05-01)
// @Param        to            query  string  false  "End of range"  example(2024-05-31)
// @Param        sensitivity   query  number  false  "MAD multiplier"  example(12)
// @Param        window_hours  query  number  false  "Half window in hours"  example(1)
// @Param        fail_fast     query  bool    false  "Abort at the first failing unit"
// @Success      200  {object}  RunResponse
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      422  {object}  map[string]interface{}  "error, run"
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/runs [post]
// @Security     BearerAuth
func (h *Handler) runSource(c *gin.Context) {
	ctx := c.Request.Context()

	filter, msg := parseRunFilter(c)
	if msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	sensitivity, err := queryFloat(c, "sensitivity")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	windowHours, err := queryFloat(c, "window_hours")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	failFast, err := queryBool(c, "fail_fast")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p := h.paramsFor(sensitivity, windowHours, failFast)
	if err := p.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	units, loadErr := h.services.Ingest.LoadUnits(ctx, filter)
	if units == nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to load units", "units_load_failed", loadErr,
			"units", filter.Units, "from", filter.From, "to", filter.To)
		return
	}

	report, err := h.services.Pipeline.Run(ctx, units, p)
	h.respondRun(c, report, err, errorStrings(multierr.Errors(loadErr)), nil)
}
