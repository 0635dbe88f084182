package restserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/chrissnell/trailsense/internal/sensors"
	"github.com/chrissnell/trailsense/internal/tide"
	"github.com/chrissnell/trailsense/internal/types"
	"github.com/chrissnell/trailsense/pkg/responseformat"
)

// Handlers contains all HTTP handlers for the REST server
type Handlers struct {
	controller *Controller
	formatter  *responseformat.Formatter
}

// NewHandlers creates a new handlers instance
func NewHandlers(ctrl *Controller) *Handlers {
	return &Handlers{
		controller: ctrl,
		formatter:  responseformat.NewFormatter(),
	}
}

// live responses must not be cached
var noStore = map[string]string{"Cache-Control": "no-store"}

func (h *Handlers) write(w http.ResponseWriter, req *http.Request, data any, headers map[string]string) {
	if err := h.formatter.WriteResponse(w, req, data, headers); err != nil {
		h.controller.logger.Errorw("error encoding response", "path", req.URL.Path, "error", err)
	}
}

func (h *Handlers) fail(w http.ResponseWriter, req *http.Request, status int, message string) {
	if err := h.formatter.WriteError(w, req, status, message); err != nil {
		h.controller.logger.Errorw("error encoding error response", "path", req.URL.Path, "error", err)
	}
}

// GetAltitude returns the fused altitude
func (h *Handlers) GetAltitude(w http.ResponseWriter, req *http.Request) {
	alt := h.controller.services.Altimeter
	if alt == nil {
		h.fail(w, req, http.StatusServiceUnavailable, "no altimeter sensors configured")
		return
	}

	h.write(w, req, types.AltitudeReport{
		Time:     h.controller.now(),
		Altitude: alt.Altitude(),
		Fused:    alt.HasValidReading(),
		Pressure: alt.Pressure(),
	}, noStore)
}

// GetWeather returns the pressure tendency and forecasts
func (h *Handlers) GetWeather(w http.ResponseWriter, req *http.Request) {
	hist := h.controller.services.History
	if hist == nil {
		h.fail(w, req, http.StatusServiceUnavailable, "no pressure history available")
		return
	}

	readings, err := hist.Readings(req.Context())
	if err != nil {
		h.controller.logger.Errorw("error reading pressure history", "error", err)
		h.fail(w, req, http.StatusInternalServerError, "error reading pressure history")
		return
	}

	report := types.BuildWeatherReport(h.controller.services.Weather, readings, h.controller.now())
	h.write(w, req, report, noStore)
}

// GetMoon returns the current moon phase
func (h *Handlers) GetMoon(w http.ResponseWriter, req *http.Request) {
	h.write(w, req, types.BuildMoonReport(h.controller.now()), map[string]string{"Cache-Control": "max-age=600"})
}

// GetTides lists the configured tides
func (h *Handlers) GetTides(w http.ResponseWriter, req *http.Request) {
	models, err := h.controller.services.TideModels.All(req.Context())
	if err != nil {
		h.controller.logger.Errorw("error loading tides", "error", err)
		h.fail(w, req, http.StatusInternalServerError, "error loading tides")
		return
	}

	summaries := make([]types.TideSummary, 0, len(models))
	for _, m := range models {
		summaries = append(summaries, types.Summarize(m))
	}
	h.write(w, req, summaries, nil)
}

// GetTide returns one day of a named tide.
// Query parameters: date (YYYY-MM-DD, default today), levels (bool, default true)
func (h *Handlers) GetTide(w http.ResponseWriter, req *http.Request) {
	name := mux.Vars(req)["name"]
	m, err := h.controller.services.TideModels.ByName(req.Context(), name)
	if err != nil {
		h.tideLookupFailed(w, req, err)
		return
	}
	h.writeTide(w, req, m)
}

// GetNearestTide returns one day of the tide closest to lat/lon.
// Query parameters: lat, lon (required), date, levels
func (h *Handlers) GetNearestTide(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
	lon, errLon := strconv.ParseFloat(q.Get("lon"), 64)
	if errLat != nil || errLon != nil || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		h.fail(w, req, http.StatusBadRequest, "lat and lon parameters are required")
		return
	}

	m, err := h.controller.services.TideModels.Nearest(req.Context(), sensors.Coordinate{Latitude: lat, Longitude: lon})
	if err != nil {
		h.tideLookupFailed(w, req, err)
		return
	}
	h.writeTide(w, req, m)
}

func (h *Handlers) tideLookupFailed(w http.ResponseWriter, req *http.Request, err error) {
	if errors.Is(err, tide.ErrNotFound) {
		h.fail(w, req, http.StatusNotFound, "tide not found")
		return
	}
	h.controller.logger.Errorw("error loading tide", "error", err)
	h.fail(w, req, http.StatusInternalServerError, "error loading tide")
}

func (h *Handlers) writeTide(w http.ResponseWriter, req *http.Request, m tide.Model) {
	q := req.URL.Query()
	now := h.controller.now()

	date, err := types.ParseDate(m, q.Get("date"), now)
	if err != nil {
		h.fail(w, req, http.StatusBadRequest, err.Error())
		return
	}

	withLevels := true
	if v := q.Get("levels"); v != "" {
		withLevels, err = strconv.ParseBool(v)
		if err != nil {
			h.fail(w, req, http.StatusBadRequest, "levels must be true or false")
			return
		}
	}

	h.write(w, req, types.BuildTideReport(h.controller.services.Tides, m, date, now, withLevels), noStore)
}
