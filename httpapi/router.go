package httpapi

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	sos "github.com/ahmadsaubani/go-sos-lib"
	"github.com/ahmadsaubani/go-sos-lib/alerts"
	"github.com/ahmadsaubani/go-sos-lib/alerts/server"
	"github.com/ahmadsaubani/go-sos-lib/logging"
	"github.com/ahmadsaubani/go-sos-lib/middleware"
	"github.com/ahmadsaubani/go-sos-lib/recorder"
	"github.com/ahmadsaubani/go-sos-lib/settings"
	"github.com/ahmadsaubani/go-sos-lib/trigger"
)

// Handler serves the trigger surfaces and the settings screen over HTTP.
type Handler struct {
	svc    *sos.Service
	volume *trigger.VolumeSequence
	logger *logging.Logger
}

/**
 * NewHandler wires the HTTP surface to a service.
 * Volume key presses feed a sequence detector that raises an alert in the
 * background once the sequence completes.
 *
 * @param svc Alert service
 * @param volume Press sequence settings; nil uses three presses within a second
 * @param logger Logger instance; nil discards
 * @return *Handler
 */
func NewHandler(svc *sos.Service, volume *trigger.VolumeConfig, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Discard()
	}
	h := &Handler{svc: svc, logger: logger}
	h.volume = trigger.NewVolumeSequence(volume, nil, h.fireVolume)
	return h
}

// Router returns a gin engine with logging middleware and every route.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestContext())
	r.Use(middleware.AccessLog(h.logger))
	r.Use(middleware.ErrorLog(h.logger))
	r.Use(middleware.Recovery())

	api := r.Group("/api")
	api.POST("/sos", h.triggerButton)
	api.POST("/widget/trigger", h.triggerWidget)
	api.POST("/volume/press", h.volumePress)
	api.GET("/settings", h.getSettings)
	api.PUT("/settings", h.putSettings)
	api.DELETE("/settings", h.clearSettings)
	api.GET("/recordings", h.listRecordings)
	api.DELETE("/recordings/:name", h.removeRecording)
	api.GET("/status", h.status)
	return r
}

type triggerResponse struct {
	alerts.Result
	Summary string `json:"summary"`
}

func (h *Handler) triggerButton(c *gin.Context) {
	res, err := h.svc.Trigger(c.Request.Context(), trigger.Button)
	if errors.Is(err, sos.ErrAlertInFlight) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.logger.LogErrorWithMark(c, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, triggerResponse{Result: res, Summary: res.Summary()})
}

// triggerWidget answers at once; the alert runs in the background the way a
// widget tap does not wait for delivery.
func (h *Handler) triggerWidget(c *gin.Context) {
	if !h.svc.TriggerAsync(trigger.Widget, h.logResult(trigger.Widget)) {
		c.JSON(http.StatusConflict, gin.H{"error": sos.ErrAlertInFlight.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "triggered"})
}

func (h *Handler) volumePress(c *gin.Context) {
	fired := h.volume.Press()
	c.JSON(http.StatusOK, gin.H{"fired": fired, "count": h.volume.Count()})
}

func (h *Handler) fireVolume() {
	if !h.svc.TriggerAsync(trigger.VolumeKeys, h.logResult(trigger.VolumeKeys)) {
		h.logger.Warn("[VOLUME] sequence ignored, alert already in flight")
	}
}

func (h *Handler) logResult(source trigger.Source) func(alerts.Result, error) {
	return func(res alerts.Result, err error) {
		if err != nil {
			h.logger.Error(context.Background(), err)
			return
		}
		h.logger.Infof("[%s] %s", strings.ToUpper(source.String()), res.Summary())
	}
}

func (h *Handler) getSettings(c *gin.Context) {
	st, err := settings.Read(h.svc.Store())
	if err != nil {
		h.logger.LogErrorWithMark(c, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, st)
}

// putSettings updates only the keys present in the body; the rest keep their
// stored values.
func (h *Handler) putSettings(c *gin.Context) {
	in, err := settings.Read(h.svc.Store())
	if err != nil {
		h.logger.LogErrorWithMark(c, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err = settings.Write(h.svc.Store(), in)
	switch {
	case errors.Is(err, settings.ErrInvalidValue), errors.Is(err, settings.ErrNoAlertMethod):
		logging.SetLoggedError(c, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		h.logger.LogErrorWithMark(c, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	st, _ := settings.Read(h.svc.Store())
	c.JSON(http.StatusOK, st)
}

func (h *Handler) clearSettings(c *gin.Context) {
	if err := settings.Clear(h.svc.Store()); err != nil {
		h.logger.LogErrorWithMark(c, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listRecordings(c *gin.Context) {
	rec := h.svc.Recorder()
	if rec == nil {
		c.JSON(http.StatusOK, []recorder.Recording{})
		return
	}
	list, err := rec.List()
	if err != nil {
		h.logger.LogErrorWithMark(c, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) removeRecording(c *gin.Context) {
	rec := h.svc.Recorder()
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "recording disabled"})
		return
	}
	err := rec.Remove(c.Param("name"))
	switch {
	case errors.Is(err, recorder.ErrInvalidName):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case err != nil:
		logging.SetLoggedError(c, err)
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.Status(http.StatusNoContent)
	}
}

type statusResponse struct {
	Online    bool             `json:"online"`
	Network   string           `json:"network"`
	Busy      bool             `json:"alert_in_flight"`
	Server    *bool            `json:"server_reachable,omitempty"`
	Recorder  *recorder.Status `json:"recorder,omitempty"`
	Languages []string         `json:"languages"`
}

func (h *Handler) status(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	net := h.svc.Network().Check(ctx)
	resp := statusResponse{
		Online:    net.Online,
		Network:   net.Type,
		Busy:      h.svc.Busy(),
		Languages: languages(),
	}

	if rec := h.svc.Recorder(); rec != nil {
		st := rec.Status()
		resp.Recorder = &st
	}

	if st, err := settings.Read(h.svc.Store()); err == nil && st.ServerURL != "" && net.Online {
		ok := server.New(&server.Config{Enabled: true, URL: st.ServerURL, AuthToken: st.ServerAuthToken}).Available(ctx)
		resp.Server = &ok
	}

	c.JSON(http.StatusOK, resp)
}

func languages() []string {
	out := make([]string, 0, len(settings.Languages))
	for code := range settings.Languages {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}
