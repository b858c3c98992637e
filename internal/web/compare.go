package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/kamilpajak/visualgate/internal/browser"
	"github.com/kamilpajak/visualgate/internal/events"
	"github.com/kamilpajak/visualgate/internal/imaging"
	"github.com/kamilpajak/visualgate/internal/pagehost"
	"github.com/kamilpajak/visualgate/internal/verify"
	"github.com/kamilpajak/visualgate/pkg/models"
)

type compareRequest struct {
	models.CompareOptions
	URL  string `json:"url"`
	HTML string `json:"html"`
}

type compareFilesRequest struct {
	ComponentID   string  `json:"componentId"`
	Design        string  `json:"design"`
	Actual        string  `json:"actual"`
	PassThreshold float64 `json:"passThreshold"`
	FailThreshold float64 `json:"failThreshold"`
}

func (s *Server) applyThresholds(pass, fail *float64) {
	if *fail == 0 {
		*fail = s.cfg.FailThreshold
		if *pass == 0 {
			*pass = s.cfg.PassThreshold
		}
	}
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Launch == nil {
		writeError(w, http.StatusServiceUnavailable, "no browser configured")
		return
	}

	var req compareRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if (req.URL == "") == (req.HTML == "") {
		writeError(w, http.StatusBadRequest, "exactly one of url or html is required")
		return
	}
	s.applyThresholds(&req.PassThreshold, &req.FailThreshold)
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	emitter := NewSSEEmitter(w)
	if emitter == nil {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	ctx := r.Context()
	fail := func(err error) {
		s.log.Warn().Err(err).Str("component_id", req.ComponentID).Msg("live comparison setup failed")
		emitter.Emit(events.Failed(req.ComponentID, err, time.Now().UTC()))
	}

	url := req.URL
	if req.HTML != "" {
		host, err := pagehost.Start([]byte(req.HTML), "index.html")
		if err != nil {
			fail(err)
			return
		}
		defer host.Stop()
		url = host.EntryURL()
	}

	session, err := browser.OpenPage(ctx, s.cfg.Launch, url)
	if err != nil {
		fail(err)
		return
	}
	defer session.Close()

	o := verify.New(session, s.cfg.Judge, s.cfg.Differ, s.log)
	o.Emitter = emitter
	result, err := o.Compare(ctx, req.CompareOptions)
	if err != nil {
		// already reported as an error event
		return
	}
	s.save(ctx, result)
}

func (s *Server) handleCompareFiles(w http.ResponseWriter, r *http.Request) {
	var req compareFilesRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Design == "" || req.Actual == "" {
		writeError(w, http.StatusBadRequest, "design and actual are required")
		return
	}
	if req.ComponentID == "" {
		req.ComponentID = "component"
	}
	s.applyThresholds(&req.PassThreshold, &req.FailThreshold)

	res, err := verify.CompareFiles(s.cfg.Differ, req.ComponentID, req.Design, req.Actual, req.PassThreshold, req.FailThreshold)
	if err != nil {
		var readErr *imaging.ImageReadError
		if errors.As(err, &readErr) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.save(r.Context(), res.VisualDiffResult())
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) save(ctx context.Context, result *models.VisualDiffResult) {
	if s.cfg.Store == nil || result == nil {
		return
	}
	if _, err := s.cfg.Store.Save(ctx, result); err != nil {
		s.log.Error().Err(err).Str("component_id", result.ComponentID).Msg("failed to store result")
	}
}
