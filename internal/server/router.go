package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/minkj/stackup/internal/supervisor"
)

// Router exposes the supervisor over HTTP as the structured control channel
// for the configured services.
// Endpoints:
//
//	GET  {basePath}/status          all services; ?name= for one
//	GET  {basePath}/check?name=...  explicit health probe
//	GET  {basePath}/history?name=...&limit=N
//	POST {basePath}/start           ?name= for one, otherwise all
//	POST {basePath}/stop            ?name= for one, otherwise all; &wait=2s
//	GET  {basePath}/healthz         supervisor liveness
type Router struct {
	sup      *supervisor.Supervisor
	specs    []supervisor.Spec
	stopWait time.Duration
	basePath string
}

func NewRouter(sup *supervisor.Supervisor, specs []supervisor.Spec, stopWait time.Duration, basePath string) *Router {
	return &Router{sup: sup, specs: specs, stopWait: stopWait, basePath: sanitizeBase(basePath)}
}

// Handler returns an http.Handler powered by gin that can be mounted in any mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	group := g.Group(r.basePath)
	group.GET("/status", r.handleStatus)
	group.GET("/check", r.handleCheck)
	group.GET("/history", r.handleHistory)
	group.POST("/start", r.handleStart)
	group.POST("/stop", r.handleStop)
	group.GET("/healthz", func(c *gin.Context) { writeJSON(c, http.StatusOK, okResp{OK: true}) })
	return g
}

// NewServer starts a standalone HTTP server on addr using this router.
func NewServer(addr string, r *Router) *http.Server {
	server := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() { _ = server.ListenAndServe() }()
	return server
}

type errorResp struct {
	Error string `json:"error"`
}

type okResp struct {
	OK bool `json:"ok"`
}

func (r *Router) specByName(name string) (supervisor.Spec, bool) {
	for _, sp := range r.specs {
		if sp.Name == name {
			return sp, true
		}
	}
	return supervisor.Spec{}, false
}

func (r *Router) handleStatus(c *gin.Context) {
	name := c.Query("name")
	if name != "" {
		sp, ok := r.specByName(name)
		if !ok {
			writeJSON(c, http.StatusNotFound, errorResp{Error: "unknown service: " + name})
			return
		}
		writeJSON(c, http.StatusOK, r.sup.Status(c.Request.Context(), sp))
		return
	}
	out := make([]supervisor.Status, 0, len(r.specs))
	for _, sp := range r.specs {
		out = append(out, r.sup.Status(c.Request.Context(), sp))
	}
	writeJSON(c, http.StatusOK, out)
}

func (r *Router) handleCheck(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		out := make([]supervisor.Status, 0, len(r.specs))
		for _, sp := range r.specs {
			out = append(out, r.sup.Check(c.Request.Context(), sp))
		}
		writeJSON(c, http.StatusOK, out)
		return
	}
	sp, ok := r.specByName(name)
	if !ok {
		writeJSON(c, http.StatusNotFound, errorResp{Error: "unknown service: " + name})
		return
	}
	writeJSON(c, http.StatusOK, r.sup.Check(c.Request.Context(), sp))
}

func (r *Router) handleHistory(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "name query param required"})
		return
	}
	if _, ok := r.specByName(name); !ok {
		writeJSON(c, http.StatusNotFound, errorResp{Error: "unknown service: " + name})
		return
	}
	limit := 0
	if ls := c.Query("limit"); ls != "" {
		limit, _ = strconv.Atoi(ls)
	}
	events, err := r.sup.History(c.Request.Context(), name, limit)
	if err != nil {
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, events)
}

func (r *Router) handleStart(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		writeJSON(c, http.StatusOK, r.sup.StartAll(c.Request.Context(), r.specs))
		return
	}
	sp, ok := r.specByName(name)
	if !ok {
		writeJSON(c, http.StatusNotFound, errorResp{Error: "unknown service: " + name})
		return
	}
	writeJSON(c, http.StatusOK, []supervisor.Outcome{r.sup.StartOne(c.Request.Context(), sp)})
}

func (r *Router) handleStop(c *gin.Context) {
	wait := r.stopWait
	if ws := c.Query("wait"); ws != "" {
		if d, err := time.ParseDuration(ws); err == nil {
			wait = d
		}
	}
	name := c.Query("name")
	if name == "" {
		r.sup.StopAll(c.Request.Context(), r.specs, wait)
		writeJSON(c, http.StatusOK, okResp{OK: true})
		return
	}
	sp, ok := r.specByName(name)
	if !ok {
		writeJSON(c, http.StatusNotFound, errorResp{Error: "unknown service: " + name})
		return
	}
	if err := r.sup.Stop(c.Request.Context(), sp, wait); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, okResp{OK: true})
}
