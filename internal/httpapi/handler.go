// Package httpapi serves the planner over HTTP.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/cognicore/ruta/pkg/ruta"
	"github.com/cognicore/ruta/pkg/ruta/internalerr"
	"github.com/cognicore/ruta/pkg/ruta/recommend"
	"github.com/cognicore/ruta/pkg/ruta/store"
)

// Handler exposes stored graphs, recommendations and run history.
type Handler struct {
	planner *ruta.Planner
}

func NewHandler(p *ruta.Planner) *Handler {
	return &Handler{planner: p}
}

// Router returns a router with every route registered.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/graphs", h.ListGraphs).Methods("GET")
	router.HandleFunc("/api/graphs/{name}/landmarks", h.Landmarks).Methods("GET")
	router.HandleFunc("/api/recommend", h.Recommend).Methods("POST")
	router.HandleFunc("/api/runs", h.ListRuns).Methods("GET")
	router.HandleFunc("/api/runs/{id}", h.GetRun).Methods("GET")
}

// RecommendRequest is the body of POST /api/recommend.
type RecommendRequest struct {
	Graph string `json:"graph"`
	From  string `json:"from"`
	To    string `json:"to"`
	Seed  uint64 `json:"seed,omitempty"`
}

// RecommendResponse wraps a recommendation with its run metadata.
type RecommendResponse struct {
	RunID          string                   `json:"run_id"`
	Seed           uint64                   `json:"seed"`
	Firings        int                      `json:"firings"`
	Recommendation recommend.Recommendation `json:"recommendation"`
}

func (h *Handler) ListGraphs(w http.ResponseWriter, r *http.Request) {
	graphs, err := h.planner.Graphs(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]store.GraphView, len(graphs))
	for i, g := range graphs {
		out[i] = g.View()
	}
	writeJSON(w, http.StatusOK, map[string]any{"graphs": out, "count": len(out)})
}

func (h *Handler) Landmarks(w http.ResponseWriter, r *http.Request) {
	g, err := h.planner.Graph(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		writeError(w, err)
		return
	}
	names, err := ruta.Landmarks(g)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"landmarks": names})
}

func (h *Handler) Recommend(w http.ResponseWriter, r *http.Request) {
	var req RecommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Graph == "" || req.From == "" || req.To == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "graph, from and to are required"})
		return
	}

	res, err := h.planner.Recommend(r.Context(), ruta.Request{Graph: req.Graph, From: req.From, To: req.To, Seed: req.Seed})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RecommendResponse{
		RunID:          res.RunID,
		Seed:           res.Seed,
		Firings:        res.Firings,
		Recommendation: res.Recommendation,
	})
}

func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}
	runs, err := h.planner.Runs(r.Context(), r.URL.Query().Get("graph"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]store.RunView, len(runs))
	for i, run := range runs {
		out[i] = run.View()
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": out, "count": len(out)})
}

func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.planner.Run(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run.View())
}

// statusFor maps sentinel errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, internalerr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, internalerr.ErrInvalidInput),
		errors.Is(err, internalerr.ErrUnknownLandmark),
		errors.Is(err, internalerr.ErrUnknownType),
		errors.Is(err, internalerr.ErrUnknownPredicate),
		errors.Is(err, internalerr.ErrMultiValued),
		errors.Is(err, internalerr.ErrDuplicate):
		return http.StatusBadRequest
	case errors.Is(err, internalerr.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
