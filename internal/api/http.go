package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

import (
	"github.com/nanjiek/pixiu-urcu/internal/config"
	"github.com/nanjiek/pixiu-urcu/internal/rules"
)

type Server struct {
	cfg   config.ServerCfg
	store *rules.Store
	srv   *http.Server
}

func NewServer(cfg config.ServerCfg, store *rules.Store) *Server {
	return &Server{
		cfg:   cfg,
		store: store,
	}
}

func (s *Server) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/v1/resolve", s.resolveHandler).Methods(http.MethodPost)
	r.HandleFunc("/v1/rules/{id}", s.getRuleHandler).Methods(http.MethodGet)
	r.HandleFunc("/v1/rules/{id}", s.putRuleHandler).Methods(http.MethodPut)
	r.HandleFunc("/v1/snapshot", s.snapshotHandler).Methods(http.MethodGet)
	r.HandleFunc("/v1/flags/{name}", s.putFlagHandler).Methods(http.MethodPut)
	r.HandleFunc("/healthz", s.healthHandler).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
}

func (s *Server) ListenAndServe() error {
	r := mux.NewRouter()
	s.RegisterRoutes(r)
	s.srv = &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// ---------------- Handlers ----------------

func (s *Server) resolveHandler(w http.ResponseWriter, r *http.Request) {
	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.RuleID == "" && req.Route == "" {
		errResp(w, http.StatusBadRequest, "ruleId or route is required")
		return
	}

	rule, err := s.store.Resolve(req.RuleID, req.Route)
	if err != nil {
		errResp(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

func (s *Server) getRuleHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	rule, ok := s.store.Get(id)
	if !ok {
		errResp(w, http.StatusNotFound, "rule not found: "+id)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

func (s *Server) putRuleHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req RuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.RuleID == "" {
		req.RuleID = id
	}
	if req.RuleID != id {
		errResp(w, http.StatusBadRequest, "ruleId mismatch with path")
		return
	}

	rule := config.Rule{
		RuleID:   req.RuleID,
		Match:    req.Match,
		Priority: req.Priority,
		Limit:    req.Limit,
		Burst:    req.Burst,
		Enabled:  req.Enabled,
	}
	if err := s.store.Upsert(r.Context(), rule); err != nil {
		errResp(w, http.StatusInternalServerError, "upsert failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

// snapshotHandler 用一个 bundle 视图返回规则与开关的一致作用域快照。
func (s *Server) snapshotHandler(w http.ResponseWriter, r *http.Request) {
	v := s.store.View()
	defer v.Close()

	writeJSON(w, http.StatusOK, SnapshotResponse{
		Rules: v.Rules().Rules,
		Flags: v.Flags().Flags,
	})
}

func (s *Server) putFlagHandler(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	var req FlagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	s.store.SetFlag(name, req.On)
	writeJSON(w, http.StatusOK, map[string]bool{name: req.On})
}

func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func errResp(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, ErrorResponse{Code: code, Message: msg})
}
