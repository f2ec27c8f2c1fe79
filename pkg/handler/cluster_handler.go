package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"

	ggdb "github.com/galvezuma/BrachyUMA21/pkg/db"
	"github.com/galvezuma/BrachyUMA21/pkg/grouping"
	"github.com/galvezuma/BrachyUMA21/pkg/handler/request"
	"github.com/galvezuma/BrachyUMA21/pkg/render"
	"go.uber.org/zap"
)

type ClusterListResponse struct {
	Run      *ggdb.Run             `json:"run"`
	Clusters []ggdb.ClusterSummary `json:"clusters"`
}

type ErrorResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

func writeJSONError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Status: "error", Error: err.Error()})
}

// statusOf maps store errors to HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, ggdb.ErrClusterNotFound), errors.Is(err, ggdb.ErrNoRun):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (dbctx *DBContext) run(r *http.Request, run_id string) (*ggdb.Run, error) {
	run, err := dbctx.Store.LatestRun(r.Context())
	if err != nil || run_id == "" || run_id == run.ID {
		return run, err
	}
	// older runs are only known by id
	return &ggdb.Run{ID: run_id}, nil
}

func (dbctx *DBContext) ClusterListAPI(w http.ResponseWriter, r *http.Request) {

	list_request, err := request.ParseClusterListRequest(r.URL.Query())
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}

	run, err := dbctx.run(r, list_request.Run_ID)
	if err != nil {
		writeJSONError(w, statusOf(err), err)
		return
	}

	clusters, err := dbctx.Store.ListClusters(r.Context(), run.ID)
	if err != nil {
		reqLogger(r).Error("Listing clusters failed", zap.String("run_id", run.ID), zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, err)
		return
	}
	sortClusters(clusters, list_request.Order_By, list_request.Order_Dir == "desc")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ClusterListResponse{Run: run, Clusters: clusters})
}

func sortClusters(clusters []ggdb.ClusterSummary, by request.ClusterField, desc bool) {
	less := func(a, b ggdb.ClusterSummary) bool {
		switch by {
		case request.ClusterFieldSize:
			if a.Size != b.Size {
				return a.Size < b.Size
			}
		case request.ClusterFieldChromosome:
			if a.Chromosome != b.Chromosome {
				return a.Chromosome < b.Chromosome
			}
		}
		return a.Name < b.Name
	}
	sort.SliceStable(clusters, func(i, j int) bool {
		if desc {
			return less(clusters[j], clusters[i])
		}
		return less(clusters[i], clusters[j])
	})
}

func (dbctx *DBContext) ClusterPage(w http.ResponseWriter, r *http.Request) {

	cluster_id := r.PathValue("cluster_id")

	run, err := dbctx.run(r, r.URL.Query().Get("run_id"))
	if err != nil {
		http.Error(w, err.Error(), statusOf(err))
		return
	}

	members, err := dbctx.Store.ClusterMembers(r.Context(), run.ID, cluster_id)
	if err != nil {
		http.Error(w, err.Error(), statusOf(err))
		return
	}

	page := &render.ClusterPage{
		RunID:      run.ID,
		Cluster:    ggdb.ClusterSummary{Name: cluster_id, Size: len(members)},
		Members:    members,
		IsResidual: cluster_id == grouping.ResidualName,
	}
	if !page.IsResidual {
		clusters, err := dbctx.Store.ListClusters(r.Context(), run.ID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		for _, c := range clusters {
			if c.Name == cluster_id {
				page.Cluster = c
			}
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := render.RenderClusterPage(w, page); err != nil {
		reqLogger(r).Error("Rendering cluster page failed", zap.String("cluster-id", cluster_id), zap.Error(err))
	}
}
