package request

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

var ErrMissingClusterID = errors.New("cluster_id is required")

// Get all sequences of a cluster
type ClusterSequenceRequest struct {
	Cluster_ID string `json:"cluster_id"`
	Is_Prot    bool   `json:"is_prot"`
}

// List the clusters of a run
type ClusterListRequest struct {
	Run_ID    string       `json:"run_id"`    // empty for the latest run
	Order_By  ClusterField `json:"order_by"`  // cluster_id, size or chromosome
	Order_Dir string       `json:"order_dir"` // asc or desc
}

func ParseClusterSequenceRequest(q url.Values) (ClusterSequenceRequest, error) {
	req := ClusterSequenceRequest{Cluster_ID: strings.TrimSpace(q.Get("cluster_id"))}
	if req.Cluster_ID == "" {
		return req, ErrMissingClusterID
	}

	is_prot_str := q.Get("is_prot")
	if is_prot_str == "" {
		return req, nil
	}
	is_prot, err := strconv.ParseBool(is_prot_str)
	if err != nil {
		return req, fmt.Errorf("is_prot need to be bool-like string: %w", err)
	}
	req.Is_Prot = is_prot
	return req, nil
}

func ParseClusterListRequest(q url.Values) (ClusterListRequest, error) {
	req := ClusterListRequest{
		Run_ID:    q.Get("run_id"),
		Order_By:  NewClusterField(q.Get("order_by")),
		Order_Dir: strings.ToLower(q.Get("order_dir")),
	}
	switch req.Order_Dir {
	case "":
		req.Order_Dir = "asc"
	case "asc", "desc":
	default:
		return req, fmt.Errorf("order_dir must be asc or desc, got %q", req.Order_Dir)
	}
	return req, nil
}
