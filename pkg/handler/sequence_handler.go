package handler

import (
	"errors"
	"net/http"

	ggdb "github.com/galvezuma/BrachyUMA21/pkg/db"
	"github.com/galvezuma/BrachyUMA21/pkg/handler/request"
	"go.uber.org/zap"
)

func (dbctx *DBContext) GetSequenceByClusterIDHandler(w http.ResponseWriter, r *http.Request) {

	seq_request, err := request.ParseClusterSequenceRequest(r.URL.Query())
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}

	fasta, err := dbctx.Sequence_DB.GetClusterSequence(seq_request.Cluster_ID, seq_request.Is_Prot)

	var no_seq *ggdb.NoSequenceError
	switch {
	case err == nil:
	case errors.Is(err, ggdb.ErrClusterNotFound), errors.As(err, &no_seq):
		writeJSONError(w, http.StatusNotFound, err)
		return
	default:
		reqLogger(r).Error("Reading cluster sequences failed", zap.String("cluster-id", seq_request.Cluster_ID), zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write(fasta)
}
