package handler

// DI for all handlers and models alike.

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/galvezuma/BrachyUMA21/logger"
	ggdb "github.com/galvezuma/BrachyUMA21/pkg/db"
	"github.com/galvezuma/BrachyUMA21/pkg/middle"
)

type DBContext struct {
	Store       *ggdb.ResultStore
	Sequence_DB *ggdb.SequenceDB
	Report      []byte // rendered chromosome page
}

// reqLogger carries the request id when the request went through
// middle.RequestIDMiddleware.
func reqLogger(r *http.Request) *zap.Logger {
	return middle.LoggerFrom(r.Context(), logger.Logger())
}
