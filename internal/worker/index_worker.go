package worker

import (
	"github.com/spec-kit/triage-service/internal/service"
)

// StartIndexWorker registers vector-store indexing handlers.
func StartIndexWorker(indexService *service.IndexService) {
	if indexService == nil {
		return
	}
	indexService.RegisterHandlers()
}
