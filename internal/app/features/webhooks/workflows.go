// internal/app/features/webhooks/workflows.go
package webhooks

import (
	"encoding/json"
	"net/http"

	"github.com/dalemusser/circlehub/internal/app/system/apperr"
	"github.com/dalemusser/circlehub/internal/app/system/jsonutil"
	"github.com/dalemusser/circlehub/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type workflowCall struct {
	Data map[string]string `json:"data"`
}

// Workflow handles POST /api/workflows/{name}: an external orchestrator
// triggers a registered function. The job runs on the next worker poll.
//
//	{ "data": { "connection_id": "…" } }
func (h *Handler) Workflow(w http.ResponseWriter, r *http.Request) {
	body, ok := h.readSigned(w, r)
	if !ok {
		return
	}
	name := chi.URLParam(r, "name")
	if _, found := h.Registry.Lookup(name); !found {
		jsonutil.Error(w, h.Log, apperr.NotFoundf("unknown workflow %q", name))
		return
	}

	var call workflowCall
	if len(body) > 0 {
		if err := json.Unmarshal(body, &call); err != nil {
			jsonutil.Error(w, h.Log, apperr.Validationf("malformed workflow payload"))
			return
		}
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "webhooks.Workflow")
	defer cancel()

	job, err := h.Workflows.Send(ctx, name, call.Data)
	if err != nil {
		jsonutil.Error(w, h.Log, apperr.Wrap(apperr.Internal, "enqueue workflow", err))
		return
	}
	h.Log.Info("workflow triggered externally",
		zap.String("workflow", name),
		zap.String("job_id", job.ID.Hex()))
	jsonutil.Write(w, http.StatusAccepted, map[string]any{"job_id": job.ID.Hex()})
}
