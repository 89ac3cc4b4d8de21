package handlers

import (
	"net/http"

	"github.com/otcheredev/clinic-console/internal/services"
)

type OverviewHandler struct {
	base
}

func NewOverviewHandler(d Deps) *OverviewHandler {
	return &OverviewHandler{base: newBase(d)}
}

func (h *OverviewHandler) Show(w http.ResponseWriter, r *http.Request) {
	o, err := services.NewOverviewService(h.client(r), h.actor(r)).Load(r.Context())
	if err != nil {
		if h.readFailed(w, r, err, "overview") {
			return
		}
		o = &services.Overview{}
	}
	h.render(w, r, "overview", o, nil)
}
