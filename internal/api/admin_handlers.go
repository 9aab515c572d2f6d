package api

import (
	"encoding/json"
	"net/http"
)

type setMinCollatRatioParams struct {
	MinCollatRatioBps uint32 `json:"min_collat_ratio_bps"`
}

func (s *Server) handleSetMinCollatRatio(w http.ResponseWriter, r *http.Request) {
	var p setMinCollatRatioParams
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	s.cdps.SetMinCollatRatio(p.MinCollatRatioBps)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
