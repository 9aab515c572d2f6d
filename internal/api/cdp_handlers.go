package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type openCDPParams struct {
	XLMDeposit    string `json:"xlm_deposit"`
	AssetToBorrow string `json:"asset_to_borrow"`
}

func (s *Server) handleOpenCDP(w http.ResponseWriter, r *http.Request, borrower string, raw json.RawMessage) {
	var p openCDPParams
	if err := json.Unmarshal(raw, &p); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	xlm, err := parseAmount(p.XLMDeposit)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	asset, err := parseAmount(p.AssetToBorrow)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	c, err := s.cdps.OpenCDP(borrower, xlm, asset)
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleAddCollateral(w http.ResponseWriter, r *http.Request, borrower string, raw json.RawMessage) {
	var p amountParams
	if err := json.Unmarshal(raw, &p); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	amount, err := parseAmount(p.Amount)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	c, err := s.cdps.AddCollateral(borrower, amount)
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleWithdrawCollateral(w http.ResponseWriter, r *http.Request, borrower string, raw json.RawMessage) {
	var p amountParams
	if err := json.Unmarshal(raw, &p); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	amount, err := parseAmount(p.Amount)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	c, err := s.cdps.WithdrawCollateral(borrower, amount)
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleBorrow(w http.ResponseWriter, r *http.Request, borrower string, raw json.RawMessage) {
	var p amountParams
	if err := json.Unmarshal(raw, &p); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	amount, err := parseAmount(p.Amount)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	c, err := s.cdps.BorrowXAsset(borrower, amount)
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleRepay(w http.ResponseWriter, r *http.Request, borrower string, raw json.RawMessage) {
	var p amountParams
	if err := json.Unmarshal(raw, &p); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	amount, err := parseAmount(p.Amount)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	c, err := s.cdps.RepayDebt(borrower, amount)
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handlePayInterest(w http.ResponseWriter, r *http.Request, borrower string, raw json.RawMessage) {
	var p amountParams
	if err := json.Unmarshal(raw, &p); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	amount, err := parseAmount(p.Amount)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	c, err := s.cdps.PayInterest(borrower, amount)
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// handleFreeze is permissionless: anyone observing an insolvent CDP may
// trigger the freeze, so no borrower signature is required here.
func (s *Server) handleFreeze(w http.ResponseWriter, r *http.Request) {
	borrower := chi.URLParam(r, "borrower")
	c, err := s.cdps.FreezeCDP(borrower)
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// handleLiquidate is permissionless: anyone may trigger liquidation of a
// frozen CDP; the stability pool cancels as much of its debt as it holds.
func (s *Server) handleLiquidate(w http.ResponseWriter, r *http.Request) {
	borrower := chi.URLParam(r, "borrower")
	record, err := s.coordinator.Liquidate(borrower)
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleGetCDP(w http.ResponseWriter, r *http.Request) {
	borrower := chi.URLParam(r, "borrower")
	view, err := s.cdps.GetCDP(borrower)
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleAccruedInterest(w http.ResponseWriter, r *http.Request) {
	borrower := chi.URLParam(r, "borrower")
	exact, approval, err := s.cdps.AccruedInterest(borrower)
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"accrued_interest": exact.String(),
		"approval_amount":  approval.String(),
	})
}

func (s *Server) handleListLiquidations(w http.ResponseWriter, r *http.Request) {
	borrower := chi.URLParam(r, "borrower")
	records, err := s.coordinator.ListRecords(borrower)
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// infoResponse is the JSON shape for the read-only inspection surface:
// minimum_collateralization_ratio(), name(), symbol(), decimals(),
// xlm_contract(), and asset_contract().
type infoResponse struct {
	Name                 string `json:"name"`
	Symbol               string `json:"symbol"`
	Decimals             uint32 `json:"decimals"`
	MinCollatRatioBps    uint32 `json:"minimum_collateralization_ratio_bps"`
	XLMContract          string `json:"xlm_contract"`
	AssetContract        string `json:"asset_contract"`
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	info := s.cdps.Info()
	writeJSON(w, http.StatusOK, infoResponse{
		Name:              info.Name,
		Symbol:            info.Symbol,
		Decimals:          info.Decimals,
		MinCollatRatioBps: info.MinCollatRatioBps,
		XLMContract:       info.CollateralAssetSymbol,
		AssetContract:     info.ProtocolAddress,
	})
}
