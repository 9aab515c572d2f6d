package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleStake(w http.ResponseWriter, r *http.Request, staker string, raw json.RawMessage) {
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
	record, err := s.pool.Stake(staker, amount)
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request, staker string, raw json.RawMessage) {
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
	record, err := s.pool.Withdraw(staker, amount)
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request, staker string, raw json.RawMessage) {
	payout, err := s.pool.Claim(staker)
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"payout": payout.String()})
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	staker := chi.URLParam(r, "staker")
	deposit, err := s.pool.Deposit(staker)
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deposit": deposit.String()})
}

func (s *Server) handleTotalXAsset(w http.ResponseWriter, r *http.Request) {
	total, err := s.pool.TotalXAsset()
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"total_xasset": total.String()})
}
