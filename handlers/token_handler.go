package handlers

import (
	"errors"
	"net/http"

	"github.com/Dosada05/chess-escrow/services"
	"github.com/Dosada05/chess-escrow/utils"
	"github.com/go-chi/chi/v5"
)

// TokenHandler обслуживает демо-леджер токена: балансы и минт.
type TokenHandler struct {
	escrowService services.EscrowService
}

func NewTokenHandler(escrowService services.EscrowService) *TokenHandler {
	return &TokenHandler{escrowService: escrowService}
}

func (h *TokenHandler) BalanceOf(w http.ResponseWriter, r *http.Request) {
	wallet := chi.URLParam(r, "wallet")
	token := r.URL.Query().Get("token")
	if wallet == "" || token == "" {
		badRequestResponse(w, r, errors.New("wallet URL parameter and token query parameter are required"))
		return
	}

	balance, err := h.escrowService.BalanceOf(r.Context(), wallet, token)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{
		"wallet":  wallet,
		"token":   token,
		"balance": utils.FormatAmount(balance),
	}, nil)
}

type mintRequest struct {
	Wallet string `json:"wallet"`
	Token  string `json:"token"`
	Amount string `json:"amount"` // десятичная строка
}

// Mint начисляет тестовые токены на кошелёк.
func (h *TokenHandler) Mint(w http.ResponseWriter, r *http.Request) {
	var req mintRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if req.Wallet == "" || req.Token == "" {
		badRequestResponse(w, r, errors.New("wallet and token are required"))
		return
	}

	amount, err := utils.ParseAmount(req.Amount)
	if err != nil || amount <= 0 {
		badRequestResponse(w, r, utils.ErrInvalidAmount)
		return
	}

	balance, err := h.escrowService.Mint(r.Context(), req.Wallet, req.Token, amount)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{
		"wallet":  req.Wallet,
		"token":   req.Token,
		"balance": utils.FormatAmount(balance),
	}, nil)
}
