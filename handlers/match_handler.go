package handlers

import (
	"net/http"

	"github.com/Dosada05/chess-escrow/middleware"
	"github.com/Dosada05/chess-escrow/models"
	"github.com/Dosada05/chess-escrow/services"
)

type MatchHandler struct {
	matchService services.MatchService
}

func NewMatchHandler(matchService services.MatchService) *MatchHandler {
	return &MatchHandler{matchService: matchService}
}

type submitResultRequest struct {
	GroupID int    `json:"group_id"`
	Player1 string `json:"player1"`
	Player2 string `json:"player2"`
	Result  string `json:"result"` // player1_win | player2_win | draw
}

// SubmitResult записывает исход матча пары от имени организатора.
// Результат write-once, повторная отправка возвращает конфликт.
func (h *MatchHandler) SubmitResult(w http.ResponseWriter, r *http.Request) {
	wallet, err := middleware.GetWalletFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var req submitResultRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.SubmitResult(r.Context(), tournamentID, req.GroupID, wallet, req.Player1, req.Player2, models.MatchResult(req.Result))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil)
}

func (h *MatchHandler) ListByTournament(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	matches, err := h.matchService.ListByTournament(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil)
}
