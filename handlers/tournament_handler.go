package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Dosada05/chess-escrow/middleware"
	"github.com/Dosada05/chess-escrow/models"
	"github.com/Dosada05/chess-escrow/repositories"
	"github.com/Dosada05/chess-escrow/services"
	"github.com/Dosada05/chess-escrow/utils"
	"github.com/go-chi/chi/v5"
)

const maxLogoSize = 5 << 20 // 5MB

type TournamentHandler struct {
	tournamentService services.TournamentService
}

func NewTournamentHandler(tournamentService services.TournamentService) *TournamentHandler {
	return &TournamentHandler{tournamentService: tournamentService}
}

type createTournamentRequest struct {
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	PrizeToken  string    `json:"prize_token"`
	PrizePool   string    `json:"prize_pool"` // десятичная строка, например "1000.00"
	MaxPlayers  int       `json:"max_players"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
}

// Create создаёт турнир и атомарно блокирует призовой фонд организатора.
func (h *TournamentHandler) Create(w http.ResponseWriter, r *http.Request) {
	wallet, err := middleware.GetWalletFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var req createTournamentRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	prizePool, err := utils.ParseAmount(req.PrizePool)
	if err != nil {
		mapServiceErrorToHTTP(w, r, services.ErrInvalidPrizePool)
		return
	}

	tournament, err := h.tournamentService.CreateTournament(r.Context(), wallet, services.CreateTournamentInput{
		Name:        req.Name,
		Description: req.Description,
		PrizeToken:  req.PrizeToken,
		PrizePool:   prizePool,
		MaxPlayers:  req.MaxPlayers,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, jsonResponse{"tournament": tournament}, nil)
}

func (h *TournamentHandler) OpenRegistration(w http.ResponseWriter, r *http.Request) {
	wallet, err := middleware.GetWalletFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.OpenRegistration(r.Context(), id, wallet)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil)
}

type registerRequest struct {
	Username string `json:"username"`
}

func (h *TournamentHandler) Register(w http.ResponseWriter, r *http.Request) {
	wallet, err := middleware.GetWalletFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var req registerRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	player, err := h.tournamentService.Register(r.Context(), id, wallet, req.Username)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, jsonResponse{"player": player}, nil)
}

func (h *TournamentHandler) CloseRegistrationAndStart(w http.ResponseWriter, r *http.Request) {
	wallet, err := middleware.GetWalletFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.CloseRegistrationAndStart(r.Context(), id, wallet)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil)
}

type completeTournamentRequest struct {
	FirstPlace  string `json:"first_place"`
	SecondPlace string `json:"second_place"`
	ThirdPlace  string `json:"third_place"`
}

// Complete завершает турнир и выплачивает призовой фонд победителям.
func (h *TournamentHandler) Complete(w http.ResponseWriter, r *http.Request) {
	wallet, err := middleware.GetWalletFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var req completeTournamentRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.CompleteTournament(r.Context(), id, wallet, req.FirstPlace, req.SecondPlace, req.ThirdPlace)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil)
}

func (h *TournamentHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.GetTournamentByID(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil)
}

// GetFull возвращает турнир вместе с игроками, группами и матчами.
func (h *TournamentHandler) GetFull(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.GetFullTournament(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil)
}

func (h *TournamentHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := repositories.ListTournamentsFilter{Limit: 20}

	q := r.URL.Query()
	if s := q.Get("status"); s != "" {
		status := models.TournamentStatus(s)
		filter.Status = &status
	}
	if o := q.Get("organizer"); o != "" {
		filter.OrganizerWallet = &o
	}
	if l := q.Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 100 {
			filter.Limit = v
		}
	}
	if o := q.Get("offset"); o != "" {
		if v, err := strconv.Atoi(o); err == nil && v >= 0 {
			filter.Offset = v
		}
	}

	tournaments, err := h.tournamentService.ListTournaments(r.Context(), filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"tournaments": tournaments}, nil)
}

func (h *TournamentHandler) GetTotal(w http.ResponseWriter, r *http.Request) {
	total, err := h.tournamentService.GetTotalTournaments(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"total": total}, nil)
}

func (h *TournamentHandler) GetPlayer(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	wallet := chi.URLParam(r, "wallet")
	if wallet == "" {
		badRequestResponse(w, r, errors.New("wallet URL parameter is required"))
		return
	}

	player, err := h.tournamentService.GetPlayer(r.Context(), id, wallet)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"player": player}, nil)
}

func (h *TournamentHandler) GetGroups(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	groups, err := h.tournamentService.GetTournamentGroups(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"groups": groups}, nil)
}

// GetWinners возвращает записи выплат завершённого турнира (по местам).
func (h *TournamentHandler) GetWinners(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	payouts, err := h.tournamentService.GetTournamentWinners(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	type winner struct {
		Place  int    `json:"place"`
		Wallet string `json:"wallet"`
		Amount string `json:"amount"`
	}
	winners := make([]winner, 0, len(payouts))
	for _, p := range payouts {
		winners = append(winners, winner{
			Place:  p.Place,
			Wallet: p.Wallet,
			Amount: utils.FormatAmount(p.Amount),
		})
	}
	writeJSON(w, http.StatusOK, jsonResponse{"winners": winners}, nil)
}

// UploadLogo принимает multipart-форму с полем "logo" и загружает файл в R2.
func (h *TournamentHandler) UploadLogo(w http.ResponseWriter, r *http.Request) {
	wallet, err := middleware.GetWalletFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := r.ParseMultipartForm(maxLogoSize); err != nil {
		badRequestResponse(w, r, errors.New("failed to parse multipart form"))
		return
	}
	file, header, err := r.FormFile("logo")
	if err != nil {
		badRequestResponse(w, r, errors.New("logo file is required"))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType != "image/png" && contentType != "image/jpeg" && contentType != "image/webp" {
		badRequestResponse(w, r, errors.New("logo must be png, jpeg or webp"))
		return
	}

	tournament, err := h.tournamentService.UploadLogo(r.Context(), id, wallet, contentType, file)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil)
}
