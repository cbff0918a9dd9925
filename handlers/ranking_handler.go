package handlers

import (
	"net/http"

	"github.com/Dosada05/swiss-tournament/services"
)

type RankingHandler struct {
	rankingService services.RankingService
}

func NewRankingHandler(rs services.RankingService) *RankingHandler {
	return &RankingHandler{rankingService: rs}
}

// ClassificationHandler обрабатывает GET /tournaments/{tournamentID}/classification
func (h *RankingHandler) ClassificationHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	standings, err := h.rankingService.Classify(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"standings": standings}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// RankingDetailsHandler обрабатывает GET /tournaments/{tournamentID}/ranking-details
func (h *RankingHandler) RankingDetailsHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	stats, err := h.rankingService.RankingDetails(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"players": stats}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ArchiveHandler обрабатывает POST /tournaments/{tournamentID}/classification/archive
func (h *RankingHandler) ArchiveHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	location, err := h.rankingService.ArchiveStandings(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"location": location}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
