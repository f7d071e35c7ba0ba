package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/markdave123-py/smartassist-rag/internal/core"
	"github.com/markdave123-py/smartassist-rag/internal/models"
)

type Answerer interface {
	Answer(ctx context.Context, message string) (*models.AnswerResult, error)
}

type RoomLister interface {
	SearchRooms(ctx context.Context) ([]models.Room, error)
}

type ChatHandler struct {
	query Answerer
	rooms RoomLister
}

func NewChatHandler(query Answerer, rooms RoomLister) *ChatHandler {
	return &ChatHandler{query: query, rooms: rooms}
}

type QueryRequest struct {
	Message string `json:"message"`
}

func (h *ChatHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: invalid request body", core.ErrInvalidInput))
		return
	}

	res, err := h.query.Answer(r.Context(), req.Message)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *ChatHandler) Rooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.rooms.SearchRooms(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if rooms == nil {
		rooms = []models.Room{}
	}
	writeJSON(w, http.StatusOK, rooms)
}
