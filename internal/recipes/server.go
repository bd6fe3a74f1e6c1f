package recipes

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"dealchef/internal/ai"
	"dealchef/internal/catalog"
	"dealchef/internal/cache"

	"github.com/google/uuid"
)

type server struct {
	generator *Generator
	store     *Store
}

// NewHandler serves the recipe collection and generation endpoints.
func NewHandler(generator *Generator, store *Store) *server {
	return &server{generator: generator, store: store}
}

func (s *server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /recipes", s.handleList)
	mux.HandleFunc("GET /recipes/{id}", s.handleSingle)
	mux.HandleFunc("POST /recipes", s.handleAdd)
	mux.HandleFunc("POST /recipes/generate", s.handleGenerate)
}

type errorResponse struct {
	Error string `json:"error"`
	Raw   string `json:"raw,omitempty"`
}

func (s *server) handleList(w http.ResponseWriter, r *http.Request) {
	recipes, err := s.store.List(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list recipes", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "unable to load recipes"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"recipes": recipes, "count": len(recipes)})
}

func (s *server) handleSingle(w http.ResponseWriter, r *http.Request) {
	recipe, err := s.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "recipe not found"})
			return
		}
		slog.ErrorContext(r.Context(), "failed to load recipe", "id", r.PathValue("id"), "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "unable to load recipe"})
		return
	}
	writeJSON(w, http.StatusOK, recipe)
}

// handleAdd stores a hand written recipe. It is never marked as generated.
func (s *server) handleAdd(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var payload ManualRecipePayload
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid recipe: " + err.Error()})
		return
	}
	if err := payload.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	now := time.Now()
	recipe := ai.Recipe{
		ID:          uuid.NewString(),
		Title:       payload.Title,
		Description: payload.Description,
		Ingredients: payload.Ingredients,
		Steps:       payload.Steps,
		Calories:    payload.Calories,
		PrepMinutes: payload.PrepMinutes,
		CookMinutes: payload.CookMinutes,
		Servings:    payload.Servings,
		Difficulty:  payload.Difficulty,
		Cuisine:     payload.Cuisine,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Add(ctx, recipe); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "unable to save recipe"})
		return
	}
	writeJSON(w, http.StatusCreated, recipe)
}

func (s *server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var payload GeneratePayload
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request: " + err.Error()})
		return
	}

	recipes, err := s.generator.Generate(ctx, payload)
	if err != nil {
		status, body := generateErrorResponse(err)
		slog.ErrorContext(ctx, "recipe generation failed", "status", status, "error", err)
		writeJSON(w, status, body)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"recipes": recipes, "count": len(recipes)})
}

func generateErrorResponse(err error) (int, errorResponse) {
	var (
		reconstructionErr *ai.ReconstructionError
		statusErr         *ai.StatusError
	)
	switch {
	case errors.Is(err, ErrNotEnoughIngredients), errors.Is(err, ErrUnknownProduct):
		return http.StatusBadRequest, errorResponse{Error: err.Error()}
	case errors.As(err, &reconstructionErr):
		return http.StatusBadGateway, errorResponse{Error: "the model returned recipes that could not be read", Raw: reconstructionErr.Text}
	case errors.As(err, &statusErr):
		return http.StatusBadGateway, errorResponse{Error: statusErr.Error()}
	case errors.Is(err, catalog.ErrUnavailable):
		return http.StatusBadGateway, errorResponse{Error: "failed to load product data"}
	case errors.Is(err, ErrNotSaved):
		return http.StatusInternalServerError, errorResponse{Error: "unable to save recipes"}
	default:
		return http.StatusBadGateway, errorResponse{Error: "failed to generate recipes"}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write json response", "error", err)
	}
}
