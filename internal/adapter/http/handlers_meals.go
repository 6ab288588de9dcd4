package adapthttp

import (
	"encoding/json"
	"net/http"

	"github.com/brunod-e/daily-diet-api/internal/app"
)

type mealBody struct {
	Name        string          `json:"name"`
	Description *string         `json:"description"`
	IsOnDiet    *bool           `json:"isOnDiet"`
	Date        json.RawMessage `json:"date"`
}

func (b mealBody) input() (app.MealInput, error) {
	date, err := parseMealDate(b.Date)
	if err != nil {
		return app.MealInput{}, err
	}
	return app.MealInput{
		Name:        b.Name,
		Description: b.Description,
		IsOnDiet:    b.IsOnDiet,
		Date:        date,
	}, nil
}

func decodeMealInput(r *http.Request) (app.MealInput, error) {
	var body mealBody
	if err := parseJSON(r, &body); err != nil {
		return app.MealInput{}, err
	}
	return body.input()
}

func (s *Server) handleCreateMeal(w http.ResponseWriter, r *http.Request) {
	in, err := decodeMealInput(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	meal, err := s.meals.Create(r.Context(), userFromContext(r).ID, in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"meal": meal})
}

func (s *Server) handleListMeals(w http.ResponseWriter, r *http.Request) {
	meals, err := s.meals.List(r.Context(), userFromContext(r).ID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"meals": meals})
}

func (s *Server) handleGetMeal(w http.ResponseWriter, r *http.Request) {
	id, err := mealIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	meal, err := s.meals.Get(r.Context(), userFromContext(r).ID, id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"meal": meal})
}

func (s *Server) handleUpdateMeal(w http.ResponseWriter, r *http.Request) {
	id, err := mealIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	in, err := decodeMealInput(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.meals.Update(r.Context(), userFromContext(r).ID, id, in); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteMeal(w http.ResponseWriter, r *http.Request) {
	id, err := mealIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.meals.Delete(r.Context(), userFromContext(r).ID, id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
