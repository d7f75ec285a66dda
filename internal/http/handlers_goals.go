package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"wealthwise/internal/core"
	"wealthwise/internal/gamification"
	"wealthwise/internal/log"
)

type goalsResponse struct {
	Goal    *core.Goal           `json:"goal,omitempty"`
	Goals   []core.Goal          `json:"goals"`
	Profile gamification.Profile `json:"profile"`
}

func newGoalsResponse(gs []core.Goal) goalsResponse {
	if gs == nil {
		gs = []core.Goal{}
	}
	return goalsResponse{Goals: gs, Profile: gamification.Derive(gs)}
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(newGoalsResponse(s.goals.List())).Write(w)
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		BadRequestError("invalid request body").Write(w)
		return
	}
	in, err := parser.GoalInput()
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	goal, all, err := s.goals.Create(r.Context(), in)
	if err != nil {
		s.logGoalError(r, "Failed to create goal", err, log.OpCreate, "")
		goalErrorResponse(err).Write(w)
		return
	}
	s.events.LogGoalChanged(r.Context(), log.OpCreate, goal.ID, goal.Name, goal.GoalAmount, len(all))

	body := newGoalsResponse(all)
	body.Goal = &goal
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/goals/"+goal.ID).
		Body(body).
		Write(w)
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	goal, _ := s.goals.Get(id)

	all, err := s.goals.Delete(r.Context(), id)
	if err != nil {
		s.logGoalError(r, "Failed to delete goal", err, log.OpDelete, id)
		goalErrorResponse(err).Write(w)
		return
	}
	s.events.LogGoalChanged(r.Context(), log.OpDelete, id, goal.Name, goal.GoalAmount, len(all))
	NewJSONResponse().Body(newGoalsResponse(all)).Write(w)
}

func (s *Server) handleCompleteGoal(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	all, err := s.goals.Complete(r.Context(), id)
	if err != nil {
		s.logGoalError(r, "Failed to complete goal", err, log.OpComplete, id)
		goalErrorResponse(err).Write(w)
		return
	}
	goal, _ := s.goals.Get(id)
	s.events.LogGoalChanged(r.Context(), log.OpComplete, id, goal.Name, goal.GoalAmount, len(all))
	NewJSONResponse().Body(newGoalsResponse(all)).Write(w)
}

func (s *Server) handleUpdateProgress(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		BadRequestError("invalid request body").Write(w)
		return
	}
	progress, err := parser.Number("progress")
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	current, err := s.goals.Get(id)
	if err != nil {
		goalErrorResponse(err).Write(w)
		return
	}
	savings := current.CurrentSavings
	if parser.Has("currentSavings") {
		if savings, err = parser.Number("currentSavings"); err != nil {
			UnprocessableEntityError(err.Error()).Write(w)
			return
		}
	}

	all, err := s.goals.UpdateProgress(r.Context(), id, progress, savings)
	if err != nil {
		s.logGoalError(r, "Failed to update goal progress", err, log.OpProgress, id)
		goalErrorResponse(err).Write(w)
		return
	}
	s.events.LogGoalChanged(r.Context(), log.OpProgress, id, current.Name, current.GoalAmount, len(all))
	NewJSONResponse().Body(newGoalsResponse(all)).Write(w)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	var profile gamification.Profile
	if s.tracker != nil {
		profile = s.tracker.Profile()
	} else {
		profile = gamification.Derive(s.goals.List())
	}
	NewJSONResponse().Body(profile).Write(w)
}

// logGoalError logs unexpected repository failures. Client errors are left
// to the access log.
func (s *Server) logGoalError(r *http.Request, msg string, err error, op, id string) {
	if goalErrorResponse(err).statusCode < http.StatusInternalServerError {
		return
	}
	fields := log.NewFields()
	if id != "" {
		fields = fields.WithGoal(id, "", 0)
	}
	log.EventsFrom(r.Context()).
		LogError(r.Context(), msg, err, log.ComponentGoals, op, fields)
}
