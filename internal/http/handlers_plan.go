package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"wealthwise/internal/advice"
	"wealthwise/internal/core"
	"wealthwise/internal/gamification"
	"wealthwise/internal/log"
)

// readPlan parses and validates planner figures, writing the error response
// itself when they are unusable.
func readPlan(w http.ResponseWriter, r *http.Request) (core.CalculationResult, bool) {
	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		BadRequestError("invalid request body").Write(w)
		return core.CalculationResult{}, false
	}
	in, err := parser.PlanInput()
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return core.CalculationResult{}, false
	}
	result, err := core.Calculate(in)
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return core.CalculationResult{}, false
	}
	return result, true
}

func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	result, ok := readPlan(w, r)
	if !ok {
		return
	}
	NewJSONResponse().Body(result).Write(w)
}

type planResponse struct {
	Result       core.CalculationResult `json:"result"`
	Advice       string                 `json:"advice"`
	AdviceSource advice.Source          `json:"adviceSource"`
	Generation   uint64                 `json:"generation"`
	Stale        bool                   `json:"stale,omitempty"`
}

// handlePlan calculates the plan and attaches advice. Advice failures never
// fail the request; the fallback text is served instead.
func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	result, ok := readPlan(w, r)
	if !ok {
		return
	}

	all := s.goals.List()
	level := gamification.Derive(all).Level
	if s.tracker != nil {
		level = s.tracker.Profile().Level
	}

	scope := adviceScope(r, s.detector.ExtractClientIP(r))
	reply := s.requester.RequestScoped(r.Context(), scope, result, len(all), level)
	s.events.LogAdviceServed(r.Context(), string(reply.Source), reply.Generation, string(reply.ErrorKind))

	NewJSONResponse().Body(planResponse{
		Result:       result,
		Advice:       reply.Advice,
		AdviceSource: reply.Source,
		Generation:   reply.Generation,
		Stale:        reply.Stale,
	}).Write(w)
}

// handleFinancialAdvice serves the advice endpoint contract: {advice} on
// success and {error} otherwise.
func (s *Server) handleFinancialAdvice(w http.ResponseWriter, r *http.Request) {
	if !s.advisor.Enabled() {
		ServiceUnavailableError(advice.ErrUnavailable.Error()).Write(w)
		return
	}

	var req advice.Request
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		BadRequestError("invalid request body").Write(w)
		return
	}

	text, err := s.advisor.Advise(r.Context(), req)
	if err != nil {
		kind := advice.KindOf(err)
		if kind == advice.KindMalformed && errors.Is(err, advice.ErrInvalidRequest) {
			BadRequestError(advice.ErrInvalidRequest.Error()).Write(w)
			return
		}
		log.EventsFrom(r.Context()).LogError(r.Context(),
			"Failed to get financial advice", err, log.ComponentAdvice, log.OpAdvise,
			log.NewFields().WithAdvice(string(advice.SourceAI), 0, string(kind)))
		InternalServerError("Failed to get financial advice").Write(w)
		return
	}
	NewJSONResponse().Body(advice.Response{Advice: text}).Write(w)
}
