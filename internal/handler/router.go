package handler

import (
	"github.com/gorilla/mux"

	"github.com/vikoba/loan-engine/pkg/response"
)

// NewRouter wires the HTTP surface. Health endpoints sit outside the actor
// middleware; everything under /api/v1 requires a resolved principal.
func NewRouter(loanHandler *LoanHandler, healthHandler *HealthHandler) *mux.Router {
	router := mux.NewRouter()
	router.Use(response.LoggingMiddleware)
	router.Use(response.CORSMiddleware)

	// Health check
	router.HandleFunc("/health", healthHandler.Health).Methods("GET")
	router.HandleFunc("/health/ready", healthHandler.Ready).Methods("GET")

	// API routes
	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(ActorMiddleware)

	api.HandleFunc("/loans", loanHandler.RequestLoan).Methods("POST")
	api.HandleFunc("/loans/{loanId}/approve", loanHandler.Approve).Methods("POST")
	api.HandleFunc("/loans/{loanId}/reject", loanHandler.Reject).Methods("POST")
	api.HandleFunc("/loans/{loanId}/disburse", loanHandler.Disburse).Methods("POST")
	api.HandleFunc("/loans/{loanId}/payments", loanHandler.Repay).Methods("POST")
	api.HandleFunc("/loans/{loanId}/extend-grace", loanHandler.ExtendGrace).Methods("POST")
	api.HandleFunc("/loans/{loanId}/totals", loanHandler.Totals).Methods("GET")
	api.HandleFunc("/groups/{groupId}/circles/{circleId}/loans", loanHandler.ListGroupLoans).Methods("GET")
	api.HandleFunc("/groups/{groupId}/circles/{circleId}/promote", loanHandler.PromoteWaitlist).Methods("POST")

	return router
}
