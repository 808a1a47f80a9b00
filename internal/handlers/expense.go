package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/fixpoint-io/fixpoint-api/internal/apperr"
	"github.com/fixpoint-io/fixpoint-api/internal/models"
	"github.com/fixpoint-io/fixpoint-api/internal/repository"
)

type ExpenseHandler struct {
	expenses repository.ExpenseRepository
	logger   zerolog.Logger
}

func NewExpenseHandler(expenses repository.ExpenseRepository, logger zerolog.Logger) *ExpenseHandler {
	return &ExpenseHandler{
		expenses: expenses,
		logger:   logger.With().Str("handler", "expense").Logger(),
	}
}

type createExpenseRequest struct {
	LocationID *string `json:"location_id"`
	Category   string  `json:"category"`
	Amount     float64 `json:"amount"`
	Note       string  `json:"note"`
	IncurredOn string  `json:"incurred_on"`
}

func (h *ExpenseHandler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	recordedBy, err := requesterID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req createExpenseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	incurredOn := time.Now()
	if req.IncurredOn != "" {
		parsed, err := time.Parse("2006-01-02", req.IncurredOn)
		if err != nil {
			writeError(w, h.logger, apperr.E(apperr.KindValidation, "incurred_on must be a YYYY-MM-DD date"))
			return
		}
		incurredOn = parsed
	}

	expense, err := h.expenses.CreateExpense(r.Context(), models.Expense{
		LocationID: req.LocationID,
		Category:   req.Category,
		Amount:     req.Amount,
		Note:       req.Note,
		IncurredOn: incurredOn,
		RecordedBy: recordedBy,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, expense)
}

func (h *ExpenseHandler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	filter, err := requestScope(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var from, to *time.Time
	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			writeError(w, h.logger, apperr.E(apperr.KindValidation, "from must be a YYYY-MM-DD date"))
			return
		}
		from = &parsed
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			writeError(w, h.logger, apperr.E(apperr.KindValidation, "to must be a YYYY-MM-DD date"))
			return
		}
		to = &parsed
	}

	expenses, err := h.expenses.ListExpenses(r.Context(), filter, from, to)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, expenses)
}

func (h *ExpenseHandler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := h.expenses.DeleteExpense(r.Context(), mux.Vars(r)["expenseID"]); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
