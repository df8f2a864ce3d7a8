package stamps

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	model "github.com/glkeru/loyalty/stamps/internal/models"
	plans "github.com/glkeru/loyalty/stamps/internal/plans"
	service "github.com/glkeru/loyalty/stamps/internal/services"
	sess "github.com/glkeru/loyalty/stamps/internal/session"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Сессия пользователя
type Sessions interface {
	SignIn(token string) (string, error)
	SignOut()
	Status() sess.Status
}

type StampsHandler struct {
	router   *mux.Router
	engine   *service.StampsEngine
	billing  *service.Billing
	sessions Sessions
	logger   *zap.Logger
}

type errorResponse struct {
	Reason  model.Reason `json:"reason,omitempty"`
	Message string       `json:"message"`
}

type stateResponse struct {
	model.Snapshot
	Identity    string `json:"identity"`
	AdsEligible bool   `json:"adsEligible"`
}

type pinRequest struct {
	Pin string `json:"pin"`
}

type sessionRequest struct {
	Token string `json:"token"`
}

func NewHandler(engine *service.StampsEngine, billing *service.Billing, sessions Sessions, logger *zap.Logger) *StampsHandler {
	router := mux.NewRouter()
	handler := &StampsHandler{router, engine, billing, sessions, logger}
	router.HandleFunc("/state", handler.GetStateHandler).Methods(http.MethodGet)
	router.HandleFunc("/programs", handler.CreateProgramHandler).Methods(http.MethodPost)
	router.HandleFunc("/programs/{id}", handler.UpdateProgramHandler).Methods(http.MethodPatch)
	router.HandleFunc("/programs/{id}", handler.RemoveProgramHandler).Methods(http.MethodDelete)
	router.HandleFunc("/customers", handler.CreateCustomerHandler).Methods(http.MethodPost)
	router.HandleFunc("/customers/{id}", handler.RemoveCustomerHandler).Methods(http.MethodDelete)
	router.HandleFunc("/customers/{id}/stamp", handler.StampHandler).Methods(http.MethodPost)
	router.HandleFunc("/customers/{id}/redeem", handler.RedeemHandler).Methods(http.MethodPost)
	router.HandleFunc("/profile", handler.UpdateProfileHandler).Methods(http.MethodPatch)
	router.HandleFunc("/reset", handler.ResetHandler).Methods(http.MethodPost)
	router.HandleFunc("/stats", handler.StatsHandler).Methods(http.MethodGet)
	router.HandleFunc("/activity", handler.ActivityHandler).Methods(http.MethodGet)
	router.HandleFunc("/plans/catalog", handler.CatalogHandler).Methods(http.MethodGet)
	router.HandleFunc("/plans/confirm", handler.ConfirmHandler).Methods(http.MethodPost)
	router.HandleFunc("/session", handler.SessionStatusHandler).Methods(http.MethodGet)
	router.HandleFunc("/session", handler.SignInHandler).Methods(http.MethodPost)
	router.HandleFunc("/session", handler.SignOutHandler).Methods(http.MethodDelete)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.Use(requestMetrics(logger))

	return handler
}

func (h *StampsHandler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	h.router.ServeHTTP(w, req)
}

func (h *StampsHandler) Log(msg string, service string, err error) {
	h.logger.Error(msg,
		zap.String("service", service),
		zap.Error(err),
	)
}

// Состояние
func (h *StampsHandler) GetStateHandler(w http.ResponseWriter, req *http.Request) {
	s := h.engine.Snapshot()
	h.writeJSON(w, http.StatusOK, stateResponse{s, h.engine.Identity(), plans.AdsEligible(s.Plan)})
}

// Программы

func (h *StampsHandler) CreateProgramHandler(w http.ResponseWriter, req *http.Request) {
	in := model.ProgramInput{}
	if !h.readJSON(w, req, &in, "CreateProgramHandler") {
		return
	}
	p, err := h.engine.CreateProgram(req.Context(), in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, p)
}

func (h *StampsHandler) UpdateProgramHandler(w http.ResponseWriter, req *http.Request) {
	patch := model.ProgramPatch{}
	if !h.readJSON(w, req, &patch, "UpdateProgramHandler") {
		return
	}
	p, err := h.engine.UpdateProgram(req.Context(), mux.Vars(req)["id"], patch)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, p)
}

func (h *StampsHandler) RemoveProgramHandler(w http.ResponseWriter, req *http.Request) {
	if err := h.engine.RemoveProgram(req.Context(), mux.Vars(req)["id"]); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Клиенты

func (h *StampsHandler) CreateCustomerHandler(w http.ResponseWriter, req *http.Request) {
	in := model.CustomerInput{}
	if !h.readJSON(w, req, &in, "CreateCustomerHandler") {
		return
	}
	c, err := h.engine.CreateCustomer(req.Context(), in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, c)
}

func (h *StampsHandler) RemoveCustomerHandler(w http.ResponseWriter, req *http.Request) {
	if err := h.engine.RemoveCustomer(req.Context(), mux.Vars(req)["id"]); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Штамп по PIN программы
func (h *StampsHandler) StampHandler(w http.ResponseWriter, req *http.Request) {
	pin := pinRequest{}
	if !h.readJSON(w, req, &pin, "StampHandler") {
		return
	}
	c, err := h.engine.StampWithPin(req.Context(), mux.Vars(req)["id"], pin.Pin)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, c)
}

// Награда по PIN программы
func (h *StampsHandler) RedeemHandler(w http.ResponseWriter, req *http.Request) {
	pin := pinRequest{}
	if !h.readJSON(w, req, &pin, "RedeemHandler") {
		return
	}
	r, err := h.engine.RedeemWithPin(req.Context(), mux.Vars(req)["id"], pin.Pin)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, r)
}

func (h *StampsHandler) UpdateProfileHandler(w http.ResponseWriter, req *http.Request) {
	patch := model.ProfilePatch{}
	if !h.readJSON(w, req, &patch, "UpdateProfileHandler") {
		return
	}
	h.writeJSON(w, http.StatusOK, h.engine.UpdateProfile(req.Context(), patch))
}

func (h *StampsHandler) ResetHandler(w http.ResponseWriter, req *http.Request) {
	h.engine.ResetStore(req.Context())
	w.WriteHeader(http.StatusNoContent)
}

// Статистика

func (h *StampsHandler) StatsHandler(w http.ResponseWriter, req *http.Request) {
	h.writeJSON(w, http.StatusOK, service.ComputeKPIs(h.engine.Snapshot()))
}

func (h *StampsHandler) ActivityHandler(w http.ResponseWriter, req *http.Request) {
	limit := 0
	if v := req.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, "limit is not correct", http.StatusBadRequest)
			return
		}
		limit = n
	}
	h.writeJSON(w, http.StatusOK, service.RecentActivity(h.engine.Snapshot(), limit))
}

// Тарифы

func (h *StampsHandler) CatalogHandler(w http.ResponseWriter, req *http.Request) {
	h.writeJSON(w, http.StatusOK, h.billing.Catalog())
}

func (h *StampsHandler) ConfirmHandler(w http.ResponseWriter, req *http.Request) {
	purchase := model.PurchaseConfirmation{}
	if !h.readJSON(w, req, &purchase, "ConfirmHandler") {
		return
	}
	plan, err := h.billing.Confirm(req.Context(), purchase)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"plan":   plan,
		"limits": plans.LimitsFor(plan),
	})
}

// Сессия

func (h *StampsHandler) SessionStatusHandler(w http.ResponseWriter, req *http.Request) {
	h.writeJSON(w, http.StatusOK, h.sessions.Status())
}

func (h *StampsHandler) SignInHandler(w http.ResponseWriter, req *http.Request) {
	body := sessionRequest{}
	if !h.readJSON(w, req, &body, "SignInHandler") {
		return
	}
	if _, err := h.sessions.SignIn(body.Token); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.sessions.Status())
}

func (h *StampsHandler) SignOutHandler(w http.ResponseWriter, req *http.Request) {
	h.sessions.SignOut()
	w.WriteHeader(http.StatusNoContent)
}

func (h *StampsHandler) readJSON(w http.ResponseWriter, req *http.Request, v any, service string) bool {
	body, err := io.ReadAll(req.Body)
	if err != nil {
		h.Log("Get request body", service, err)
		http.Error(w, "Body is empty", http.StatusBadRequest)
		return false
	}
	defer req.Body.Close()
	if err := json.Unmarshal(body, v); err != nil {
		h.Log("Unmarshal", service, err)
		http.Error(w, "Body is not correct", http.StatusBadRequest)
		return false
	}
	return true
}

func (h *StampsHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	j, err := json.Marshal(v)
	if err != nil {
		h.Log("Marshal", "writeJSON", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(j)
}

// Отказы движка -> HTTP статус
func (h *StampsHandler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	resp := errorResponse{Message: err.Error()}

	if rej, ok := model.AsRejection(err); ok {
		resp.Reason = rej.Reason
		resp.Message = rej.Message
		status = http.StatusUnprocessableEntity
	}
	switch {
	case errors.Is(err, model.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, model.ErrWrongPin):
		status = http.StatusForbidden
		resp.Message = "PIN incorreto."
	case errors.Is(err, sess.ErrInvalidToken):
		status = http.StatusUnauthorized
	case errors.Is(err, model.ErrInvalidPurchase):
		status = http.StatusBadRequest
	case errors.Is(err, model.ErrUnknownProduct):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		h.Log("Request failed", "StampsHandler", err)
		resp.Message = "Erro interno."
	}
	h.writeJSON(w, status, resp)
}
