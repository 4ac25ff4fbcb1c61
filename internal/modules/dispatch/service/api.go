package service

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"fire_bridge/internal/models"
	"fire_bridge/pkg/logger"

	"github.com/bytedance/sonic"
)

// IntakeStore is the slice of the mission store the HTTP intake needs.
type IntakeStore interface {
	CreateMission(ctx context.Context, signalID string, payload models.MissionPayload, expiresAt time.Time) (string, error)
	GetMission(ctx context.Context, missionID string) (*models.Mission, error)
	GetFire(ctx context.Context, fireID string) (*models.Fire, error)
	UpsertUser(ctx context.Context, user *models.User) error
	AddRealizedLoss(ctx context.Context, userID int64, loss float64, now time.Time) error
}

// UserDefaults fills provisioning gaps: zero-valued risk fields on an
// upserted user get the configured defaults. Without them a sparse payload
// would produce a user the gate treats as unlimited.
type UserDefaults struct {
	RiskPct       float64
	MaxConcurrent int
	DailyDDLimit  float64
	Cooldown      time.Duration
}

func (d UserDefaults) apply(u *models.User) {
	if u.Tier == "" {
		u.Tier = models.TierNibbler
	}
	if u.RiskPct == 0 {
		u.RiskPct = d.RiskPct
	}
	if u.MaxConcurrent == 0 {
		u.MaxConcurrent = d.MaxConcurrent
	}
	if u.DailyDDLimit == 0 {
		u.DailyDDLimit = d.DailyDDLimit
	}
	if u.Cooldown == 0 {
		u.Cooldown = d.Cooldown
	}
}

// Intake is the boundary for the external collaborators: the signal
// producer creates missions, user/automation triggers fires, provisioning
// manages users. Rejections come back as reason codes suitable for display.
type Intake struct {
	store    IntakeStore
	disp     *Dispatcher
	defaults UserDefaults
}

func NewIntake(store IntakeStore, disp *Dispatcher, defaults UserDefaults) *Intake {
	return &Intake{store: store, disp: disp, defaults: defaults}
}

func (i *Intake) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/missions", i.handleMissions)
	mux.HandleFunc("/api/fire", i.handleFire)
	mux.HandleFunc("/api/fires", i.handleGetFire)
	mux.HandleFunc("/api/users", i.handleUsers)
	mux.HandleFunc("/api/loss", i.handleLoss)
}

type createMissionRequest struct {
	SignalID string                `json:"signal_id"`
	Payload  models.MissionPayload `json:"payload"`
	TTLSec   int                   `json:"ttl_s"`
}

func (i *Intake) handleMissions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req createMissionRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.TTLSec <= 0 {
			writeError(w, http.StatusBadRequest, errors.New("ttl_s must be positive"))
			return
		}
		expiresAt := time.Now().Add(time.Duration(req.TTLSec) * time.Second)
		missionID, err := i.store.CreateMission(r.Context(), req.SignalID, req.Payload, expiresAt)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"mission_id": missionID})
	case http.MethodGet:
		mission, err := i.store.GetMission(r.Context(), r.URL.Query().Get("id"))
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, mission)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (i *Intake) handleFire(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req FireRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.MissionID == "" || req.UserID == 0 || req.IdemKey == "" || req.TargetUUID == "" {
		writeError(w, http.StatusBadRequest, errors.New("mission_id, user_id, idem_key and target_uuid are required"))
		return
	}

	fireID, err := i.disp.Dispatch(r.Context(), req)
	if err != nil {
		resp := map[string]string{"error": err.Error()}
		if fireID != "" {
			resp["fire_id"] = fireID
		}
		writeJSON(w, statusFor(err), resp)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"fire_id": fireID})
}

func (i *Intake) handleGetFire(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	fire, err := i.store.GetFire(r.Context(), r.URL.Query().Get("id"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, fire)
}

func (i *Intake) handleUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut && r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var user models.User
	if !decodeBody(w, r, &user) {
		return
	}
	if user.UserID == 0 {
		writeError(w, http.StatusBadRequest, errors.New("user_id is required"))
		return
	}
	i.defaults.apply(&user)
	if err := i.store.UpsertUser(r.Context(), &user); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type lossRequest struct {
	UserID int64   `json:"user_id"`
	Loss   float64 `json:"loss"`
}

func (i *Intake) handleLoss(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req lossRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := i.store.AddRealizedLoss(r.Context(), req.UserID, req.Loss, time.Now()); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrMissionNotFound),
		errors.Is(err, models.ErrFireNotFound),
		errors.Is(err, models.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrMissionClosed),
		errors.Is(err, models.ErrAlreadyInFlight):
		return http.StatusConflict
	case errors.Is(err, models.ErrSlotLimitExceeded),
		errors.Is(err, models.ErrDrawdownCapExceeded),
		errors.Is(err, models.ErrCooldownActive):
		return http.StatusTooManyRequests
	case errors.Is(err, models.ErrPeerUnreachable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, out any) bool {
	raw, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return false
	}
	if err := sonic.Unmarshal(raw, out); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	raw, err := sonic.Marshal(v)
	if err != nil {
		logger.Error("marshal response: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(raw)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
