package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/neexbeast/tripsim/internal/geo"
	"github.com/neexbeast/tripsim/internal/simulation"
	"github.com/neexbeast/tripsim/internal/storage"
)

const maxBodyBytes = 1 << 20

// Handlers holds the dependencies for all HTTP handlers.
type Handlers struct {
	repo     SimulationRepo
	cache    SimulationCache
	sim      Simulator
	places   geo.Resolver
	log      *slog.Logger
	validate *validator.Validate
	now      func() time.Time
}

// NewHandlers constructs Handlers with all required dependencies.
func NewHandlers(repo SimulationRepo, cache SimulationCache, sim Simulator, places geo.Resolver, log *slog.Logger) *Handlers {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	return &Handlers{
		repo:     repo,
		cache:    cache,
		sim:      sim,
		places:   places,
		log:      log,
		validate: v,
		now:      time.Now,
	}
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// simulateBody is the wire shape of POST /api/v1/simulations.
type simulateBody struct {
	Origin             string          `json:"origin" validate:"required,max=120"`
	OriginCountry      string          `json:"origin_country" validate:"max=80"`
	Destination        string          `json:"destination" validate:"required,max=120"`
	DestinationCountry string          `json:"destination_country" validate:"max=80"`
	DepartureDate      string          `json:"departure_date" validate:"required,datetime=2006-01-02"`
	ReturnDate         string          `json:"return_date" validate:"required,datetime=2006-01-02"`
	Budget             decimal.Decimal `json:"budget"`
	Travelers          int             `json:"travelers" validate:"gte=0,lte=20"`
	Interests          []string        `json:"interests" validate:"max=10,dive,max=40"`
	Currency           string          `json:"currency" validate:"omitempty,len=3,alpha"`
}

func (b simulateBody) request() simulation.Request {
	dep, _ := time.Parse(time.DateOnly, b.DepartureDate)
	ret, _ := time.Parse(time.DateOnly, b.ReturnDate)
	return simulation.Request{
		Origin:             b.Origin,
		OriginCountry:      b.OriginCountry,
		Destination:        b.Destination,
		DestinationCountry: b.DestinationCountry,
		DepartureDate:      dep,
		ReturnDate:         ret,
		Budget:             b.Budget,
		Travelers:          b.Travelers,
		Interests:          b.Interests,
		Currency:           strings.ToUpper(b.Currency),
	}
}

type validationResponse struct {
	Error string `json:"error"`
	Field string `json:"field"`
}

// CreateSimulation handles POST /api/v1/simulations[?refresh=true].
// Cache hit → return. Otherwise simulate, store, cache and return.
// refresh=true evicts the cached record and simulates again.
// Degraded results are returned but neither stored nor cached.
// Every success responds with the same record shape as GetSimulation.
func (h *Handlers) CreateSimulation(w http.ResponseWriter, r *http.Request) {
	refresh := false
	if v := r.URL.Query().Get("refresh"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "refresh must be a boolean")
			return
		}
		refresh = b
	}

	var body simulateBody
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	if err := h.validate.Struct(body); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			writeJSON(w, http.StatusUnprocessableEntity, validationResponse{
				Error: "validation failed on " + verrs[0].Tag(),
				Field: verrs[0].Field(),
			})
			return
		}
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	req := body.request()
	id := req.ID()

	if refresh {
		if err := h.cache.Delete(r.Context(), id); err != nil {
			h.log.Warn("cache delete failed on refresh", "id", id, "err", err)
		}
	} else {
		cached, err := h.cache.Get(r.Context(), id)
		if err != nil {
			h.log.Error("cache get failed", "id", id, "err", err)
		}
		if cached != nil {
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	res, err := h.sim.Simulate(r.Context(), req)
	if err != nil {
		var verr *simulation.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusUnprocessableEntity, validationResponse{Error: verr.Error(), Field: verr.Field})
			return
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			h.log.Warn("simulation abandoned", "id", id, "err", err)
			writeError(w, http.StatusGatewayTimeout, "simulation cancelled")
			return
		}
		h.log.Error("simulation failed", "id", id, "err", err)
		writeError(w, http.StatusInternalServerError, "simulation failed")
		return
	}

	rec := simulation.NewRecord(req, res, h.now())
	if len(res.Degraded) > 0 {
		h.log.Warn("returning degraded simulation uncached", "id", id, "degraded", res.Degraded)
		writeJSON(w, http.StatusOK, rec)
		return
	}

	if err := h.repo.SaveSimulation(r.Context(), rec); err != nil {
		h.log.Error("save simulation failed", "id", id, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to store simulation")
		return
	}
	if err := h.cache.Set(r.Context(), rec); err != nil {
		h.log.Warn("cache set failed after simulation", "id", id, "err", err)
	}

	writeJSON(w, http.StatusOK, rec)
}

// GetSimulation handles GET /api/v1/simulations/{id}.
// Cache hit → return. DB hit → cache + return. Neither → 404.
func (h *Handlers) GetSimulation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	cached, err := h.cache.Get(r.Context(), id)
	if err != nil {
		h.log.Error("cache get failed", "id", id, "err", err)
	}
	if cached != nil {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	rec, err := h.repo.GetSimulation(r.Context(), id)
	if err != nil {
		h.log.Error("db get failed", "id", id, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "simulation not found")
		return
	}

	if err := h.cache.Set(r.Context(), rec); err != nil {
		h.log.Warn("cache set failed after db hit", "id", id, "err", err)
	}

	writeJSON(w, http.StatusOK, rec)
}

// ListSimulations handles GET /api/v1/simulations?destination=&within_budget=&limit=.
func (h *Handlers) ListSimulations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := storage.ListFilter{Destination: q.Get("destination")}

	if v := q.Get("within_budget"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "within_budget must be a boolean")
			return
		}
		f.WithinBudget = &b
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 200 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 200")
			return
		}
		f.Limit = n
	}

	recs, err := h.repo.ListSimulations(r.Context(), f)
	if err != nil {
		h.log.Error("list simulations failed", "destination", f.Destination, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, recs)
}

// HealthCheck handles GET /api/v1/health.
// Pings DB and Redis; returns 200 if both ok, 503 otherwise.
type dbPinger interface {
	Ping(ctx context.Context) error
}

type redisPinger interface {
	Ping(ctx context.Context) error
}

// HealthHandlerFunc returns an http.HandlerFunc that checks db and redis connectivity.
func HealthHandlerFunc(db dbPinger, redis redisPinger, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		status := http.StatusOK
		dbStatus := "ok"
		redisStatus := "ok"

		if err := db.Ping(ctx); err != nil {
			log.Error("health check: db ping failed", "err", err)
			dbStatus = "error"
			status = http.StatusServiceUnavailable
		}

		if err := redis.Ping(ctx); err != nil {
			log.Error("health check: redis ping failed", "err", err)
			redisStatus = "error"
			status = http.StatusServiceUnavailable
		}

		overall := "ok"
		if status != http.StatusOK {
			overall = "degraded"
		}

		writeJSON(w, status, map[string]string{
			"status": overall,
			"db":     dbStatus,
			"redis":  redisStatus,
		})
	}
}
