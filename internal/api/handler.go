package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/holdwatch/holdwatch/internal/auth"
	"github.com/holdwatch/holdwatch/internal/domain"
	"github.com/holdwatch/holdwatch/internal/export"
	"github.com/holdwatch/holdwatch/internal/ledger"
	"github.com/holdwatch/holdwatch/internal/pricing"
	"github.com/holdwatch/holdwatch/internal/tracker"
	"github.com/holdwatch/holdwatch/internal/trend"
)

// Handler provides the HTTP endpoints of the investment tracker.
type Handler struct {
	tracker  *tracker.Service
	resolver tracker.PriceResolver
	authn    *auth.Authenticator
}

// NewHandler creates a new API handler.
func NewHandler(t *tracker.Service, r tracker.PriceResolver, a *auth.Authenticator) *Handler {
	return &Handler{tracker: t, resolver: r, authn: a}
}

// GetMetalPrice handles GET /api/metals/{metal}. Metal resolution always
// succeeds: the resolver falls back to a fixed constant.
func (h *Handler) GetMetalPrice(w http.ResponseWriter, r *http.Request) {
	t, err := domain.ParseType(r.PathValue("metal"))
	if err != nil || !t.IsMetal() {
		writeError(w, http.StatusBadRequest, "unsupported metal")
		return
	}
	price, err := h.resolver.Resolve(r.Context(), t)
	if err != nil {
		// Unreachable for metals, kept for contract symmetry.
		slog.Error("metal price resolution failed", "metal", t, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch price")
		return
	}
	writeJSON(w, http.StatusOK, map[string]decimal.Decimal{"price": price})
}

// GetCryptoPrice handles GET /api/crypto/{symbol}.
func (h *Handler) GetCryptoPrice(w http.ResponseWriter, r *http.Request) {
	t, err := domain.ParseType(r.PathValue("symbol"))
	if err != nil || !t.IsCrypto() {
		writeError(w, http.StatusBadRequest, "unsupported cryptocurrency")
		return
	}
	price, err := h.resolver.Resolve(r.Context(), t)
	if err != nil {
		slog.Error("crypto price fetch failed", "symbol", t, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch price")
		return
	}
	writeJSON(w, http.StatusOK, map[string]decimal.Decimal{"price": price})
}

type saveRequest struct {
	InvestmentName string          `json:"investmentName"`
	InvestmentType string          `json:"investmentType"`
	Amount         decimal.Decimal `json:"amount"`
	Value          decimal.Decimal `json:"value"`
}

// Save handles POST /api/save. Not rate-limited: it records user-entered
// data rather than re-fetching prices.
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFrom(r.Context())

	var req saveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ts, err := h.tracker.Save(r.Context(), user.ID, domain.Snapshot{
		InvestmentName: req.InvestmentName,
		InvestmentType: domain.InvestmentType(req.InvestmentType),
		Amount:         req.Amount,
		Value:          req.Value,
	})
	if err != nil {
		if errors.Is(err, tracker.ErrValidation) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.Error("save failed", "user", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save investment")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "timestamp": ts})
}

type updateRequest struct {
	InvestmentName string `json:"investmentName"`
}

// Update handles POST /api/update: the rate-limited refresh path.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFrom(r.Context())

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.InvestmentName == "" {
		writeError(w, http.StatusBadRequest, "investmentName is required")
		return
	}

	res, err := h.tracker.Refresh(r.Context(), user.ID, req.InvestmentName)
	if err != nil {
		var rle *tracker.RateLimitedError
		switch {
		case errors.As(err, &rle):
			// The client may render a countdown from this, but the server
			// remains the source of truth on every retry.
			writeJSON(w, http.StatusTooManyRequests, map[string]any{
				"error":            "updated too recently",
				"secondsRemaining": rle.Seconds,
				"minutesRemaining": (rle.Seconds + 59) / 60,
				"reason":           rle.Reason,
			})
		case errors.Is(err, ledger.ErrNotFound):
			writeError(w, http.StatusNotFound, "investment not found")
		case errors.Is(err, pricing.ErrUnsupportedAsset):
			writeError(w, http.StatusBadRequest, "custom investments cannot be auto-updated")
		case errors.Is(err, pricing.ErrUnavailable):
			slog.Error("price fetch failed", "user", user.ID, "investment", req.InvestmentName, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to fetch price")
		default:
			slog.Error("update failed", "user", user.ID, "investment", req.InvestmentName, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"timestamp":      res.Timestamp,
		"unitPrice":      res.UnitPrice,
		"totalValue":     res.TotalValue,
		"investmentType": res.InvestmentType,
		"amount":         res.Amount,
	})
}

// GetData handles GET /api/data and GET /api/data/{investmentName}.
//
// Unless the request opts out with autorefresh=0, stale investments are
// refreshed best-effort before the read. The client's reload after an
// update passes autorefresh=0, which keeps the refresh from recursing.
func (h *Handler) GetData(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFrom(r.Context())

	if r.URL.Query().Get("autorefresh") != "0" {
		h.tracker.RefreshStale(r.Context(), user.ID)
	}

	var (
		snapshots []domain.Snapshot
		err       error
	)
	if name := r.PathValue("investmentName"); name != "" {
		snapshots, err = h.tracker.HistoryByName(r.Context(), user.ID, name)
	} else {
		snapshots, err = h.tracker.History(r.Context(), user.ID)
	}
	if err != nil {
		slog.Error("reading history failed", "user", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read data")
		return
	}
	if snapshots == nil {
		snapshots = []domain.Snapshot{}
	}
	writeJSON(w, http.StatusOK, snapshots)
}

// GetInvestments handles GET /api/investments.
func (h *Handler) GetInvestments(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFrom(r.Context())
	names, err := h.tracker.Names(r.Context(), user.ID)
	if err != nil {
		slog.Error("listing investments failed", "user", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read investments")
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, names)
}

// GetUser handles GET /api/user. Never requires auth: it reports whether
// the caller is logged in.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, ok := h.authn.Lookup(r)
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"authenticated": true, "user": user})
}

// GetChart handles GET /api/chart and GET /api/chart/{investmentName},
// returning point series plus a regression trend line for the chart
// collaborator.
func (h *Handler) GetChart(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFrom(r.Context())

	var points []trend.Point
	if name := r.PathValue("investmentName"); name != "" {
		snapshots, err := h.tracker.HistoryByName(r.Context(), user.ID, name)
		if err != nil {
			slog.Error("reading history failed", "user", user.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to read data")
			return
		}
		points = trend.Series(snapshots)
	} else {
		snapshots, err := h.tracker.History(r.Context(), user.ID)
		if err != nil {
			slog.Error("reading history failed", "user", user.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to read data")
			return
		}
		points = trend.AggregateSeries(snapshots)
	}
	if points == nil {
		points = []trend.Point{}
	}

	line := trend.Line(points)
	if line == nil {
		line = []trend.Point{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"points": points, "trend": line})
}

// Export handles GET /api/export: the user's history as an xlsx download.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFrom(r.Context())

	snapshots, err := h.tracker.History(r.Context(), user.ID)
	if err != nil {
		slog.Error("reading history failed", "user", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read data")
		return
	}
	f, err := export.Workbook(snapshots)
	if err != nil {
		slog.Error("building workbook failed", "user", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to build export")
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="investments.xlsx"`)
	if err := f.Write(w); err != nil {
		slog.Warn("writing export failed", "user", user.ID, "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to marshal JSON response", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.Warn("failed to write HTTP response body", "error", err)
		return
	}
	_, _ = w.Write([]byte("\n"))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
