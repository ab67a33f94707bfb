package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/cafepos/terminal/internal/catalog"
	"github.com/cafepos/terminal/internal/draft"
	"github.com/cafepos/terminal/internal/order"
	"github.com/cafepos/terminal/internal/terminal"
)

// CatalogAdmin is the catalog write path. Writes land in the store and
// come back to every terminal through the push feed; nothing mutates
// the cache directly.
type CatalogAdmin interface {
	SaveProduct(ctx context.Context, p catalog.Product) error
	DeleteProduct(ctx context.Context, id string) error
}

// POSHandler is the thin glue between HTTP and the composition engine.
// One session per terminal screen; the session owns its draft.
type POSHandler struct {
	Cache     *catalog.Cache
	Feed      *order.HistoryFeed
	Submitter *order.Submitter
	Admin     CatalogAdmin

	mu       sync.Mutex
	sessions map[string]*terminal.Session
}

func (h *POSHandler) Register(r *chi.Mux) {
	r.Get("/products", h.listProducts)
	r.Post("/products", h.saveProduct)
	r.Put("/products/{id}", h.saveProduct)
	r.Delete("/products/{id}", h.deleteProduct)
	r.Get("/orders", h.listOrders)
	r.Post("/sessions", h.createSession)
	r.Get("/sessions/{id}", h.getSession)
	r.Delete("/sessions/{id}", h.closeSession)
	r.Post("/sessions/{id}/items", h.addItem)
	r.Put("/sessions/{id}/items/{productID}", h.setQuantity)
	r.Delete("/sessions/{id}/items/{productID}", h.removeItem)
	r.Put("/sessions/{id}/table", h.setTable)
	r.Post("/sessions/{id}/submit", h.submit)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, err error) {
	code := http.StatusBadRequest
	switch {
	case errors.Is(err, draft.ErrUnknownProduct), errors.Is(err, terminal.ErrSessionClosed):
		code = http.StatusNotFound
	case errors.Is(err, terminal.ErrSubmitInFlight):
		code = http.StatusConflict
	case errors.Is(err, order.ErrSubmissionFailed):
		code = http.StatusBadGateway
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

type sessionView struct {
	SessionID  string       `json:"session_id"`
	Table      int          `json:"table"`
	Items      []draft.Item `json:"items"`
	TotalCents int          `json:"total_cents"`
}

func (h *POSHandler) session(r *http.Request) (*terminal.Session, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sessions[chi.URLParam(r, "id")]
	return s, ok
}

func (h *POSHandler) view(s *terminal.Session) sessionView {
	return sessionView{
		SessionID:  s.ID,
		Table:      s.Table(),
		Items:      s.Items(),
		TotalCents: s.TotalCents(),
	}
}

func (h *POSHandler) createSession(w http.ResponseWriter, r *http.Request) {
	s := terminal.NewSession(uuid.NewString(), h.Cache, h.Submitter)
	h.mu.Lock()
	if h.sessions == nil {
		h.sessions = map[string]*terminal.Session{}
	}
	h.sessions[s.ID] = s
	h.mu.Unlock()
	writeJSON(w, http.StatusCreated, h.view(s))
}

func (h *POSHandler) getSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(r)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown session"})
		return
	}
	writeJSON(w, http.StatusOK, h.view(s))
}

func (h *POSHandler) closeSession(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	id := chi.URLParam(r, "id")
	s, ok := h.sessions[id]
	delete(h.sessions, id)
	h.mu.Unlock()
	if ok {
		s.Close()
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *POSHandler) addItem(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(r)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown session"})
		return
	}
	var req struct {
		ProductID string `json:"product_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProductID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if err := s.AddItem(req.ProductID); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.view(s))
}

func (h *POSHandler) setQuantity(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(r)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown session"})
		return
	}
	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if err := s.SetQuantity(chi.URLParam(r, "productID"), req.Quantity); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.view(s))
}

func (h *POSHandler) removeItem(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(r)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown session"})
		return
	}
	if err := s.RemoveItem(chi.URLParam(r, "productID")); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.view(s))
}

func (h *POSHandler) setTable(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(r)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown session"})
		return
	}
	var req struct {
		Table int `json:"table"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if err := s.SetTable(req.Table); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.view(s))
}

func (h *POSHandler) submit(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(r)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown session"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id, err := s.Submit(ctx)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"order_id": id})
}

func (h *POSHandler) saveProduct(w http.ResponseWriter, r *http.Request) {
	var p catalog.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if id := chi.URLParam(r, "id"); id != "" {
		p.ID = id
	}
	if p.ID == "" || p.Name == "" || p.PriceCents < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing or invalid fields"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()
	if err := h.Admin.SaveProduct(ctx, p); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *POSHandler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()
	if err := h.Admin.DeleteProduct(ctx, chi.URLParam(r, "id")); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *POSHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	snap := h.Cache.CurrentSnapshot()
	ps := make([]catalog.Product, 0, len(snap))
	for _, p := range snap {
		ps = append(ps, p)
	}
	sort.Slice(ps, func(i, j int) bool { return ps[i].Name < ps[j].Name })
	writeJSON(w, http.StatusOK, ps)
}

func (h *POSHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Feed.Entries())
}
