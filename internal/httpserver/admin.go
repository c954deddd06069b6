package httpserver

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"packbot/internal/domain"
	"packbot/internal/rag"
	"packbot/internal/repo"
)

// maxUploadBytes caps knowledge file uploads.
const maxUploadBytes = 5 << 20

// ManualSetter toggles and reports human takeover on a session.
type ManualSetter interface {
	SetManual(ctx context.Context, phone string, manual bool) error
	IsManual(ctx context.Context, phone string) (bool, error)
}

// CatalogRefresher invalidates catalog caches and rebuilds the product
// index.
type CatalogRefresher interface {
	InvalidateListings(ctx context.Context) error
}

// IndexSyncer re-embeds the catalog into the vector store.
type IndexSyncer interface {
	SyncCatalogIndex(ctx context.Context) error
}

// MediaRemover deletes locally stored files by their served URL.
type MediaRemover interface {
	Remove(localURL string) error
}

// Querier answers raw retrieval queries for operators.
type Querier interface {
	Query(ctx context.Context, req rag.Request) (*rag.Result, error)
}

// AdminAPI carries the operator endpoints: knowledge-base CRUD, raw
// retrieval queries, lead listing, manual takeover and catalog reload.
// Every route requires the shared API key.
type AdminAPI struct {
	logger    *slog.Logger
	apiKey    string
	ragAdmin  *rag.Admin
	querier   Querier
	store     repo.Store
	sessions  ManualSetter
	catalog   CatalogRefresher
	syncer    IndexSyncer
	media     MediaRemover
	namespace string
}

// NewAdminAPI creates the operator API.
func NewAdminAPI(logger *slog.Logger, apiKey string, ragAdmin *rag.Admin, querier Querier, store repo.Store, sessions ManualSetter, catalog CatalogRefresher, syncer IndexSyncer, media MediaRemover, namespace string) *AdminAPI {
	return &AdminAPI{
		logger:    logger.With("component", "admin"),
		apiKey:    apiKey,
		ragAdmin:  ragAdmin,
		querier:   querier,
		store:     store,
		sessions:  sessions,
		catalog:   catalog,
		syncer:    syncer,
		media:     media,
		namespace: namespace,
	}
}

// Mount registers the admin routes on mux.
func (a *AdminAPI) Mount(mux *http.ServeMux) {
	mux.Handle("POST /admin/rag/documents", a.requireKey(a.handleAddDocument))
	mux.Handle("POST /admin/rag/upload", a.requireKey(a.handleUploadFile))
	mux.Handle("POST /admin/rag/products", a.requireKey(a.handleAddProduct))
	mux.Handle("PUT /admin/rag/documents/{id}", a.requireKey(a.handleUpdateDocument))
	mux.Handle("DELETE /admin/rag/documents/{id}", a.requireKey(a.handleDeleteDocument))
	mux.Handle("POST /admin/rag/query", a.requireKey(a.handleQuery))
	mux.Handle("GET /admin/leads", a.requireKey(a.handleListLeads))
	mux.Handle("POST /admin/sessions/{phone}/manual", a.requireKey(a.handleSetManual))
	mux.Handle("GET /admin/sessions/{phone}/manual", a.requireKey(a.handleGetManual))
	mux.Handle("POST /admin/orders/{ref}/cancel", a.requireKey(a.handleCancelOrder))
	mux.Handle("POST /admin/reload-catalog", a.requireKey(a.handleReloadCatalog))
}

func (a *AdminAPI) requireKey(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.apiKey == "" {
			http.Error(w, "admin api disabled", http.StatusServiceUnavailable)
			return
		}
		got := r.Header.Get("X-API-Key")
		if subtle.ConstantTimeCompare([]byte(got), []byte(a.apiKey)) != 1 {
			a.logger.Warn("rejected admin request", "path", r.URL.Path)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	})
}

type documentRequest struct {
	DocID    string            `json:"doc_id"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata"`
}

func (a *AdminAPI) handleAddDocument(w http.ResponseWriter, r *http.Request) {
	var req documentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.DocID == "" {
		req.DocID = "doc:" + uuid.NewString()
	}

	ids, err := a.ragAdmin.IndexText(r.Context(), a.namespace, req.DocID, req.Text, req.Metadata)
	if err != nil {
		a.writeIndexError(w, err)
		return
	}
	writeJSON(w, map[string]any{"status": "ok", "doc_ids": ids})
}

func (a *AdminAPI) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		http.Error(w, "failed reading file", http.StatusBadRequest)
		return
	}

	metadata := map[string]string{"source": header.Filename}
	for key, values := range r.MultipartForm.Value {
		if key != "file" && len(values) > 0 {
			metadata[key] = values[0]
		}
	}

	docID := "file:" + strings.TrimSuffix(header.Filename, fileExt(header.Filename)) + ":" + uuid.NewString()[:8]
	ids, err := a.ragAdmin.IndexText(r.Context(), a.namespace, docID, string(content), metadata)
	if err != nil {
		a.writeIndexError(w, err)
		return
	}
	writeJSON(w, map[string]any{"status": "ok", "doc_ids": ids, "chunks": len(ids)})
}

type productRequest struct {
	Name      string            `json:"name"`
	Details   string            `json:"details"`
	ImageURLs []string          `json:"image_urls"`
	Metadata  map[string]string `json:"metadata"`
}

func (a *AdminAPI) handleAddProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	metadata := map[string]string{"type": "product"}
	for k, v := range req.Metadata {
		metadata[k] = v
	}
	if len(req.ImageURLs) > 0 {
		metadata["imageUrl"] = req.ImageURLs[0]
	}

	text := req.Name
	if req.Details != "" {
		text += ". " + req.Details
	}
	docID := "product:custom:" + uuid.NewString()[:8]
	ids, err := a.ragAdmin.IndexText(r.Context(), a.namespace, docID, text, metadata)
	if err != nil {
		a.writeIndexError(w, err)
		return
	}
	writeJSON(w, map[string]any{"status": "ok", "doc_ids": ids})
}

func (a *AdminAPI) handleUpdateDocument(w http.ResponseWriter, r *http.Request) {
	docID := r.PathValue("id")

	var req documentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	if err := a.ragAdmin.UpdateDocument(r.Context(), a.namespace, docID, req.Text, req.Metadata); err != nil {
		a.writeIndexError(w, err)
		return
	}
	writeJSON(w, map[string]any{"status": "ok", "doc_id": docID})
}

func (a *AdminAPI) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	docID := r.PathValue("id")

	doc, err := a.ragAdmin.DeleteDocument(r.Context(), a.namespace, docID)
	if err != nil {
		a.writeIndexError(w, err)
		return
	}

	// Locally stored media referenced only by this document goes with it.
	if a.media != nil && doc != nil {
		if img := doc.Metadata["imageUrl"]; img != "" {
			if err := a.media.Remove(img); err != nil {
				a.logger.Warn("failed removing document media", "doc", docID, "error", err)
			}
		}
	}
	writeJSON(w, map[string]any{"status": "ok", "doc_id": docID})
}

type queryRequest struct {
	Query  string            `json:"query"`
	TopK   int               `json:"top_k"`
	Filter map[string]string `json:"filter"`
	Strict *bool             `json:"strict"`
}

func (a *AdminAPI) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.Query == "" {
		http.Error(w, "query is required", http.StatusBadRequest)
		return
	}

	ragReq := rag.Request{
		Query:     req.Query,
		TopK:      req.TopK,
		Namespace: a.namespace,
		Filter:    req.Filter,
		Strict:    len(req.Filter) > 0,
	}
	if req.Strict != nil {
		ragReq.Strict = *req.Strict
	}

	res, err := a.querier.Query(r.Context(), ragReq)
	if err != nil {
		a.logger.Error("admin query failed", "error", err)
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{
		"answer":     res.Answer,
		"matches":    res.Matches,
		"media_urls": res.MediaURLs,
	})
}

func (a *AdminAPI) handleListLeads(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	leads, err := a.store.ListLeads(r.Context(), limit)
	if err != nil {
		a.logger.Error("failed listing leads", "error", err)
		http.Error(w, "failed listing leads", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"leads": leads, "count": len(leads)})
}

type manualRequest struct {
	Manual bool `json:"manual"`
}

func (a *AdminAPI) handleSetManual(w http.ResponseWriter, r *http.Request) {
	phone := r.PathValue("phone")

	var req manualRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	if err := a.sessions.SetManual(r.Context(), phone, req.Manual); err != nil {
		a.logger.Error("failed toggling manual mode", "phone", phone, "error", err)
		http.Error(w, "failed toggling manual mode", http.StatusInternalServerError)
		return
	}
	a.logger.Info("manual mode toggled", "phone", phone, "manual", req.Manual)
	writeJSON(w, map[string]any{"status": "ok", "phone": phone, "manual": req.Manual})
}

func (a *AdminAPI) handleGetManual(w http.ResponseWriter, r *http.Request) {
	phone := r.PathValue("phone")

	manual, err := a.sessions.IsManual(r.Context(), phone)
	if err != nil {
		a.logger.Error("failed reading manual mode", "phone", phone, "error", err)
		http.Error(w, "failed reading manual mode", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"phone": phone, "manual": manual})
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (a *AdminAPI) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	ref := r.PathValue("ref")

	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	order, err := a.store.GetOrderByRef(r.Context(), ref)
	if err != nil {
		a.logger.Error("failed loading order", "ref", ref, "error", err)
		http.Error(w, "failed loading order", http.StatusInternalServerError)
		return
	}
	if order == nil {
		http.Error(w, "order not found", http.StatusNotFound)
		return
	}
	if order.Status == repo.OrderStatusPaid {
		http.Error(w, "paid orders cannot be cancelled here", http.StatusConflict)
		return
	}

	meta := map[string]any{"cancelled_by": "admin"}
	if req.Reason != "" {
		meta["cancel_reason"] = req.Reason
	}
	if err := a.store.UpdateOrderStatus(r.Context(), ref, repo.OrderStatusCancelled, meta); err != nil {
		a.logger.Error("failed cancelling order", "ref", ref, "error", err)
		http.Error(w, "failed cancelling order", http.StatusInternalServerError)
		return
	}
	a.logger.Info("order cancelled", "ref", ref, "reason", req.Reason)
	writeJSON(w, map[string]any{"status": "ok", "order_ref": ref})
}

func (a *AdminAPI) handleReloadCatalog(w http.ResponseWriter, r *http.Request) {
	if a.catalog != nil {
		if err := a.catalog.InvalidateListings(r.Context()); err != nil {
			a.logger.Warn("failed invalidating catalog cache", "error", err)
		}
	}
	if a.syncer != nil {
		if err := a.syncer.SyncCatalogIndex(r.Context()); err != nil {
			a.logger.Error("failed syncing catalog index", "error", err)
			http.Error(w, "failed syncing catalog index", http.StatusInternalServerError)
			return
		}
	}
	writeJSON(w, map[string]any{"status": "ok"})
}

func (a *AdminAPI) writeIndexError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrValidation) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	a.logger.Error("index operation failed", "error", err)
	http.Error(w, "index operation failed", http.StatusInternalServerError)
}

func fileExt(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i:]
	}
	return ""
}
