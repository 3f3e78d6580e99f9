package upload

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// HTTPConfig tunes the request side of the handler.
type HTTPConfig struct {
	Field        string
	TempDir      string
	ProcessedDir string
	MaxSizeBytes int64
	MaxFileBytes int64
	// LegacyStatus answers every outcome with 200 and signals failure only
	// in the body.
	LegacyStatus bool
}

// HTTPHandler exposes the upload form target and processed downloads.
type HTTPHandler struct {
	service  *Service
	logger   *zap.Logger
	cfg      HTTPConfig
	receiver receiver
	router   chi.Router
}

// NewHTTPHandler constructs the HTTP handler and wires routes.
func NewHTTPHandler(service *Service, logger *zap.Logger, cfg HTTPConfig) *HTTPHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Field == "" {
		cfg.Field = "video"
	}
	h := &HTTPHandler{
		service: service,
		logger:  logger,
		cfg:     cfg,
		receiver: receiver{
			field:        cfg.Field,
			tempDir:      cfg.TempDir,
			maxFileBytes: cfg.MaxFileBytes,
		},
	}
	h.buildRouter()
	return h
}

func (h *HTTPHandler) buildRouter() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.handleHealth)
	r.Get("/processed/{name}", h.handleDownload)
	r.HandleFunc("/", h.handleUpload)

	h.router = r
}

// Router exposes the configured chi router.
func (h *HTTPHandler) Router() http.Handler {
	return h.router
}

func (h *HTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func (h *HTTPHandler) handleUpload(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(zap.String("request_id", middleware.GetReqID(r.Context())))

	if r.Method != http.MethodPost {
		h.writePage(w, KindInputAbsent.Status(), absentPage(), logger)
		return
	}

	if h.cfg.MaxSizeBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxSizeBytes)
	}

	up := h.receiver.receive(r)
	if up == nil {
		logger.Info("request without upload", zap.String("field", h.cfg.Field))
		h.writePage(w, KindInputAbsent.Status(), absentPage(), logger)
		return
	}

	rep := h.service.Handle(r.Context(), *up)
	status := http.StatusOK
	if rep.Err != nil {
		kind := KindOf(rep.Err)
		status = kind.Status()
		logger.Error("upload failed",
			zap.String("upload_id", rep.ID),
			zap.Stringer("kind", kind),
			zap.Error(rep.Err),
		)
	}
	h.writePage(w, status, newPage(rep), logger)
}

func (h *HTTPHandler) handleDownload(w http.ResponseWriter, r *http.Request) {
	// chi matches on RawPath when the client's escaping differs from Go's
	// default, and then the parameter is still percent-encoded.
	raw := chi.URLParam(r, "name")
	if r.URL.RawPath != "" {
		unescaped, err := url.PathUnescape(raw)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		raw = unescaped
	}
	name, ok := SanitizeBaseName(raw)
	if !ok {
		http.NotFound(w, r)
		return
	}
	f, err := os.Open(filepath.Join(h.cfg.ProcessedDir, name))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Disposition", "attachment; filename*=UTF-8''"+url.PathEscape(name))
	http.ServeContent(w, r, name, info.ModTime(), f)
}

func (h *HTTPHandler) writePage(w http.ResponseWriter, status int, p page, logger *zap.Logger) {
	if h.cfg.LegacyStatus {
		status = http.StatusOK
	}
	var buf bytes.Buffer
	if err := renderPage(&buf, p); err != nil {
		logger.Error("render result page", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		logger.Warn("write result page", zap.Error(err))
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
