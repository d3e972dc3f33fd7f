package quiz

import (
	"bytes"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/smart-quiz/backend/internal/models"
	"github.com/smart-quiz/backend/internal/sheet"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the quiz endpoints on the API subrouter.
func (h *Handler) RegisterRoutes(api *mux.Router) {
	api.HandleFunc("/template", h.DownloadTemplate).Methods("GET")

	api.HandleFunc("/quiz/upload", h.Upload).Methods("POST")
	api.HandleFunc("/quiz", h.GetState).Methods("GET")
	api.HandleFunc("/quiz", h.NewQuiz).Methods("DELETE")
	api.HandleFunc("/quiz/current", h.GetCurrent).Methods("GET")
	api.HandleFunc("/quiz/start", h.Start).Methods("POST")
	api.HandleFunc("/quiz/answers", h.SubmitAnswer).Methods("POST")
	api.HandleFunc("/quiz/navigate", h.Navigate).Methods("POST")
	api.HandleFunc("/quiz/finish", h.Finish).Methods("POST")
	api.HandleFunc("/quiz/reset", h.Reset).Methods("POST")
	api.HandleFunc("/quiz/mode", h.SetMode).Methods("PUT")
	api.HandleFunc("/quiz/flags/{index}", h.ToggleFlag).Methods("POST")

	api.HandleFunc("/quiz/score", h.GetScore).Methods("GET")
	api.HandleFunc("/quiz/analytics", h.GetAnalytics).Methods("GET")
	api.HandleFunc("/quiz/mistakes", h.GetMistakes).Methods("GET")
	api.HandleFunc("/quiz/mistakes/{id}/review", h.MarkReviewed).Methods("POST")
	api.HandleFunc("/quiz/recap", h.StartRecap).Methods("POST")
	api.HandleFunc("/quiz/recap", h.ExitRecap).Methods("DELETE")

	api.HandleFunc("/quiz/topics", h.GetTopics).Methods("GET")
	api.HandleFunc("/quiz/filter", h.Filter).Methods("POST")
	api.HandleFunc("/quiz/export", h.Export).Methods("GET")
}

// ── Loading ─────────────────────────────────────────────

func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	// Allow headroom for the multipart envelope; the file itself is
	// checked against the limit by the service.
	r.Body = http.MaxBytesReader(w, r.Body, h.service.MaxUploadBytes()+1<<20)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: sheet.ErrFileTooLarge.Error()})
			return
		}
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid upload: " + err.Error()})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "file is required"})
		return
	}
	defer file.Close()

	resp, err := h.service.Upload(header.Filename, header.Size, file)
	if err != nil {
		log.Printf("[handler] Upload error: %v", err)
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Error parsing file: " + err.Error()})
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) NewQuiz(w http.ResponseWriter, r *http.Request) {
	h.service.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetTopics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.TopicsResponse{Topics: h.service.Topics()})
}

func (h *Handler) Filter(w http.ResponseWriter, r *http.Request) {
	var req models.FilterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	n, err := h.service.Filter(req.Topics, req.Shuffle)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"loaded": n})
}

// ── Session ─────────────────────────────────────────────

func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.State())
}

func (h *Handler) GetCurrent(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.CurrentView()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	started, err := h.service.Start()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"timer_started": started})
}

func (h *Handler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if strings.TrimSpace(req.Answer) == "" {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "answer is required"})
		return
	}

	resp, err := h.service.Submit(req.Index, req.Answer)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Navigate(w http.ResponseWriter, r *http.Request) {
	var req models.NavigateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	idx, err := h.service.Navigate(req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"current_index": idx})
}

func (h *Handler) Finish(w http.ResponseWriter, r *http.Request) {
	finished := h.service.Finish()
	writeJSON(w, http.StatusOK, map[string]bool{"completed": finished})
}

func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	h.service.Reset()
	writeJSON(w, http.StatusOK, h.service.State())
}

func (h *Handler) SetMode(w http.ResponseWriter, r *http.Request) {
	var req models.SetModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if err := h.service.SetMode(req.Mode); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, h.service.State())
}

func (h *Handler) ToggleFlag(w http.ResponseWriter, r *http.Request) {
	idx, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid question index"})
		return
	}

	flagged, err := h.service.ToggleFlag(idx)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"flagged": flagged})
}

// ── Review ──────────────────────────────────────────────

func (h *Handler) GetScore(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Score())
}

func (h *Handler) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Summary())
}

func (h *Handler) GetMistakes(w http.ResponseWriter, r *http.Request) {
	mistakes := h.service.Mistakes()
	writeJSON(w, http.StatusOK, models.MistakeListResponse{Mistakes: mistakes, Total: len(mistakes)})
}

func (h *Handler) MarkReviewed(w http.ResponseWriter, r *http.Request) {
	if err := h.service.MarkReviewed(mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) StartRecap(w http.ResponseWriter, r *http.Request) {
	items := h.service.StartRecap()
	writeJSON(w, http.StatusOK, models.MistakeListResponse{Mistakes: items, Total: len(items)})
}

func (h *Handler) ExitRecap(w http.ResponseWriter, r *http.Request) {
	h.service.ExitRecap()
	writeJSON(w, http.StatusOK, h.service.State())
}

// ── Downloads ───────────────────────────────────────────

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.service.Export(&buf); err != nil {
		log.Printf("[handler] Export error: %v", err)
		writeError(w, err)
		return
	}
	writeWorkbook(w, sheet.ResultsFilename(time.Now()), buf.Bytes())
}

func (h *Handler) DownloadTemplate(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := sheet.WriteTemplate(&buf); err != nil {
		log.Printf("[handler] DownloadTemplate error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to build template"})
		return
	}
	writeWorkbook(w, sheet.TemplateFilename, buf.Bytes())
}

func writeWorkbook(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", sheet.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// writeError maps service errors to status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrNoQuestions):
		status = http.StatusConflict
	case errors.Is(err, ErrIndexOutOfRange),
		errors.Is(err, ErrInvalidMode),
		errors.Is(err, ErrInvalidDirection),
		errors.Is(err, ErrNoMatchingTopics):
		status = http.StatusBadRequest
	case errors.Is(err, ErrMistakeNotFound):
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		log.Printf("[handler] unexpected error: %v", err)
	}
	writeJSON(w, status, models.ErrorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
