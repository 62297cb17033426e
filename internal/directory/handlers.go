package directory

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/clive/kiosk-go/internal/identity"
)

type healthResponse struct {
	Status   string `json:"status"`
	Students int    `json:"students"`
	Error    string `json:"error,omitempty"`
}

type StudentHandler struct {
	students *StudentStore
	logger   *slog.Logger
}

func NewStudentHandler(students *StudentStore, logger *slog.Logger) *StudentHandler {
	return &StudentHandler{students: students, logger: logger}
}

func (h *StudentHandler) Health(w http.ResponseWriter, r *http.Request) {
	count, err := h.students.Count()
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "degraded", Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Students: count})
}

// Get answers in the shape the kiosk's identity client decodes
func (h *StudentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, err := h.students.Get(id)
	if err != nil {
		h.logger.Error("student lookup failed", "request_id", RequestIDFrom(r.Context()), "error", err)
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "student not found")
		return
	}

	writeJSON(w, http.StatusOK, identity.StudentResponse{
		Success: true,
		Data: &identity.StudentData{
			OkulNo: identity.FlexString(rec.ID),
			Ad:     rec.GivenName,
			Soyad:  rec.FamilyName,
			Sinif:  identity.FlexString(rec.ClassName),
		},
	})
}
