package producer

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/NordCoder/Notewire/internal/domain/notification"
	"github.com/NordCoder/Notewire/internal/domain/settings"
	"github.com/NordCoder/Notewire/internal/obs"
)

const maxBodyBytes = 1 << 20

type Server struct {
	log      *zap.Logger
	uc       *Usecase
	settings settings.Repo
}

func NewServer(log *zap.Logger, uc *Usecase, st settings.Repo) *Server {
	return &Server{log: log.With(zap.String("component", "producer.http")), uc: uc, settings: st}
}

// Routes mounts the API on mux, each route wrapped in a server span.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.Handle("POST /v1/notifications", obs.HTTPHandler(http.HandlerFunc(s.createNotification), "notifications.create"))
	mux.Handle("GET /v1/users/{userID}/settings", obs.HTTPHandler(http.HandlerFunc(s.getSettings), "settings.get"))
	mux.Handle("PATCH /v1/users/{userID}/settings", obs.HTTPHandler(http.HandlerFunc(s.patchSettings), "settings.patch"))
}

func (s *Server) createNotification(w http.ResponseWriter, r *http.Request) {
	var spec Spec
	if err := decode(w, r, &spec); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.uc.Create(r.Context(), spec)
	switch {
	case errors.Is(err, notification.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		obs.WithTrace(r.Context(), s.log).Error("create notification", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	code := http.StatusCreated
	switch {
	case res.Suppressed:
		code = http.StatusAccepted
	case res.Duplicate:
		code = http.StatusOK
	}
	writeJSON(w, code, res)
}

func (s *Server) getSettings(w http.ResponseWriter, r *http.Request) {
	st, err := s.settings.Get(r.Context(), r.PathValue("userID"))
	if err != nil {
		obs.WithTrace(r.Context(), s.log).Error("get settings", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type settingsPatch struct {
	Enabled settings.Patch `json:"enabled"`
}

func (s *Server) patchSettings(w http.ResponseWriter, r *http.Request) {
	var body settingsPatch
	if err := decode(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	for t := range body.Enabled {
		if !t.Valid() {
			writeError(w, http.StatusBadRequest, "unknown notification type: "+string(t))
			return
		}
	}

	st, err := s.settings.Update(r.Context(), r.PathValue("userID"), body.Enabled)
	if err != nil {
		obs.WithTrace(r.Context(), s.log).Error("update settings", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
