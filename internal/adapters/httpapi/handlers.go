package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/bnema/hrepl/internal/application"
	"github.com/bnema/hrepl/internal/domain"
	"github.com/bnema/hrepl/internal/ports"
)

type handler struct {
	queries  *application.QueryService
	sessions *application.SessionManager
	resolver ports.TargetResolver
	logger   *slog.Logger
}

func newHandler(queries *application.QueryService, sessions *application.SessionManager, resolver ports.TargetResolver, logger *slog.Logger) *handler {
	return &handler{
		queries:  queries,
		sessions: sessions,
		resolver: resolver,
		logger:   logger,
	}
}

func (h *handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type sessionResponse struct {
	Target            string    `json:"target"`
	Package           string    `json:"package"`
	Stanza            string    `json:"stanza"`
	Available         bool      `json:"available"`
	Starting          bool      `json:"starting"`
	StartedAt         time.Time `json:"started_at"`
	LoadedUnit        string    `json:"loaded_unit,omitempty"`
	LoadFailed        bool      `json:"load_failed,omitempty"`
	LoadedModules     []string  `json:"loaded_modules"`
	EverLoadedModules []string  `json:"ever_loaded_modules"`
	ObjectCodeEnabled bool      `json:"object_code_enabled"`
}

func (h *handler) Sessions(w http.ResponseWriter, _ *http.Request) {
	snapshots := h.sessions.Snapshots()

	sessions := make([]sessionResponse, 0, len(snapshots))
	for _, snapshot := range snapshots {
		entry := sessionResponse{
			Target:            string(snapshot.Target.ID),
			Package:           snapshot.Target.PackageName,
			Stanza:            string(snapshot.Target.Stanza),
			Available:         snapshot.Available,
			Starting:          snapshot.Starting,
			StartedAt:         snapshot.StartedAt,
			LoadedModules:     snapshot.Session.LoadedModules,
			EverLoadedModules: snapshot.Session.EverLoadedModules,
			ObjectCodeEnabled: snapshot.Session.ObjectCodeEnabled,
		}
		if snapshot.Session.Loaded != nil {
			entry.LoadedUnit = string(snapshot.Session.Loaded.Unit)
			entry.LoadFailed = snapshot.Session.Loaded.Failed
		}
		sessions = append(sessions, entry)
	}

	writeJSON(w, http.StatusOK, sessions)
}

type loadRequest struct {
	File     string `json:"file"`
	Changed  bool   `json:"changed"`
	Bytecode bool   `json:"bytecode"`
}

type loadResponse struct {
	Failed bool     `json:"failed"`
	Stdout []string `json:"stdout"`
	Stderr []string `json:"stderr,omitempty"`
}

func (h *handler) Load(w http.ResponseWriter, r *http.Request) {
	var req loadRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.File == "" {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}

	session, err := h.sessionFor(r, domain.Unit(req.File))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	result, err := session.Load(r.Context(), domain.Unit(req.File), req.Changed, req.Bytecode)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if result == nil {
		writeNoResult(w)
		return
	}

	writeJSON(w, http.StatusOK, loadResponse{
		Failed: result.Failed,
		Stdout: result.Output.Stdout,
		Stderr: result.Output.Stderr,
	})
}

type spanRequest struct {
	File        string `json:"file"`
	StartLine   int    `json:"start_line"`
	StartColumn int    `json:"start_column"`
	EndLine     int    `json:"end_line"`
	EndColumn   int    `json:"end_column"`
	Expression  string `json:"expression,omitempty"`
	Name        string `json:"name,omitempty"`
}

func (req spanRequest) selection() domain.Selection {
	return domain.Selection{
		StartLine:   req.StartLine,
		StartColumn: req.StartColumn,
		EndLine:     req.EndLine,
		EndColumn:   req.EndColumn,
	}
}

func (h *handler) TypeAt(w http.ResponseWriter, r *http.Request) {
	var req spanRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.File == "" || req.Expression == "" {
		writeError(w, http.StatusBadRequest, "file and expression are required")
		return
	}

	out, err := h.queries.FindTypeInfo(r.Context(), domain.Unit(req.File), req.selection(), req.Expression)
	h.writeQueryOutcome(w, out, err)
}

func (h *handler) LocAt(w http.ResponseWriter, r *http.Request) {
	var req spanRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.File == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "file and name are required")
		return
	}

	out, err := h.queries.FindLocationInfo(r.Context(), domain.Unit(req.File), req.selection(), req.Name)
	h.writeQueryOutcome(w, out, err)
}

type infoRequest struct {
	File   string `json:"file"`
	Module string `json:"module"`
	Name   string `json:"name"`
}

func (h *handler) Info(w http.ResponseWriter, r *http.Request) {
	var req infoRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.File == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "file and name are required")
		return
	}

	out, err := h.queries.FindInfo(r.Context(), domain.Unit(req.File), req.Module, req.Name)
	h.writeQueryOutcome(w, out, err)
}

type browseRequest struct {
	Module string `json:"module"`
	File   string `json:"file,omitempty"`
}

func (h *handler) Browse(w http.ResponseWriter, r *http.Request) {
	var req browseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Module == "" {
		writeError(w, http.StatusBadRequest, "module is required")
		return
	}

	var unit *domain.Unit
	if req.File != "" {
		u := domain.Unit(req.File)
		unit = &u
	}

	out, err := h.queries.GetModuleIdentifiers(r.Context(), req.Module, unit)
	h.writeQueryOutcome(w, out, err)
}

type restartRequest struct {
	Target string `json:"target,omitempty"`
	Force  bool   `json:"force"`
}

func (h *handler) Restart(w http.ResponseWriter, r *http.Request) {
	var req restartRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if req.Target == "" {
		if err := h.sessions.RestartAll(r.Context(), req.Force); err != nil {
			h.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "restarted"})
		return
	}

	session, ok := h.sessions.Existing(domain.TargetID(req.Target))
	if !ok {
		writeError(w, http.StatusNotFound, "no live session for target "+req.Target)
		return
	}
	if err := session.Restart(r.Context(), req.Force); err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "restarted"})
}

type clearRequest struct {
	Target   string `json:"target"`
	UnitOnly bool   `json:"unit_only"`
}

func (h *handler) Clear(w http.ResponseWriter, r *http.Request) {
	var req clearRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Target == "" {
		writeError(w, http.StatusBadRequest, "target is required")
		return
	}

	session, ok := h.sessions.Existing(domain.TargetID(req.Target))
	if !ok {
		writeError(w, http.StatusNotFound, "no live session for target "+req.Target)
		return
	}

	if req.UnitOnly {
		session.ClearLoadedModule()
	} else {
		session.ClearLoadedModules()
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (h *handler) sessionFor(r *http.Request, unit domain.Unit) (*application.Session, error) {
	target, err := h.resolver.TargetFor(unit)
	if err != nil {
		return nil, err
	}

	return h.sessions.Session(r.Context(), target)
}

func (h *handler) writeQueryOutcome(w http.ResponseWriter, out *domain.ReplOutput, err error) {
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if out == nil {
		writeNoResult(w)
		return
	}

	writeJSON(w, http.StatusOK, loadResponse{Stdout: out.Stdout, Stderr: out.Stderr})
}

func (h *handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrTargetNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnitPathUnavailable):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrReplNotReady), errors.Is(err, domain.ErrReplUnavailable):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
