package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"

	"cashflow/internal/core"
	"cashflow/internal/log"
)

// cellPrefix marks grid inputs; the rest of the form key is the column name.
const cellPrefix = "cell."

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sid := sessionID(w, r)

	snap, agg, err := s.tables.Timeline(ctx, sid)
	if err != nil {
		s.serverError(w, r, "Failed to load session timeline", err, log.OpRender)
		return
	}

	data := s.buildPage(snap, agg, popFlash(w, r))

	var buf bytes.Buffer
	if s.templates == nil {
		http.Error(w, "templates unavailable", http.StatusInternalServerError)
		return
	}
	if err := s.templates.ExecuteTemplate(&buf, "index.html", data); err != nil {
		s.serverError(w, r, "Failed to render page", err, log.OpRender)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx)
	sid := sessionID(w, r)

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			atomic.AddInt64(&s.metrics.oversizedUploads, 1)
			logger.WarnContext(ctx, "Upload too large", log.FieldSessionID, sid, "limit", s.maxUploadBytes)
			setFlash(w, "error", fmt.Sprintf("File is too large: the limit is %d bytes", s.maxUploadBytes))
		} else {
			setFlash(w, "error", "Invalid upload form")
		}
		redirectHome(w, r)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		setFlash(w, "error", "Choose a CSV or JSON file to upload")
		redirectHome(w, r)
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		s.serverError(w, r, "Failed to read uploaded file", err, log.OpLoad)
		return
	}

	schema, ok := s.formSchema(w, r)
	if !ok {
		return
	}

	filename := sanitizeInput(header.Filename)
	snap, err := s.tables.Upload(ctx, sid, filename, data, schema)
	switch {
	case err != nil && snap.Version == 0:
		s.serverError(w, r, "Failed to store uploaded table", err, log.OpLoad)
		return
	case err != nil:
		// The session now holds an empty table; show the loader's message as is.
		setFlash(w, "error", err.Error())
	default:
		setFlash(w, "ok", fmt.Sprintf("Loaded %d rows from %s", snap.Table.Len(), filename))
	}
	redirectHome(w, r)
}

func (s *Server) handleAddRow(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sid := sessionID(w, r)

	fields, err := formCells(r)
	if err != nil {
		setFlash(w, "error", "Invalid form submission")
		redirectHome(w, r)
		return
	}

	if blankCells(fields) {
		_, err = s.tables.AddRow(ctx, sid, core.Row{})
	} else {
		_, err = s.tables.AppendRow(ctx, sid, fields)
	}
	if s.editFailed(w, r, err, log.OpAdd) {
		return
	}
	redirectHome(w, r)
}

func (s *Server) handleUpdateRow(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sid := sessionID(w, r)

	index, ok := rowIndex(w, r)
	if !ok {
		return
	}
	fields, err := formCells(r)
	if err != nil {
		setFlash(w, "error", "Invalid form submission")
		redirectHome(w, r)
		return
	}

	_, err = s.tables.UpdateRow(ctx, sid, index, fields)
	if s.editFailed(w, r, err, log.OpUpdate) {
		return
	}
	redirectHome(w, r)
}

func (s *Server) handleDeleteRow(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sid := sessionID(w, r)

	index, ok := rowIndex(w, r)
	if !ok {
		return
	}
	_, err := s.tables.DeleteRow(ctx, sid, index)
	if s.editFailed(w, r, err, log.OpDelete) {
		return
	}
	redirectHome(w, r)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sid := sessionID(w, r)

	if err := r.ParseForm(); err != nil {
		setFlash(w, "error", "Invalid form submission")
		redirectHome(w, r)
		return
	}
	schema, ok := s.formSchema(w, r)
	if !ok {
		return
	}
	if _, err := s.tables.Reset(ctx, sid, schema); err != nil {
		s.serverError(w, r, "Failed to reset table", err, log.OpReset)
		return
	}
	setFlash(w, "ok", "Started a new "+schema.Name+" table")
	redirectHome(w, r)
}

func (s *Server) handleExport(format core.ExportFormat) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sid := sessionID(w, r)

		data, err := s.tables.Export(ctx, sid, format)
		if err != nil {
			s.serverError(w, r, "Failed to export table", err, log.OpExport)
			return
		}

		log.FromContext(ctx).InfoContext(ctx, "Table exported",
			log.FieldOperation, log.OpExport, log.FieldSessionID, sid, log.FieldFormat, format.Ext)

		w.Header().Set("Content-Type", format.ContentType+"; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", format.Filename))
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		_, _ = w.Write(data)
	}
}

func (s *Server) handleAPITimeline(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sid := sessionID(w, r)

	snap, agg, err := s.tables.Timeline(ctx, sid)
	if err != nil {
		s.serverError(w, r, "Failed to load session timeline", err, log.OpRender)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if err := json.NewEncoder(w).Encode(newTimelineResponse(snap.Version, agg)); err != nil {
		log.FromContext(ctx).WarnContext(ctx, "Failed to write timeline response", log.FieldError, err)
	}
}

// formSchema resolves the optional "schema" form value. An unknown name is
// reported to the user and ok is false.
func (s *Server) formSchema(w http.ResponseWriter, r *http.Request) (core.Schema, bool) {
	name := sanitizeInput(r.FormValue("schema"))
	if name == "" {
		return s.tables.DefaultSchema(), true
	}
	schema, err := core.SchemaByName(name)
	if err != nil {
		setFlash(w, "error", err.Error())
		redirectHome(w, r)
		return core.Schema{}, false
	}
	return schema, true
}

// editFailed reports err to the user when it is an edit error, or as a
// server error otherwise. It returns false when err is nil.
func (s *Server) editFailed(w http.ResponseWriter, r *http.Request, err error, op string) bool {
	if err == nil {
		return false
	}
	var dateErr *core.MalformedDateError
	switch {
	case errors.As(err, &dateErr):
		setFlash(w, "error", dateErr.Error())
		redirectHome(w, r)
	case errors.Is(err, core.ErrRowIndex):
		setFlash(w, "error", "That row no longer exists")
		redirectHome(w, r)
	default:
		s.serverError(w, r, "Failed to save table edit", err, op)
	}
	return true
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, msg string, err error, op string) {
	ctx := r.Context()
	log.FromContext(ctx).LogError(ctx, msg, err, op, nil)
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}

// formCells collects the grid inputs keyed by column name.
func formCells(r *http.Request) (map[string]string, error) {
	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	fields := make(map[string]string)
	for key, values := range r.PostForm {
		col, ok := strings.CutPrefix(key, cellPrefix)
		if !ok || strings.TrimSpace(col) == "" || len(values) == 0 {
			continue
		}
		fields[col] = sanitizeInput(values[0])
	}
	return fields, nil
}

func blankCells(fields map[string]string) bool {
	for _, v := range fields {
		if v != "" {
			return false
		}
	}
	return true
}

func rowIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil || index < 0 {
		http.Error(w, "invalid row index", http.StatusBadRequest)
		return 0, false
	}
	return index, true
}
