package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/poiesic/scriptorium/core"
	"github.com/poiesic/scriptorium/filetype"
	"github.com/poiesic/scriptorium/search"
)

const (
	// multipartMemory is how much of an upload is buffered in memory before spilling to disk.
	multipartMemory = 32 << 20

	// multipartSlack covers the multipart envelope around the file part.
	multipartSlack = 1 << 20

	defaultListLimit = 100
)

// uploadDocument stores a file and schedules its processing.
// The form field "file" carries the content. Query parameters chunk_size,
// chunk_overlap, extract_tables, extract_images and ocr override the defaults.
func (s *Server) uploadDocument(w http.ResponseWriter, r *http.Request) {
	opts, err := s.processingOptions(r)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	maxSize, err := filetype.ParseSize(opts.MaxFileSize)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartSlack)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytes *http.MaxBytesError
		if !errors.As(err, &maxBytes) {
			err = &core.ValidationError{Field: "file", Reason: "malformed multipart form: " + err.Error()}
		}
		writeError(w, s.logger, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, s.logger, &core.ValidationError{Field: "file", Reason: "missing file part"})
		return
	}
	defer file.Close()

	buf, err := io.ReadAll(file)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	doc, err := s.deps.Ingester.Ingest(r.Context(), header.Filename, buf, opts)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	if err := s.deps.Ingester.Submit(doc.Id, opts, nil); err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"document": newDocumentView(doc)})
}

func (s *Server) processingOptions(r *http.Request) (core.ProcessingOptions, error) {
	opts := s.deps.Options
	q := r.URL.Query()

	var err error
	if v := q.Get("chunk_size"); v != "" {
		if opts.ChunkSize, err = strconv.Atoi(v); err != nil {
			return opts, &core.ValidationError{Field: "chunk_size", Reason: "must be an integer"}
		}
	}
	if v := q.Get("chunk_overlap"); v != "" {
		if opts.ChunkOverlap, err = strconv.Atoi(v); err != nil {
			return opts, &core.ValidationError{Field: "chunk_overlap", Reason: "must be an integer"}
		}
	}
	for name, dst := range map[string]*bool{
		"extract_tables": &opts.ExtractTables,
		"extract_images": &opts.ExtractImages,
		"ocr":            &opts.OCREnabled,
	} {
		if v := q.Get(name); v != "" {
			if *dst, err = strconv.ParseBool(v); err != nil {
				return opts, &core.ValidationError{Field: name, Reason: "must be a boolean"}
			}
		}
	}
	return opts, opts.Validate()
}

func (s *Server) listDocuments(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", defaultListLimit)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	docs, err := s.deps.Documents.List(r.Context(), limit)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	views := make([]*documentView, 0, len(docs))
	for _, d := range docs {
		views = append(views, newDocumentView(d))
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": views})
}

func (s *Server) getDocument(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	doc, err := s.deps.Documents.Get(r.Context(), id)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"document": newDocumentView(doc)})
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	job, err := s.deps.Jobs.Get(r.Context(), id)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"job": newJobView(job)})
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	limit, err := intParam(r, "limit", search.DefaultLimit)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	docID, err := idParam(r, "document")
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	threshold, err := floatParam(r, "threshold", 0)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	resp, err := s.deps.Searcher.Search(r.Context(), query, search.SearchOptions{
		Limit:      limit,
		DocumentID: docID,
		Threshold:  threshold,
	})
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, searchView{
		Query:           query,
		Results:         newResultViews(resp.Results),
		ExecutionTimeMs: resp.ExecutionTime.Milliseconds(),
	})
}

func (s *Server) hybridSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	limit, err := intParam(r, "limit", search.DefaultLimit)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	docID, err := idParam(r, "document")
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	alpha, err := floatParam(r, "alpha", search.DefaultAlpha)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	resp, err := s.deps.Searcher.HybridSearch(r.Context(), query, search.HybridOptions{
		Limit:      limit,
		DocumentID: docID,
		Alpha:      alpha,
	})
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, searchView{
		Query:           query,
		Results:         newResultViews(resp.Results),
		ExecutionTimeMs: resp.ExecutionTime.Milliseconds(),
	})
}

func pathID(r *http.Request) (core.ID, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, &core.ValidationError{Field: "id", Reason: "must be a positive integer"}
	}
	return core.ID(id), nil
}

func idParam(r *http.Request, name string) (core.ID, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, &core.ValidationError{Field: name, Reason: "must be a positive integer"}
	}
	return core.ID(id), nil
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, &core.ValidationError{Field: name, Reason: "must be a non-negative integer"}
	}
	return n, nil
}

func floatParam(r *http.Request, name string, def float32) (float32, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(raw, 32)
	if err != nil {
		return 0, &core.ValidationError{Field: name, Reason: "must be a number"}
	}
	return float32(f), nil
}
