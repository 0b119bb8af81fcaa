package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"raglab/extract"
	"raglab/repository"
)

// fileTypes maps upload extensions to pipeline file types.
var fileTypes = map[string]string{
	".txt":  repository.FileTypeTxt,
	".md":   repository.FileTypeMd,
	".pdf":  repository.FileTypePdf,
	".html": repository.FileTypeHtml,
	".htm":  repository.FileTypeHtml,
}

func fileTypeForName(filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	ft, ok := fileTypes[ext]
	if !ok {
		return "", fmt.Errorf("file type %q is not supported (allowed: .txt, .md, .pdf, .html)", ext)
	}
	return ft, nil
}

// documentView is a Document for list and upload responses: the full text is
// swapped for a short preview.
type documentView struct {
	repository.Document
	TextPreview string `json:"text_preview,omitempty"`
}

const previewRunes = 200

func newDocumentView(doc *repository.Document) documentView {
	v := documentView{Document: *doc}
	v.Text = ""
	if runes := []rune(doc.Text); len(runes) > previewRunes {
		v.TextPreview = string(runes[:previewRunes]) + "..."
	} else {
		v.TextPreview = doc.Text
	}
	return v
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to parse upload form", err)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "upload needs a file field", err)
		return
	}
	defer file.Close()

	fileType, err := fileTypeForName(header.Filename)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "unsupported file type", err)
		return
	}

	doc := repository.NewDocument(filepath.Base(header.Filename), "", header.Size, fileType)
	savePath, err := s.saveUpload(doc.ID, doc.Filename, file)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to save upload", err)
		return
	}
	doc.FilePath = savePath

	if err := s.store.CreateDocument(r.Context(), doc); err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to store document", err)
		return
	}

	res, extractErr := s.extractor.ExtractFile(savePath, fileType)
	if err := s.completeDocument(r.Context(), doc, res, extractErr); err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to process document", err)
		return
	}

	s.log.Info("document_uploaded",
		zap.String("document_id", doc.ID),
		zap.String("filename", doc.Filename),
		zap.String("file_type", doc.FileType))
	s.respond(w, http.StatusCreated, "file uploaded and processed", map[string]any{
		"document":          newDocumentView(doc),
		"extraction_method": res.Method,
	})
}

type ingestURLRequest struct {
	URL string `json:"url"`
}

func (s *Server) handleIngestURL(w http.ResponseWriter, r *http.Request) {
	var req ingestURLRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request", err)
		return
	}
	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		s.respondError(w, http.StatusBadRequest, "url is required")
		return
	}
	if u, err := url.Parse(req.URL); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		s.respondError(w, http.StatusBadRequest, "url must be absolute http or https", err)
		return
	}

	page, err := s.fetcher.Fetch(r.Context(), req.URL)
	if err != nil {
		s.respondError(w, http.StatusBadGateway, "failed to fetch url", err)
		return
	}

	doc := repository.NewDocument(page.SuggestedFilename(), "", int64(len(page.Body)), page.FileType())
	doc.SourceURL = page.URL

	savePath, err := s.saveUpload(doc.ID, doc.Filename, bytes.NewReader(page.Body))
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to save fetched page", err)
		return
	}
	doc.FilePath = savePath

	if err := s.store.CreateDocument(r.Context(), doc); err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to store document", err)
		return
	}

	var res *extract.Result
	var extractErr error
	if doc.FileType == repository.FileTypeHtml {
		res, extractErr = s.extractor.ExtractHTML(page.Body, page.URL)
	} else {
		res, extractErr = s.extractor.ExtractFile(savePath, doc.FileType)
	}
	if err := s.completeDocument(r.Context(), doc, res, extractErr); err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to process document", err)
		return
	}

	s.log.Info("url_ingested",
		zap.String("document_id", doc.ID),
		zap.String("url", page.URL))
	s.respond(w, http.StatusCreated, "url ingested", map[string]any{
		"document":          newDocumentView(doc),
		"extraction_method": res.Method,
	})
}

// saveUpload writes src under the upload dir as <id>_<filename>.
func (s *Server) saveUpload(id, filename string, src io.Reader) (string, error) {
	if err := os.MkdirAll(s.uploadDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create upload dir: %w", err)
	}
	path := filepath.Join(s.uploadDir, id+"_"+filename)
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return path, nil
}

// completeDocument records the extraction outcome on doc. A failed
// extraction leaves the document stored in the error state and returns the
// extraction error.
func (s *Server) completeDocument(ctx context.Context, doc *repository.Document, res *extract.Result, extractErr error) error {
	if extractErr != nil {
		doc.Status = repository.StatusError
		doc.ErrorMessage = extractErr.Error()
		if err := s.store.UpdateDocument(ctx, doc); err != nil {
			s.log.Warn("document_error_state_not_saved",
				zap.String("document_id", doc.ID), zap.Error(err))
		}
		return extractErr
	}

	doc.Text = res.Text
	doc.CharCount = res.Stats.CharCount
	doc.WordCount = res.Stats.WordCount
	doc.EstimatedTokens = res.Stats.EstimatedTokens
	doc.Status = repository.StatusReady
	if err := s.store.UpdateDocument(ctx, doc); err != nil {
		return fmt.Errorf("failed to save extracted text: %w", err)
	}
	return nil
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.store.Documents(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to list documents", err)
		return
	}
	views := make([]documentView, 0, len(docs))
	for _, doc := range docs {
		views = append(views, newDocumentView(doc))
	}
	s.respond(w, http.StatusOK, "documents retrieved", map[string]any{
		"documents": views,
		"count":     len(views),
	})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.store.Document(r.Context(), r.PathValue("id"))
	if err != nil {
		s.respondFailure(w, err, "failed to load document", http.StatusInternalServerError)
		return
	}
	s.respond(w, http.StatusOK, "document retrieved", doc)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	doc, err := s.store.Document(r.Context(), id)
	if err != nil {
		s.respondFailure(w, err, "failed to load document", http.StatusInternalServerError)
		return
	}
	if err := s.store.DeleteDocument(r.Context(), id); err != nil {
		s.respondFailure(w, err, "failed to delete document", http.StatusInternalServerError)
		return
	}
	if doc.FilePath != "" {
		if err := os.Remove(doc.FilePath); err != nil && !os.IsNotExist(err) {
			s.log.Warn("upload_file_not_removed",
				zap.String("path", doc.FilePath), zap.Error(err))
		}
	}
	s.respond(w, http.StatusOK, "document deleted", map[string]any{"id": id})
}
