package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/akolanti/PortfolioChat/internal/adapter"
	"github.com/akolanti/PortfolioChat/internal/adapter/utils"
	"github.com/akolanti/PortfolioChat/internal/api"
	"github.com/akolanti/PortfolioChat/internal/domain/jobModel"
	"github.com/akolanti/PortfolioChat/internal/rag/ingest"
	"github.com/akolanti/PortfolioChat/internal/rag/persona"
)

// multipart overhead allowed on top of the file limit
const formOverhead = 1 << 20

// PostIngestHandler godoc
// @Summary      Ingest one document
// @Description  Extracts, chunks, embeds and stores a PDF, DOCX, text or image file. Re-ingesting a name replaces it.
// @Tags         Ingestion
// @Accept       multipart/form-data
// @Produce      json
// @Param        file           formData  file    true   "The document to ingest"
// @Param        document_name  formData  string  false  "Name to index under, defaults to the file name"
// @Success      200  {object}  ingest.Result
// @Failure      400  {object}  api.ErrorResponse  "Missing file, unsupported type or too large"
// @Failure      503  {object}  api.ErrorResponse  "Embedding backend or store unavailable"
// @Router       /admin/ingest [post]
func PostIngestHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes+formOverhead)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "", "File too large or bad request")
		return
	}
	defer removeMultipartForm(r)

	fileReader, fileMetadata, err := r.FormFile("file")
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "", "file is required")
		return
	}
	defer fileReader.Close()

	docName := strings.TrimSpace(r.FormValue("document_name"))
	if docName == "" {
		docName = fileMetadata.Filename
	}
	data, err := io.ReadAll(fileReader)
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, docName, "Could not read file")
		return
	}

	res, err := _ragService.IngestDocument(r.Context(), ingest.FileInput{
		Name:     docName,
		MimeType: fileMetadata.Header.Get("Content-Type"),
		Data:     data,
	})
	if err != nil {
		writeAdminError(w, r, docName, err)
		return
	}
	logRH.WithContext(r.Context()).Info("Document ingested", "name", res.DocumentName, "chunks", res.Stats.Chunks)
	writeJsonResponse(w, http.StatusOK, res)
}

// PostIngestBatchHandler godoc
// @Summary      Queue a batch of documents for ingestion
// @Description  Spools the uploaded files and queues one job. Each file succeeds or fails on its own.
// @Tags         Ingestion
// @Accept       multipart/form-data
// @Produce      json
// @Param        files  formData  file  true  "Documents to ingest"
// @Success      202  {object}  api.InitJobResponse
// @Failure      400  {object}  api.ErrorResponse
// @Failure      500  {object}  api.ErrorResponse
// @Router       /admin/ingest/batch [post]
func PostIngestBatchHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	log := logRH.WithContext(r.Context())

	targetDir, err := getTargetDirectory()
	if err != nil {
		log.Error("Couldn't get target directory", "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "", "Storage error")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes+formOverhead)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "", "Files too large or bad request")
		return
	}
	defer removeMultipartForm(r)

	headers := append(r.MultipartForm.File["files"], r.MultipartForm.File["files[]"]...)
	if len(headers) == 0 {
		WriteErrorResponse(w, http.StatusBadRequest, "", "files are required")
		return
	}

	jobId := utils.GetNewUUID()
	files := make([]jobModel.IngestFile, 0, len(headers))
	for i, h := range headers {
		path := filepath.Join(targetDir, fmt.Sprintf("%s-%d-%s", jobId, i, filepath.Base(h.Filename)))
		if err := spoolFile(h, path); err != nil {
			log.Error("Couldn't spool upload", "file", h.Filename, "error", err)
			for _, f := range files {
				_ = os.Remove(f.Path)
			}
			WriteErrorResponse(w, http.StatusInternalServerError, jobId, "Write error")
			return
		}
		files = append(files, jobModel.IngestFile{
			DocumentName: h.Filename,
			Path:         path,
			MimeType:     h.Header.Get("Content-Type"),
			Status:       jobModel.FileStatusPending,
		})
	}

	CreateBatchJob(r.Context(), jobId, files)
	writeJsonResponse(w, http.StatusAccepted, adapter.ToInitJobResponse(jobId))
}

func spoolFile(h *multipart.FileHeader, path string) error {
	src, err := h.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

func removeMultipartForm(r *http.Request) {
	if r.MultipartForm != nil {
		_ = r.MultipartForm.RemoveAll()
	}
}

// ListDocumentsHandler godoc
// @Summary      List indexed documents
// @Tags         Documents
// @Produce      json
// @Success      200  {object}  api.DocumentsResponse
// @Failure      503  {object}  api.ErrorResponse
// @Router       /admin/documents [get]
func ListDocumentsHandler(w http.ResponseWriter, r *http.Request) {
	docs, err := _ragService.ListDocuments(r.Context())
	if err != nil {
		writeAdminError(w, r, "", err)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToDocumentsResponse(docs))
}

// DeleteDocumentHandler godoc
// @Summary      Delete one document and all of its chunks
// @Tags         Documents
// @Produce      json
// @Param        name  path      string  true  "Document name"
// @Success      200   {object}  api.DeleteResponse
// @Failure      503   {object}  api.ErrorResponse
// @Router       /admin/documents/{name} [delete]
func DeleteDocumentHandler(w http.ResponseWriter, r *http.Request) {
	name := utils.GetChiURLParam(r, "name")
	deleted, err := _ragService.DeleteDocument(r.Context(), name)
	if err != nil {
		writeAdminError(w, r, name, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, api.DeleteResponse{Deleted: deleted})
}

// ClearDocumentsHandler godoc
// @Summary      Delete every indexed document
// @Tags         Documents
// @Produce      json
// @Success      200  {object}  api.ClearResponse
// @Failure      503  {object}  api.ErrorResponse
// @Router       /admin/documents [delete]
func ClearDocumentsHandler(w http.ResponseWriter, r *http.Request) {
	if err := _ragService.ClearDocuments(r.Context()); err != nil {
		writeAdminError(w, r, "", err)
		return
	}
	writeJsonResponse(w, http.StatusOK, api.ClearResponse{Cleared: true})
}

// GetPersonaHandler godoc
// @Summary      Current persona
// @Tags         Persona
// @Produce      json
// @Success      200  {object}  persona.Persona
// @Failure      404  {object}  api.ErrorResponse
// @Router       /admin/persona [get]
func GetPersonaHandler(w http.ResponseWriter, r *http.Request) {
	p := _ragService.Persona()
	if p == nil {
		WriteErrorResponse(w, http.StatusNotFound, "", "persona not loaded")
		return
	}
	writeJsonResponse(w, http.StatusOK, p)
}

// PutPersonaHandler godoc
// @Summary      Replace the persona
// @Description  Validates the persona, backs up the current file and writes the new one.
// @Tags         Persona
// @Accept       json
// @Produce      json
// @Param        persona  body      persona.Persona  true  "Persona"
// @Success      200      {object}  persona.Persona
// @Failure      400      {object}  api.ErrorResponse
// @Router       /admin/persona [put]
func PutPersonaHandler(w http.ResponseWriter, r *http.Request) {
	var p persona.Persona
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, formOverhead)).Decode(&p); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "", "persona is not valid JSON")
		return
	}
	if err := _ragService.UpdatePersona(r.Context(), &p); err != nil {
		writeAdminError(w, r, "", err)
		return
	}
	writeJsonResponse(w, http.StatusOK, &p)
}

// RestorePersonaHandler godoc
// @Summary      Restore the persona from its backup
// @Tags         Persona
// @Produce      json
// @Success      200  {object}  persona.Persona
// @Failure      404  {object}  api.ErrorResponse  "No backup"
// @Router       /admin/persona/restore [post]
func RestorePersonaHandler(w http.ResponseWriter, r *http.Request) {
	p, err := _ragService.RestorePersona(r.Context())
	if err != nil {
		writeAdminError(w, r, "", err)
		return
	}
	writeJsonResponse(w, http.StatusOK, p)
}
