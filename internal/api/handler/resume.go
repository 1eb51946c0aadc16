package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/mockinterview/internal/api/response"
	"github.com/kiranshivaraju/mockinterview/internal/resume"
	"github.com/kiranshivaraju/mockinterview/pkg/models"
)

// multipartOverhead leaves room for form fields next to the file part.
const multipartOverhead = 1 << 20

// ResumeStore is the subset of store.Store the résumé handlers use.
type ResumeStore interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	SetResume(ctx context.Context, id uuid.UUID, resume, jd string) (bool, error)
}

type resumeResponse struct {
	Message        string `json:"message,omitempty"`
	ResumeText     string `json:"resume_text"`
	JobDescription string `json:"job_description"`
}

// NewUploadResumeHandler returns an http.HandlerFunc for POST /api/upload-resume.
// The résumé is stored once; later uploads return the stored values.
func NewUploadResumeHandler(users ResumeStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}
		user, err := users.GetUserByID(r.Context(), userID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if user.HasResume() {
			response.JSON(w, alreadyUploaded(user))
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, resume.MaxUploadBytes+multipartOverhead)
		if err := r.ParseMultipartForm(resume.MaxUploadBytes); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				response.Error(w, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "Resume file is too large", nil)
				return
			}
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Expected multipart form data", nil)
			return
		}

		jd := strings.TrimSpace(r.FormValue("job_description"))
		if jd == "" {
			response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "job_description is required", nil)
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Resume file required", nil)
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Could not read resume file", nil)
			return
		}
		text, err := resume.Extract(header.Filename, data)
		if err != nil {
			writeError(w, r, err)
			return
		}

		written, err := users.SetResume(r.Context(), userID, text, jd)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if !written {
			// a concurrent upload won
			user, err = users.GetUserByID(r.Context(), userID)
			if err != nil {
				writeError(w, r, err)
				return
			}
			response.JSON(w, alreadyUploaded(user))
			return
		}

		response.JSON(w, resumeResponse{
			Message:        "Resume and job description uploaded",
			ResumeText:     text,
			JobDescription: jd,
		})
	}
}

// NewGetResumeHandler returns an http.HandlerFunc for GET /api/get-resume-jd.
func NewGetResumeHandler(users ResumeStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}
		user, err := users.GetUserByID(r.Context(), userID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if !user.HasResume() {
			response.Error(w, http.StatusBadRequest, "RESUME_REQUIRED", "Resume or job description not uploaded", nil)
			return
		}
		response.JSON(w, resumeResponse{ResumeText: user.Resume(), JobDescription: user.JD()})
	}
}

func alreadyUploaded(user *models.User) resumeResponse {
	return resumeResponse{
		Message:        "Resume and job description already uploaded",
		ResumeText:     user.Resume(),
		JobDescription: user.JD(),
	}
}
