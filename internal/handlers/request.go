package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"

	"github.com/videotube/backend/internal/apperr"
	"github.com/videotube/backend/internal/logging"
	"github.com/videotube/backend/internal/repositories"
)

// multipartMemory is the part of a multipart body held in memory before
// spilling to disk.
const multipartMemory = 1 << 20

var (
	requestValidator = validator.New()
	textPolicy       = bluemonday.StrictPolicy()
)

// decodeAndValidate decodes a single JSON object into dst and runs its
// validate tags. Failures are reported as validation errors.
func decodeAndValidate(body io.Reader, dst any) error {
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return apperr.Validation("invalid JSON body")
	}
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return apperr.Validation("invalid JSON body")
	}

	return validate(dst)
}

func validate(dst any) error {
	err := requestValidator.Struct(dst)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) || len(validationErrors) == 0 {
		return apperr.Validation("invalid request payload")
	}

	first := validationErrors[0]
	field := lowerFirst(first.Field())
	switch first.Tag() {
	case "required", "required_without":
		return apperr.Validation(fmt.Sprintf("%s is required", field))
	case "email":
		return apperr.Validation("invalid email format")
	case "min":
		return apperr.Validation(fmt.Sprintf("%s must be at least %s characters", field, first.Param()))
	case "max":
		return apperr.Validation(fmt.Sprintf("%s must be at most %s characters", field, first.Param()))
	default:
		return apperr.Validation(fmt.Sprintf("invalid %s", field))
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// cleanText strips markup from user supplied text.
func cleanText(s string) string {
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(s)))
}

// pageRequest reads page, limit, sortBy and sortType from the query string.
func pageRequest(r *http.Request, defaultLimit int) repositories.PageRequest {
	query := r.URL.Query()
	page, _ := strconv.Atoi(query.Get("page"))
	limit, _ := strconv.Atoi(query.Get("limit"))
	return repositories.NewPageRequest(page, limit, query.Get("sortBy"), query.Get("sortType"), defaultLimit)
}

// pathParam returns a trimmed chi URL parameter.
func pathParam(r *http.Request, name string) string {
	return strings.TrimSpace(chi.URLParam(r, name))
}

// multipartUpload holds the form of a parsed multipart request along with any
// files copied to local temporary storage.
type multipartUpload struct {
	r   *http.Request
	dir string
}

// parseMultipart parses a multipart body capped at maxBytes.
func parseMultipart(w http.ResponseWriter, r *http.Request, maxBytes int64) (*multipartUpload, error) {
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if isBodyTooLarge(err) {
			return nil, apperr.Validation("upload exceeds maximum size")
		}
		return nil, apperr.Validation("invalid multipart upload")
	}
	dir, err := os.MkdirTemp("", "videotube-upload-*")
	if err != nil {
		return nil, apperr.Internal("could not stage upload", err)
	}
	return &multipartUpload{r: r, dir: dir}, nil
}

func isBodyTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "request body too large")
}

// Value returns a sanitized form field.
func (u *multipartUpload) Value(name string) string {
	return cleanText(u.r.FormValue(name))
}

// SaveFile copies the named file field to a local temporary file and returns
// its path. A missing optional field yields an empty path.
func (u *multipartUpload) SaveFile(field string, required bool) (string, error) {
	file, header, err := u.r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) && !required {
			return "", nil
		}
		return "", apperr.Validation(fmt.Sprintf("%s file is required", field))
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if name == "." || name == string(filepath.Separator) {
		name = field
	}
	dst, err := os.CreateTemp(u.dir, "*-"+name)
	if err != nil {
		return "", apperr.Internal("could not stage upload", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		return "", apperr.Internal("could not stage upload", err)
	}
	return dst.Name(), nil
}

// Cleanup removes the multipart spill files and any staged copies that the
// upload pipeline did not consume.
func (u *multipartUpload) Cleanup() {
	if u.r.MultipartForm != nil {
		_ = u.r.MultipartForm.RemoveAll()
	}
	if err := os.RemoveAll(u.dir); err != nil {
		logging.FromContext(u.r.Context()).Warn("remove staged uploads", "dir", u.dir, "error", err)
	}
}
