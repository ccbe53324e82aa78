package api

import (
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/starford/fiche/internal/fichesvc"
	"github.com/starford/fiche/internal/imaging"
	"github.com/starford/fiche/internal/models"
)

func readPhotos(r *http.Request) ([]*models.Photo, error) {
	if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
		return nil, err
	}
	files := r.MultipartForm.File["photos"]
	photos := make([]*models.Photo, 0, len(files))
	for _, fh := range files {
		raw, err := readPart(fh)
		if err != nil {
			return nil, err
		}
		photos = append(photos, &models.Photo{Name: fh.Filename, Raw: raw})
	}
	return photos, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// Generate handles POST /api/generate: multipart photos plus optional
// subject and style fields. The generated document is returned but not
// persisted; the client saves it explicitly.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	photos, err := readPhotos(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid multipart body"))
		return
	}
	if len(photos) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("at least one photo is required"))
		return
	}

	subject := r.FormValue("subject")
	if subject != "" && !models.ValidSubject(subject) {
		writeJSON(w, http.StatusBadRequest, errorBody("unknown subject"))
		return
	}
	fontSize, _ := strconv.Atoi(r.FormValue("fontSize"))

	settings, err := h.store.Settings()
	if err != nil {
		writeError(w, err)
		return
	}
	// Fallback chain: request, then stored settings, then config file.
	// The service applies its own floor when everything is unset.
	if fontSize <= 0 {
		fontSize = settings.DefaultFontSize
	}
	if fontSize <= 0 {
		fontSize = h.defaults.FontSize
	}
	if subject == "" {
		subject = string(settings.DefaultSubject)
	}
	if subject == "" {
		subject = string(h.defaults.Subject)
	}

	opts := fichesvc.Options{
		Subject:     models.Subject(subject),
		MainColor:   r.FormValue("mainColor"),
		AccentColor: r.FormValue("accentColor"),
		FontSize:    fontSize,
	}
	doc, err := h.svc.GenerateCourse(r.Context(), photos, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// Classify handles POST /api/classify: one multipart photo in, the
// detected subject and its default colors out.
func (h *Handler) Classify(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	photos, err := readPhotos(r)
	if err != nil || len(photos) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("a photo is required"))
		return
	}

	payload, err := imaging.Compress(photos[0].Raw)
	if err != nil {
		writeError(w, err)
		return
	}
	subject := h.svc.Detect(r.Context(), payload)
	colors := subject.Colors()
	writeJSON(w, http.StatusOK, SubjectInfo{Name: subject, Main: colors.Main, Accent: colors.Accent})
}
