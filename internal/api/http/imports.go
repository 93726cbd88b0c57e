package http

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/fitness-records/internal/records"
	"github.com/mind-engage/fitness-records/internal/sheet"
	"github.com/mind-engage/fitness-records/internal/storage"
)

type uploadForm struct {
	AcademicYear string `validate:"required,max=20"`
	Overwrite    bool
}

// POST /import/upload
//
// Multipart form: file (.xlsx or .csv), academicYear, overwrite.
// Row failures are part of the 200 response; only unreadable input fails.
func UploadImportHandler(svc *records.Service, bs storage.BlobStore, maxBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// leave room for the multipart envelope around the file
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+1<<20)
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, sheet.ErrFileTooLarge)
				return
			}
			http.Error(w, "bad multipart form: "+err.Error(), http.StatusBadRequest)
			return
		}
		form := uploadForm{AcademicYear: strings.TrimSpace(r.FormValue("academicYear"))}
		form.Overwrite, _ = strconv.ParseBool(r.FormValue("overwrite"))
		if err := validate.Struct(form); err != nil {
			writeError(w, err)
			return
		}

		f, hdr, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "file required", http.StatusBadRequest)
			return
		}
		defer f.Close()
		if err := sheet.CheckFile(hdr.Filename, hdr.Size, maxBytes); err != nil {
			writeError(w, err)
			return
		}
		data, err := io.ReadAll(f)
		if err != nil {
			http.Error(w, "read upload: "+err.Error(), http.StatusBadRequest)
			return
		}
		rows, err := sheet.Read(bytes.NewReader(data), hdr.Filename)
		if err != nil {
			writeError(w, err)
			return
		}

		var key string
		if bs != nil {
			if key, err = bs.Put(storage.ImportKey(form.AcademicYear, hdr.Filename), bytes.NewReader(data)); err != nil {
				http.Error(w, "store error: "+err.Error(), http.StatusInternalServerError)
				return
			}
		}

		res, err := svc.Import(r.Context(), records.ImportRequest{
			AcademicYear: form.AcademicYear,
			Overwrite:    form.Overwrite,
			FileName:     hdr.Filename,
			FileKey:      key,
			Rows:         rows,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// GET /import/template
func TemplateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		if err := sheet.WriteTemplate(&buf); err != nil {
			http.Error(w, "template: "+err.Error(), http.StatusInternalServerError)
			return
		}
		serveXLSX(w, "import_template.xlsx", buf.Bytes())
	}
}

// GET /import/history?page=&pageSize=
func ImportHistoryHandler(svc *records.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, size := paging(r)
		list, total, err := svc.ListImports(r.Context(), size, (page-1)*size)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, Page[records.ImportRecord]{Items: list, Total: total, Page: page, PageSize: size})
	}
}

// GET /import/history/{importID}/file returns the archived upload of an import.
func ImportFileHandler(svc *records.Service, bs storage.BlobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := svc.GetImport(r.Context(), chi.URLParam(r, "importID"))
		if err != nil {
			writeError(w, err)
			return
		}
		if bs == nil || rec.FileKey == "" {
			http.Error(w, "upload was not archived", http.StatusNotFound)
			return
		}
		rc, err := bs.Get(rec.FileKey)
		if errors.Is(err, fs.ErrNotExist) {
			http.Error(w, "archived file missing", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, "store error: "+err.Error(), http.StatusInternalServerError)
			return
		}
		defer rc.Close()

		ct := "text/csv; charset=utf-8"
		if format, _ := sheet.DetectFormat(rec.FileName); format == sheet.FormatXLSX {
			ct = xlsxContentType
		}
		w.Header().Set("Content-Type", ct)
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": rec.FileName}))
		_, _ = io.Copy(w, rc)
	}
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func serveXLSX(w http.ResponseWriter, name string, b []byte) {
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(b)))
	_, _ = w.Write(b)
}
