package blob

import (
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const blobRoute = "/blobs/"

// Handler serves blobs of a FileStore at GET /blobs/{key}.
func Handler(s *FileStore, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := mux.NewRouter()
	r.HandleFunc(blobRoute+"{key:.+}", func(w http.ResponseWriter, req *http.Request) {
		key := mux.Vars(req)["key"]
		f, err := s.Open(key)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				http.NotFound(w, req)
				return
			}
			logger.Warn("open blob failed", zap.String("key", key), zap.Error(err))
			http.Error(w, "bad blob key", http.StatusBadRequest)
			return
		}
		defer func() { _ = f.Close() }()

		head := make([]byte, sniffLen)
		n, err := io.ReadFull(f, head)
		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
			http.Error(w, "read blob", http.StatusInternalServerError)
			return
		}
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			http.Error(w, "read blob", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", contentType(head[:n]))
		info, err := f.Stat()
		if err != nil {
			http.Error(w, "stat blob", http.StatusInternalServerError)
			return
		}
		http.ServeContent(w, req, "", info.ModTime(), f)
	}).Methods(http.MethodGet, http.MethodHead)
	return r
}
