package api

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"hr-admin-api/internal/blob"

	"github.com/go-chi/chi/v5"
)

// maxAvatarSize caps uploaded avatar images at 5 MiB.
const maxAvatarSize = 5 << 20

// UploadAvatarHandler streams a multipart avatar upload into the blob store.
// The file part is consumed as it arrives, which may be before the username
// field is seen; the owning account is therefore attached to the object as a
// separate, best-effort metadata merge after the write has committed.
//
// @Summary      Upload an avatar image
// @Accept       multipart/form-data
// @Produce      json
// @Tags         users
// @Param        username  formData  string  true  "Owning username"
// @Param        avatar    formData  file    true  "Image file, at most 5 MiB"
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  map[string]string "Not an image, too large, or missing part"
// @Failure      404  {object}  map[string]string "Unknown username"
// @Router       /users/upload-avatar [post]
func (s *Server) UploadAvatarHandler(w http.ResponseWriter, r *http.Request) {
	// Multipart framing overhead on top of the avatar cap.
	r.Body = http.MaxBytesReader(w, r.Body, maxAvatarSize+1<<20)

	mr, err := r.MultipartReader()
	if err != nil {
		respondError(w, http.StatusBadRequest, "Expected a multipart request")
		return
	}

	var (
		username string
		objectID string
		filename string
		size     int64
	)

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			respondError(w, http.StatusBadRequest, "Malformed multipart request")
			return
		}

		switch part.FormName() {
		case "username":
			value, err := io.ReadAll(io.LimitReader(part, 256))
			part.Close()
			if err != nil {
				respondError(w, http.StatusBadRequest, "Malformed multipart request")
				return
			}
			username = string(value)

		case "avatar":
			if objectID != "" {
				part.Close()
				continue
			}

			contentType := part.Header.Get("Content-Type")
			if !strings.HasPrefix(contentType, "image/") {
				part.Close()
				respondError(w, http.StatusBadRequest, "Only image files are allowed")
				return
			}

			filename = fmt.Sprintf("%d-%s", time.Now().UnixMilli(), part.FileName())
			writer, err := s.blobs.OpenWrite(r.Context(), filename, contentType, map[string]any{
				"username":   "pending",
				"uploadDate": time.Now(),
				"mimetype":   contentType,
			})
			if err != nil {
				part.Close()
				log.Printf("ERROR: failed to open blob write: %v", err)
				respondError(w, http.StatusInternalServerError, "Server error")
				return
			}

			// One byte past the cap is enough to detect overflow without
			// reading the rest of the stream.
			n, err := io.Copy(writer, io.LimitReader(part, maxAvatarSize+1))
			part.Close()
			if err != nil {
				writer.Abort()
				log.Printf("ERROR: avatar stream failed: %v", err)
				respondError(w, http.StatusInternalServerError, "Server error")
				return
			}
			if n > maxAvatarSize {
				writer.Abort()
				respondError(w, http.StatusBadRequest, "Avatar must not exceed 5 MB")
				return
			}

			id, err := writer.Finalize()
			if err != nil {
				log.Printf("ERROR: failed to finalize avatar upload: %v", err)
				respondError(w, http.StatusInternalServerError, "Server error")
				return
			}
			objectID = id
			size = n

		default:
			part.Close()
		}
	}

	if objectID == "" || username == "" {
		if objectID != "" {
			if err := s.blobs.Delete(r.Context(), objectID); err != nil {
				log.Printf("ERROR: failed to clean up orphan avatar %s: %v", objectID, err)
			}
		}
		respondError(w, http.StatusBadRequest, "Missing avatar or username.")
		return
	}

	user, err := s.store.GetUserByUsername(r.Context(), username)
	if err != nil {
		log.Printf("ERROR: avatar owner lookup failed: %v", err)
		respondError(w, http.StatusInternalServerError, "Server error")
		return
	}
	if user == nil {
		if err := s.blobs.Delete(r.Context(), objectID); err != nil {
			log.Printf("ERROR: failed to clean up orphan avatar %s: %v", objectID, err)
		}
		respondError(w, http.StatusNotFound, "User not found.")
		return
	}

	// Best effort: the upload already succeeded, attaching the owner to the
	// object's metadata must not fail it.
	if err := s.blobs.UpdateMetadata(r.Context(), objectID, map[string]any{
		"username":  username,
		"updatedAt": time.Now(),
	}); err != nil {
		log.Printf("WARN: failed to attach owner metadata to avatar %s: %v", objectID, err)
	}

	avatarURL := fmt.Sprintf("%s/api/users/avatar/%s", s.config.AppHost, objectID)
	if err := s.store.UpdateAvatar(r.Context(), user.ID, avatarURL); err != nil {
		log.Printf("ERROR: failed to link avatar to user %s: %v", user.Username, err)
		respondError(w, http.StatusInternalServerError, "Server error")
		return
	}

	log.Printf("avatar uploaded: user=%s object=%s bytes=%d", username, objectID, size)

	respondJSON(w, http.StatusOK, map[string]string{
		"avatarUrl": avatarURL,
		"fileId":    objectID,
		"filename":  filename,
		"message":   "Avatar uploaded successfully.",
	})
}

// @Summary      Fetch an avatar image
// @Tags         users
// @Produce      image/png
// @Param        id  path  string  true  "Avatar object ID"
// @Success      200  {file}    file
// @Failure      404  {object}  map[string]string
// @Router       /users/avatar/{id} [get]
func (s *Server) GetAvatarHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	obj, stream, err := s.blobs.OpenRead(r.Context(), id)
	if err != nil {
		if errors.Is(err, blob.ErrObjectNotFound) {
			respondError(w, http.StatusNotFound, "Avatar not found")
			return
		}
		log.Printf("ERROR: failed to open avatar %s: %v", id, err)
		respondError(w, http.StatusInternalServerError, "Server error")
		return
	}
	defer stream.Close()

	contentType := obj.ContentType
	if mimetype, ok := obj.Metadata["mimetype"].(string); ok && mimetype != "" {
		contentType = mimetype
	}
	if contentType == "" {
		contentType = "image/png"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.FormatInt(obj.Length, 10))

	// Headers are out by now; a mid-stream failure can only cut the
	// connection short, which the client sees as a length mismatch.
	if _, err := io.Copy(w, stream); err != nil {
		log.Printf("ERROR: avatar %s stream interrupted: %v", id, err)
	}
}
