package api

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
)

const imageField = "image"

var (
	// ErrNoFilePart means the request has no file part named "image"
	ErrNoFilePart = errors.New("no file part")
	// ErrNoSelectedFile means the "image" part was sent with an empty filename
	ErrNoSelectedFile = errors.New("no selected file")
	// ErrUploadTooLarge means the body exceeded the configured limit
	ErrUploadTooLarge = errors.New("upload too large")
	// ErrUploadRead means the image part could not be read to the end
	ErrUploadRead = errors.New("failed to read upload")
)

// Upload is the image file part of a request. Its body is still unread;
// Read consumes it.
type Upload struct {
	Filename string
	part     *multipart.Part
}

// openUpload streams the multipart body up to the first file part named
// field and stops at its headers. A part counts as a file when its
// Content-Disposition carries a filename parameter, even an empty one;
// plain form values with the same name are ignored.
func openUpload(r *http.Request, field string) (*Upload, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoFilePart, err)
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return nil, ErrNoFilePart
		}
		if err != nil {
			if isTooLarge(err) {
				return nil, ErrUploadTooLarge
			}
			return nil, fmt.Errorf("%w: %v", ErrNoFilePart, err)
		}

		filename, isFile := partFilename(part.Header.Get("Content-Disposition"))
		if part.FormName() != field || !isFile {
			_ = part.Close()
			continue
		}
		if filename == "" {
			_ = part.Close()
			return nil, ErrNoSelectedFile
		}
		return &Upload{Filename: filename, part: part}, nil
	}
}

// Read returns the whole file body. The body limit set on the request
// surfaces here as ErrUploadTooLarge.
func (u *Upload) Read() ([]byte, error) {
	data, err := io.ReadAll(u.part)
	_ = u.part.Close()
	if err != nil {
		if isTooLarge(err) {
			return nil, ErrUploadTooLarge
		}
		return nil, fmt.Errorf("%w: %v", ErrUploadRead, err)
	}
	return data, nil
}

// partFilename returns the raw filename parameter and whether it was present
func partFilename(disposition string) (string, bool) {
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return "", false
	}
	filename, ok := params["filename"]
	return filename, ok
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
