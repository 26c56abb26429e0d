package apiclient

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"sync/atomic"

	"github.com/h2non/filetype"
	"github.com/tidwall/gjson"
)

// UploadEndpoint receives multipart image uploads under the "file" field.
const UploadEndpoint = "media/upload"

// UploadField is the multipart field name the server reads the file from.
const UploadField = "file"

// sniffLen is enough for every matcher filetype knows.
const sniffLen = 261

// File is a user-selected file.
type File struct {
	Name    string
	Content io.Reader
}

// Uploader sends images to UploadEndpoint. At most one upload is in flight per
// Uploader; InProgress exposes that state so callers can disable resubmission.
type Uploader struct {
	client     *Client
	inProgress atomic.Bool
}

// NewUploader returns an Uploader sending through c.
func NewUploader(c *Client) *Uploader {
	return &Uploader{client: c}
}

// InProgress reports whether an upload is outstanding.
func (u *Uploader) InProgress() bool {
	return u.inProgress.Load()
}

// UploadImage posts file and returns the absolute URL of the stored image: the
// base URL followed by the relative path from the server's {"url": ...} reply.
// A nil file is rejected without contacting the server.
func (u *Uploader) UploadImage(ctx context.Context, file *File) (string, error) {
	if file == nil || file.Content == nil {
		return "", ErrNoFile
	}
	if !u.inProgress.CompareAndSwap(false, true) {
		return "", ErrUploadInProgress
	}
	defer u.inProgress.Store(false)

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(file.Content, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", ErrNoFile.New("unable to read selected file").Err(err)
	}
	head = head[:n]
	if n == 0 {
		return "", ErrNoFile.New("selected file is empty")
	}
	if !filetype.IsImage(head) {
		return "", ErrNotAnImage
	}
	kind, _ := filetype.Match(head)

	name := file.Name
	if name == "" {
		name = "upload." + kind.Extension
	}
	form := NewForm().AddFile(UploadField, name, kind.MIME.Value,
		io.MultiReader(bytes.NewReader(head), file.Content))

	raw, err := u.client.Do(ctx, &Request{
		Method:   http.MethodPost,
		Endpoint: UploadEndpoint,
		Body:     form,
	})
	if err != nil {
		return "", err
	}

	rel := gjson.GetBytes(raw, "url").String()
	if rel == "" {
		return "", ErrInvalidResponse.New("upload response has no url")
	}
	return u.client.BaseURL() + rel, nil
}
