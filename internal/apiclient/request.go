package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
)

// Body is a request payload: either JSONBody or a *Form.
type Body interface {
	encode() (io.Reader, string, error)
}

type jsonBody struct {
	value any
}

// JSONBody returns a body that is marshaled to JSON. A json.RawMessage is sent as is.
func JSONBody(v any) Body {
	return jsonBody{value: v}
}

// encode returns no content type: JSON negotiation is left to the client so an
// explicit caller Content-Type wins.
func (b jsonBody) encode() (io.Reader, string, error) {
	data, err := json.Marshal(b.value)
	if err != nil {
		return nil, "", err
	}
	return bytes.NewReader(data), "", nil
}

type formField struct {
	name  string
	value string
}

type formFile struct {
	field       string
	filename    string
	contentType string
	content     io.Reader
}

// Form is a multipart/form-data payload. The boundary and Content-Type are chosen
// when the request is encoded.
type Form struct {
	fields []formField
	files  []formFile
}

// NewForm returns an empty multipart payload.
func NewForm() *Form {
	return &Form{}
}

// AddField adds a plain text field.
func (f *Form) AddField(name, value string) *Form {
	f.fields = append(f.fields, formField{name: name, value: value})
	return f
}

// AddFile adds a file part. An empty contentType becomes application/octet-stream.
func (f *Form) AddFile(field, filename, contentType string, content io.Reader) *Form {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	f.files = append(f.files, formFile{
		field:       field,
		filename:    filename,
		contentType: contentType,
		content:     content,
	})
	return f
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func (f *Form) encode() (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, fld := range f.fields {
		if err := w.WriteField(fld.name, fld.value); err != nil {
			return nil, "", err
		}
	}
	for _, file := range f.files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			quoteEscaper.Replace(file.field), quoteEscaper.Replace(file.filename)))
		h.Set("Content-Type", file.contentType)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := io.Copy(part, file.content); err != nil {
			return nil, "", fmt.Errorf("reading %s: %w", file.filename, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// Request describes one outgoing call. Endpoint is a path relative to the client's
// base URL and may carry a query string.
type Request struct {
	Method   string
	Endpoint string
	Headers  map[string]string
	Body     Body
}

// RequestOption configures a Request built by NewRequest.
type RequestOption func(*Request)

// WithHeader sets a request header. Authorization is always replaced by the client.
func WithHeader(key, value string) RequestOption {
	return func(r *Request) {
		if r.Headers == nil {
			r.Headers = map[string]string{}
		}
		r.Headers[key] = value
	}
}

// WithBody sets the request body.
func WithBody(b Body) RequestOption {
	return func(r *Request) {
		r.Body = b
	}
}

// WithJSON sets a JSON body.
func WithJSON(v any) RequestOption {
	return WithBody(JSONBody(v))
}

// NewRequest builds and validates a request. An empty method means GET.
func NewRequest(method, endpoint string, opts ...RequestOption) (*Request, error) {
	r := &Request{Method: method, Endpoint: endpoint}
	for _, opt := range opts {
		opt(r)
	}
	n, err := r.normalize()
	if err != nil {
		return nil, err
	}
	return &n, nil
}

var allowedMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodPatch:   true,
	http.MethodDelete:  true,
	http.MethodOptions: true,
}

// Validate reports whether the request may be sent. It does not modify r.
func (r *Request) Validate() error {
	_, err := r.normalize()
	return err
}

// normalize returns a validated copy of r with the method upper-cased.
func (r *Request) normalize() (Request, error) {
	if r == nil {
		return Request{}, ErrInvalidRequest.New("request is nil")
	}
	n := *r
	n.Method = strings.ToUpper(strings.TrimSpace(n.Method))
	if n.Method == "" {
		n.Method = http.MethodGet
	}
	if !allowedMethods[n.Method] {
		return Request{}, ErrInvalidRequest.New(fmt.Sprintf("unsupported method %q", n.Method))
	}
	if strings.TrimSpace(n.Endpoint) == "" {
		return Request{}, ErrInvalidRequest.New("endpoint is required")
	}
	if strings.Contains(n.Endpoint, "://") {
		return Request{}, ErrInvalidRequest.New("endpoint must be a path relative to the base URL")
	}
	for k := range n.Headers {
		if k == "" || strings.ContainsAny(k, " :\r\n") {
			return Request{}, ErrInvalidRequest.New(fmt.Sprintf("invalid header name %q", k))
		}
	}
	if f, ok := n.Body.(*Form); ok && f == nil {
		return Request{}, ErrInvalidRequest.New("form body is nil")
	}
	return n, nil
}

// IsForm reports whether the body is a multipart payload.
func (r *Request) IsForm() bool {
	_, ok := r.Body.(*Form)
	return ok
}
