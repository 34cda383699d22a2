package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
)

// Request — логический вызов API.
//
// Path — путь относительно базового URL (или абсолютный URL). Body кодируется
// в JSON, кроме []byte, string и io.Reader, которые отправляются как есть.
// Public — не прикладывать Bearer-токен (также для путей из списка публичных).
// NoRefresh — при 401 не запускать refresh (logout, служебные вызовы).
type Request struct {
	Method    string
	Path      string
	Query     url.Values
	Body      any
	Header    http.Header
	Public    bool
	NoRefresh bool

	retry     bool
	public    bool
	sentToken string
}

// Response — разобранный ответ. Для JSON заполнен JSON, иначе Text.
type Response struct {
	Status  int
	Header  http.Header
	JSON    json.RawMessage
	Text    string
	Request *Request
}

// Decode декодирует JSON-тело ответа в v.
func (r *Response) Decode(v any) error {
	if len(r.JSON) == 0 {
		return ErrEmptyBody
	}

	if err := json.Unmarshal(r.JSON, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

// Retried — ответ получен повторной отправкой после refresh.
func (r *Response) Retried() bool { return r.Request != nil && r.Request.retry }

// clone копирует запрос; io.Reader вычитывается в []byte, чтобы тело можно
// было отправить повторно.
func (r *Request) clone() (*Request, error) {
	out := *r
	out.Header = r.Header.Clone()

	if rd, ok := r.Body.(io.Reader); ok {
		b, err := io.ReadAll(rd)
		if err != nil {
			return nil, fmt.Errorf("read request body: %w", err)
		}
		out.Body = b
	}

	return &out, nil
}

func (r *Request) isPublic() bool { return r.Public || r.public }

// encodeBody готовит тело запроса.
func encodeBody(body any) (io.Reader, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return bytes.NewReader(b), nil
	case string:
		return bytes.NewReader([]byte(b)), nil
	case json.RawMessage:
		return bytes.NewReader(b), nil
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		return bytes.NewReader(raw), nil
	}
}

func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}

	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}
