package lambda

import (
	"bytes"
	"encoding/base64"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/aws/aws-lambda-go/events"
)

// responseBuffer is the http.ResponseWriter a routed request writes into.
// Headers are frozen at the first WriteHeader, as on a real connection.
type responseBuffer struct {
	header      http.Header
	sent        http.Header
	status      int
	wroteHeader bool
	body        bytes.Buffer
}

func newResponseBuffer() *responseBuffer {
	return &responseBuffer{header: make(http.Header)}
}

func (w *responseBuffer) Header() http.Header {
	return w.header
}

func (w *responseBuffer) WriteHeader(status int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	w.status = status
	w.sent = w.header.Clone()
}

func (w *responseBuffer) Write(p []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.body.Write(p)
}

// proxyResponse converts what was written into a gateway response. Bodies
// that are not valid UTF-8 are sent base64 encoded.
func (w *responseBuffer) proxyResponse() events.APIGatewayProxyResponse {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}

	headers := make(map[string]string, len(w.sent))
	multi := make(map[string][]string, len(w.sent))
	for key, values := range w.sent {
		headers[key] = strings.Join(values, ",")
		multi[key] = values
	}

	response := events.APIGatewayProxyResponse{
		StatusCode:        w.status,
		Headers:           headers,
		MultiValueHeaders: multi,
	}
	if body := w.body.Bytes(); utf8.Valid(body) {
		response.Body = string(body)
	} else {
		response.Body = base64.StdEncoding.EncodeToString(body)
		response.IsBase64Encoded = true
	}
	return response
}
