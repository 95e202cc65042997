package gzippedhttp

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUngzipRequest(t *testing.T) {
	echo := http.HandlerFunc(func(response http.ResponseWriter, request *http.Request) {
		body, err := io.ReadAll(request.Body)
		require.NoError(t, err)
		_, err = response.Write(body)
		require.NoError(t, err)
	})

	var compressed bytes.Buffer
	gzipWriter := gzip.NewWriter(&compressed)
	_, err := gzipWriter.Write([]byte("some request body"))
	require.NoError(t, err)
	require.NoError(t, gzipWriter.Close())

	request := httptest.NewRequest(http.MethodPost, "/", &compressed)
	request.Header.Set("Content-Encoding", "gzip")
	recorder := httptest.NewRecorder()

	UngzipRequest(echo).ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "some request body", recorder.Body.String())
}

func TestGzipResponse(t *testing.T) {
	handler := http.HandlerFunc(func(response http.ResponseWriter, request *http.Request) {
		response.WriteHeader(http.StatusOK)
		_, err := response.Write([]byte("some response body"))
		require.NoError(t, err)
	})

	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.Header.Set("Accept-Encoding", "gzip")
	recorder := httptest.NewRecorder()

	GzipResponse(handler).ServeHTTP(recorder, request)

	assert.Equal(t, "gzip", recorder.Header().Get("Content-Encoding"))

	gzipReader, err := gzip.NewReader(recorder.Body)
	require.NoError(t, err)
	decompressed, err := io.ReadAll(gzipReader)
	require.NoError(t, err)
	assert.Equal(t, "some response body", string(decompressed))
}

func TestGzipResponseSkippedWithoutAcceptEncoding(t *testing.T) {
	handler := http.HandlerFunc(func(response http.ResponseWriter, request *http.Request) {
		_, err := response.Write([]byte("plain body"))
		require.NoError(t, err)
	})

	request := httptest.NewRequest(http.MethodGet, "/", strings.NewReader(""))
	recorder := httptest.NewRecorder()

	GzipResponse(handler).ServeHTTP(recorder, request)

	assert.Empty(t, recorder.Header().Get("Content-Encoding"))
	assert.Equal(t, "plain body", recorder.Body.String())
}
