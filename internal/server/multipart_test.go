package server

import (
	"bytes"
	"mime/multipart"
	"testing"

	"github.com/stretchr/testify/require"
)

// multipartWriter fills buf with a multipart body and returns its content type.
func multipartWriter(t *testing.T, buf *bytes.Buffer, fields map[string]string, fileField, fileName string, content []byte) string {
	t.Helper()
	w := multipart.NewWriter(buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	fw, err := w.CreateFormFile(fileField, fileName)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return w.FormDataContentType()
}
