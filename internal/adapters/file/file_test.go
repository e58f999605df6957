package file

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownload(t *testing.T) {
	tests := []struct {
		name       string
		inputBytes []byte
		status     int
		limit      int64
		chunked    bool
		wantErr    error
		wantAnyErr bool
	}{
		{
			name:       "success",
			inputBytes: []byte("test\n"),
			status:     http.StatusOK,
			limit:      MaxUploadBytes,
		},
		{
			name:       "exactly at limit",
			inputBytes: []byte("12345"),
			status:     http.StatusOK,
			limit:      5,
		},
		{
			name:       "not found",
			inputBytes: []byte("not found"),
			status:     http.StatusNotFound,
			limit:      MaxUploadBytes,
			wantAnyErr: true,
		},
		{
			name:       "content length over limit",
			inputBytes: []byte(strings.Repeat("x", 64)),
			status:     http.StatusOK,
			limit:      10,
			wantErr:    ErrTooLarge,
		},
		{
			name:       "streamed body over limit",
			inputBytes: []byte(strings.Repeat("x", 64)),
			status:     http.StatusOK,
			limit:      10,
			chunked:    true,
			wantErr:    ErrTooLarge,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				if tc.chunked {
					w.WriteHeader(tc.status)
					w.(http.Flusher).Flush()
				} else {
					w.WriteHeader(tc.status)
				}
				_, err := w.Write(tc.inputBytes)
				assert.NoError(t, err)
			}))
			defer srv.Close()

			res, err := Download(t.Context(), srv.URL, tc.limit)
			switch {
			case tc.wantErr != nil:
				require.ErrorIs(t, err, tc.wantErr)
			case tc.wantAnyErr:
				require.Error(t, err)
			default:
				require.NoError(t, err)
				assert.Equal(t, tc.inputBytes, res)
			}
		})
	}
}

func TestDownloadBadURL(t *testing.T) {
	_, err := Download(t.Context(), "://nope", MaxUploadBytes)
	require.Error(t, err)
}
