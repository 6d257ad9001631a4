package vimeo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ead/core/media"
)

func TestClient_Thumbnail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("url") {
		case "https://vimeo.com/76979871":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"type":"video","video_id":76979871,"thumbnail_url":"https://i.vimeocdn.com/video/452001751_640.jpg"}`))
		case "https://vimeo.com/1":
			_, _ = w.Write([]byte(`{"type":"video"}`))
		case "https://vimeo.com/2":
			time.Sleep(200 * time.Millisecond)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 100*time.Millisecond, srv.Client())

	tests := []struct {
		name    string
		desc    media.Descriptor
		want    string
		wantErr error
		anyErr  bool
	}{
		{name: "ok", desc: media.Resolve("https://vimeo.com/76979871", ""), want: "https://i.vimeocdn.com/video/452001751_640.jpg"},
		{name: "not vimeo", desc: media.Resolve("https://youtu.be/dQw4w9WgXcQ", ""), wantErr: ErrNotVimeo},
		{name: "no thumbnail", desc: media.Resolve("https://vimeo.com/1", ""), wantErr: ErrNoThumbnail},
		{name: "not found", desc: media.Resolve("https://vimeo.com/404", ""), anyErr: true},
		{name: "timeout", desc: media.Resolve("https://vimeo.com/2", ""), anyErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := client.Thumbnail(context.Background(), tt.desc)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, errors.Cause(err))
			case tt.anyErr:
				assert.Error(t, err)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
