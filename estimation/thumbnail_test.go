package estimation

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/amitray007/pare/core"
	apperrors "github.com/amitray007/pare/errors"
)

func TestEstimateFromThumbnail(t *testing.T) {
	reg := core.NewRegistry()
	reg.RegisterOptimizer(core.FormatPNG, &shrinkOptimizer{format: core.FormatPNG, ratio: 0.5})
	e := newEstimator(reg)

	thumb := smallPNG(t) // 100x80
	originalDims := core.Dimensions{Width: 1000, Height: 800}
	originalSize := len(thumb) * 150

	est, err := e.EstimateFromThumbnail(context.Background(), thumb, originalSize, originalDims, core.DefaultOptimizationConfig())
	if err != nil {
		t.Fatalf("EstimateFromThumbnail: %v", err)
	}
	if est.Confidence != core.ConfidenceMedium {
		t.Errorf("confidence: got %s, want medium", est.Confidence)
	}
	if est.Dimensions != originalDims {
		t.Errorf("dimensions: got %v, want %v", est.Dimensions, originalDims)
	}
	// 100x horizontal scale-up of a half-size thumbnail: 50x the thumbnail
	// bytes, well under the 150x original.
	wantSize := (len(thumb) / 2) * 100
	if diff := est.EstimatedSize - wantSize; diff < -200 || diff > 200 {
		t.Errorf("estimated size: got %d, want ~%d", est.EstimatedSize, wantSize)
	}
	if est.EstimatedSize > originalSize {
		t.Errorf("estimated size %d exceeds original %d", est.EstimatedSize, originalSize)
	}
	if est.OriginalSize != originalSize {
		t.Errorf("original size: got %d, want %d", est.OriginalSize, originalSize)
	}
}

func TestEstimateFromThumbnail_Errors(t *testing.T) {
	e := newEstimator(core.NewRegistry())
	dims := core.Dimensions{Width: 100, Height: 100}

	if _, err := e.EstimateFromThumbnail(context.Background(), nil, 1000, dims, core.DefaultOptimizationConfig()); !errors.Is(err, apperrors.ErrEmptyInput) {
		t.Errorf("empty thumbnail: got %v", err)
	}
	if _, err := e.EstimateFromThumbnail(context.Background(), []byte("not an image at all"), 1000, dims, core.DefaultOptimizationConfig()); !errors.Is(err, apperrors.ErrUnsupportedFormat) {
		t.Errorf("garbage thumbnail: got %v", err)
	}
	// Valid format with no optimizer registered.
	if _, err := e.EstimateFromThumbnail(context.Background(), smallPNG(t), 1000, dims, core.DefaultOptimizationConfig()); !errors.Is(err, apperrors.ErrUnsupportedFormat) {
		t.Errorf("unregistered format: got %v", err)
	}
}

func TestFetchThumbnail(t *testing.T) {
	payload := smallPNG(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/thumb.png":
			w.Write(payload)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	e := newEstimator(core.NewRegistry())
	e.SetHTTPClient(srv.Client())

	data, err := e.FetchThumbnail(context.Background(), srv.URL+"/thumb.png")
	if err != nil {
		t.Fatalf("FetchThumbnail: %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Error("fetched bytes differ from served bytes")
	}

	_, err = e.FetchThumbnail(context.Background(), srv.URL+"/missing.png")
	if err == nil {
		t.Fatal("404 must error")
	}
	var perr *apperrors.ProcessingError
	if !errors.As(err, &perr) || !perr.Retryable {
		t.Errorf("fetch failure must be retryable, got %v", err)
	}
}

func TestProbeRemoteHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, gradientImage(640, 480)); err != nil {
		t.Fatal(err)
	}
	full := buf.Bytes()

	var gotRange string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRange = r.Header.Get("Range")
		// Honor the range the way object stores do.
		n := len(full)
		if n > headerProbeBytes {
			n = headerProbeBytes
		}
		w.WriteHeader(http.StatusPartialContent)
		w.Write(full[:n])
	}))
	defer srv.Close()

	e := newEstimator(core.NewRegistry())
	e.SetHTTPClient(srv.Client())

	info, err := e.ProbeRemoteHeader(context.Background(), srv.URL+"/photo.png")
	if err != nil {
		t.Fatalf("ProbeRemoteHeader: %v", err)
	}
	if !strings.HasPrefix(gotRange, "bytes=0-") {
		t.Errorf("range header: got %q", gotRange)
	}
	if info.Format != core.FormatPNG {
		t.Errorf("format: got %s, want png", info.Format)
	}
	if info.Dimensions != (core.Dimensions{Width: 640, Height: 480}) {
		t.Errorf("dimensions: got %v", info.Dimensions)
	}
}

func TestProbeRemoteHeader_Unrecognized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("this is not an image"))
	}))
	defer srv.Close()

	e := newEstimator(core.NewRegistry())
	e.SetHTTPClient(srv.Client())

	if _, err := e.ProbeRemoteHeader(context.Background(), srv.URL); !errors.Is(err, apperrors.ErrUnsupportedFormat) {
		t.Errorf("unrecognized body: got %v", err)
	}
}
