package estimation

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/amitray007/pare/core"
	apperrors "github.com/amitray007/pare/errors"
)

// Thumbnail-driven estimation: when the original is too large to pull, a
// pre-existing thumbnail stands in for the sample and the first 8 KiB of
// the original supply its dimensions.

// headerProbeBytes is enough to cover the header region of every supported
// raster format.
const headerProbeBytes = 8192

// maxThumbnailBytes bounds the thumbnail download.
const maxThumbnailBytes = 8 * 1024 * 1024

// EstimateFromThumbnail optimizes the thumbnail for real and scales the
// outcome up to the original dimensions.  Confidence is medium: thumbnails
// are pre-resampled, which skews bits-per-pixel slightly against the
// original.
func (e *Estimator) EstimateFromThumbnail(ctx context.Context, thumbnail []byte, originalSize int, originalDims core.Dimensions, ocfg core.OptimizationConfig) (core.Estimate, error) {
	if len(thumbnail) == 0 {
		return core.Estimate{}, apperrors.New(apperrors.CategoryInput, "estimate.thumbnail", apperrors.ErrEmptyInput)
	}
	format := core.DetectFormat(thumbnail)
	if format == core.FormatUnknown {
		return core.Estimate{}, apperrors.New(apperrors.CategoryDetect, "estimate.thumbnail", apperrors.ErrUnsupportedFormat)
	}
	opt, ok := e.registry.OptimizerFor(format)
	if !ok {
		return core.Estimate{}, apperrors.New(apperrors.CategoryDetect, "estimate.thumbnail",
			fmt.Errorf("%w: %s", apperrors.ErrUnsupportedFormat, format))
	}

	res, err := opt.Optimize(ctx, thumbnail, ocfg)
	if err != nil {
		return core.Estimate{}, err
	}

	thumbInfo := AnalyzeHeader(thumbnail, format)
	outcome := sampleOutcome{
		bytes:            res.OptimizedSize,
		dims:             thumbInfo.Dimensions,
		method:           res.Method,
		alreadyOptimized: res.Method == core.MethodNone,
	}

	origPixels := originalDims.Width * originalDims.Height
	samplePixels := outcome.dims.Width * outcome.dims.Height
	estimated := originalSize
	if origPixels > 0 && samplePixels > 0 {
		estimated = int(float64(outcome.bytes) * float64(origPixels) / float64(samplePixels))
		if estimated > originalSize {
			estimated = originalSize
		}
	}

	est := core.Estimate{
		Format:           format,
		OriginalSize:     originalSize,
		EstimatedSize:    estimated,
		Method:           outcome.method,
		Confidence:       core.ConfidenceMedium,
		Dimensions:       originalDims,
		ColorType:        thumbInfo.ColorType,
		BitDepth:         thumbInfo.BitDepth,
		FrameCount:       1,
		AlreadyOptimized: outcome.alreadyOptimized,
	}
	return e.finishEstimate(est), nil
}

// FetchThumbnail downloads thumbnail bytes, capped at 8 MiB.
func (e *Estimator) FetchThumbnail(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryEstimate, "estimate.fetch", err)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, apperrors.Transient("estimate.fetch", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.Transient("estimate.fetch", fmt.Errorf("status %d", resp.StatusCode))
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxThumbnailBytes))
	if err != nil {
		return nil, apperrors.Transient("estimate.fetch", err)
	}
	return data, nil
}

// ProbeRemoteHeader range-requests the first 8 KiB of a remote original and
// parses dimensions and format from it.  Servers ignoring Range simply send
// more than needed; the reader stops at the cap either way.
func (e *Estimator) ProbeRemoteHeader(ctx context.Context, url string) (HeaderInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return HeaderInfo{}, apperrors.Wrap(apperrors.CategoryEstimate, "estimate.probe", err)
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=0-%d", headerProbeBytes-1))
	resp, err := e.client.Do(req)
	if err != nil {
		return HeaderInfo{}, apperrors.Transient("estimate.probe", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return HeaderInfo{}, apperrors.Transient("estimate.probe", fmt.Errorf("status %d", resp.StatusCode))
	}
	head, err := io.ReadAll(io.LimitReader(resp.Body, headerProbeBytes))
	if err != nil && len(head) == 0 {
		return HeaderInfo{}, apperrors.Transient("estimate.probe", err)
	}
	format := core.DetectFormat(head)
	if format == core.FormatUnknown {
		return HeaderInfo{}, apperrors.New(apperrors.CategoryDetect, "estimate.probe", apperrors.ErrUnsupportedFormat)
	}
	return AnalyzeHeader(head, format), nil
}
