package kieai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/uniedit/videogen/internal/shared/errors"
)

// Upload stages one asset as a base64 data URL and returns the hosted file.
func (c *Client) Upload(ctx context.Context, apiKey string, asset Asset, uploadPath string) (*UploadedAsset, error) {
	if err := requireKey(apiKey); err != nil {
		return nil, err
	}
	if err := ContextError(ctx); err != nil {
		return nil, err
	}

	raw, err := c.do(ctx, "upload", http.MethodPost, c.uploadBaseURL+"/api/file-base64-upload", apiKey, &uploadRequest{
		Base64Data: asset.DataURL(),
		UploadPath: uploadPath,
		FileName:   asset.Name,
	})
	if err != nil {
		return nil, err
	}

	var resp uploadResponse
	decodeErr := json.Unmarshal(raw.body, &resp)
	if decodeErr != nil || !raw.ok() || !resp.Success || resp.Data == nil || resp.Data.FileURL == "" {
		msg := resp.Msg
		if decodeErr != nil || msg == "" {
			msg = raw.statusText()
		}
		return nil, apperrors.RemoteRejected(fmt.Sprintf("upload %s: %s", asset.Name, msg))
	}

	c.metrics.RecordUpload(uploadPath, asset.Size())
	c.logger.Debug("asset uploaded",
		zap.String("file", asset.Name),
		zap.String("upload_path", uploadPath),
		zap.Int("bytes", asset.Size()),
		zap.String("expires_at", resp.Data.ExpiresAt))
	return resp.Data, nil
}

// UploadAll stages assets and returns them in input order.
// With concurrency <= 1 the uploads run one at a time; otherwise at most
// concurrency uploads are in flight. The first failure cancels the rest.
func (c *Client) UploadAll(ctx context.Context, apiKey string, assets []Asset, uploadPath string, concurrency int) ([]*UploadedAsset, error) {
	if len(assets) == 0 {
		return nil, nil
	}
	if err := requireKey(apiKey); err != nil {
		return nil, err
	}

	out := make([]*UploadedAsset, len(assets))

	if concurrency <= 1 {
		for i, a := range assets {
			up, err := c.Upload(ctx, apiKey, a, uploadPath)
			if err != nil {
				return nil, err
			}
			out[i] = up
		}
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, a := range assets {
		g.Go(func() error {
			up, err := c.Upload(gctx, apiKey, a, uploadPath)
			if err != nil {
				return err
			}
			out[i] = up
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		// A sibling failure cancels gctx; report the caller's own cancellation only when it happened.
		if ctxErr := ContextError(ctx); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	return out, nil
}
