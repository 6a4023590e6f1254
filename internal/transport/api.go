package transport

import (
	"context"
	"fmt"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/corelinkhq/kernelmgr/internal/shared/types"
)

// ListSpecs fetches the installed kernel specs and the server default.
// The default-key invariant is enforced locally: when the advertised default
// is not among the returned specs, any present spec name is promoted.
func (c *Client) ListSpecs(ctx context.Context) (*types.SpecCollection, error) {
	const op = "list specs"

	req, err := c.request(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := c.execute(op, func() (*resty.Response, error) {
		return req.Get("/api/kernelspecs")
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, statusError(op, resp.StatusCode())
	}

	var collection types.SpecCollection
	if err := sonic.Unmarshal(resp.Body(), &collection); err != nil {
		return nil, &Error{Op: op, Err: fmt.Errorf("decode payload: %w", err)}
	}

	if len(collection.Specs) > 0 {
		if _, ok := collection.Specs[collection.Default]; !ok {
			for name := range collection.Specs {
				c.log.Warn("server default spec missing, promoting fallback",
					zap.String("advertised", collection.Default),
					zap.String("fallback", name),
				)
				collection.Default = name
				break
			}
		}
	}

	return &collection, nil
}

// ListRunning fetches the currently running kernel instances.
func (c *Client) ListRunning(ctx context.Context) ([]types.KernelModel, error) {
	const op = "list running"

	req, err := c.request(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := c.execute(op, func() (*resty.Response, error) {
		return req.Get("/api/kernels")
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, statusError(op, resp.StatusCode())
	}

	var models []types.KernelModel
	if err := sonic.Unmarshal(resp.Body(), &models); err != nil {
		return nil, &Error{Op: op, Err: fmt.Errorf("decode payload: %w", err)}
	}
	return models, nil
}

// StartKernel asks the server to launch a new kernel instance and returns
// its record.
func (c *Client) StartKernel(ctx context.Context, opts types.StartOptions) (types.KernelModel, error) {
	const op = "start kernel"

	req, err := c.request(ctx)
	if err != nil {
		return types.KernelModel{}, err
	}

	body, err := sonic.Marshal(opts)
	if err != nil {
		return types.KernelModel{}, &Error{Op: op, Err: fmt.Errorf("encode options: %w", err)}
	}

	resp, err := c.execute(op, func() (*resty.Response, error) {
		return req.
			SetHeader("Content-Type", "application/json").
			SetBody(body).
			Post("/api/kernels")
	})
	if err != nil {
		return types.KernelModel{}, err
	}
	if resp.StatusCode() != http.StatusCreated && resp.StatusCode() != http.StatusOK {
		return types.KernelModel{}, statusError(op, resp.StatusCode())
	}

	var model types.KernelModel
	if err := sonic.Unmarshal(resp.Body(), &model); err != nil {
		return types.KernelModel{}, &Error{Op: op, Err: fmt.Errorf("decode payload: %w", err)}
	}
	if model.ID == "" {
		return types.KernelModel{}, &Error{Op: op, Err: fmt.Errorf("server returned record without id")}
	}
	return model, nil
}

// GetKernel fetches one instance record by id. 404 maps to IsNotFound.
func (c *Client) GetKernel(ctx context.Context, kernelID string) (types.KernelModel, error) {
	const op = "get kernel"

	req, err := c.request(ctx)
	if err != nil {
		return types.KernelModel{}, err
	}

	resp, err := c.execute(op, func() (*resty.Response, error) {
		return req.Get("/api/kernels/" + kernelID)
	})
	if err != nil {
		return types.KernelModel{}, err
	}
	if resp.StatusCode() != http.StatusOK {
		return types.KernelModel{}, statusError(op, resp.StatusCode())
	}

	var model types.KernelModel
	if err := sonic.Unmarshal(resp.Body(), &model); err != nil {
		return types.KernelModel{}, &Error{Op: op, Err: fmt.Errorf("decode payload: %w", err)}
	}
	return model, nil
}

// ShutdownKernel terminates one instance. A 404 is surfaced as a not-found
// error that callers are expected to treat as already-shutdown.
func (c *Client) ShutdownKernel(ctx context.Context, kernelID string) error {
	const op = "shutdown kernel"

	req, err := c.request(ctx)
	if err != nil {
		return err
	}

	resp, err := c.execute(op, func() (*resty.Response, error) {
		return req.Delete("/api/kernels/" + kernelID)
	})
	if err != nil {
		return err
	}
	switch resp.StatusCode() {
	case http.StatusNoContent, http.StatusOK:
		return nil
	default:
		return statusError(op, resp.StatusCode())
	}
}
