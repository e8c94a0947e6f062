package provider

import (
	"context"
	"fmt"

	"github.com/uniedit/videogen/internal/module/kieai"
	apperrors "github.com/uniedit/videogen/internal/shared/errors"
)

// Gateway is the subset of the Kie.ai client the adapters need.
type Gateway interface {
	CreateTask(ctx context.Context, apiKey, model string, input any, callbackURL string) (string, error)
	CreateVeoTask(ctx context.Context, apiKey string, req kieai.VeoRequest) (string, error)
	UploadAll(ctx context.Context, apiKey string, assets []kieai.Asset, uploadPath string, concurrency int) ([]*kieai.UploadedAsset, error)
}

var _ Gateway = (*kieai.Client)(nil)

// Adapter binds the generic submit and poll steps to one variant.
type Adapter struct {
	variant     Variant
	gateway     Gateway
	poller      *kieai.Poller
	callbackURL string
}

// Variant returns the bound variant.
func (a *Adapter) Variant() Variant {
	return a.variant
}

// Upload stages every group in order and returns one URL list per group.
func (a *Adapter) Upload(ctx context.Context, apiKey string, groups []UploadGroup, concurrency int) ([][]string, error) {
	urls := make([][]string, len(groups))
	for i, g := range groups {
		if len(g.Assets) == 0 {
			continue
		}
		uploaded, err := a.gateway.UploadAll(ctx, apiKey, g.Assets, g.Path, concurrency)
		if err != nil {
			return nil, apperrors.Prefix(a.variant.Name, err)
		}
		urls[i] = kieai.URLs(uploaded)
	}
	return urls, nil
}

// Submit creates the remote task with the variant's fixed model.
// Veo bodies go to the Veo endpoint and carry their own model name.
func (a *Adapter) Submit(ctx context.Context, apiKey string, body any) (string, error) {
	var (
		taskID string
		err    error
	)
	switch a.variant.Endpoint {
	case EndpointVeo:
		req, ok := body.(kieai.VeoRequest)
		if !ok {
			return "", apperrors.Internal(fmt.Sprintf("%s: unexpected body %T", a.variant.Name, body), nil)
		}
		req.CallBackURL = a.callbackURL
		taskID, err = a.gateway.CreateVeoTask(ctx, apiKey, req)
	default:
		taskID, err = a.gateway.CreateTask(ctx, apiKey, a.variant.Model, body, a.callbackURL)
	}
	if err != nil {
		return "", apperrors.Prefix(a.variant.Name, err)
	}
	return taskID, nil
}

// Poll waits for taskID and extracts the variant's result kind.
func (a *Adapter) Poll(ctx context.Context, apiKey, taskID string) (kieai.Result, error) {
	res, err := a.poller.Poll(ctx, apiKey, taskID, a.variant.Extractor())
	if err != nil {
		return kieai.Result{}, apperrors.Prefix(a.variant.Name, err)
	}
	return res, nil
}

// Registry holds one adapter per variant.
type Registry struct {
	order    []string
	adapters map[string]*Adapter
}

// RegistryOption configures a Registry.
type RegistryOption func(*registryOptions)

type registryOptions struct {
	callbackURL string
}

// WithCallbackURL sets the callBackUrl sent with every task.
func WithCallbackURL(u string) RegistryOption {
	return func(o *registryOptions) { o.callbackURL = u }
}

// NewRegistry binds every catalog variant to gateway and poller.
func NewRegistry(gateway Gateway, poller *kieai.Poller, opts ...RegistryOption) *Registry {
	var o registryOptions
	for _, opt := range opts {
		opt(&o)
	}

	catalog := Catalog()
	r := &Registry{
		order:    make([]string, 0, len(catalog)),
		adapters: make(map[string]*Adapter, len(catalog)),
	}
	for _, v := range catalog {
		r.order = append(r.order, v.Name)
		r.adapters[v.Name] = &Adapter{
			variant:     v,
			gateway:     gateway,
			poller:      poller.Named(v.Name),
			callbackURL: o.callbackURL,
		}
	}
	return r
}

// Lookup returns the adapter for a variant name.
func (r *Registry) Lookup(name string) (*Adapter, error) {
	a, ok := r.adapters[name]
	if !ok {
		return nil, apperrors.NotFound("variant " + name)
	}
	return a, nil
}

// Variants lists the registered variants in catalog order.
func (r *Registry) Variants() []Variant {
	out := make([]Variant, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.adapters[name].variant)
	}
	return out
}
