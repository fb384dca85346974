package networking

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/jmnetworking/go-networking/pkg/schema"
)

// ObjectClient maps request and response bodies to the declared type T.
// Use a slice type to load a list of objects, for example Objects[[]Todo].
type ObjectClient[T any] struct {
	network *Network
}

// Objects creates ObjectClient for the type T, nil network means the Default one.
func Objects[T any](n *Network) ObjectClient[T] {
	return ObjectClient[T]{network: n}
}

// GetObject loads the object T by the Default network.
func GetObject[T any](ctx context.Context, url string, opts ...RequestOption) (int, T, error) {
	return Objects[T](nil).Get(ctx, url, opts...)
}

// Get loads and validates the object.
// A non-2xx response is returned as *HTTPError before decoding, and the status code is returned too.
func (c ObjectClient[T]) Get(ctx context.Context, url string, opts ...RequestOption) (int, T, error) {
	return getObject[T](ctx, c.networkOrDefault(), url, opts)
}

// GetMany loads and validates a list of objects.
func (c ObjectClient[T]) GetMany(ctx context.Context, url string, opts ...RequestOption) (int, []T, error) {
	return getObject[[]T](ctx, c.networkOrDefault(), url, opts)
}

func getObject[T any](ctx context.Context, n *Network, url string, opts []RequestOption) (int, T, error) {
	var empty T

	opts = append([]RequestOption{Header("Accept", "application/json")}, opts...)
	res, err := n.Get(ctx, url, opts...)
	if err != nil {
		if res != nil {
			return res.StatusCode, empty, err
		}
		return 0, empty, err
	}

	out, err := schema.Decode[T]([]byte(res.Body))
	if err != nil {
		n.logger.Error("error deserializing object", zap.String("url", url), zap.Error(err))
		return res.StatusCode, empty, err
	}
	return res.StatusCode, out, nil
}

// Post validates the object and sends it as a JSON body.
func (c ObjectClient[T]) Post(ctx context.Context, url string, object T, opts ...RequestOption) (*Response, error) {
	return c.send(ctx, http.MethodPost, url, object, opts)
}

// Put validates the object and sends it as a JSON body.
func (c ObjectClient[T]) Put(ctx context.Context, url string, object T, opts ...RequestOption) (*Response, error) {
	return c.send(ctx, http.MethodPut, url, object, opts)
}

// Delete sends a request without a body.
func (c ObjectClient[T]) Delete(ctx context.Context, url string, opts ...RequestOption) (*Response, error) {
	return c.networkOrDefault().Delete(ctx, url, opts...)
}

func (c ObjectClient[T]) send(ctx context.Context, method, url string, object T, opts []RequestOption) (*Response, error) {
	body, err := schema.Encode(object)
	if err != nil {
		return nil, err
	}
	opts = append([]RequestOption{Body(body), ContentType("application/json")}, opts...)
	return c.networkOrDefault().Send(ctx, method, url, opts...)
}

func (c ObjectClient[T]) networkOrDefault() *Network {
	if c.network == nil {
		return Default()
	}
	return c.network
}
