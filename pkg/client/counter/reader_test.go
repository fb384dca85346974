package counter_test

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmnetworking/go-networking/pkg/client/counter"
)

type failingBody struct {
	io.Reader
	readErr  error
	closeErr error
}

func (b *failingBody) Read(p []byte) (int, error) {
	n, err := b.Reader.Read(p)
	if err == nil && b.readErr != nil {
		err = b.readErr
	}
	return n, err
}

func (b *failingBody) Close() error {
	return b.closeErr
}

func TestReadCloser(t *testing.T) {
	t.Parallel()

	readErr := errors.New("connection reset")
	closeErr := errors.New("close failed")

	cases := []struct {
		name            string
		body            string
		readErr         error
		closeErr        error
		expectedOnClose error
	}{
		{name: "empty body"},
		{name: "body", body: `{"id":1}`},
		{name: "close error", body: `{"id":1}`, closeErr: closeErr, expectedOnClose: closeErr},
		{name: "read error", body: `{"id":1}`, readErr: readErr, expectedOnClose: readErr},
		{name: "read error wins", body: `{"id":1}`, readErr: readErr, closeErr: closeErr, expectedOnClose: readErr},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var onCloseBytes int64 = -1
			var onCloseErr error
			r := counter.NewReadCloser(
				&failingBody{Reader: strings.NewReader(tc.body), readErr: tc.readErr, closeErr: tc.closeErr},
				func(bytes int64, err error) {
					onCloseBytes = bytes
					onCloseErr = err
				},
			)

			data, err := io.ReadAll(r)
			assert.Equal(t, tc.body, string(data))
			assert.Equal(t, int64(len(tc.body)), r.Bytes())
			if tc.readErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tc.readErr)
			}

			err = r.Close()
			if tc.closeErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tc.closeErr)
			}

			assert.Equal(t, int64(len(tc.body)), onCloseBytes)
			if tc.expectedOnClose == nil {
				assert.NoError(t, onCloseErr)
			} else {
				assert.ErrorIs(t, onCloseErr, tc.expectedOnClose)
			}
		})
	}
}

func TestReadCloser_PartialRead(t *testing.T) {
	t.Parallel()

	var received int64
	r := counter.NewReadCloser(io.NopCloser(strings.NewReader("0123456789")), func(bytes int64, err error) {
		received = bytes
		assert.NoError(t, err)
	})

	buf := make([]byte, 4)
	n, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	require.NoError(t, r.Close())
	assert.Equal(t, int64(4), received)
}

func TestReadCloser_OnCloseOnce(t *testing.T) {
	t.Parallel()

	calls := 0
	r := counter.NewReadCloser(io.NopCloser(strings.NewReader("abc")), func(bytes int64, err error) {
		calls++
		assert.Equal(t, int64(3), bytes)
	})

	_, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.NoError(t, r.Close())
	assert.NoError(t, r.Close())
	assert.Equal(t, 1, calls)
}

func TestReadCloser_NilCallback(t *testing.T) {
	t.Parallel()

	r := counter.NewReadCloser(io.NopCloser(strings.NewReader("abc")), nil)
	_, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.NoError(t, r.Close())
}
