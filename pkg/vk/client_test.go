package vk

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vkgeo/pkg/config"
	errs "vkgeo/pkg/errors"
	"vkgeo/pkg/logger"
	"vkgeo/pkg/retry"
)

const testEndpoint = "https://api.vk.com/method/photos.getAll"

func newMockedClient(t *testing.T, opts ...Option) *Client {
	t.Helper()
	hc := &http.Client{}
	httpmock.ActivateNonDefault(hc)
	t.Cleanup(httpmock.DeactivateAndReset)

	opts = append([]Option{WithHTTPClient(hc), WithLogger(logger.NewTestLogger())}, opts...)
	return NewClient(config.VKConfig{AccessToken: "secret", APIVersion: "5.131"}, opts...)
}

func TestCallDecodesResponse(t *testing.T) {
	client := newMockedClient(t)

	var seen url.Values
	httpmock.RegisterResponder("GET", testEndpoint, func(req *http.Request) (*http.Response, error) {
		seen = req.URL.Query()
		return httpmock.NewStringResponse(200, `{"response":{"count":1,"items":[{"id":5,"owner_id":42,"lat":55.75,"long":37.61}]}}`), nil
	})

	var page struct {
		Count int     `json:"count"`
		Items []Photo `json:"items"`
	}
	params := url.Values{"owner_id": {"42"}, "count": {"200"}, "offset": {"0"}}
	require.NoError(t, client.Call(context.Background(), MethodPhotosGetAll, params, &page))

	assert.Equal(t, 1, page.Count)
	require.Len(t, page.Items, 1)
	assert.True(t, page.Items[0].HasCoordinates())
	assert.Equal(t, "secret", seen.Get("access_token"))
	assert.Equal(t, "5.131", seen.Get("v"))
	assert.Equal(t, "42", seen.Get("owner_id"))
	assert.Empty(t, params.Get("access_token"), "caller params must not be mutated")
}

func TestCallMapsAPIErrors(t *testing.T) {
	client := newMockedClient(t)
	httpmock.RegisterResponder("GET", testEndpoint,
		httpmock.NewStringResponder(200, `{"error":{"error_code":30,"error_msg":"This profile is private"}}`))

	err := client.Call(context.Background(), MethodPhotosGetAll, url.Values{}, nil)
	require.Error(t, err)

	var apiErr *errs.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, errs.ErrorTypeAccessDenied, apiErr.Type)
	assert.Equal(t, errs.CodeProfilePrivate, apiErr.Code)
	assert.Equal(t, MethodPhotosGetAll, apiErr.Method)
}

func TestCallParsingError(t *testing.T) {
	client := newMockedClient(t)
	httpmock.RegisterResponder("GET", testEndpoint, httpmock.NewStringResponder(200, `<html>oops</html>`))

	err := client.Call(context.Background(), MethodPhotosGetAll, url.Values{}, nil)
	assert.Equal(t, errs.ErrorTypeParsing, errs.TypeOf(err))
}

func TestCallRetriesTransientErrors(t *testing.T) {
	client := newMockedClient(t, WithRetry(&retry.Config{
		MaxAttempts: 3,
		Backoff:     &retry.ConstantBackoff{Delay: time.Millisecond},
	}))

	calls := 0
	httpmock.RegisterResponder("GET", testEndpoint, func(req *http.Request) (*http.Response, error) {
		calls++
		if calls == 1 {
			return httpmock.NewStringResponse(200, `{"error":{"error_code":6,"error_msg":"Too many requests per second"}}`), nil
		}
		if calls == 2 {
			return httpmock.NewStringResponse(502, ``), nil
		}
		return httpmock.NewStringResponse(200, `{"response":{"count":0,"items":[]}}`), nil
	})

	require.NoError(t, client.Call(context.Background(), MethodPhotosGetAll, url.Values{}, nil))
	assert.Equal(t, 3, calls)
}

func TestCallClassifiesHTTPStatus(t *testing.T) {
	tests := []struct {
		status int
		want   errs.ErrorType
	}{
		{http.StatusTooManyRequests, errs.ErrorTypeRateLimit},
		{http.StatusUnauthorized, errs.ErrorTypeAuth},
		{http.StatusForbidden, errs.ErrorTypeAuth},
		{http.StatusNotFound, errs.ErrorTypeNotFound},
		{http.StatusServiceUnavailable, errs.ErrorTypeServerError},
		{http.StatusGatewayTimeout, errs.ErrorTypeServerError},
		{http.StatusBadRequest, errs.ErrorTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			client := newMockedClient(t)
			httpmock.RegisterResponder("GET", testEndpoint, httpmock.NewStringResponder(tt.status, ``))

			err := client.Call(context.Background(), MethodPhotosGetAll, url.Values{}, nil)
			require.Error(t, err)
			assert.Equal(t, tt.want, errs.TypeOf(err))
		})
	}
}

func TestCallDoesNotRetryPermanentErrors(t *testing.T) {
	client := newMockedClient(t, WithRetry(&retry.Config{
		MaxAttempts: 3,
		Backoff:     &retry.ConstantBackoff{Delay: time.Millisecond},
	}))
	httpmock.RegisterResponder("GET", testEndpoint,
		httpmock.NewStringResponder(200, `{"error":{"error_code":5,"error_msg":"User authorization failed"}}`))

	err := client.Call(context.Background(), MethodPhotosGetAll, url.Values{}, nil)
	assert.Equal(t, errs.ErrorTypeAuth, errs.TypeOf(err))
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestCallHonorsCancelledContext(t *testing.T) {
	client := newMockedClient(t)
	httpmock.RegisterResponder("GET", testEndpoint, httpmock.NewStringResponder(200, `{"response":{}}`))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := client.Call(ctx, MethodPhotosGetAll, url.Values{}, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, httpmock.GetTotalCallCount())
}

func TestCompositeID(t *testing.T) {
	id := NewCompositeID(-1234, 456)
	assert.Equal(t, CompositeID("-1234_456"), id)

	owner, photo, err := id.Parse()
	require.NoError(t, err)
	assert.Equal(t, int64(-1234), owner)
	assert.Equal(t, int64(456), photo)

	_, _, err = CompositeID("nope").Parse()
	assert.Error(t, err)

	assert.Equal(t, "1_2,3_4", JoinIDs([]CompositeID{"1_2", "3_4"}))
}

func TestProfileLink(t *testing.T) {
	assert.Equal(t, "https://vk.com/albums42?z=photo42_7", ProfileLink(42, 7))
}
