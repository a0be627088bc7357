package friends

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vkgeo/pkg/config"
	"vkgeo/pkg/logger"
	"vkgeo/pkg/paging"
	"vkgeo/pkg/vk"
)

func TestListFriends(t *testing.T) {
	hc := &http.Client{}
	httpmock.ActivateNonDefault(hc)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", "https://api.vk.com/method/friends.get", func(req *http.Request) (*http.Response, error) {
		q := req.URL.Query()
		assert.Equal(t, "sex", q.Get("fields"))
		offset, _ := strconv.Atoi(q.Get("offset"))
		body := `{"response":{"count":3,"items":[`
		for i := offset; i < offset+2 && i < 3; i++ {
			if i > offset {
				body += ","
			}
			body += fmt.Sprintf(`{"id":%d,"first_name":"F%d","last_name":"L","sex":%d}`, i+1, i, 1+i%2)
		}
		body += `]}}`
		return httpmock.NewStringResponse(200, body), nil
	})

	client := vk.NewClient(config.VKConfig{}, vk.WithHTTPClient(hc), vk.WithLogger(logger.NewNopLogger()))
	lister := NewLister(paging.NewFetcher(client, nil, nil), 2, nil)

	list, err := lister.List(context.Background(), "1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "F0 L", list[0].FullName())
	assert.Equal(t, 2, httpmock.GetTotalCallCount())

	counts := CountBySex(list)
	assert.Equal(t, 2, counts[SexFemale])
	assert.Equal(t, 1, counts[SexMale])
}

func TestListFriendsKeepsDecodedPrefix(t *testing.T) {
	hc := &http.Client{}
	httpmock.ActivateNonDefault(hc)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", "https://api.vk.com/method/friends.get", httpmock.NewStringResponder(200,
		`{"response":{"count":2,"items":[{"id":1,"first_name":"A","last_name":"B","sex":1},{"id":"bad"}]}}`))

	client := vk.NewClient(config.VKConfig{}, vk.WithHTTPClient(hc), vk.WithLogger(logger.NewNopLogger()))
	list, err := NewLister(paging.NewFetcher(client, nil, nil), 2, nil).List(context.Background(), "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode friends of 1")
	require.Len(t, list, 1)
	assert.Equal(t, "A B", list[0].FullName())
}

func TestActive(t *testing.T) {
	list := []vk.Friend{{ID: 1}, {ID: 2, Deactivated: "deleted"}, {ID: 3, Deactivated: "banned"}}
	assert.Equal(t, []vk.Friend{{ID: 1}}, Active(list))
}

func TestNewListerClampsPageSize(t *testing.T) {
	assert.Equal(t, vk.MaxFriendsPageSize, NewLister(nil, 0, nil).pageSize)
	assert.Equal(t, vk.MaxFriendsPageSize, NewLister(nil, 10000, nil).pageSize)
	assert.Equal(t, 100, NewLister(nil, 100, nil).pageSize)
}
