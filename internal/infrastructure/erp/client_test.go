package erp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wooms/storesync/internal/domain/shared"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /security/token", func(w http.ResponseWriter, r *http.Request) {
		login, password, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "robot", login)
		assert.Equal(t, "secret", password)
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"access_token":"test-token"}`)
	})
	mux.Handle("/", handler)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return NewClient(Config{
		BaseURL:           server.URL,
		Login:             "robot",
		Password:          "secret",
		RequestsPerSecond: 1000,
		MaxRetries:        2,
	}, zap.NewNop())
}

func TestDo_SendsBearerToken(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"ok":true}`)
	}))

	var out struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, client.do(context.Background(), http.MethodGet, "/entity/product", nil, nil, &out))
	assert.True(t, out.OK)
}

func TestDo_DecodesErrorPayload(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"errors":[{"error":"field is required","code":3000},{"error":"value too long","code":3001}]}`)
	}))

	err := client.do(context.Background(), http.MethodGet, "/entity/product", nil, nil, nil)

	require.Error(t, err)
	assert.True(t, shared.IsRemote(err))
	assert.Contains(t, err.Error(), "field is required")
	assert.Contains(t, err.Error(), "value too long")
	assert.Contains(t, err.Error(), "400")
}

func TestDo_RetriesTransientFailures(t *testing.T) {
	attempts := 0
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{}`)
	}))

	require.NoError(t, client.do(context.Background(), http.MethodGet, "/entity/product", nil, nil, nil))
	assert.Equal(t, 3, attempts)
}

func TestDo_DoesNotRetryClientErrors(t *testing.T) {
	attempts := 0
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"errors":[{"error":"entity not found","code":1002}]}`)
	}))

	err := client.do(context.Background(), http.MethodGet, "/entity/product/missing", nil, nil, nil)

	require.Error(t, err)
	assert.True(t, shared.IsRemote(err))
	assert.Equal(t, 1, attempts)
}

func TestListAll_WalksEveryPage(t *testing.T) {
	total := 250
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		require.Equal(t, pageLimit, limit)

		count := limit
		if offset+count > total {
			count = total - offset
		}
		rows := make([]map[string]any, 0, count)
		for i := 0; i < count; i++ {
			rows = append(rows, map[string]any{"name": fmt.Sprintf("row-%d", offset+i)})
		}
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{
			"rows": rows,
			"meta": map[string]any{"size": total, "limit": limit, "offset": offset},
		}))
	}))

	var names []string
	err := client.listAll(context.Background(), "/entity/counterparty", nil, func(row json.RawMessage) error {
		var r struct {
			Name string `json:"name"`
		}
		require.NoError(t, json.Unmarshal(row, &r))
		names = append(names, r.Name)
		return nil
	})

	require.NoError(t, err)
	require.Len(t, names, total)
	assert.Equal(t, "row-0", names[0])
	assert.Equal(t, "row-249", names[total-1])
}

func TestListItems_MapsRowsToDomainItems(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/entity/product":
			fmt.Fprint(w, `{"rows":[{
				"id":"p-1",
				"meta":{"href":"ref/product/p-1"},
				"name":"Red Shoes",
				"article":"SKU-1",
				"variantsCount":2,
				"productFolder":{"meta":{"href":"ref/folder/shoes"}},
				"salePrices":[{"value":10050,"priceType":{"meta":{"href":"ref/pt/retail"},"name":"Retail"}}],
				"attributes":[
					{"name":"import","value":true},
					{"name":"wc_id","value":"501"}
				]
			}],"meta":{"size":1,"limit":100,"offset":0}}`)
		default:
			fmt.Fprint(w, `{"rows":[],"meta":{"size":0,"limit":100,"offset":0}}`)
		}
	}))

	items, err := client.ListItems(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)

	item := items[0]
	assert.Equal(t, "ref/product/p-1", item.Ref)
	assert.Equal(t, "Red Shoes", item.Name)
	assert.Equal(t, "SKU-1", item.Article)
	assert.True(t, item.HasVariants)
	assert.True(t, item.Importable)
	assert.Equal(t, int64(501), item.StorefrontID)

	category, ok := item.Category()
	require.True(t, ok)
	assert.Equal(t, "ref/folder/shoes", category)

	price, ok := item.SalePriceFor("ref/pt/retail")
	require.True(t, ok)
	assert.Equal(t, "100.50", price.StringFixed(2))
}

func TestOrdersLastNumber(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "created,desc", r.URL.Query().Get("order"))
		fmt.Fprint(w, `{"rows":[{"name":"00042"}]}`)
	}))

	n, err := NewOrders(client).LastNumber(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, n)
}

func TestOrdersExistsByExternalCode(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("filter") == "externalCode=9001" {
			fmt.Fprint(w, `{"meta":{"size":1}}`)
			return
		}
		fmt.Fprint(w, `{"meta":{"size":0}}`)
	}))

	orders := NewOrders(client)

	exists, err := orders.ExistsByExternalCode(context.Background(), "9001")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = orders.ExistsByExternalCode(context.Background(), "9002")
	require.NoError(t, err)
	assert.False(t, exists)
}
