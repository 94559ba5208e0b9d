package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wooms/storesync/internal/domain/shared"
)

const validYAML = `
erp:
  base_url: https://erp.example.com/api
  login: robot
  password: secret
storefront:
  base_url: https://shop.example.com/wp-json/wc/v3
  consumer_key: ck_test
  consumer_secret: cs_test
sync:
  customer_group_tag: webstore
orders:
  store_name: Main warehouse
  payment_states:
    cod: Awaiting payment
  shipping_services:
    Courier: svc-1
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "storesync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, "https://erp.example.com/api", cfg.ERP.BaseURL)
	assert.Equal(t, "robot", cfg.ERP.Login)
	assert.Equal(t, "ck_test", cfg.Storefront.ConsumerKey)
	assert.Equal(t, "webstore", cfg.Sync.CustomerGroupTag)
	assert.Equal(t, "Main warehouse", cfg.Orders.StoreName)
	assert.Equal(t, map[string]string{"cod": "Awaiting payment"}, cfg.Orders.PaymentStates)
	assert.Equal(t, map[string]string{"courier": "svc-1"}, cfg.Orders.ShippingServices)
}

func TestLoad_AppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.ERP.Timeout)
	assert.Equal(t, float64(5), cfg.ERP.RequestsPerSecond)
	assert.Equal(t, 50, cfg.Storefront.PerPage)
	assert.Equal(t, "RU", cfg.Sync.PhoneRegion)
	assert.Equal(t, "saves.json", cfg.Sync.SaveFile)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "stderr", cfg.Log.Output)
	assert.False(t, cfg.Storefront.ReadOnly)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("STORESYNC_ERP_PASSWORD", "from-env")

	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.ERP.Password)
}

func TestLoad_ValidatesRequiredFields(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "missing erp credentials",
			yaml: `
storefront:
  base_url: https://shop.example.com
  consumer_key: ck
  consumer_secret: cs
sync:
  customer_group_tag: webstore
orders:
  store_name: Main
`,
		},
		{
			name: "missing customer group tag",
			yaml: `
erp:
  base_url: https://erp.example.com
  login: robot
  password: secret
storefront:
  base_url: https://shop.example.com
  consumer_key: ck
  consumer_secret: cs
orders:
  store_name: Main
`,
		},
		{
			name: "per_page out of range",
			yaml: `
erp:
  base_url: https://erp.example.com
  login: robot
  password: secret
storefront:
  base_url: https://shop.example.com
  consumer_key: ck
  consumer_secret: cs
  per_page: 500
sync:
  customer_group_tag: webstore
orders:
  store_name: Main
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			require.Error(t, err)
			assert.True(t, shared.IsConfiguration(err))
		})
	}
}
