package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadFull(t *testing.T) {
	// Create a temporary YAML config file.
	yamlContent := []byte(`
pair:
  base: "BNB"
  quote: "USDT"
chain:
  rpc_url: "https://bsc-dataseed.bnbchain.org"
  chain_id: 56
  gas_price_gwei: 3
  quoter_address: "0xB048Bbc1Ee6b733FFfCFb9e9CeF7375518e25997"
  smart_router_address: "0x13f4EA83D0bd40E75C8222255bc855a974568Dd4"
  v2_router_address: "0x10ED43C718714eb63d5aA57B78B54704E256024E"
  chainlink_feed_address: "0x0567F2323251f0Aab15c8dFb1967E4e8A7D42aeE"
  quote_token_address: "0x55d398326f99059fF775485246999027B3197955"
  wrapped_base_address: "0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c"
  pool_fee: 500
  keys_path: "/etc/limitswap/keys.json"
  call_timeout: "5s"
  receipt_timeout: "2m"
oracle:
  cache_ttl: "10s"
  max_stale: "10s"
  timeout: "8s"
router:
  slippage: 0.0005
  swap_timeout: "90s"
  auto_unwrap: true
engine:
  tick_interval: "2s"
storage:
  backend: "file"
  orders_path: "/tmp/limitswap/orders.json"
  sqlite_path: "/tmp/limitswap/limitswap.db"
server:
  host: "0.0.0.0"
  port: 8080
feed:
  enabled: true
  symbol: "BNB/USD"
  rate_limit_per_min: 120
wallets:
  - name: "main"
    address: "0x1111111111111111111111111111111111111111"
  - name: "reserve"
    address: "0x2222222222222222222222222222222222222222"
logging:
  level: "info"
  format: "json"
`)

	tmpFile, err := os.CreateTemp("", "limitswap-config-*.yaml")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.Write(yamlContent); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	if err := tmpFile.Close(); err != nil {
		t.Fatalf("failed to close temp file: %v", err)
	}

	// Clear any environment overrides that might interfere.
	os.Unsetenv("CHAIN_RPC_URL")
	os.Unsetenv("ORDERS_PATH")
	os.Unsetenv("SQLITE_PATH")
	os.Unsetenv("TELEGRAM_TOKEN")
	os.Unsetenv("TELEGRAM_CHAT_ID")
	os.Unsetenv("ALPACA_API_KEY")
	os.Unsetenv("ALPACA_API_SECRET")
	os.Unsetenv("APCA_API_KEY_ID")
	os.Unsetenv("APCA_API_SECRET_KEY")
	os.Unsetenv("LOG_LEVEL")

	cfg, err := Load(tmpFile.Name())
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	// -- Pair --
	if cfg.Pair.Base != "BNB" || cfg.Pair.Quote != "USDT" {
		t.Errorf("Pair = %+v, want BNB/USDT", cfg.Pair)
	}

	// -- Chain --
	if cfg.Chain.RPCURL != "https://bsc-dataseed.bnbchain.org" {
		t.Errorf("Chain.RPCURL = %q", cfg.Chain.RPCURL)
	}
	if cfg.Chain.ChainID != 56 {
		t.Errorf("Chain.ChainID = %d, want 56", cfg.Chain.ChainID)
	}
	if cfg.Chain.PoolFee != 500 {
		t.Errorf("Chain.PoolFee = %d, want 500", cfg.Chain.PoolFee)
	}
	if cfg.Chain.CallTimeout.Std() != 5*time.Second {
		t.Errorf("Chain.CallTimeout = %v, want 5s", cfg.Chain.CallTimeout.Std())
	}
	if cfg.Chain.ReceiptTimeout.Std() != 2*time.Minute {
		t.Errorf("Chain.ReceiptTimeout = %v, want 2m", cfg.Chain.ReceiptTimeout.Std())
	}

	// -- Oracle --
	if cfg.Oracle.CacheTTL.Std() != 10*time.Second {
		t.Errorf("Oracle.CacheTTL = %v, want 10s", cfg.Oracle.CacheTTL.Std())
	}
	if cfg.Oracle.MaxStale.Std() != 10*time.Second {
		t.Errorf("Oracle.MaxStale = %v, want 10s", cfg.Oracle.MaxStale.Std())
	}

	// -- Router --
	if cfg.Router.Slippage != 0.0005 {
		t.Errorf("Router.Slippage = %f, want 0.0005", cfg.Router.Slippage)
	}
	if cfg.Router.SwapTimeout.Std() != 90*time.Second {
		t.Errorf("Router.SwapTimeout = %v, want 90s", cfg.Router.SwapTimeout.Std())
	}
	if !cfg.Router.AutoUnwrap {
		t.Error("Router.AutoUnwrap = false, want true")
	}

	// -- Engine --
	if cfg.Engine.TickInterval.Std() != 2*time.Second {
		t.Errorf("Engine.TickInterval = %v, want 2s", cfg.Engine.TickInterval.Std())
	}

	// -- Storage --
	if cfg.Storage.Backend != "file" {
		t.Errorf("Storage.Backend = %q, want file", cfg.Storage.Backend)
	}
	if cfg.Storage.OrdersPath != "/tmp/limitswap/orders.json" {
		t.Errorf("Storage.OrdersPath = %q", cfg.Storage.OrdersPath)
	}

	// -- Server --
	if cfg.Server.Host != "0.0.0.0" || cfg.Server.Port != 8080 {
		t.Errorf("Server = %+v, want 0.0.0.0:8080", cfg.Server)
	}

	// -- Feed --
	if !cfg.Feed.Enabled {
		t.Error("Feed.Enabled = false, want true")
	}
	if cfg.Feed.RateLimitPerMin != 120 {
		t.Errorf("Feed.RateLimitPerMin = %d, want 120", cfg.Feed.RateLimitPerMin)
	}

	// -- Wallets --
	if len(cfg.Wallets) != 2 {
		t.Fatalf("len(Wallets) = %d, want 2", len(cfg.Wallets))
	}
	if cfg.Wallets[0].Name != "main" {
		t.Errorf("Wallets[0].Name = %q, want main", cfg.Wallets[0].Name)
	}
}

func TestLoadDefaults(t *testing.T) {
	// A near-empty config should pick up safe defaults.
	yamlContent := []byte(`
chain:
  rpc_url: "https://bsc-dataseed.bnbchain.org"
`)

	tmpFile, err := os.CreateTemp("", "limitswap-config-defaults-*.yaml")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.Write(yamlContent); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	tmpFile.Close()

	os.Unsetenv("CHAIN_RPC_URL")
	os.Unsetenv("LOG_LEVEL")
	os.Unsetenv("ORDERS_PATH")
	os.Unsetenv("SQLITE_PATH")

	cfg, err := Load(tmpFile.Name())
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Pair.Base != "BNB" || cfg.Pair.Quote != "USDT" {
		t.Errorf("default Pair = %+v, want BNB/USDT", cfg.Pair)
	}
	if cfg.Router.Slippage != 0.0005 {
		t.Errorf("default Router.Slippage = %f, want 0.0005", cfg.Router.Slippage)
	}
	if cfg.Oracle.CacheTTL.Std() != 10*time.Second {
		t.Errorf("default Oracle.CacheTTL = %v, want 10s", cfg.Oracle.CacheTTL.Std())
	}
	if cfg.Engine.TickInterval.Std() != 2*time.Second {
		t.Errorf("default Engine.TickInterval = %v, want 2s", cfg.Engine.TickInterval.Std())
	}
	if cfg.Storage.Backend != "file" {
		t.Errorf("default Storage.Backend = %q, want file", cfg.Storage.Backend)
	}
	if cfg.Chain.PoolFee != 500 {
		t.Errorf("default Chain.PoolFee = %d, want 500", cfg.Chain.PoolFee)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("default Logging.Level = %q, want info", cfg.Logging.Level)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	yamlContent := []byte(`
chain:
  rpc_url: "https://yaml-endpoint"
notify:
  telegram_token: "yaml-token"
storage:
  orders_path: "/original/orders.json"
`)

	tmpFile, err := os.CreateTemp("", "limitswap-config-env-*.yaml")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.Write(yamlContent); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	tmpFile.Close()

	// Set environment overrides.
	os.Setenv("CHAIN_RPC_URL", "https://env-endpoint")
	os.Setenv("ORDERS_PATH", "/env/orders.json")
	os.Setenv("TELEGRAM_CHAT_ID", "12345")
	os.Unsetenv("TELEGRAM_TOKEN")
	os.Unsetenv("APCA_API_KEY_ID")
	os.Unsetenv("APCA_API_SECRET_KEY")
	defer os.Unsetenv("CHAIN_RPC_URL")
	defer os.Unsetenv("ORDERS_PATH")
	defer os.Unsetenv("TELEGRAM_CHAT_ID")

	cfg, err := Load(tmpFile.Name())
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Chain.RPCURL != "https://env-endpoint" {
		t.Errorf("Chain.RPCURL = %q, want env override", cfg.Chain.RPCURL)
	}
	if cfg.Storage.OrdersPath != "/env/orders.json" {
		t.Errorf("Storage.OrdersPath = %q, want env override", cfg.Storage.OrdersPath)
	}
	if cfg.Notify.TelegramChatID != "12345" {
		t.Errorf("Notify.TelegramChatID = %q, want 12345", cfg.Notify.TelegramChatID)
	}
	// telegram_token should remain from YAML since no env override was set.
	if cfg.Notify.TelegramToken != "yaml-token" {
		t.Errorf("Notify.TelegramToken = %q, want yaml-token (from YAML)", cfg.Notify.TelegramToken)
	}
}
