package chain

import (
	"math"
	"math/big"
	"os"
	"path/filepath"
	"testing"
)

func TestWeiConversionRoundTrip(t *testing.T) {
	cases := []float64{0, 1, 0.0005, 100.25, 903.117}
	for _, amount := range cases {
		got := fromWei(toWei(amount))
		if math.Abs(got-amount) > 1e-9 {
			t.Errorf("fromWei(toWei(%v)) = %v", amount, got)
		}
	}
}

func TestToWeiScale(t *testing.T) {
	got := toWei(1)
	want := new(big.Int).SetUint64(1e18)
	if got.Cmp(want) != 0 {
		t.Errorf("toWei(1) = %s, want %s", got, want)
	}
}

func TestGweiToWei(t *testing.T) {
	got := gweiToWei(3)
	want := big.NewInt(3_000_000_000)
	if got.Cmp(want) != 0 {
		t.Errorf("gweiToWei(3) = %s, want %s", got, want)
	}
}

func TestABIsParse(t *testing.T) {
	// mustParseABI panics on malformed JSON; reaching here means every ABI
	// fragment parsed at init. Spot-check the methods the adapter packs.
	methods := map[string][]string{
		"quoter":      {"quoteExactInputSingle"},
		"smartRouter": {"exactInputSingle"},
		"v2Router":    {"getAmountsOut", "swapExactETHForTokens", "swapExactTokensForETH"},
		"chainlink":   {"latestRoundData"},
		"erc20":       {"balanceOf", "allowance", "approve"},
		"wrapped":     {"withdraw"},
	}
	abis := map[string]map[string]bool{
		"quoter":      methodSet(quoterABI.Methods),
		"smartRouter": methodSet(smartRouterABI.Methods),
		"v2Router":    methodSet(v2RouterABI.Methods),
		"chainlink":   methodSet(chainlinkABI.Methods),
		"erc20":       methodSet(erc20ABI.Methods),
		"wrapped":     methodSet(wrappedABI.Methods),
	}
	for name, want := range methods {
		for _, m := range want {
			if !abis[name][m] {
				t.Errorf("%s ABI missing method %s", name, m)
			}
		}
	}
}

func methodSet[M any](methods map[string]M) map[string]bool {
	out := make(map[string]bool, len(methods))
	for name := range methods {
		out[name] = true
	}
	return out
}

func TestLoadKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keys.json")

	// A valid secp256k1 key (the well-known all-ones test key).
	content := `{"main": "1111111111111111111111111111111111111111111111111111111111111111"}`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing keys file: %v", err)
	}

	keys, err := loadKeys(path)
	if err != nil {
		t.Fatalf("loadKeys: %v", err)
	}
	if len(keys) != 1 {
		t.Fatalf("loaded %d keys, want 1", len(keys))
	}
	if keys["main"] == nil {
		t.Fatal("key for wallet main is nil")
	}
}

func TestLoadKeysEmptyPath(t *testing.T) {
	keys, err := loadKeys("")
	if err != nil {
		t.Fatalf("loadKeys(\"\"): %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("loadKeys(\"\") returned %d keys, want 0", len(keys))
	}
}

func TestLoadKeysRejectsBadKey(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keys.json")
	if err := os.WriteFile(path, []byte(`{"main": "not-hex"}`), 0600); err != nil {
		t.Fatalf("writing keys file: %v", err)
	}
	if _, err := loadKeys(path); err == nil {
		t.Fatal("loadKeys accepted a malformed key")
	}
}

func TestMaxApprovalIsUint256Max(t *testing.T) {
	want, _ := new(big.Int).SetString(
		"ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff", 16)
	if maxApproval.Cmp(want) != 0 {
		t.Errorf("maxApproval = %s, want 2^256-1", maxApproval)
	}
}
