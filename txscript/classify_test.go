package txscript

import (
	"encoding/hex"
	"testing"
)

func scriptFromHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestExtractAddressesP2PKH(t *testing.T) {
	script := scriptFromHex(t, "76a91412ab8dc588ca9d5787dde7eb29569da63c3a238c88ac")
	class, addrs := ExtractAddresses(script)
	if class != PubKeyHashTy {
		t.Fatalf("class = %v, want PubKeyHashTy", class)
	}
	if len(addrs) != 1 || addrs[0] != "12higDjoCCNXSA95xZMWUdPvXNmkAduhWv" {
		t.Fatalf("addrs = %v", addrs)
	}
}

func TestExtractAddressesSpecP2PKHVector(t *testing.T) {
	// S2: parse_script(76 a9 14 62e907b15cbf27d5425399ebf6f0fb50ebb88f18 88 ac)
	script := scriptFromHex(t, "76a91462e907b15cbf27d5425399ebf6f0fb50ebb88f1888ac")
	class, addrs := ExtractAddresses(script)
	if class != PubKeyHashTy {
		t.Fatalf("class = %v, want PubKeyHashTy", class)
	}
	if len(addrs) != 1 || addrs[0] != "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa" {
		t.Fatalf("addrs = %v", addrs)
	}
}

func TestExtractAddressesSpecP2WPKHVector(t *testing.T) {
	// S3: parse_script(00 14 751e76e8199196d454941c45d1b3a323f1433bd6)
	script := scriptFromHex(t, "0014751e76e8199196d454941c45d1b3a323f1433bd6")
	class, addrs := ExtractAddresses(script)
	if class != WitnessV0PubKeyHashTy {
		t.Fatalf("class = %v, want WitnessV0PubKeyHashTy", class)
	}
	if len(addrs) != 1 || addrs[0] != "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4" {
		t.Fatalf("addrs = %v", addrs)
	}
}

func TestExtractAddressesP2PK(t *testing.T) {
	script := scriptFromHex(t, "41044bca633a91de10df85a63d0a24cb09783148fe0e16c92e937fc4491580c860757148effa0595a955f44078b48ba67fa198782e8bb68115da0daa8fde5301f7f9ac")
	class, addrs := ExtractAddresses(script)
	if class != PubKeyTy {
		t.Fatalf("class = %v, want PubKeyTy", class)
	}
	if len(addrs) != 1 || addrs[0] != "1LEWwJkDj8xriE87ALzQYcHjTmD8aqDj1f" {
		t.Fatalf("addrs = %v", addrs)
	}
}

func TestExtractAddressesP2SH(t *testing.T) {
	script := scriptFromHex(t, "a914e9c3dd0c07aac76179ebc76a6c78d4d67c6c160a87")
	class, addrs := ExtractAddresses(script)
	if class != ScriptHashTy {
		t.Fatalf("class = %v, want ScriptHashTy", class)
	}
	if len(addrs) != 1 || addrs[0] != "3P14159f73E4gFr7JterCCQh9QjiTjiZrG" {
		t.Fatalf("addrs = %v", addrs)
	}
}

func TestExtractAddressesMultiSig2of3(t *testing.T) {
	script := scriptFromHex(t, "5221022df8750480ad5b26950b25c7ba79d3e37d75f640f8e5d9bcd5b150a0f85014da"+
		"2103e3818b65bcc73a7d64064106a859cc1a5a728c4345ff0b641209fba0d90de6e9"+
		"21021f2f6e1e50cb6a953935c3601284925decd3fd21bc445712576873fb8c6ebc1853ae")
	class, addrs := ExtractAddresses(script)
	if class != MultiSigTy {
		t.Fatalf("class = %v, want MultiSigTy", class)
	}
	if len(addrs) != 3 {
		t.Fatalf("addrs = %v, want 3 addresses", addrs)
	}
}

func TestExtractAddressesNonStandard(t *testing.T) {
	script := scriptFromHex(t, "736372697074")
	class, addrs := ExtractAddresses(script)
	if class != NonStandardTy {
		t.Fatalf("class = %v, want NonStandardTy", class)
	}
	if len(addrs) != 0 {
		t.Fatalf("addrs = %v, want none", addrs)
	}
}

func TestExtractAddressesBogusScript(t *testing.T) {
	script := scriptFromHex(t, "4cff00")
	class, addrs := ExtractAddresses(script)
	if class != NonStandardTy {
		t.Fatalf("class = %v, want NonStandardTy", class)
	}
	if len(addrs) != 0 {
		t.Fatalf("addrs = %v, want none", addrs)
	}
}

func TestExtractAddressesOpReturn(t *testing.T) {
	script := scriptFromHex(t, "6a0b68656c6c6f20776f726c64")
	class, addrs := ExtractAddresses(script)
	if class != NullDataTy {
		t.Fatalf("class = %v, want NullDataTy", class)
	}
	if len(addrs) != 0 {
		t.Fatalf("addrs = %v, want none", addrs)
	}
}
