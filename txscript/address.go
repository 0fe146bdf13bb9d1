package txscript

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
)

// ExtractAddresses classifies a scriptPubKey and returns its class plus
// zero or more mainnet address strings. It never returns an error:
// malformed pushes, invalid pubkeys, or out-of-range witness programs
// simply yield NonStandardTy with no addresses, per spec.
func ExtractAddresses(script []byte) (ScriptClass, []string) {
	ins, err := parseScript(script)
	if err != nil {
		return NonStandardTy, nil
	}
	class := classify(script)

	switch class {
	case PubKeyHashTy:
		addr, err := btcutil.NewAddressPubKeyHash(ins[2].Data, &chaincfg.MainNetParams)
		if err != nil {
			return NonStandardTy, nil
		}
		return class, []string{addr.EncodeAddress()}

	case ScriptHashTy:
		addr, err := btcutil.NewAddressScriptHashFromHash(ins[1].Data, &chaincfg.MainNetParams)
		if err != nil {
			return NonStandardTy, nil
		}
		return class, []string{addr.EncodeAddress()}

	case PubKeyTy:
		// The node's p2pk address display is the p2pkh address derived
		// from hash160(pubkey), not a raw-pubkey encoding.
		hash := btcutil.Hash160(pubKeyPush(ins))
		addr, err := btcutil.NewAddressPubKeyHash(hash, &chaincfg.MainNetParams)
		if err != nil {
			return NonStandardTy, nil
		}
		return class, []string{addr.EncodeAddress()}

	case WitnessV0PubKeyHashTy:
		addr, err := btcutil.NewAddressWitnessPubKeyHash(ins[1].Data, &chaincfg.MainNetParams)
		if err != nil {
			return NonStandardTy, nil
		}
		return class, []string{addr.EncodeAddress()}

	case WitnessV0ScriptHashTy:
		addr, err := btcutil.NewAddressWitnessScriptHash(ins[1].Data, &chaincfg.MainNetParams)
		if err != nil {
			return NonStandardTy, nil
		}
		return class, []string{addr.EncodeAddress()}

	case WitnessV1TaprootTy:
		addr, err := btcutil.NewAddressTaproot(ins[1].Data, &chaincfg.MainNetParams)
		if err != nil {
			return NonStandardTy, nil
		}
		return class, []string{addr.EncodeAddress()}

	case MultiSigTy:
		var addrs []string
		for _, pk := range multiSigPubKeys(ins) {
			hash := btcutil.Hash160(pk)
			addr, err := btcutil.NewAddressPubKeyHash(hash, &chaincfg.MainNetParams)
			if err != nil {
				// Hash160 always yields 20 bytes, so this does not fail
				// in practice; the pushed keys are not checked to be
				// valid pubkeys, and each one yields an address. Should
				// it fail, the multisig is returned with no addresses.
				return class, nil
			}
			addrs = append(addrs, addr.EncodeAddress())
		}
		return class, addrs

	default:
		// NullDataTy, WitnessUnknownTy, NonStandardTy all carry no
		// addresses.
		return class, nil
	}
}
