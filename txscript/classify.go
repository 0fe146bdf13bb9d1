package txscript

// ScriptClass identifies the recognized shape of a scriptPubKey.
type ScriptClass int

const (
	NonStandardTy ScriptClass = iota
	PubKeyTy
	PubKeyHashTy
	ScriptHashTy
	WitnessV0PubKeyHashTy
	WitnessV0ScriptHashTy
	WitnessV1TaprootTy
	WitnessUnknownTy
	MultiSigTy
	NullDataTy
)

func (c ScriptClass) String() string {
	switch c {
	case PubKeyTy:
		return "pubkey"
	case PubKeyHashTy:
		return "pubkeyhash"
	case ScriptHashTy:
		return "scripthash"
	case WitnessV0PubKeyHashTy:
		return "witness_v0_keyhash"
	case WitnessV0ScriptHashTy:
		return "witness_v0_scripthash"
	case WitnessV1TaprootTy:
		return "witness_v1_taproot"
	case WitnessUnknownTy:
		return "witness_unknown"
	case MultiSigTy:
		return "multisig"
	case NullDataTy:
		return "nulldata"
	default:
		return "nonstandard"
	}
}

// classify inspects the already-parsed instruction sequence and
// returns its ScriptClass, following the dispatch order spec.md lays
// out: p2pkh, p2sh, p2pk, p2wpkh, p2wsh, p2tr, then other witness
// versions (witness-unknown), multisig, op_return, else non-standard. A parse failure (truncated push) is treated as
// non-standard rather than propagated, per the classifier's
// never-error contract.
func classify(script []byte) ScriptClass {
	ins, err := parseScript(script)
	if err != nil {
		return NonStandardTy
	}

	switch {
	case isPubKeyHash(ins):
		return PubKeyHashTy
	case isScriptHash(ins):
		return ScriptHashTy
	case isPubKey(ins):
		return PubKeyTy
	case isWitnessV0KeyHash(ins):
		return WitnessV0PubKeyHashTy
	case isWitnessV0ScriptHash(ins):
		return WitnessV0ScriptHashTy
	case isWitnessTaproot(ins):
		return WitnessV1TaprootTy
	case isWitnessUnknown(ins):
		return WitnessUnknownTy
	case isMultiSig(ins):
		return MultiSigTy
	case isNullData(ins):
		return NullDataTy
	default:
		return NonStandardTy
	}
}

// isPubKeyHash matches OP_DUP OP_HASH160 <20> OP_EQUALVERIFY OP_CHECKSIG.
func isPubKeyHash(ins []Instruction) bool {
	return len(ins) == 5 &&
		ins[0].Op == OP_DUP &&
		ins[1].Op == OP_HASH160 &&
		ins[2].IsPush() && len(ins[2].Data) == 20 &&
		ins[3].Op == OP_EQUALVERIFY &&
		ins[4].Op == OP_CHECKSIG
}

// isScriptHash matches OP_HASH160 <20> OP_EQUAL.
func isScriptHash(ins []Instruction) bool {
	return len(ins) == 3 &&
		ins[0].Op == OP_HASH160 &&
		ins[1].IsPush() && len(ins[1].Data) == 20 &&
		ins[2].Op == OP_EQUAL
}

// isPubKey matches <pubkey> OP_CHECKSIG, for a 33-byte compressed or
// 65-byte uncompressed key.
func isPubKey(ins []Instruction) bool {
	return len(ins) == 2 &&
		ins[0].IsPush() && (len(ins[0].Data) == 33 || len(ins[0].Data) == 65) &&
		ins[1].Op == OP_CHECKSIG
}

// isWitnessV0KeyHash matches OP_0 <20>.
func isWitnessV0KeyHash(ins []Instruction) bool {
	return len(ins) == 2 && ins[0].Op == OP_0 && ins[1].IsPush() && len(ins[1].Data) == 20
}

// isWitnessV0ScriptHash matches OP_0 <32>.
func isWitnessV0ScriptHash(ins []Instruction) bool {
	return len(ins) == 2 && ins[0].Op == OP_0 && ins[1].IsPush() && len(ins[1].Data) == 32
}

// isWitnessTaproot matches OP_1 <32>, the v1 witness program shape
// used by taproot outputs.
func isWitnessTaproot(ins []Instruction) bool {
	return len(ins) == 2 && ins[0].Op == OP_1 && ins[1].IsPush() && len(ins[1].Data) == 32
}

// isWitnessUnknown matches OP_N <2..40 bytes> for witness versions
// other than 0 and 1 (reserved for future soft forks).
func isWitnessUnknown(ins []Instruction) bool {
	if len(ins) != 2 {
		return false
	}
	if !isSmallInt(ins[0].Op) || ins[0].Op == OP_0 || ins[0].Op == OP_1 || ins[0].Op == OP_1NEGATE {
		return false
	}
	return ins[1].IsPush() && len(ins[1].Data) >= 2 && len(ins[1].Data) <= 40
}

// isNullData matches a script beginning with OP_RETURN.
func isNullData(ins []Instruction) bool {
	return len(ins) >= 1 && ins[0].Op == OP_RETURN
}

// isMultiSig matches <m> <pk1>...<pkn> <n> OP_CHECKMULTISIG[VERIFY]
// with 1<=m<=n<=16, translated from BitcoinJ's isSentToMultisig via
// original_source's Rust port.
func isMultiSig(ins []Instruction) bool {
	if len(ins) < 4 {
		return false
	}
	last := ins[len(ins)-1]
	if last.IsPush() || (last.Op != OP_CHECKMULTISIG && last.Op != OP_CHECKMULTISIGVERIFY) {
		return false
	}
	nOp := ins[len(ins)-2]
	n, ok := smallIntValue(nOp)
	if !ok || n < 1 || n > 16 || int(n)+3 != len(ins) {
		return false
	}
	for _, mid := range ins[1 : len(ins)-2] {
		if !mid.IsPush() {
			return false
		}
	}
	mOp := ins[0]
	m, ok := smallIntValue(mOp)
	if !ok || m < 1 || m > n {
		return false
	}
	return true
}

// smallIntValue reports the integer encoded by one of the OP_N family
// opcodes (OP_0, OP_1NEGATE, OP_1..OP_16), or ok=false if ins is a push
// or any other opcode.
func smallIntValue(ins Instruction) (int, bool) {
	if ins.IsPush() {
		return 0, false
	}
	if !isSmallInt(ins.Op) {
		return 0, false
	}
	return asSmallInt(ins.Op), true
}

// multiSigPubKeys returns the raw pubkey pushes of a script already
// known to satisfy isMultiSig.
func multiSigPubKeys(ins []Instruction) [][]byte {
	n, _ := smallIntValue(ins[len(ins)-2])
	keys := make([][]byte, 0, n)
	for _, mid := range ins[1 : len(ins)-2] {
		keys = append(keys, mid.Data)
	}
	return keys
}

// pubKeyPush returns the raw pubkey push of a script already known to
// satisfy isPubKey.
func pubKeyPush(ins []Instruction) []byte {
	return ins[0].Data
}
