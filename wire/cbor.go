package wire

import "github.com/fxamacker/cbor/v2"

// encMode produces canonical (RFC 8949 §4.2.1) CBOR: map keys are emitted
// in a fixed, bytewise-sorted order regardless of Go map iteration order.
// This is what the spec's "deterministic CBOR" requirement means in
// practice — the same logical value always serializes to the same bytes.
var encMode cbor.EncMode

// decMode is the default decode mode: unrecognized map keys are ignored
// rather than rejected, which is what lets unknown MessageType/Event tags
// and future Packet fields decode without failing older peers. A value
// decoded from an unknown tag cannot be re-encoded.
var decMode cbor.DecMode

func init() {
	var err error
	encMode, err = cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic("wire: build canonical cbor encode mode: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("wire: build cbor decode mode: " + err.Error())
	}
}

func marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

func unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}
