package props

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// encMode uses Core Deterministic Encoding so identical trees always
// produce identical bytes.
var encMode cbor.EncMode

// decMode decodes untyped maps as map[string]any to match Tree.
var decMode cbor.DecMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("props: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("props: CBOR decoder initialization failed: " + err.Error())
	}
}

// Encode serializes a tree to CBOR.
func Encode(tree Tree) ([]byte, error) {
	return encMode.Marshal(tree)
}

// Decode builds a payload from a CBOR-encoded map.
// Empty input yields an empty payload.
func Decode(data []byte) (*Payload, error) {
	if len(data) == 0 {
		return New(nil), nil
	}
	var tree Tree
	if err := decMode.Unmarshal(data, &tree); err != nil {
		return nil, err
	}
	return New(tree), nil
}
