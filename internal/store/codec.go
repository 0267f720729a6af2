package store

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/roach88/exprstate/internal/ir"
)

type coders struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
	err error
}

// payloadCoders builds the shared zstd coders on first use. EncodeAll and
// DecodeAll are safe for concurrent use on them.
var payloadCoders = sync.OnceValue(func() coders {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return coders{err: fmt.Errorf("zstd encoder: %w", err)}
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return coders{err: fmt.Errorf("zstd decoder: %w", err)}
	}
	return coders{enc: enc, dec: dec}
})

// encodeExpression converts an expression to a compressed JSON payload.
func encodeExpression(data ir.ExpressionData) ([]byte, error) {
	c := payloadCoders()
	if c.err != nil {
		return nil, fmt.Errorf("encode expression: %w", c.err)
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode expression: %w", err)
	}
	return c.enc.EncodeAll(raw, nil), nil
}

// decodeExpression parses a compressed JSON payload.
func decodeExpression(payload []byte) (ir.ExpressionData, error) {
	c := payloadCoders()
	if c.err != nil {
		return ir.ExpressionData{}, fmt.Errorf("decode expression: %w", c.err)
	}
	raw, err := c.dec.DecodeAll(payload, nil)
	if err != nil {
		return ir.ExpressionData{}, fmt.Errorf("decode expression: decompress: %w", err)
	}
	var data ir.ExpressionData
	if err := json.Unmarshal(raw, &data); err != nil {
		return ir.ExpressionData{}, fmt.Errorf("decode expression: %w", err)
	}
	return data, nil
}

// marshalBindings converts a binding map to canonical JSON TEXT.
func marshalBindings(bindings map[string]ir.ExprHash) (string, error) {
	if bindings == nil {
		bindings = map[string]ir.ExprHash{}
	}
	data, err := ir.MarshalCanonical(bindings)
	if err != nil {
		return "", fmt.Errorf("marshal bindings: %w", err)
	}
	return string(data), nil
}

// unmarshalBindings parses a binding map. Empty text yields an empty map.
func unmarshalBindings(text string) (map[string]ir.ExprHash, error) {
	out := map[string]ir.ExprHash{}
	if text == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, fmt.Errorf("unmarshal bindings: %w", err)
	}
	return out, nil
}
