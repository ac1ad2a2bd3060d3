package decode

import (
	"callbridge/pkg/codec"
	"callbridge/pkg/models"
)

// Decoder is one entry of a decoding chain. Decode either claims the raw
// response, producing a terminal outcome, or declines by returning
// (nil, false) so the next entry runs. target is the value a success body
// would deserialize into; entries that do not produce success outcomes may
// ignore it.
type Decoder interface {
	Decode(opKey string, raw *models.RawResponse, target any) (*models.Outcome, bool)
}

// DecoderFunc adapts a function to the Decoder interface.
type DecoderFunc func(opKey string, raw *models.RawResponse, target any) (*models.Outcome, bool)

func (f DecoderFunc) Decode(opKey string, raw *models.RawResponse, target any) (*models.Outcome, bool) {
	return f(opKey, raw, target)
}

// Chain is an ordered sequence of decoders terminated by a default entry
// that always classifies. Chains are configured once per logical service
// and shared read-only across invocations.
type Chain struct {
	entries []Decoder
	def     *DefaultDecoder
}

// NewChain builds a chain over the given codec with optional custom
// entries running ahead of the default.
func NewChain(c codec.Codec, entries ...Decoder) *Chain {
	if c == nil {
		c = codec.JSON{}
	}
	return &Chain{entries: entries, def: &DefaultDecoder{codec: c}}
}

// Decode walks the chain from index 0 until an entry claims the response.
// The terminal default never declines, so every response reaches a
// terminal outcome. An entry that panics is treated as having declined so
// one buggy custom decoder cannot poison the chain.
func (ch *Chain) Decode(opKey string, raw *models.RawResponse, target any) *models.Outcome {
	for _, e := range ch.entries {
		if out, claimed := safeDecode(e, opKey, raw, target); claimed {
			return out
		}
	}
	out, _ := ch.def.Decode(opKey, raw, target)
	return out
}

func safeDecode(e Decoder, opKey string, raw *models.RawResponse, target any) (out *models.Outcome, claimed bool) {
	defer func() {
		if recover() != nil {
			out, claimed = nil, false
		}
	}()
	return e.Decode(opKey, raw, target)
}

// DefaultDecoder is the mandatory terminal entry. Classification by range:
// 2xx decodes the body (decode failure is a transport-level failure, not a
// server error); 4xx is a client error; 5xx and every unknown range is a
// server error with the raw code preserved, since unknown ranges indicate
// an ambiguous deployment.
type DefaultDecoder struct {
	codec codec.Codec
}

func (d *DefaultDecoder) Decode(opKey string, raw *models.RawResponse, target any) (*models.Outcome, bool) {
	switch {
	case raw.StatusCode >= 200 && raw.StatusCode <= 299:
		if target != nil && len(raw.Body) > 0 {
			if err := d.codec.Unmarshal(raw.Body, target); err != nil {
				return models.TransportFailure(models.FailureDecode, err), true
			}
		}
		return models.Success(raw.StatusCode, raw.Header, target), true
	case raw.StatusCode >= 400 && raw.StatusCode <= 499:
		return models.ClientError(raw.StatusCode, raw.Body, opKey), true
	default:
		return models.ServerError(raw.StatusCode, raw.Body), true
	}
}

// ForStatus builds a custom entry claiming exactly the given status codes
// and classifying them with a specific operation key. It models the
// hand-written error decoders that special-case 400/404 responses.
func ForStatus(opKey string, statuses ...int) Decoder {
	claimed := make(map[int]struct{}, len(statuses))
	for _, s := range statuses {
		claimed[s] = struct{}{}
	}
	return DecoderFunc(func(_ string, raw *models.RawResponse, _ any) (*models.Outcome, bool) {
		if _, ok := claimed[raw.StatusCode]; !ok {
			return nil, false
		}
		if raw.StatusCode >= 500 {
			return models.ServerError(raw.StatusCode, raw.Body), true
		}
		return models.ClientError(raw.StatusCode, raw.Body, opKey), true
	})
}
