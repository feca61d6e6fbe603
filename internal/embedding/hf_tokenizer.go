package embedding

import (
	"fmt"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
)

// HFTokenizer wraps a Hugging Face tokenizer.json so ONNX exports of
// sentence-transformers models receive the vocabulary they were trained with.
type HFTokenizer struct {
	tk *tokenizer.Tokenizer
}

// NewHFTokenizer loads a tokenizer.json file.
func NewHFTokenizer(path string) (*HFTokenizer, error) {
	tk, err := pretrained.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer %s: %w", path, err)
	}
	return &HFTokenizer{tk: tk}, nil
}

// Tokenize encodes text with special tokens, truncating to maxTokens and padding with zeros.
// On encoder failure it falls back to an empty [CLS] [SEP] sequence.
func (t *HFTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	if maxTokens <= 0 {
		maxTokens = 256
	}
	inputIDs, attentionMask, tokenTypeIDs = newTokenBuffers(maxTokens)

	en, err := t.tk.EncodeSingle(text, true)
	if err != nil || len(en.Ids) == 0 {
		inputIDs[0], attentionMask[0] = clsTokenID, 1
		if maxTokens > 1 {
			inputIDs[1], attentionMask[1] = sepTokenID, 1
		}
		return inputIDs, attentionMask, tokenTypeIDs
	}

	ids := en.Ids
	if len(ids) > maxTokens {
		// Keep the trailing [SEP] so the model still sees a terminated sequence.
		last := ids[len(ids)-1]
		ids = append(ids[:maxTokens-1:maxTokens-1], last)
	}
	for i, id := range ids {
		inputIDs[i] = int64(id)
		attentionMask[i] = 1
		if i < len(en.TypeIds) {
			tokenTypeIDs[i] = int64(en.TypeIds[i])
		}
	}
	return inputIDs, attentionMask, tokenTypeIDs
}
