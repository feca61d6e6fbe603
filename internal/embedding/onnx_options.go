package embedding

import (
	"fmt"
	"os"
)

// OutputLastHiddenState is the output name of plain sentence-transformers ONNX
// exports; embeddings are then mean-pooled over the attention mask.
const OutputLastHiddenState = "last_hidden_state"

// ONNXOptions configures an ONNXEmbedder.
type ONNXOptions struct {
	ModelPath string
	// TokenizerPath points at a Hugging Face tokenizer.json. When empty the
	// hash-based SimpleTokenizer is used, which only suits models trained on it.
	TokenizerPath string
	// OutputName is the model output to read: a pooled [1, dim] tensor, or
	// OutputLastHiddenState for [1, tokens, dim].
	OutputName string
	Dimensions int
	MaxTokens  int
}

func (o *ONNXOptions) applyDefaults() {
	if o.OutputName == "" {
		o.OutputName = "output"
	}
	if o.Dimensions <= 0 {
		o.Dimensions = 384
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = 256
	}
}

func (o *ONNXOptions) tokenizer() (Tokenizer, error) {
	if o.TokenizerPath == "" {
		return &SimpleTokenizer{}, nil
	}
	if _, err := os.Stat(o.TokenizerPath); err != nil {
		return nil, fmt.Errorf("tokenizer file: %w", err)
	}
	return NewHFTokenizer(o.TokenizerPath)
}

// MeanPool averages token vectors of a [tokens, dim] row-major buffer, counting
// only positions whose attention mask is set.
func MeanPool(hidden []float32, attentionMask []int64, dim int) []float32 {
	out := make([]float32, dim)
	var count float32
	for t, m := range attentionMask {
		if m == 0 {
			continue
		}
		if (t+1)*dim > len(hidden) {
			break
		}
		row := hidden[t*dim : (t+1)*dim]
		for i, v := range row {
			out[i] += v
		}
		count++
	}
	if count == 0 {
		return out
	}
	for i := range out {
		out[i] /= count
	}
	return out
}
