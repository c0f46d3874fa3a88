//go:build onnx

// Package onnx provides a local embedder backed by ONNX Runtime and a
// sentence-transformer model such as all-MiniLM-L6-v2. Build with the
// onnx tag and point Config at the model, tokenizer and shared library.
package onnx

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"

	ort "github.com/yalue/onnxruntime_go"
)

// Config configures the ONNX embedder.
type Config struct {
	// ModelPath is the path to the ONNX model file.
	ModelPath string

	// TokenizerPath is the path to the tokenizer.json vocabulary.
	TokenizerPath string

	// LibraryPath is the onnxruntime shared library location. Empty
	// uses whatever the process environment already provides.
	LibraryPath string

	// Dimensions is the embedding size (default 384 for MiniLM).
	Dimensions int

	// MaxSequence is the token window (default 128).
	MaxSequence int
}

// Embedder generates embeddings with ONNX Runtime.
type Embedder struct {
	session   *ort.DynamicAdvancedSession
	tokenizer *wordPieceTokenizer
	dims      int
	maxSeq    int
}

// New loads the model and tokenizer.
func New(cfg Config) (*Embedder, error) {
	if cfg.ModelPath == "" {
		return nil, fmt.Errorf("ModelPath is required")
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = 384
	}
	if cfg.MaxSequence == 0 {
		cfg.MaxSequence = 128
	}
	if cfg.LibraryPath != "" {
		ort.SetSharedLibraryPath(cfg.LibraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("initialize onnx runtime: %w", err)
	}

	tokenizer, err := loadTokenizer(cfg.TokenizerPath)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer: %w", err)
	}

	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"last_hidden_state"},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("create onnx session: %w", err)
	}

	return &Embedder{
		session:   session,
		tokenizer: tokenizer,
		dims:      cfg.Dimensions,
		maxSeq:    cfg.MaxSequence,
	}, nil
}

// Embed tokenizes the text, runs the model and mean-pools the hidden
// states into a unit vector.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	tokens := e.tokenizer.tokenize(text)

	inputIDs := make([]int64, e.maxSeq)
	attentionMask := make([]int64, e.maxSeq)
	tokenTypeIDs := make([]int64, e.maxSeq)

	inputIDs[0] = int64(e.tokenizer.cls)
	attentionMask[0] = 1

	n := len(tokens)
	if n > e.maxSeq-2 { // room for [CLS] and [SEP]
		n = e.maxSeq - 2
	}
	for i := 0; i < n; i++ {
		inputIDs[i+1] = tokens[i]
		attentionMask[i+1] = 1
	}
	inputIDs[n+1] = int64(e.tokenizer.sep)
	attentionMask[n+1] = 1

	shape := ort.NewShape(1, int64(e.maxSeq))
	idsTensor, err := ort.NewTensor(shape, inputIDs)
	if err != nil {
		return nil, fmt.Errorf("input_ids tensor: %w", err)
	}
	defer idsTensor.Destroy()
	maskTensor, err := ort.NewTensor(shape, attentionMask)
	if err != nil {
		return nil, fmt.Errorf("attention_mask tensor: %w", err)
	}
	defer maskTensor.Destroy()
	typeTensor, err := ort.NewTensor(shape, tokenTypeIDs)
	if err != nil {
		return nil, fmt.Errorf("token_type_ids tensor: %w", err)
	}
	defer typeTensor.Destroy()

	outputs := []ort.Value{nil}
	if err := e.session.Run([]ort.Value{idsTensor, maskTensor, typeTensor}, outputs); err != nil {
		return nil, fmt.Errorf("onnx inference: %w", err)
	}
	defer func() {
		for _, o := range outputs {
			if o != nil {
				o.Destroy()
			}
		}
	}()

	out, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected output tensor type")
	}

	data := out.GetData()
	dims := out.GetShape()

	switch len(dims) {
	case 2: // already pooled
		if len(data) < e.dims {
			return nil, fmt.Errorf("output dimension mismatch: got %d, want %d", len(data), e.dims)
		}
		vec := make([]float32, e.dims)
		copy(vec, data[:e.dims])
		return normalize(vec), nil
	case 3: // [1, seq, hidden] -> mean pool over attended tokens
		seqLen, hidden := int(dims[1]), int(dims[2])
		if hidden != e.dims {
			return nil, fmt.Errorf("hidden size mismatch: got %d, want %d", hidden, e.dims)
		}
		vec := make([]float32, e.dims)
		var attended float32
		for i := 0; i < seqLen; i++ {
			if attentionMask[i] == 0 {
				continue
			}
			attended++
			off := i * hidden
			for j := 0; j < hidden; j++ {
				vec[j] += data[off+j]
			}
		}
		if attended > 0 {
			for j := range vec {
				vec[j] /= attended
			}
		}
		return normalize(vec), nil
	default:
		return nil, fmt.Errorf("unexpected output shape: %v", dims)
	}
}

// Dimensions returns the embedding size.
func (e *Embedder) Dimensions() int {
	return e.dims
}

// Close releases the ONNX session.
func (e *Embedder) Close() error {
	if e.session != nil {
		return e.session.Destroy()
	}
	return nil
}

func normalize(vec []float32) []float32 {
	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec
	}
	norm = float32(math.Sqrt(float64(norm)))
	for i, v := range vec {
		vec[i] = v / norm
	}
	return vec
}

// wordPieceTokenizer is a minimal BERT-style WordPiece tokenizer fed
// from tokenizer.json.
type wordPieceTokenizer struct {
	vocab map[string]int
	cls   int
	sep   int
	unk   int
}

func loadTokenizer(path string) (*wordPieceTokenizer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file struct {
		Model struct {
			Vocab map[string]int `json:"vocab"`
		} `json:"model"`
	}
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	return &wordPieceTokenizer{
		vocab: file.Model.Vocab,
		cls:   101,
		sep:   102,
		unk:   100,
	}, nil
}

func (t *wordPieceTokenizer) tokenize(text string) []int64 {
	var tokens []int64
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?;:\"'")
		if word == "" {
			continue
		}
		if id, ok := t.vocab[word]; ok {
			tokens = append(tokens, int64(id))
			continue
		}
		for _, piece := range t.split(word) {
			if id, ok := t.vocab[piece]; ok {
				tokens = append(tokens, int64(id))
			} else {
				tokens = append(tokens, int64(t.unk))
			}
		}
	}
	return tokens
}

// split applies greedy longest-prefix WordPiece segmentation.
func (t *wordPieceTokenizer) split(word string) []string {
	var pieces []string
	start := 0
	for start < len(word) {
		end := len(word)
		found := false
		for end > start {
			piece := word[start:end]
			if start > 0 {
				piece = "##" + piece
			}
			if _, ok := t.vocab[piece]; ok {
				pieces = append(pieces, piece)
				start = end
				found = true
				break
			}
			end--
		}
		if !found {
			pieces = append(pieces, "[UNK]")
			start++
		}
	}
	return pieces
}
