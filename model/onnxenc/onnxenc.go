// Package onnxenc runs a pretrained BERT encoder exported to ONNX,
// producing the per-token hidden states the classification heads consume.
package onnxenc

import (
	"errors"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// Config locates the runtime library and the exported encoder.
type Config struct {
	// OrtDLL is the path to the onnxruntime shared library. Empty means
	// the platform default lookup.
	OrtDLL    string
	ModelPath string
	MaxSeqLen int
	// HiddenDim is the encoder output width (768 for bert-base).
	HiddenDim int
}

// Encoder is a thin session wrapper over the ONNX encoder. Safe for
// sequential use; guarded by a mutex because ORT sessions are not
// reentrant.
type Encoder struct {
	cfg     Config
	session *ort.DynamicAdvancedSession
	mu      sync.Mutex
}

var initOnce sync.Once
var initErr error

// New initializes the ORT environment (once per process) and opens a
// session on the model.
func New(cfg Config) (*Encoder, error) {
	if cfg.ModelPath == "" {
		return nil, errors.New("onnxenc: model path is required")
	}
	if cfg.MaxSeqLen <= 0 || cfg.HiddenDim <= 0 {
		return nil, fmt.Errorf("onnxenc: invalid dims seq=%d hidden=%d", cfg.MaxSeqLen, cfg.HiddenDim)
	}
	initOnce.Do(func() {
		if cfg.OrtDLL != "" {
			ort.SetSharedLibraryPath(cfg.OrtDLL)
		}
		initErr = ort.InitializeEnvironment()
	})
	if initErr != nil {
		return nil, fmt.Errorf("onnxenc: init environment: %w", initErr)
	}

	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"last_hidden_state"},
		nil)
	if err != nil {
		return nil, fmt.Errorf("onnxenc: open session: %w", err)
	}
	return &Encoder{cfg: cfg, session: session}, nil
}

// Dim returns the hidden-state width.
func (e *Encoder) Dim() int { return e.cfg.HiddenDim }

// Encode runs the encoder on one id sequence and returns MaxSeqLen hidden
// vectors.
func (e *Encoder) Encode(ids []int64) ([][]float64, error) {
	if e.session == nil {
		return nil, errors.New("onnxenc: encoder is closed")
	}
	seqLen := e.cfg.MaxSeqLen
	input := make([]int64, seqLen)
	mask := make([]int64, seqLen)
	types := make([]int64, seqLen)
	for i := 0; i < seqLen && i < len(ids); i++ {
		input[i] = ids[i]
		if ids[i] != 0 {
			mask[i] = 1
		}
	}

	shape := ort.NewShape(1, int64(seqLen))
	inputTensor, err := ort.NewTensor(shape, input)
	if err != nil {
		return nil, fmt.Errorf("onnxenc: input tensor: %w", err)
	}
	defer inputTensor.Destroy()
	maskTensor, err := ort.NewTensor(shape, mask)
	if err != nil {
		return nil, fmt.Errorf("onnxenc: mask tensor: %w", err)
	}
	defer maskTensor.Destroy()
	typeTensor, err := ort.NewTensor(shape, types)
	if err != nil {
		return nil, fmt.Errorf("onnxenc: type tensor: %w", err)
	}
	defer typeTensor.Destroy()

	outTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(seqLen), int64(e.cfg.HiddenDim)))
	if err != nil {
		return nil, fmt.Errorf("onnxenc: output tensor: %w", err)
	}
	defer outTensor.Destroy()

	e.mu.Lock()
	err = e.session.Run(
		[]ort.Value{inputTensor, maskTensor, typeTensor},
		[]ort.Value{outTensor})
	e.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("onnxenc: run: %w", err)
	}

	data := outTensor.GetData()
	out := make([][]float64, seqLen)
	for i := 0; i < seqLen; i++ {
		row := make([]float64, e.cfg.HiddenDim)
		off := i * e.cfg.HiddenDim
		for d := 0; d < e.cfg.HiddenDim; d++ {
			row[d] = float64(data[off+d])
		}
		out[i] = row
	}
	return out, nil
}

// Close releases the ORT session.
func (e *Encoder) Close() error {
	if e.session != nil {
		err := e.session.Destroy()
		e.session = nil
		return err
	}
	return nil
}
