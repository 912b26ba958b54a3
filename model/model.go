// Package model holds the BERT-family sentiment architectures: a frozen
// encoder producing per-token hidden states, and per-variant trainable
// classification heads with local-context weighting applied between the
// two.
package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Config carries the model hyperparameters.
type Config struct {
	Variant      Variant
	LCFMode      LCFMode
	LearningRate float64
	L2Reg        float64
	// Sigma weights the auxiliary local-context loss for LCA variants:
	// (1-sigma)*main + sigma*aux.
	Sigma float64
}

// DefaultConfig returns the hyperparameters used across the benchmark
// scripts.
func DefaultConfig() Config {
	return Config{
		Variant:      LCFBert,
		LCFMode:      CDW,
		LearningRate: 2e-3,
		L2Reg:        1e-5,
		Sigma:        0.3,
	}
}

// Model combines the frozen encoder with the trainable heads for one
// variant.
type Model struct {
	cfg     Config
	enc     Encoder
	dim     int
	featDim int

	// sentiment head: NumPolarities x (featDim+1), bias last.
	w []float64
	// auxiliary local-context head for LCA variants: 2 x (dim+1).
	u []float64

	opt    *Adam
	auxOpt *Adam
}

// New builds a model. All head weights start at zero; the softmax then
// starts uniform, matching a freshly initialized classifier.
func New(cfg Config, enc Encoder) (*Model, error) {
	if enc == nil {
		return nil, fmt.Errorf("model: nil encoder")
	}
	dim := enc.Dim()
	if dim <= 0 {
		return nil, fmt.Errorf("model: encoder dim %d", dim)
	}
	m := &Model{cfg: cfg, enc: enc, dim: dim}
	switch {
	case !cfg.Variant.UsesLCF():
		m.featDim = dim
	case cfg.Variant.Slide():
		m.featDim = 4 * dim
	default:
		m.featDim = 2 * dim
	}
	m.w = make([]float64, NumPolarities*(m.featDim+1))
	m.opt = NewAdam(len(m.w), cfg.LearningRate, cfg.L2Reg)
	if cfg.Variant.LCA() {
		m.u = make([]float64, 2*(dim+1))
		m.auxOpt = NewAdam(len(m.u), cfg.LearningRate, cfg.L2Reg)
	}
	return m, nil
}

// Variant returns the architecture the model was built for.
func (m *Model) Variant() Variant { return m.cfg.Variant }

// LCFMode returns the active context-weighting mode.
func (m *Model) LCFMode() LCFMode { return m.cfg.LCFMode }

// Config returns the model hyperparameters.
func (m *Model) Config() Config { return m.cfg }

// Dim returns the encoder's hidden dimension.
func (m *Model) Dim() int { return m.dim }

// features assembles the head input vector for one record. For LCA
// variants it also returns the raw-text hidden states the auxiliary head
// reads.
func (m *Model) features(rec Record) (phi []float64, rawHidden [][]float64, err error) {
	phi, rawHidden, err = m.assemble(rec)
	if err != nil {
		return nil, nil, err
	}
	if len(phi) != m.featDim {
		return nil, nil, fmt.Errorf("model: record inputs %T do not match variant %s", rec.Inputs, m.cfg.Variant)
	}
	return phi, rawHidden, nil
}

func (m *Model) assemble(rec Record) (phi []float64, rawHidden [][]float64, err error) {
	switch in := rec.Inputs.(type) {
	case BaseInputs:
		h, err := m.enc.Encode(in.TextRawIndices)
		if err != nil {
			return nil, nil, err
		}
		return cloneFloats(h[0]), nil, nil

	case LCFInputs:
		return m.lcfFeatures(in.TextIndices, in.TextRawIndices, in.LCFVec)

	case LCAInputs:
		return m.lcfFeatures(in.TextIndices, in.TextRawIndices, in.LCFVec)

	case SlideInputs:
		h, err := m.enc.Encode(in.TextIndices)
		if err != nil {
			return nil, nil, err
		}
		n := seqLen(in.TextIndices)
		phi := make([]float64, 0, 4*m.dim)
		phi = append(phi, weightedPool(h, in.SPCMask, n, m.dim)...)
		phi = append(phi, weightedPool(h, in.LCFVec, n, m.dim)...)
		phi = append(phi, weightedPool(h, in.LeftLCFVec, n, m.dim)...)
		phi = append(phi, weightedPool(h, in.RightLCFVec, n, m.dim)...)
		return phi, nil, nil
	}
	return nil, nil, fmt.Errorf("model: record inputs %T do not match variant %s", rec.Inputs, m.cfg.Variant)
}

func (m *Model) lcfFeatures(textIDs, rawIDs []int64, lcf []float64) ([]float64, [][]float64, error) {
	g, err := m.enc.Encode(textIDs)
	if err != nil {
		return nil, nil, err
	}
	h, err := m.enc.Encode(rawIDs)
	if err != nil {
		return nil, nil, err
	}
	n := seqLen(rawIDs)
	phi := make([]float64, 0, 2*m.dim)
	phi = append(phi, g[0]...)
	phi = append(phi, weightedPool(h, lcf, n, m.dim)...)
	return phi, h, nil
}

// Logits computes sentiment logits for one record.
func (m *Model) Logits(rec Record) ([]float64, error) {
	phi, _, err := m.features(rec)
	if err != nil {
		return nil, err
	}
	return m.headLogits(phi), nil
}

// Predict returns the predicted class index and the softmax probabilities.
func (m *Model) Predict(rec Record) (int, []float64, error) {
	logits, err := m.Logits(rec)
	if err != nil {
		return 0, nil, err
	}
	probs := softmax(logits)
	return argmax(probs), probs, nil
}

func (m *Model) headLogits(phi []float64) []float64 {
	logits := make([]float64, NumPolarities)
	for c := 0; c < NumPolarities; c++ {
		off := c * (m.featDim + 1)
		logits[c] = floats.Dot(m.w[off:off+m.featDim], phi) + m.w[off+m.featDim]
	}
	return logits
}

// Step runs one forward/backward pass over a labeled batch and applies an
// optimizer update. Unlabeled records are skipped. Returns the combined
// loss.
func (m *Model) Step(batch []Record) (float64, error) {
	grad := make([]float64, len(m.w))
	var auxGrad []float64
	if m.cfg.Variant.LCA() {
		auxGrad = make([]float64, len(m.u))
	}

	var loss, auxLoss float64
	labeled := 0
	for _, rec := range batch {
		target, ok := rec.Label()
		if !ok {
			continue
		}
		phi, rawHidden, err := m.features(rec)
		if err != nil {
			return 0, err
		}
		labeled++

		probs := softmax(m.headLogits(phi))
		loss -= math.Log(math.Max(probs[target], 1e-12))
		for c := 0; c < NumPolarities; c++ {
			d := probs[c]
			if c == target {
				d--
			}
			off := c * (m.featDim + 1)
			floats.AddScaled(grad[off:off+m.featDim], d, phi)
			grad[off+m.featDim] += d
		}

		if m.cfg.Variant.LCA() {
			in, ok := rec.Inputs.(LCAInputs)
			if !ok {
				return 0, fmt.Errorf("model: record inputs %T do not match variant %s", rec.Inputs, m.cfg.Variant)
			}
			auxLoss += m.lcaBackward(rawHidden, in, auxGrad)
		}
	}
	if labeled == 0 {
		return 0, fmt.Errorf("model: no labeled records in batch")
	}

	inv := 1 / float64(labeled)
	floats.Scale(inv, grad)
	loss *= inv

	total := loss
	if m.cfg.Variant.LCA() {
		floats.Scale(inv, auxGrad)
		auxLoss *= inv
		total = (1-m.cfg.Sigma)*loss + m.cfg.Sigma*auxLoss
		// main gradient scales with its loss weight, aux with sigma
		floats.Scale(1-m.cfg.Sigma, grad)
		floats.Scale(m.cfg.Sigma, auxGrad)
		m.auxOpt.Step(m.u, auxGrad)
	}
	m.opt.Step(m.w, grad)
	return total, nil
}

// lcaBackward accumulates the auxiliary local-context prediction loss and
// its gradient: a per-position binary softmax over the raw-text hidden
// states, supervised by the lca ids.
func (m *Model) lcaBackward(hidden [][]float64, in LCAInputs, grad []float64) float64 {
	n := seqLen(in.TextRawIndices)
	if n == 0 || len(hidden) == 0 {
		return 0
	}
	var loss float64
	for i := 0; i < n && i < len(hidden); i++ {
		label := 0
		if i < len(in.LCAIds) && in.LCAIds[i] != 0 {
			label = 1
		}
		logits := make([]float64, 2)
		for c := 0; c < 2; c++ {
			off := c * (m.dim + 1)
			logits[c] = floats.Dot(m.u[off:off+m.dim], hidden[i]) + m.u[off+m.dim]
		}
		probs := softmax(logits)
		loss -= math.Log(math.Max(probs[label], 1e-12))
		for c := 0; c < 2; c++ {
			d := probs[c]
			if c == label {
				d--
			}
			off := c * (m.dim + 1)
			floats.AddScaled(grad[off:off+m.dim], d/float64(n), hidden[i])
			grad[off+m.dim] += d / float64(n)
		}
	}
	return loss / float64(n)
}

// TrainingState is a copyable snapshot of everything training mutates:
// head weights and optimizer moments. Fold resets restore it as a value,
// with no ambient files involved.
type TrainingState struct {
	W      []float64  `json:"w"`
	U      []float64  `json:"u,omitempty"`
	Opt    AdamState  `json:"opt"`
	AuxOpt *AdamState `json:"aux_opt,omitempty"`
}

// State snapshots the trainable state.
func (m *Model) State() TrainingState {
	st := TrainingState{W: cloneFloats(m.w), Opt: m.opt.State()}
	if m.cfg.Variant.LCA() {
		st.U = cloneFloats(m.u)
		aux := m.auxOpt.State()
		st.AuxOpt = &aux
	}
	return st
}

// Restore resets the trainable state to a snapshot.
func (m *Model) Restore(st TrainingState) {
	m.w = cloneFloats(st.W)
	m.opt.Restore(st.Opt)
	if m.cfg.Variant.LCA() && st.AuxOpt != nil {
		m.u = cloneFloats(st.U)
		m.auxOpt.Restore(*st.AuxOpt)
	}
}

// Weights exposes the sentiment-head parameters for serialization.
func (m *Model) Weights() ([]float64, []float64) { return m.w, m.u }

// SetWeights installs deserialized head parameters.
func (m *Model) SetWeights(w, u []float64) error {
	if len(w) != len(m.w) {
		return fmt.Errorf("model: weight length %d, want %d", len(w), len(m.w))
	}
	m.w = cloneFloats(w)
	if m.cfg.Variant.LCA() {
		if len(u) != len(m.u) {
			return fmt.Errorf("model: aux weight length %d, want %d", len(u), len(m.u))
		}
		m.u = cloneFloats(u)
	}
	return nil
}

// seqLen is the effective (non-padding) length of an id sequence.
func seqLen(ids []int64) int {
	n := 0
	for i, id := range ids {
		if id != 0 {
			n = i + 1
		}
	}
	return n
}

// weightedPool averages hidden states weighted per position. Positions at
// or past n (padding) are excluded.
func weightedPool(hidden [][]float64, weights []float64, n, dim int) []float64 {
	out := make([]float64, dim)
	var total float64
	for i := 0; i < n && i < len(hidden); i++ {
		w := 1.0
		if i < len(weights) {
			w = weights[i]
		}
		if w == 0 {
			continue
		}
		floats.AddScaled(out, w, hidden[i])
		total += w
	}
	if total > 0 {
		floats.Scale(1/total, out)
	}
	return out
}

func softmax(logits []float64) []float64 {
	maxLogit := floats.Max(logits)
	probs := make([]float64, len(logits))
	var sum float64
	for i, l := range logits {
		probs[i] = math.Exp(l - maxLogit)
		sum += probs[i]
	}
	floats.Scale(1/sum, probs)
	return probs
}

func argmax(vals []float64) int {
	best, bestVal := 0, math.Inf(-1)
	for i, v := range vals {
		if v > bestVal {
			best, bestVal = i, v
		}
	}
	return best
}
