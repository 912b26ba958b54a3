package training

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/happyhackingspace/absa/dataset"
	"github.com/happyhackingspace/absa/model"
	"github.com/happyhackingspace/absa/tokenize"
)

const (
	modelFileName  = "model.json"
	configFileName = "config.json"
)

// checkpointFile is the serialized form of the trainable parameters.
type checkpointFile struct {
	W []float64 `json:"w"`
	U []float64 `json:"u,omitempty"`
}

// checkpointConfig records everything needed to rebuild the model and the
// feature pipeline around a fresh encoder.
type checkpointConfig struct {
	Variant      string  `json:"variant"`
	LCFMode      string  `json:"lcf_mode"`
	LearningRate float64 `json:"learning_rate"`
	L2Reg        float64 `json:"l2_reg"`
	Sigma        float64 `json:"sigma"`
	MaxSeqLen    int     `json:"max_seq_len"`
	SRD          int     `json:"srd"`
	EncoderDim   int     `json:"encoder_dim"`
}

// checkpointName encodes variant, context mode and rounded metric
// percentages into the directory name.
func checkpointName(v model.Variant, mode model.LCFMode, acc, f1 float64) string {
	return fmt.Sprintf("%s_%s_acc_%.2f_f1_%.2f", v, mode, acc*100, f1*100)
}

// SaveCheckpoint writes the model weights, pipeline config and tokenizer
// into root/name and returns the directory path.
func SaveCheckpoint(root, name string, m *model.Model, tok tokenize.Tokenizer, dcfg dataset.Config, dim int) (string, error) {
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("training: create checkpoint dir: %w", err)
	}

	w, u := m.Weights()
	if err := writeJSON(filepath.Join(dir, modelFileName), checkpointFile{W: w, U: u}); err != nil {
		return "", err
	}

	mcfg := m.Config()
	cfg := checkpointConfig{
		Variant:      mcfg.Variant.String(),
		LCFMode:      mcfg.LCFMode.String(),
		LearningRate: mcfg.LearningRate,
		L2Reg:        mcfg.L2Reg,
		Sigma:        mcfg.Sigma,
		MaxSeqLen:    dcfg.MaxSeqLen,
		SRD:          dcfg.SRD,
		EncoderDim:   dim,
	}
	if err := writeJSON(filepath.Join(dir, configFileName), cfg); err != nil {
		return "", err
	}

	if s, ok := tok.(tokenize.Saver); ok && s != nil {
		if err := s.Save(dir); err != nil {
			return "", fmt.Errorf("training: save tokenizer: %w", err)
		}
	}
	return dir, nil
}

// LoadCheckpoint rebuilds a trained model from a checkpoint directory. The
// encoder is supplied by the caller; its dimension must match the one the
// checkpoint was trained with.
func LoadCheckpoint(dir string, enc model.Encoder) (*model.Model, dataset.Config, error) {
	var cfg checkpointConfig
	if err := readJSON(filepath.Join(dir, configFileName), &cfg); err != nil {
		return nil, dataset.Config{}, err
	}
	variant, err := model.ParseVariant(cfg.Variant)
	if err != nil {
		return nil, dataset.Config{}, fmt.Errorf("training: checkpoint %s: %w", dir, err)
	}
	mode, err := model.ParseLCFMode(cfg.LCFMode)
	if err != nil {
		return nil, dataset.Config{}, fmt.Errorf("training: checkpoint %s: %w", dir, err)
	}
	if enc.Dim() != cfg.EncoderDim {
		return nil, dataset.Config{}, fmt.Errorf("training: checkpoint %s: encoder dim %d, want %d", dir, enc.Dim(), cfg.EncoderDim)
	}

	m, err := model.New(model.Config{
		Variant:      variant,
		LCFMode:      mode,
		LearningRate: cfg.LearningRate,
		L2Reg:        cfg.L2Reg,
		Sigma:        cfg.Sigma,
	}, enc)
	if err != nil {
		return nil, dataset.Config{}, err
	}

	var weights checkpointFile
	if err := readJSON(filepath.Join(dir, modelFileName), &weights); err != nil {
		return nil, dataset.Config{}, err
	}
	if err := m.SetWeights(weights.W, weights.U); err != nil {
		return nil, dataset.Config{}, fmt.Errorf("training: checkpoint %s: %w", dir, err)
	}

	dcfg := dataset.Config{
		Variant:   variant,
		LCFMode:   mode,
		MaxSeqLen: cfg.MaxSeqLen,
		SRD:       cfg.SRD,
	}
	return m, dcfg, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("training: marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("training: write %s: %w", path, err)
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("training: read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("training: parse %s: %w", path, err)
	}
	return nil
}
