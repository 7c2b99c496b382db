// Package model provides a linear regression baseline over pooled graph
// features.
package model

import (
	"fmt"
	"math"
	"os"

	"github.com/goccy/go-json"

	"github.com/chazu/uvreg/pkg/dataset"
	"github.com/chazu/uvreg/pkg/trainer"
	"github.com/chazu/uvreg/pkg/uvgraph"
)

// Compile-time interface check.
var _ trainer.Model = (*Regression)(nil)

// FeatureDim is the length of the pooled feature vector: log node count,
// log edge count, mean point (3), point extent (3), mean absolute normal (3).
const FeatureDim = 11

// Regression predicts w·features(graph) + b.
type Regression struct {
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
}

// NewRegression returns a zero-initialised model.
func NewRegression() *Regression {
	return &Regression{Weights: make([]float64, FeatureDim)}
}

// Features pools each graph of a batch into a fixed-length vector. Only
// unmasked samples contribute to the geometric features.
func Features(b *uvgraph.Batch) [][]float64 {
	g := b.Graph
	perNode := g.NumU * g.NumV
	out := make([][]float64, b.Size())
	node := 0
	for i := range out {
		f := make([]float64, FeatureDim)
		f[0] = math.Log1p(float64(b.NodeCounts[i]))
		f[1] = math.Log1p(float64(b.EdgeCounts[i]))

		lo := [3]float64{math.Inf(1), math.Inf(1), math.Inf(1)}
		hi := [3]float64{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
		n := 0
		for k := node * perNode; k < (node+b.NodeCounts[i])*perNode; k++ {
			s := g.X[k*uvgraph.NodeFeatures : (k+1)*uvgraph.NodeFeatures]
			if s[6] <= 0 {
				continue
			}
			n++
			for c := 0; c < 3; c++ {
				p := float64(s[c])
				f[2+c] += p
				f[8+c] += math.Abs(float64(s[3+c]))
				lo[c] = math.Min(lo[c], p)
				hi[c] = math.Max(hi[c], p)
			}
		}
		if n > 0 {
			for c := 0; c < 3; c++ {
				f[2+c] /= float64(n)
				f[8+c] /= float64(n)
				f[5+c] = hi[c] - lo[c]
			}
		}
		node += b.NodeCounts[i]
		out[i] = f
	}
	return out
}

func (m *Regression) predict(f []float64) float64 {
	y := m.Bias
	for j, w := range m.Weights {
		y += w * f[j]
	}
	return y
}

// Predict returns one prediction per graph.
func (m *Regression) Predict(b *dataset.Batch) ([]float32, error) {
	if len(m.Weights) != FeatureDim {
		return nil, fmt.Errorf("model: %d weights, want %d", len(m.Weights), FeatureDim)
	}
	feats := Features(b.Graph)
	out := make([]float32, len(feats))
	for i, f := range feats {
		out[i] = float32(m.predict(f))
	}
	return out, nil
}

// TrainStep takes one gradient descent step on the batch MSE.
func (m *Regression) TrainStep(b *dataset.Batch, lr float64) (float64, error) {
	if len(m.Weights) != FeatureDim {
		return 0, fmt.Errorf("model: %d weights, want %d", len(m.Weights), FeatureDim)
	}
	feats := Features(b.Graph)
	if len(feats) != len(b.Labels) {
		return 0, fmt.Errorf("model: %d graphs, %d labels", len(feats), len(b.Labels))
	}
	if len(feats) == 0 {
		return 0, nil
	}

	gradW := make([]float64, FeatureDim)
	var gradB, loss float64
	scale := 2 / float64(len(feats))
	for i, f := range feats {
		d := m.predict(f) - float64(b.Labels[i])
		loss += d * d
		for j := range gradW {
			gradW[j] += scale * d * f[j]
		}
		gradB += scale * d
	}
	for j := range m.Weights {
		m.Weights[j] -= lr * gradW[j]
	}
	m.Bias -= lr * gradB
	return loss / float64(len(feats)), nil
}

// checkpoint is the on-disk form. A diverged model still saves: non-finite
// parameters are written as strings.
type checkpoint struct {
	trainer.Meta
	Model params `json:"model"`
}

type params struct {
	Weights []trainer.Float `json:"weights"`
	Bias    trainer.Float   `json:"bias"`
}

// Save writes the model and meta as JSON.
func (m *Regression) Save(path string, meta trainer.Meta) error {
	c := checkpoint{Meta: meta, Model: params{Weights: make([]trainer.Float, len(m.Weights)), Bias: trainer.Float(m.Bias)}}
	for i, w := range m.Weights {
		c.Model.Weights[i] = trainer.Float(w)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("model: encode: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("model: %w", err)
	}
	return nil
}

// Load reads a checkpoint written by Save.
func Load(path string) (*Regression, trainer.Meta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, trainer.Meta{}, fmt.Errorf("model: %w", err)
	}
	var c checkpoint
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, trainer.Meta{}, fmt.Errorf("model: decode %s: %w", path, err)
	}
	if len(c.Model.Weights) != FeatureDim {
		return nil, trainer.Meta{}, fmt.Errorf("model: %s: not a regression checkpoint", path)
	}
	m := &Regression{Weights: make([]float64, FeatureDim), Bias: float64(c.Model.Bias)}
	for i, w := range c.Model.Weights {
		m.Weights[i] = float64(w)
	}
	return m, c.Meta, nil
}
