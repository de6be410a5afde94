package trainer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/absmach/flotilla/params"
	"github.com/absmach/flotilla/round"
)

var (
	ErrNoData            = errors.New("trainer has no training data")
	ErrNotConfigured     = errors.New("trainer is not configured")
	ErrDimensionMismatch = errors.New("feature dimension does not match model input shape")
	ErrLabelOutOfRange   = errors.New("label is outside the model class range")
)

// Softmax is a multinomial logistic regression trainer over float32. It
// implements the agent's Trainer and the coordinator's Evaluator against
// the same two-tensor parameter layout: W [input x classes] and b [classes].
type Softmax struct {
	x [][]float32
	y []int

	epochs int
	batch  int
	rng    *rand.Rand

	cfg        round.ModelConfig
	inputDim   int
	classes    int
	configured bool
}

func New(x [][]float32, y []int, epochs, batch int, seed int64) *Softmax {
	if epochs < 1 {
		epochs = 1
	}
	if batch < 1 {
		batch = 1
	}

	return &Softmax{
		x:      x,
		y:      y,
		epochs: epochs,
		batch:  batch,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Init builds the initial global parameters for a model configuration:
// Glorot-uniform W and zero b.
func Init(cfg round.ModelConfig, seed int64) params.ParameterSet {
	in := inputDim(cfg)
	classes := cfg.NumClasses

	w := params.NewTensor(in, classes)
	limit := float32(math.Sqrt(6.0 / float64(in+classes)))
	rng := rand.New(rand.NewSource(seed))
	for i := range w.Data {
		w.Data[i] = (rng.Float32()*2 - 1) * limit
	}

	return params.ParameterSet{w, params.NewTensor(classes)}
}

func inputDim(cfg round.ModelConfig) int {
	in := 1
	for _, d := range cfg.InputShape {
		in *= d
	}

	return in
}

func (t *Softmax) Configure(cfg round.ModelConfig) error {
	in := inputDim(cfg)
	if len(t.x) > 0 && len(t.x[0]) != in {
		return fmt.Errorf("%w: features %d, input %d", ErrDimensionMismatch, len(t.x[0]), in)
	}
	for i, label := range t.y {
		if label < 0 || label >= cfg.NumClasses {
			return fmt.Errorf("%w: sample %d has label %d, model has %d classes", ErrLabelOutOfRange, i, label, cfg.NumClasses)
		}
	}

	t.cfg = cfg
	t.inputDim = in
	t.classes = cfg.NumClasses
	t.configured = true

	return nil
}

// Train runs shuffled mini-batch SGD from the given global parameters and
// returns the trained parameters, the sample count and the step count
// (batches per epoch times epochs).
func (t *Softmax) Train(ctx context.Context, p params.ParameterSet) (params.ParameterSet, int, int, error) {
	if !t.configured {
		return nil, 0, 0, ErrNotConfigured
	}
	if len(t.x) == 0 {
		return nil, 0, 0, ErrNoData
	}
	if err := t.checkShape(p); err != nil {
		return nil, 0, 0, err
	}

	local := p.Clone()
	w := local[0].Data
	b := local[1].Data
	lr := float32(t.cfg.LearningRate)

	n := len(t.x)
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}

	steps := 0
	for epoch := 0; epoch < t.epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return nil, 0, 0, err
		}

		t.rng.Shuffle(n, func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})

		for start := 0; start+t.batch <= n; start += t.batch {
			batch := indices[start : start+t.batch]
			t.step(w, b, lr, batch)
			steps++
		}
	}

	return local, n, steps, nil
}

// step applies one mini-batch cross-entropy gradient update in place.
func (t *Softmax) step(w, b []float32, lr float32, batch []int) {
	gw := make([]float32, len(w))
	gb := make([]float32, len(b))
	scale := float32(1) / float32(len(batch))

	probs := make([]float32, t.classes)
	for _, idx := range batch {
		x := t.x[idx]
		t.forward(w, b, x, probs)
		probs[t.y[idx]]--

		for i := 0; i < t.inputDim; i++ {
			xi := x[i]
			row := i * t.classes
			for c := 0; c < t.classes; c++ {
				gw[row+c] += xi * probs[c] * scale
			}
		}
		for c := 0; c < t.classes; c++ {
			gb[c] += probs[c] * scale
		}
	}

	for i := range w {
		w[i] -= lr * gw[i]
	}
	for c := range b {
		b[c] -= lr * gb[c]
	}
}

// forward computes softmax probabilities for one sample into out.
func (t *Softmax) forward(w, b, x []float32, out []float32) {
	var maxLogit float32 = -math.MaxFloat32
	for c := 0; c < t.classes; c++ {
		logit := b[c]
		for i := 0; i < t.inputDim; i++ {
			logit += x[i] * w[i*t.classes+c]
		}
		out[c] = logit
		if logit > maxLogit {
			maxLogit = logit
		}
	}

	var sum float32
	for c := 0; c < t.classes; c++ {
		out[c] = float32(math.Exp(float64(out[c] - maxLogit)))
		sum += out[c]
	}
	for c := 0; c < t.classes; c++ {
		out[c] /= sum
	}
}

// Evaluate scores parameters on the trainer's dataset, returning accuracy
// and mean cross-entropy loss.
func (t *Softmax) Evaluate(ctx context.Context, p params.ParameterSet) (float64, float64, error) {
	if !t.configured {
		return 0, 0, ErrNotConfigured
	}
	if len(t.x) == 0 {
		return 0, 0, ErrNoData
	}
	if err := t.checkShape(p); err != nil {
		return 0, 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}

	w := p[0].Data
	b := p[1].Data

	var correct int
	var totalLoss float64
	probs := make([]float32, t.classes)
	for idx := range t.x {
		t.forward(w, b, t.x[idx], probs)

		best := 0
		for c := 1; c < t.classes; c++ {
			if probs[c] > probs[best] {
				best = c
			}
		}
		if best == t.y[idx] {
			correct++
		}

		pTrue := float64(probs[t.y[idx]])
		if pTrue < 1e-12 {
			pTrue = 1e-12
		}
		totalLoss -= math.Log(pTrue)
	}

	n := float64(len(t.x))

	return float64(correct) / n, totalLoss / n, nil
}

func (t *Softmax) checkShape(p params.ParameterSet) error {
	want := params.ParameterSet{
		params.NewTensor(t.inputDim, t.classes),
		params.NewTensor(t.classes),
	}

	return params.Compatible(want, p)
}
