package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"strconv"
)

const targetColumn = "target"

var (
	ErrEmptyDataset   = errors.New("dataset has no rows")
	ErrMissingTarget  = errors.New("dataset has no target column")
	ErrInvalidLabel   = errors.New("label is not a non-negative integer")
	ErrInvalidClients = errors.New("client count must be positive")
)

// Set is an in-memory labelled dataset: rows of float32 features and
// integer class labels.
type Set struct {
	X        [][]float32
	Y        []int
	Features []string
}

func (s Set) Len() int {
	return len(s.X)
}

// NumClasses returns the number of classes, taken as max label + 1.
func (s Set) NumClasses() int {
	max := -1
	for _, y := range s.Y {
		if y > max {
			max = y
		}
	}

	return max + 1
}

// Load reads a CSV dataset with a header row. Every column except "target"
// is a feature; target holds the integer class label.
func Load(path string) (Set, error) {
	file, err := os.Open(path)
	if err != nil {
		return Set{}, fmt.Errorf("unable to open dataset '%s': %w", path, err)
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return Set{}, fmt.Errorf("failed to parse dataset '%s': %w", path, err)
	}
	if len(rows) < 2 {
		return Set{}, ErrEmptyDataset
	}

	header := rows[0]
	targetIdx := -1
	features := make([]string, 0, len(header)-1)
	for i, name := range header {
		if name == targetColumn {
			targetIdx = i

			continue
		}
		features = append(features, name)
	}
	if targetIdx < 0 {
		return Set{}, ErrMissingTarget
	}

	set := Set{
		X:        make([][]float32, 0, len(rows)-1),
		Y:        make([]int, 0, len(rows)-1),
		Features: features,
	}
	for line, row := range rows[1:] {
		x := make([]float32, 0, len(features))
		for i, field := range row {
			if i == targetIdx {
				continue
			}
			v, err := strconv.ParseFloat(field, 32)
			if err != nil {
				return Set{}, fmt.Errorf("row %d column %q: %w", line+2, header[i], err)
			}
			x = append(x, float32(v))
		}

		label, err := strconv.Atoi(row[targetIdx])
		if err != nil || label < 0 {
			return Set{}, fmt.Errorf("row %d: %w: %q", line+2, ErrInvalidLabel, row[targetIdx])
		}

		set.X = append(set.X, x)
		set.Y = append(set.Y, label)
	}

	return set, nil
}

// ScaleMinMax rescales every feature column to [0,1] in place. Constant
// columns map to zero.
func ScaleMinMax(set Set) Set {
	if set.Len() == 0 {
		return set
	}

	cols := len(set.X[0])
	mins := make([]float32, cols)
	maxs := make([]float32, cols)
	copy(mins, set.X[0])
	copy(maxs, set.X[0])
	for _, row := range set.X[1:] {
		for i, v := range row {
			if v < mins[i] {
				mins[i] = v
			}
			if v > maxs[i] {
				maxs[i] = v
			}
		}
	}

	for _, row := range set.X {
		for i := range row {
			span := maxs[i] - mins[i]
			if span == 0 {
				row[i] = 0

				continue
			}
			row[i] = (row[i] - mins[i]) / span
		}
	}

	return set
}

// SplitTrainTest shuffles the set and splits off the given fraction as a
// test set.
func SplitTrainTest(set Set, testFraction float64, seed int64) (Set, Set) {
	n := set.Len()
	indices := rand.New(rand.NewSource(seed)).Perm(n)

	testSize := int(float64(n) * testFraction)
	train := Set{Features: set.Features}
	test := Set{Features: set.Features}
	for i, idx := range indices {
		if i < testSize {
			test.X = append(test.X, set.X[idx])
			test.Y = append(test.Y, set.Y[idx])

			continue
		}
		train.X = append(train.X, set.X[idx])
		train.Y = append(train.Y, set.Y[idx])
	}

	return train, test
}

// byClass groups shuffled row indices per label.
func byClass(set Set, rng *rand.Rand) map[int][]int {
	groups := make(map[int][]int)
	for i, y := range set.Y {
		groups[y] = append(groups[y], i)
	}
	for _, indices := range groups {
		rng.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}

	return groups
}

func subset(set Set, indices []int) Set {
	out := Set{Features: set.Features}
	for _, idx := range indices {
		out.X = append(out.X, set.X[idx])
		out.Y = append(out.Y, set.Y[idx])
	}

	return out
}

// PartitionIID splits the set into n shards with an equal share of every
// class per shard.
func PartitionIID(set Set, n int, seed int64) ([]Set, error) {
	if n < 1 {
		return nil, ErrInvalidClients
	}
	if set.Len() == 0 {
		return nil, ErrEmptyDataset
	}

	rng := rand.New(rand.NewSource(seed))
	assigned := make([][]int, n)
	for _, indices := range byClass(set, rng) {
		for i, idx := range indices {
			client := i % n
			assigned[client] = append(assigned[client], idx)
		}
	}

	shards := make([]Set, n)
	for i := range shards {
		shards[i] = subset(set, assigned[i])
	}

	return shards, nil
}

// PartitionDirichlet splits the set into n shards with per-class client
// proportions drawn from a symmetric Dirichlet(alpha). Small alpha gives
// highly skewed shards; rounding remainders go to client 0.
func PartitionDirichlet(set Set, n int, alpha float64, seed int64) ([]Set, error) {
	if n < 1 {
		return nil, ErrInvalidClients
	}
	if set.Len() == 0 {
		return nil, ErrEmptyDataset
	}
	if alpha <= 0 {
		return nil, fmt.Errorf("alpha must be positive, got %v", alpha)
	}

	rng := rand.New(rand.NewSource(seed))
	assigned := make([][]int, n)
	for _, indices := range byClass(set, rng) {
		proportions := dirichlet(rng, alpha, n)

		start := 0
		for client := 0; client < n; client++ {
			count := int(proportions[client] * float64(len(indices)))
			if start+count > len(indices) {
				count = len(indices) - start
			}
			assigned[client] = append(assigned[client], indices[start:start+count]...)
			start += count
		}
		// Rounding remainder.
		assigned[0] = append(assigned[0], indices[start:]...)
	}

	shards := make([]Set, n)
	for i := range shards {
		shards[i] = subset(set, assigned[i])
	}

	return shards, nil
}

// dirichlet samples a symmetric Dirichlet via normalized gamma draws.
func dirichlet(rng *rand.Rand, alpha float64, n int) []float64 {
	out := make([]float64, n)
	var sum float64
	for i := range out {
		out[i] = gamma(rng, alpha)
		sum += out[i]
	}
	if sum == 0 {
		for i := range out {
			out[i] = 1.0 / float64(n)
		}

		return out
	}
	for i := range out {
		out[i] /= sum
	}

	return out
}

// gamma draws from Gamma(shape, 1) using Marsaglia-Tsang, with the boost
// transform for shape < 1.
func gamma(rng *rand.Rand, shape float64) float64 {
	if shape < 1 {
		u := rng.Float64()
		for u == 0 {
			u = rng.Float64()
		}

		return gamma(rng, shape+1) * math.Pow(u, 1/shape)
	}

	d := shape - 1.0/3.0
	c := 1.0 / (3.0 * math.Sqrt(d))
	for {
		x := rng.NormFloat64()
		v := 1 + c*x
		if v <= 0 {
			continue
		}
		v = v * v * v
		u := rng.Float64()
		if u < 1-0.0331*x*x*x*x {
			return d * v
		}
		if u > 0 && math.Log(u) < 0.5*x*x+d*(1-v+math.Log(v)) {
			return d * v
		}
	}
}
