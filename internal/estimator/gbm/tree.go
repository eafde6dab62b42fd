package gbm

import (
	"github.com/tiendata/ordercast/internal/estimator/dataset"
)

// Node is one tree node, stored in a flat array. Leaves carry the shrunken
// output value; internal nodes carry either a numeric threshold or the set
// of category codes routed left, plus the learned direction for missing
// values.
type Node struct {
	Leaf  bool    `json:"leaf"`
	Value float64 `json:"value,omitempty"`

	Feature     int     `json:"feature,omitempty"`
	Threshold   float64 `json:"threshold,omitempty"`
	LeftCats    []int   `json:"left_cats,omitempty"`
	DefaultLeft bool    `json:"default_left,omitempty"`
	Gain        float64 `json:"gain,omitempty"`

	Left  int `json:"l,omitempty"`
	Right int `json:"r,omitempty"`
}

// Tree is one regression tree of the ensemble.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Predict routes a feature vector to its leaf value. categorical marks
// which features use set-membership routing.
func (t *Tree) Predict(row []float64, categorical []bool) float64 {
	i := 0
	for {
		n := &t.Nodes[i]
		if n.Leaf {
			return n.Value
		}
		v := row[n.Feature]
		var left bool
		switch {
		case dataset.IsMissing(v):
			left = n.DefaultLeft
		case categorical[n.Feature]:
			left = containsCat(n.LeftCats, int(v))
		default:
			left = v <= n.Threshold
		}
		if left {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// gainByFeature accumulates split gain per feature index.
func (t *Tree) gainByFeature(acc []float64) {
	for i := range t.Nodes {
		n := &t.Nodes[i]
		if !n.Leaf {
			acc[n.Feature] += n.Gain
		}
	}
}

func containsCat(cats []int, c int) bool {
	for _, v := range cats {
		if v == c {
			return true
		}
	}
	return false
}
