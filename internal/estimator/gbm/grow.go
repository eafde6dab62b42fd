package gbm

import (
	"sort"

	"github.com/tiendata/ordercast/internal/estimator/dataset"
)

// treeBuilder grows one regression tree over a sampled row set, fitting the
// current gradient/hessian vectors.
type treeBuilder struct {
	x          *dataset.Matrix
	g, h       []float64
	params     Params
	colAllowed []bool
	nodes      []Node
	leaves     int
}

// candidate is the best split found for a node.
type candidate struct {
	feature     int
	threshold   float64
	leftCats    []int
	defaultLeft bool
	gain        float64
}

func (tb *treeBuilder) build(rows []int) *Tree {
	tb.buildNode(rows, 0)
	return &Tree{Nodes: tb.nodes}
}

// buildNode appends the subtree rooted at rows and returns its node index.
func (tb *treeBuilder) buildNode(rows []int, depth int) int {
	var gsum, hsum float64
	for _, i := range rows {
		gsum += tb.g[i]
		hsum += tb.h[i]
	}

	idx := len(tb.nodes)
	tb.nodes = append(tb.nodes, Node{})

	makeLeaf := func() int {
		tb.nodes[idx] = Node{
			Leaf:  true,
			Value: tb.params.LearningRate * leafValue(gsum, hsum, tb.params.LambdaL2, tb.params.AlphaL1),
		}
		return idx
	}

	if depth >= tb.params.MaxDepth ||
		tb.leaves >= tb.params.NumLeaves ||
		len(rows) < 2*tb.params.MinChildSamples {
		return makeLeaf()
	}

	best, ok := tb.findBestSplit(rows, gsum, hsum)
	if !ok || best.gain <= minSplitGain {
		return makeLeaf()
	}

	left, right := tb.partition(rows, best)
	if len(left) == 0 || len(right) == 0 {
		return makeLeaf()
	}

	tb.leaves++ // one leaf became two

	tb.nodes[idx] = Node{
		Feature:     best.feature,
		Threshold:   best.threshold,
		LeftCats:    best.leftCats,
		DefaultLeft: best.defaultLeft,
		Gain:        best.gain,
	}
	l := tb.buildNode(left, depth+1)
	r := tb.buildNode(right, depth+1)
	tb.nodes[idx].Left = l
	tb.nodes[idx].Right = r
	return idx
}

func (tb *treeBuilder) findBestSplit(rows []int, gsum, hsum float64) (candidate, bool) {
	parentScore := splitScore(gsum, hsum, tb.params.LambdaL2, tb.params.AlphaL1)

	best := candidate{gain: minSplitGain}
	found := false
	for j := range tb.x.ColumnNames {
		if !tb.colAllowed[j] {
			continue
		}
		var c candidate
		var ok bool
		if tb.x.Categorical[j] {
			c, ok = tb.categoricalSplit(j, rows, gsum, hsum, parentScore)
		} else {
			c, ok = tb.numericSplit(j, rows, gsum, hsum, parentScore)
		}
		if ok && c.gain > best.gain {
			best = c
			found = true
		}
	}
	return best, found
}

// numericSplit scans sorted present values; missing rows are tried on both
// sides and the better direction is recorded as the default.
func (tb *treeBuilder) numericSplit(j int, rows []int, gsum, hsum, parentScore float64) (candidate, bool) {
	type entry struct {
		v, g, h float64
	}
	present := make([]entry, 0, len(rows))
	var gMiss, hMiss float64
	nMiss := 0
	for _, i := range rows {
		v := tb.x.Rows[i][j]
		if dataset.IsMissing(v) {
			gMiss += tb.g[i]
			hMiss += tb.h[i]
			nMiss++
			continue
		}
		present = append(present, entry{v, tb.g[i], tb.h[i]})
	}
	if len(present) < 2 {
		return candidate{}, false
	}
	sort.Slice(present, func(a, b int) bool { return present[a].v < present[b].v })

	best := candidate{feature: j, gain: 0}
	found := false
	var gl, hl float64
	for k := 1; k < len(present); k++ {
		gl += present[k-1].g
		hl += present[k-1].h
		if present[k-1].v == present[k].v {
			continue
		}
		gr := gsum - gMiss - gl
		hr := hsum - hMiss - hl
		threshold := (present[k-1].v + present[k].v) / 2

		if c, ok := tb.evalSplit(j, gl, hl, k, gr, hr, len(present)-k, gMiss, hMiss, nMiss, parentScore); ok && c.gain > best.gain {
			best = c
			best.threshold = threshold
			found = true
		}
	}
	return best, found
}

// categoricalSplit orders category bins by gradient statistics and scans
// prefix partitions, the same one-pass heuristic LightGBM uses.
func (tb *treeBuilder) categoricalSplit(j int, rows []int, gsum, hsum, parentScore float64) (candidate, bool) {
	nCats := tb.x.CategoryCount[j]
	if nCats < 2 {
		return candidate{}, false
	}
	gc := make([]float64, nCats)
	hc := make([]float64, nCats)
	cnt := make([]int, nCats)
	var gMiss, hMiss float64
	nMiss := 0
	for _, i := range rows {
		v := tb.x.Rows[i][j]
		if dataset.IsMissing(v) {
			gMiss += tb.g[i]
			hMiss += tb.h[i]
			nMiss++
			continue
		}
		c := int(v)
		if c < 0 || c >= nCats {
			// out-of-vocabulary code, route with the missing bucket
			gMiss += tb.g[i]
			hMiss += tb.h[i]
			nMiss++
			continue
		}
		gc[c] += tb.g[i]
		hc[c] += tb.h[i]
		cnt[c]++
	}

	order := make([]int, 0, nCats)
	for c := 0; c < nCats; c++ {
		if cnt[c] > 0 {
			order = append(order, c)
		}
	}
	if len(order) < 2 {
		return candidate{}, false
	}
	sort.Slice(order, func(a, b int) bool {
		ca, cb := order[a], order[b]
		return gc[ca]/(hc[ca]+tb.params.LambdaL2) < gc[cb]/(hc[cb]+tb.params.LambdaL2)
	})

	nPresent := 0
	for _, c := range order {
		nPresent += cnt[c]
	}

	best := candidate{feature: j, gain: 0}
	found := false
	var gl, hl float64
	nl := 0
	for k := 1; k < len(order); k++ {
		c := order[k-1]
		gl += gc[c]
		hl += hc[c]
		nl += cnt[c]
		gr := gsum - gMiss - gl
		hr := hsum - hMiss - hl
		if cand, ok := tb.evalSplit(j, gl, hl, nl, gr, hr, nPresent-nl, gMiss, hMiss, nMiss, parentScore); ok && cand.gain > best.gain {
			best = cand
			cats := append([]int{}, order[:k]...)
			sort.Ints(cats)
			best.leftCats = cats
			found = true
		}
	}
	return best, found
}

// evalSplit tries both default directions for missing values and returns
// the better one, enforcing the minimum child size.
func (tb *treeBuilder) evalSplit(j int, gl, hl float64, nl int, gr, hr float64, nr int, gMiss, hMiss float64, nMiss int, parentScore float64) (candidate, bool) {
	lambda, alpha := tb.params.LambdaL2, tb.params.AlphaL1
	minChild := tb.params.MinChildSamples

	bestGain := 0.0
	defaultLeft := false
	found := false

	// missing left
	if nl+nMiss >= minChild && nr >= minChild {
		gain := splitScore(gl+gMiss, hl+hMiss, lambda, alpha) + splitScore(gr, hr, lambda, alpha) - parentScore
		if gain > bestGain {
			bestGain = gain
			defaultLeft = true
			found = true
		}
	}
	// missing right
	if nl >= minChild && nr+nMiss >= minChild {
		gain := splitScore(gl, hl, lambda, alpha) + splitScore(gr+gMiss, hr+hMiss, lambda, alpha) - parentScore
		if gain > bestGain {
			bestGain = gain
			defaultLeft = false
			found = true
		}
	}
	if !found {
		return candidate{}, false
	}
	return candidate{feature: j, defaultLeft: defaultLeft, gain: bestGain}, true
}

// partition routes rows by a chosen split.
func (tb *treeBuilder) partition(rows []int, c candidate) (left, right []int) {
	for _, i := range rows {
		v := tb.x.Rows[i][c.feature]
		var goLeft bool
		switch {
		case dataset.IsMissing(v):
			goLeft = c.defaultLeft
		case tb.x.Categorical[c.feature]:
			goLeft = containsCat(c.leftCats, int(v))
		default:
			goLeft = v <= c.threshold
		}
		if goLeft {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return left, right
}
