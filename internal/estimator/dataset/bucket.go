package dataset

// Bucket is one of five order-volume tiers. Buckets drive stratified fold
// assignment and the coarse "did we land in the right tier" accuracy metric.
type Bucket string

const (
	BucketMicro      Bucket = "micro"
	BucketSmall      Bucket = "small"
	BucketMedium     Bucket = "medium"
	BucketLarge      Bucket = "large"
	BucketEnterprise Bucket = "enterprise"
)

// BucketLabels lists the tiers from smallest to largest.
var BucketLabels = []Bucket{BucketMicro, BucketSmall, BucketMedium, BucketLarge, BucketEnterprise}

// bucketBounds holds the inclusive upper bound of each tier except the last,
// which is unbounded above.
var bucketBounds = []float64{50, 300, 1500, 5000}

// AssignBucket maps a monthly order count to its tier. Total over [0, inf);
// negative inputs land in the lowest tier.
func AssignBucket(orders float64) Bucket {
	for i, hi := range bucketBounds {
		if orders <= hi {
			return BucketLabels[i]
		}
	}
	return BucketEnterprise
}

// BucketIndex returns the position of a tier in BucketLabels. Used for the
// "within one tier" accuracy metric.
func BucketIndex(b Bucket) int {
	for i, label := range BucketLabels {
		if label == b {
			return i
		}
	}
	return len(BucketLabels) - 1
}

// StratifyLabels assigns every target value to a bucket index.
func StratifyLabels(y []float64) []int {
	out := make([]int, len(y))
	for i, v := range y {
		out[i] = BucketIndex(AssignBucket(v))
	}
	return out
}
