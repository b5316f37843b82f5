// Command streamgen writes a synthetic transaction stream to a CSV file
// (or to stdout), for exercising the mining service without a live Kafka
// topic or HTTP feed. Each line is one transaction: a delimiter-separated
// list of items drawn from a fixed vocabulary, skewed so that a handful of
// itemsets recur often enough to close above a small support threshold.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"
)

var (
	outPath    = flag.String("o", "", "Output file path (default: stdout)")
	count      = flag.Int("n", 1000, "Number of transactions to generate")
	vocabSize  = flag.Int("vocab", 20, "Number of distinct items in the vocabulary")
	maxItems   = flag.Int("max-items", 5, "Maximum items per transaction")
	minItems   = flag.Int("min-items", 1, "Minimum items per transaction")
	delimiter  = flag.String("delim", ",", "Item delimiter within a line")
	hotsetSize = flag.Int("hotset", 4, "Size of the recurring itemset that drives closures")
	hotsetBias = flag.Float64("hotset-bias", 0.35, "Probability a transaction draws from the hot itemset")
	seed       = flag.Int64("seed", 1, "Random seed, for reproducible streams")
	follow     = flag.Bool("follow", false, "After writing count transactions, keep appending one every interval")
	interval   = flag.Duration("interval", time.Second, "Append interval when -follow is set")
)

func main() {
	flag.Parse()

	if *minItems < 1 || *maxItems < *minItems {
		fmt.Fprintln(os.Stderr, "streamgen: require 1 <= min-items <= max-items")
		os.Exit(1)
	}
	if *hotsetSize > *vocabSize {
		fmt.Fprintln(os.Stderr, "streamgen: hotset cannot be larger than the vocabulary")
		os.Exit(1)
	}

	out := os.Stdout
	if *outPath != "" {
		f, err := os.OpenFile(*outPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "streamgen: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}

	w := bufio.NewWriter(out)
	defer w.Flush()

	g := newGenerator(*seed, *vocabSize, *hotsetSize)

	for i := 0; i < *count; i++ {
		writeLine(w, g.next())
	}

	if !*follow {
		return
	}

	w.Flush()
	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for range ticker.C {
		writeLine(w, g.next())
		w.Flush()
	}
}

func writeLine(w *bufio.Writer, items []string) {
	fmt.Fprintln(w, strings.Join(items, *delimiter))
}

// generator produces transactions skewed toward a fixed "hot" itemset so
// the mining engines have something to close above a non-trivial support
// threshold instead of a flat uniform item distribution.
type generator struct {
	rng    *rand.Rand
	vocab  []string
	hotset []string
}

func newGenerator(seed int64, vocabSize, hotsetSize int) *generator {
	rng := rand.New(rand.NewSource(seed))
	vocab := make([]string, vocabSize)
	for i := range vocab {
		vocab[i] = fmt.Sprintf("item%02d", i)
	}
	return &generator{
		rng:    rng,
		vocab:  vocab,
		hotset: append([]string(nil), vocab[:hotsetSize]...),
	}
}

func (g *generator) next() []string {
	n := *minItems + g.rng.Intn(*maxItems-*minItems+1)

	var pool []string
	if g.rng.Float64() < *hotsetBias {
		pool = g.hotset
		if n > len(pool) {
			n = len(pool)
		}
	} else {
		pool = g.vocab
	}

	picked := make(map[string]bool, n)
	items := make([]string, 0, n)
	for len(items) < n {
		item := pool[g.rng.Intn(len(pool))]
		if picked[item] {
			continue
		}
		picked[item] = true
		items = append(items, item)
	}
	return items
}
