// Package table rebuilds statement rows from word-level OCR detections using
// vertical bucketing and fixed horizontal column bands.
package table

import (
	"math"
	"sort"
	"strings"

	"github.com/joseph-ayodele/docrecon/internal/entity"
)

// DefaultTolerance is the bucket height, in pixels at 300 DPI, used when a
// template does not set one.
const DefaultTolerance = 15.0

// BucketKey quantizes a vertical center to its row bucket. Halves round to
// even. Tokens near a boundary can land in a neighbouring bucket from the rest
// of their visual row.
func BucketKey(yCenter, tolerance float64) float64 {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return math.RoundToEven(yCenter/tolerance) * tolerance
}

type bucket struct {
	page int
	key  float64
}

// ClusterRows groups tokens that share a page and bucket key, ordered by page
// then ascending key. Tokens keep their input order within a cluster.
func ClusterRows(tokens []entity.OcrToken, tolerance float64) []entity.RowCluster {
	index := make(map[bucket]int)
	var clusters []entity.RowCluster
	for _, t := range tokens {
		b := bucket{page: t.Page, key: BucketKey(t.YCenter(), tolerance)}
		i, ok := index[b]
		if !ok {
			i = len(clusters)
			index[b] = i
			clusters = append(clusters, entity.RowCluster{Page: b.page, Key: b.key})
		}
		clusters[i].Tokens = append(clusters[i].Tokens, t)
	}
	sort.SliceStable(clusters, func(i, j int) bool {
		if clusters[i].Page != clusters[j].Page {
			return clusters[i].Page < clusters[j].Page
		}
		return clusters[i].Key < clusters[j].Key
	})
	return clusters
}

// AssignColumns places each token in the first band containing its x-center
// and joins each band's text left to right. Tokens outside every band are
// dropped. Every band name is present in the result.
func AssignColumns(cluster entity.RowCluster, bands []entity.ColumnBand) entity.JoinedRow {
	perBand := make([][]entity.OcrToken, len(bands))
	for _, t := range cluster.Tokens {
		x := t.XCenter()
		for i, b := range bands {
			if b.Contains(x) {
				perBand[i] = append(perBand[i], t)
				break
			}
		}
	}

	cols := make(map[string]string, len(bands))
	for i, b := range bands {
		toks := perBand[i]
		sort.SliceStable(toks, func(a, c int) bool { return toks[a].XCenter() < toks[c].XCenter() })
		words := make([]string, 0, len(toks))
		for _, t := range toks {
			words = append(words, t.Text)
		}
		// duplicate names keep the first band's text
		if _, seen := cols[b.Name]; !seen {
			cols[b.Name] = strings.TrimSpace(strings.Join(words, " "))
		}
	}
	return entity.JoinedRow{Page: cluster.Page, Key: cluster.Key, Columns: cols}
}

// ReconstructRows clusters tokens into rows and joins each row's columns.
// Rows are returned in cluster order and may be empty or invalid; filtering is
// left to the caller.
func ReconstructRows(tokens []entity.OcrToken, bands []entity.ColumnBand, tolerance float64) []entity.JoinedRow {
	clusters := ClusterRows(tokens, tolerance)
	rows := make([]entity.JoinedRow, 0, len(clusters))
	for _, c := range clusters {
		rows = append(rows, AssignColumns(c, bands))
	}
	return rows
}
