package enrich

import (
	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"

	"github.com/sells-group/leadgather/internal/normalize"
)

var jaroWinkler = metrics.NewJaroWinkler()

// nameSimilarity compares two practice names after normalization. It
// returns a value in [0,1]; 0 when either name is empty.
func nameSimilarity(a, b string) float64 {
	na, nb := normalize.Name(a), normalize.Name(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}
	return strutil.Similarity(na, nb, jaroWinkler)
}
