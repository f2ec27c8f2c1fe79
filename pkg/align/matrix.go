package align

import (
	"fmt"
	"strings"
)

// Matrix is a residue substitution table. Letters are looked up
// case-insensitively; letters outside the alphabet score as the wildcard.
type Matrix struct {
	Alphabet string
	Scores   [][]int
	lookup   [256]byte
}

// NewMatrix builds a substitution matrix. Scores must be square and match
// the alphabet length. wildcard is the letter used for unknown residues.
func NewMatrix(alphabet string, scores [][]int, wildcard byte) (*Matrix, error) {
	if len(alphabet) == 0 {
		return nil, fmt.Errorf("empty alphabet")
	}
	if len(alphabet) > 255 {
		return nil, fmt.Errorf("alphabet too long: %d letters", len(alphabet))
	}
	if len(scores) != len(alphabet) {
		return nil, fmt.Errorf("matrix has %d rows for %d letters", len(scores), len(alphabet))
	}
	for i, row := range scores {
		if len(row) != len(alphabet) {
			return nil, fmt.Errorf("row %c has %d columns, want %d", alphabet[i], len(row), len(alphabet))
		}
	}

	wild := strings.IndexByte(alphabet, wildcard)
	if wild < 0 {
		return nil, fmt.Errorf("wildcard %q is not in the alphabet", wildcard)
	}

	m := &Matrix{Alphabet: alphabet, Scores: scores}
	for i := range m.lookup {
		m.lookup[i] = byte(wild)
	}
	for i := 0; i < len(alphabet); i++ {
		c := alphabet[i]
		m.lookup[c] = byte(i)
		if c >= 'A' && c <= 'Z' {
			m.lookup[c+('a'-'A')] = byte(i)
		}
	}
	return m, nil
}

// Score returns the substitution score of residues a and b.
func (m *Matrix) Score(a, b byte) int {
	return m.Scores[m.lookup[a]][m.lookup[b]]
}

func (m *Matrix) encode(s string) []byte {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		out[i] = m.lookup[s[i]]
	}
	return out
}

func mustMatrix(alphabet string, scores [][]int, wildcard byte) *Matrix {
	m, err := NewMatrix(alphabet, scores, wildcard)
	if err != nil {
		panic(err)
	}
	return m
}

// BLOSUM62 as distributed by NCBI.
var BLOSUM62 = mustMatrix("ARNDCQEGHILKMFPSTWYVBZX*", [][]int{
	/*       A   R   N   D   C   Q   E   G   H   I   L   K   M   F   P   S   T   W   Y   V   B   Z   X   * */
	/* A */ {4, -1, -2, -2, 0, -1, -1, 0, -2, -1, -1, -1, -1, -2, -1, 1, 0, -3, -2, 0, -2, -1, 0, -4},
	/* R */ {-1, 5, 0, -2, -3, 1, 0, -2, 0, -3, -2, 2, -1, -3, -2, -1, -1, -3, -2, -3, -1, 0, -1, -4},
	/* N */ {-2, 0, 6, 1, -3, 0, 0, 0, 1, -3, -3, 0, -2, -3, -2, 1, 0, -4, -2, -3, 3, 0, -1, -4},
	/* D */ {-2, -2, 1, 6, -3, 0, 2, -1, -1, -3, -4, -1, -3, -3, -1, 0, -1, -4, -3, -3, 4, 1, -1, -4},
	/* C */ {0, -3, -3, -3, 9, -3, -4, -3, -3, -1, -1, -3, -1, -2, -3, -1, -1, -2, -2, -1, -3, -3, -2, -4},
	/* Q */ {-1, 1, 0, 0, -3, 5, 2, -2, 0, -3, -2, 1, 0, -3, -1, 0, -1, -2, -1, -2, 0, 3, -1, -4},
	/* E */ {-1, 0, 0, 2, -4, 2, 5, -2, 0, -3, -3, 1, -2, -3, -1, 0, -1, -3, -2, -2, 1, 4, -1, -4},
	/* G */ {0, -2, 0, -1, -3, -2, -2, 6, -2, -4, -4, -2, -3, -3, -2, 0, -2, -2, -3, -3, -1, -2, -1, -4},
	/* H */ {-2, 0, 1, -1, -3, 0, 0, -2, 8, -3, -3, -1, -2, -1, -2, -1, -2, -2, 2, -3, 0, 0, -1, -4},
	/* I */ {-1, -3, -3, -3, -1, -3, -3, -4, -3, 4, 2, -3, 1, 0, -3, -2, -1, -3, -1, 3, -3, -3, -1, -4},
	/* L */ {-1, -2, -3, -4, -1, -2, -3, -4, -3, 2, 4, -2, 2, 0, -3, -2, -1, -2, -1, 1, -4, -3, -1, -4},
	/* K */ {-1, 2, 0, -1, -3, 1, 1, -2, -1, -3, -2, 5, -1, -3, -1, 0, -1, -3, -2, -2, 0, 1, -1, -4},
	/* M */ {-1, -1, -2, -3, -1, 0, -2, -3, -2, 1, 2, -1, 5, 0, -2, -1, -1, -1, -1, 1, -3, -1, -1, -4},
	/* F */ {-2, -3, -3, -3, -2, -3, -3, -3, -1, 0, 0, -3, 0, 6, -4, -2, -2, 1, 3, -1, -3, -3, -1, -4},
	/* P */ {-1, -2, -2, -1, -3, -1, -1, -2, -2, -3, -3, -1, -2, -4, 7, -1, -1, -4, -3, -2, -2, -1, -2, -4},
	/* S */ {1, -1, 1, 0, -1, 0, 0, 0, -1, -2, -2, 0, -1, -2, -1, 4, 1, -3, -2, -2, 0, 0, 0, -4},
	/* T */ {0, -1, 0, -1, -1, -1, -1, -2, -2, -1, -1, -1, -1, -2, -1, 1, 5, -2, -2, 0, -1, -1, 0, -4},
	/* W */ {-3, -3, -4, -4, -2, -2, -3, -2, -2, -3, -2, -3, -1, 1, -4, -3, -2, 11, 2, -3, -4, -3, -2, -4},
	/* Y */ {-2, -2, -2, -3, -2, -1, -2, -3, 2, -1, -1, -2, -1, 3, -3, -2, -2, 2, 7, -1, -3, -2, -1, -4},
	/* V */ {0, -3, -3, -3, -1, -2, -2, -3, -3, 3, 1, -2, 1, -1, -2, -2, 0, -3, -1, 4, -3, -2, -1, -4},
	/* B */ {-2, -1, 3, 4, -3, 0, 1, -1, 0, -3, -4, 0, -3, -3, -2, 0, -1, -4, -3, -3, 4, 1, -1, -4},
	/* Z */ {-1, 0, 0, 1, -3, 3, 4, -2, 0, -3, -3, 1, -1, -3, -1, 0, -1, -3, -2, -2, 1, 4, -1, -4},
	/* X */ {0, -1, -1, -1, -2, -1, -1, -1, -1, -1, -1, -1, -1, -1, -2, 0, 0, -2, -1, -1, -1, -1, -1, -4},
	/* * */ {-4, -4, -4, -4, -4, -4, -4, -4, -4, -4, -4, -4, -4, -4, -4, -4, -4, -4, -4, -4, -4, -4, -4, 1},
}, 'X')
