package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/victornm/tweetle/internal/domain"
	"github.com/victornm/tweetle/internal/errors"
)

//go:embed puzzles.json
var defaultPuzzles []byte

// Catalog is the ordered, read-only list of puzzles. It is safe for concurrent use.
type Catalog struct {
	puzzles []domain.Puzzle
	byID    map[int]int
}

// New validates puzzles and builds a catalog from them. The slice is copied.
// An empty list is allowed; resolving a puzzle from it fails later with ErrEmptyCatalog.
func New(puzzles []domain.Puzzle) (*Catalog, error) {
	c := &Catalog{
		puzzles: make([]domain.Puzzle, 0, len(puzzles)),
		byID:    make(map[int]int, len(puzzles)),
	}

	for i, p := range puzzles {
		p, err := normalize(p)
		if err != nil {
			return nil, errors.New(errors.CodeInvalidArgument,
				errors.WithMessagef("puzzle at index %d (id %d): %v", i, p.ID, err))
		}

		if j, ok := c.byID[p.ID]; ok {
			return nil, errors.InvalidArgument("duplicate puzzle id %d at index %d and %d", p.ID, j, i)
		}

		c.byID[p.ID] = len(c.puzzles)
		c.puzzles = append(c.puzzles, p)
	}

	return c, nil
}

// Load decodes a JSON array of puzzles.
func Load(r io.Reader) (*Catalog, error) {
	var puzzles []domain.Puzzle
	if err := json.NewDecoder(r).Decode(&puzzles); err != nil {
		return nil, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("decode puzzles: %v", err), errors.WithCause(err))
	}

	return New(puzzles)
}

// LoadFile reads the catalog from path.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	return Load(f)
}

// Default returns the catalog bundled with the binary.
func Default() (*Catalog, error) {
	var puzzles []domain.Puzzle
	if err := json.Unmarshal(defaultPuzzles, &puzzles); err != nil {
		return nil, fmt.Errorf("decode bundled puzzles: %w", err)
	}

	return New(puzzles)
}

func (c *Catalog) Len() int {
	return len(c.puzzles)
}

// At returns the puzzle in rotation slot i. It panics if i is out of range.
func (c *Catalog) At(i int) domain.Puzzle {
	return c.puzzles[i]
}

func (c *Catalog) ByID(id int) (domain.Puzzle, bool) {
	i, ok := c.byID[id]
	if !ok {
		return domain.Puzzle{}, false
	}

	return c.puzzles[i], true
}

// All returns a copy of the puzzle list in rotation order.
func (c *Catalog) All() []domain.Puzzle {
	out := make([]domain.Puzzle, len(c.puzzles))
	copy(out, c.puzzles)
	return out
}

// normalize checks a puzzle and drops candidates repeating an earlier name.
func normalize(p domain.Puzzle) (domain.Puzzle, error) {
	if len(p.Rounds) != domain.RoundsPerPuzzle {
		return p, fmt.Errorf("want %d rounds, got %d", domain.RoundsPerPuzzle, len(p.Rounds))
	}

	seen := make(map[string]struct{}, len(p.Candidates))
	candidates := make([]domain.Candidate, 0, len(p.Candidates))
	for _, c := range p.Candidates {
		if c.Name == "" {
			return p, fmt.Errorf("candidate without a name")
		}
		if _, ok := seen[c.Name]; ok {
			continue
		}
		seen[c.Name] = struct{}{}
		candidates = append(candidates, c)
	}

	for i, r := range p.Rounds {
		if r.Text == "" {
			return p, fmt.Errorf("round %d has no text", i)
		}
		if _, ok := seen[r.Author]; !ok {
			return p, fmt.Errorf("round %d author %q is not a candidate", i, r.Author)
		}
	}

	p.Candidates = candidates
	p.Rounds = append([]domain.Round(nil), p.Rounds...)
	return p, nil
}
