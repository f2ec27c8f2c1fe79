package db

import (
	"bufio"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/galvezuma/BrachyUMA21/logger"
	"github.com/galvezuma/BrachyUMA21/pkg/model"
	"go.uber.org/zap"
)

// DefaultBackground is used for varieties past the end of the order file.
const DefaultBackground = "rgb(255,255,255)"

// Sequence lines hold whole genes, well past bufio's default token size.
const maxLineSize = 64 * 1024 * 1024

// The gene count of a header only sizes the initial allocation up to this.
const maxPrealloc = 1 << 16

type ParseError struct {
	Line int
	Msg  string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("line %d: %s: %v", e.Line, e.Msg, e.Err)
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

type LoadOptions struct {
	// DropMissingSequences removes genes without protein instead of keeping
	// them as sequence-missing.
	DropMissingSequences bool
	// Order supplies the background of each variety by position.
	Order []OrderEntry
}

// OpenDataFile opens path, decompressing it when it ends in .gz.
func OpenDataFile(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &gzipFile{Reader: gz, f: f}, nil
}

type gzipFile struct {
	*gzip.Reader
	f *os.File
}

func (g *gzipFile) Close() error {
	return errors.Join(g.Reader.Close(), g.f.Close())
}

type lineReader struct {
	sc   *bufio.Scanner
	line int
}

func (lr *lineReader) next() (string, bool, error) {
	if !lr.sc.Scan() {
		return "", false, lr.sc.Err()
	}
	lr.line++
	return strings.TrimSuffix(lr.sc.Text(), "\r"), true, nil
}

// must reads a line that has to be there.
func (lr *lineReader) must(what string) (string, error) {
	s, ok, err := lr.next()
	if err != nil {
		return "", &ParseError{Line: lr.line + 1, Msg: "reading " + what, Err: err}
	}
	if !ok {
		return "", &ParseError{Line: lr.line + 1, Msg: "unexpected end of file, expected " + what, Err: io.ErrUnexpectedEOF}
	}
	return s, nil
}

// LoadVarieties reads every variety of a gene data file. Each variety is a
// name line, a "tag<TAB>count" line, five "chr<TAB>length" lines and then
// four lines per gene: annotation, protein, GFF3 entry and nucleotide.
func LoadVarieties(r io.Reader, opts LoadOptions) ([]*model.Variety, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	lr := &lineReader{sc: sc}

	var varieties []*model.Variety
	for {
		name, ok, err := lr.next()
		if err != nil {
			return nil, &ParseError{Line: lr.line + 1, Msg: "reading variety name", Err: err}
		}
		if !ok {
			break
		}
		if strings.TrimSpace(name) == "" {
			continue
		}

		v, err := loadVariety(lr, name, len(varieties), opts)
		if err != nil {
			return nil, fmt.Errorf("variety %q: %w", name, err)
		}
		varieties = append(varieties, v)
	}

	if len(varieties) == 0 {
		return nil, fmt.Errorf("no varieties found")
	}
	return varieties, nil
}

func loadVariety(lr *lineReader, name string, pos int, opts LoadOptions) (*model.Variety, error) {
	name = strings.Replace(name, ".annotation_info.txt", "", 1)

	header, err := lr.must("gene count")
	if err != nil {
		return nil, err
	}
	count, err := tabInt(header, 1)
	if err != nil {
		return nil, &ParseError{Line: lr.line, Msg: "bad gene count", Err: err}
	}
	if count < 0 {
		return nil, &ParseError{Line: lr.line, Msg: fmt.Sprintf("negative gene count %d", count)}
	}

	background := DefaultBackground
	if pos < len(opts.Order) && opts.Order[pos].Background != "" {
		background = opts.Order[pos].Background
	}
	v := model.NewVariety(name, min(count, maxPrealloc), background)

	for chr := 1; chr <= model.NumChromosomes; chr++ {
		line, err := lr.must("chromosome length")
		if err != nil {
			return nil, err
		}
		length, err := tabInt(line, 1)
		if err != nil {
			return nil, &ParseError{Line: lr.line, Msg: "bad chromosome length", Err: err}
		}
		if err := v.SetChromosomeLength(chr, length); err != nil {
			return nil, &ParseError{Line: lr.line, Msg: "bad chromosome length", Err: err}
		}
	}

	seen := make(map[string]int)
	for i := 0; i < count; i++ {
		g, err := readGene(lr)
		if err != nil {
			return nil, err
		}
		// the annotation is the first of the four gene lines
		line := lr.line - 3
		if first, dup := seen[g.Name]; dup {
			return nil, &ParseError{Line: line, Msg: fmt.Sprintf("duplicate gene %s, first seen on line %d", g.Name, first)}
		}
		seen[g.Name] = line
		v.Genes = append(v.Genes, g)
	}

	if opts.DropMissingSequences {
		if removed := v.RemoveGenesWithoutProtein(); removed > 0 {
			logger.Info("Removed genes without protein", zap.String("variety", v.Name), zap.Int("removed", removed))
		}
	} else {
		v.MarkMissingSequences()
	}
	logger.Debug("Variety loaded", zap.String("variety", v.Name), zap.Int("genes", len(v.Genes)))
	return v, nil
}

func readGene(lr *lineReader) (*model.Gene, error) {
	info, err := lr.must("gene annotation")
	if err != nil {
		return nil, err
	}
	g, err := ParseGeneLine(info)
	if err != nil {
		return nil, &ParseError{Line: lr.line, Msg: "bad gene annotation", Err: err}
	}
	if g.Protein, err = lr.must("protein sequence"); err != nil {
		return nil, err
	}
	if g.GFF3, err = lr.must("GFF3 entry"); err != nil {
		return nil, err
	}
	if g.Nucleotide, err = lr.must("nucleotide sequence"); err != nil {
		return nil, err
	}
	return g, nil
}

// ParseGeneLine reads "name<TAB>chr<TAB>start[<TAB>...]<TAB>shape". The shape
// is removed from the annotation kept in Info.
func ParseGeneLine(line string) (*model.Gene, error) {
	pieces := strings.Split(line, "\t")
	if len(pieces) < 4 {
		return nil, fmt.Errorf("expected at least 4 fields, got %d", len(pieces))
	}
	start, err := strconv.Atoi(strings.TrimSpace(pieces[2]))
	if err != nil {
		return nil, err
	}
	shape := pieces[len(pieces)-1]

	g := model.NewGene(pieces[0], start, pieces[1], "")
	g.Shape = model.Shape(shape)
	g.Info = strings.Join(pieces[:len(pieces)-1], "\t")
	return g, nil
}

func tabInt(line string, field int) (int, error) {
	pieces := strings.Split(line, "\t")
	if len(pieces) <= field {
		return 0, fmt.Errorf("missing field %d in %q", field+1, line)
	}
	return strconv.Atoi(strings.TrimSpace(pieces[field]))
}

type OrderEntry struct {
	ID         string
	Background string
	Title      string
}

// ReadOrder parses the variety order file: one "id<TAB>background<TAB>title"
// line per variety, lines starting with # are comments.
func ReadOrder(r io.Reader) ([]OrderEntry, error) {
	sc := bufio.NewScanner(r)
	var ret []OrderEntry
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSuffix(sc.Text(), "\r")
		if strings.HasPrefix(text, "#") || strings.TrimSpace(text) == "" {
			continue
		}
		pieces := strings.Split(text, "\t")
		if len(pieces) < 3 {
			return nil, &ParseError{Line: line, Msg: fmt.Sprintf("expected 3 fields, got %d", len(pieces))}
		}
		ret = append(ret, OrderEntry{ID: pieces[0], Background: pieces[1], Title: pieces[2]})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}
