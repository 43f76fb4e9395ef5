package ingest

import (
	"context"
	"encoding/json"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/securecheck/securecheck-cli/internal/fetcher"
	"github.com/securecheck/securecheck-cli/internal/schema"
)

// SourceOptions configures how extracts are located and decoded.
type SourceOptions struct {
	Delimiter rune          // .csv and .txt; .tsv always splits on tabs
	Encoding  string        // text encoding label, empty for UTF-8
	Sheet     string        // worksheet name for .xlsx, empty for the first sheet
	TempDir   string        // downloads and archive members land here
	Timeout   time.Duration // per request for remote sources
}

type format int

const (
	formatUnknown format = iota
	formatDelimited
	formatTSV
	formatXLSX
	formatJSON
	formatZIP
)

func formatOf(name string) format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt":
		return formatDelimited
	case ".tsv":
		return formatTSV
	case ".xlsx":
		return formatXLSX
	case ".json":
		return formatJSON
	case ".zip":
		return formatZIP
	default:
		return formatUnknown
	}
}

// dataFile admits archive members the reader can decode.
func dataFile(name string) bool {
	f := formatOf(name)
	return f != formatUnknown && f != formatZIP
}

// Reader opens extracts from local paths or http(s)/ftp URLs and decodes
// them into raw frames.
type Reader struct {
	opts   SourceOptions
	remote fetcher.Fetcher
}

// NewReader creates a Reader.
func NewReader(opts SourceOptions) *Reader {
	if opts.Delimiter == 0 {
		opts.Delimiter = ','
	}
	return &Reader{
		opts:   opts,
		remote: fetcher.NewRemote(fetcher.Options{Timeout: opts.Timeout}),
	}
}

// Read returns the extract at source as a raw frame. Every failure is an
// *IngestionInputError.
func (r *Reader) Read(ctx context.Context, source string) (*schema.Frame, error) {
	f, err := r.read(ctx, source)
	if err != nil {
		return nil, &IngestionInputError{Source: source, Err: err}
	}
	return f, nil
}

func (r *Reader) read(ctx context.Context, source string) (*schema.Frame, error) {
	if strings.TrimSpace(source) == "" {
		return nil, eris.New("ingest: no source given")
	}

	if r.opts.TempDir != "" {
		if err := os.MkdirAll(r.opts.TempDir, 0o755); err != nil {
			return nil, eris.Wrap(err, "ingest: create temp dir")
		}
	}
	work, err := os.MkdirTemp(r.opts.TempDir, "ingest-*")
	if err != nil {
		return nil, eris.Wrap(err, "ingest: create work dir")
	}
	defer os.RemoveAll(work) //nolint:errcheck

	log := zap.L().With(zap.String("component", "ingest"), zap.String("source", source))

	p := source
	if fetcher.IsRemote(source) {
		p = filepath.Join(work, remoteName(source))
		n, err := r.remote.DownloadToFile(ctx, source, p)
		if err != nil {
			return nil, eris.Wrap(err, "ingest: download")
		}
		log.Info("downloaded extract", zap.Int64("bytes", n))
	} else if _, err := os.Stat(p); err != nil {
		return nil, eris.Wrap(err, "ingest: open source")
	}

	if formatOf(p) == formatZIP {
		p, err = fetcher.ExtractZIPData(p, work, dataFile)
		if err != nil {
			return nil, err
		}
		log.Debug("extracted archive member", zap.String("member", filepath.Base(p)))
	}

	switch formatOf(p) {
	case formatDelimited:
		return r.readDelimited(ctx, p, r.opts.Delimiter)
	case formatTSV:
		return r.readDelimited(ctx, p, '\t')
	case formatXLSX:
		return r.readXLSX(ctx, p)
	case formatJSON:
		return r.readJSON(ctx, p)
	default:
		return nil, eris.Errorf("ingest: unsupported file type %q", filepath.Ext(p))
	}
}

// remoteName is the local file name for a downloaded URL. It keeps the
// extension so the format can be detected.
func remoteName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err == nil {
		if base := path.Base(u.Path); base != "." && base != "/" {
			return base
		}
	}
	return "download"
}

func (r *Reader) readDelimited(ctx context.Context, p string, delim rune) (*schema.Frame, error) {
	file, err := os.Open(p)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: open source")
	}
	defer file.Close() //nolint:errcheck

	headerCh := make(chan []string, 1)
	rowCh, errCh := fetcher.StreamCSV(ctx, file, fetcher.CSVOptions{
		Delimiter:  delim,
		Encoding:   r.opts.Encoding,
		HasHeader:  true,
		HeaderCh:   headerCh,
		LazyQuotes: true,
	})
	return collect(headerCh, rowCh, errCh)
}

func (r *Reader) readXLSX(ctx context.Context, p string) (*schema.Frame, error) {
	headerCh := make(chan []string, 1)
	rowCh, errCh := fetcher.StreamXLSX(ctx, p, fetcher.XLSXOptions{
		SheetName: r.opts.Sheet,
		HasHeader: true,
		HeaderCh:  headerCh,
	})
	return collect(headerCh, rowCh, errCh)
}

// collect drains a streamed table into a frame. The header is sent before
// any row, so it is available once the row channel closes.
func collect(headerCh <-chan []string, rowCh <-chan []string, errCh <-chan error) (*schema.Frame, error) {
	var records [][]string
	for row := range rowCh {
		records = append(records, row)
	}
	for err := range errCh {
		if err != nil {
			return nil, err
		}
	}

	var header []string
	select {
	case header = <-headerCh:
	default:
		return nil, eris.New("ingest: source has no header row")
	}

	f, err := newFrame(header)
	if err != nil {
		return nil, err
	}
	for i, rec := range records {
		if len(rec) > len(f.Columns) {
			return nil, eris.Errorf("ingest: record %d has %d fields, header has %d", i+1, len(rec), len(f.Columns))
		}
		row := make([]any, len(f.Columns))
		for j, v := range rec {
			if v != "" {
				row[j] = v
			}
		}
		f.Rows = append(f.Rows, row)
	}
	return f, nil
}

// newFrame builds an empty frame from header cells. Blank names become
// column_<n>; repeated names are rejected.
func newFrame(header []string) (*schema.Frame, error) {
	seen := make(map[string]bool, len(header))
	cols := make([]string, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = "column_" + strconv.Itoa(i+1)
		}
		if seen[name] {
			return nil, eris.Errorf("ingest: duplicate column %q", name)
		}
		seen[name] = true
		cols[i] = name
	}
	return schema.NewFrame(cols...), nil
}

// readJSON reads an array of objects. Columns appear in the order keys are
// first seen; keys missing from an object are missing cells.
func (r *Reader) readJSON(ctx context.Context, p string) (*schema.Frame, error) {
	file, err := os.Open(p)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: open source")
	}
	defer file.Close() //nolint:errcheck

	outCh, errCh := fetcher.DecodeJSONArray[json.RawMessage](ctx, file)

	var (
		objects [][]fetcher.Field
		cols    []string
		index   = make(map[string]int)
	)
	for raw := range outCh {
		fields, err := fetcher.ObjectFields(raw)
		if err != nil {
			for range outCh { //nolint:revive // drain
			}
			return nil, eris.Wrapf(err, "ingest: record %d", len(objects)+1)
		}
		for _, fd := range fields {
			if _, ok := index[fd.Key]; !ok {
				index[fd.Key] = len(cols)
				cols = append(cols, fd.Key)
			}
		}
		objects = append(objects, fields)
	}
	for err := range errCh {
		if err != nil {
			return nil, err
		}
	}

	f := schema.NewFrame(cols...)
	for _, fields := range objects {
		row := make([]any, len(cols))
		for _, fd := range fields {
			row[index[fd.Key]] = fd.Value
		}
		f.Rows = append(f.Rows, row)
	}
	return f, nil
}
