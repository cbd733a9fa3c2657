package loader

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"time"

	pkgschema "github.com/goliatone/go-avrocontract/pkg/schema"
)

// Loader implements pkgschema.Loader by delegating to file, fs.FS, HTTP or
// inline strategies.
type Loader struct {
	fs        fs.FS
	baseDir   string
	http      *http.Client
	allowHTTP bool
	timeout   time.Duration
	maxBytes  int64
}

var _ pkgschema.Loader = (*Loader)(nil)

// New constructs a Loader from pre-resolved options.
func New(options pkgschema.LoaderOptions) pkgschema.Loader {
	timeout := options.RequestTimeout

	var httpClient *http.Client
	switch {
	case options.HTTPClient != nil:
		clone := *options.HTTPClient
		if timeout > 0 && clone.Timeout == 0 {
			clone.Timeout = timeout
		}
		httpClient = &clone
	case options.AllowHTTPFallback:
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Loader{
		fs:        options.FileSystem,
		baseDir:   options.BaseDir,
		http:      httpClient,
		allowHTTP: httpClient != nil,
		timeout:   timeout,
		maxBytes:  options.MaxDocumentBytes,
	}
}

// Load fetches a document from the provided source.
func (l *Loader) Load(ctx context.Context, src pkgschema.Source) (pkgschema.Document, error) {
	if src == nil {
		return pkgschema.Document{}, errors.New("schema loader: source is nil")
	}

	var (
		data []byte
		err  error
	)

	switch src.Kind() {
	case pkgschema.SourceKindFile:
		data, err = loadFile(ctx, l.baseDir, src.Location())
	case pkgschema.SourceKindFS:
		data, err = loadFromFS(ctx, l.fs, src.Location())
	case pkgschema.SourceKindURL:
		if !l.allowHTTP {
			return pkgschema.Document{}, errors.New("schema loader: http support disabled")
		}
		data, err = loadHTTP(ctx, l.http, src.Location(), l.timeout, l.maxBytes)
	case pkgschema.SourceKindInline:
		inline, ok := src.(pkgschema.InlineSource)
		if !ok {
			return pkgschema.Document{}, errors.New("schema loader: inline source carries no data")
		}
		data = inline.Data()
	default:
		err = errors.New("schema loader: unsupported source kind")
	}
	if err != nil {
		return pkgschema.Document{}, err
	}

	return pkgschema.NewDocument(src, data)
}
