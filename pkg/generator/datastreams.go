package generator

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path"

	"github.com/google/uuid"
	"github.com/tendant/foxml-generator/pkg/foxml"
)

const (
	octetStream = "application/octet-stream"
	textXML     = "text/xml"
)

// RandomVersion writes size random bytes to the content store and returns a
// version referencing them.
func (g *Generator) RandomVersion(ctx context.Context, size int64) (*foxml.DatastreamVersion, error) {
	if size < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	key := uuid.NewString()
	location, err := g.store.Put(ctx, key, NewRandomReader(g.rnd, size))
	if err != nil {
		return nil, &GenerationError{Op: "store random content", Path: key, Err: fmt.Errorf("%w: %w", ErrStoreFailed, err)}
	}
	g.logger.Debug("stored random content", "key", key, "size", size, "location", location)

	v := g.newVersion("ds-")
	v.MIMEType = octetStream
	v.Label = "testobject-" + uuid.NewString()
	v.Size = size
	v.ContentLocation = location
	return v, nil
}

// InlineRandomVersion keeps size random bytes in memory; the FOXML writer
// emits them base64 encoded. Oversized requests fail before allocation.
func (g *Generator) InlineRandomVersion(size int64) (*foxml.DatastreamVersion, error) {
	data, err := RandomBytes(g.rnd, size, g.maxInlineSize)
	if err != nil {
		return nil, err
	}
	v := g.newVersion("ds-")
	v.MIMEType = octetStream
	v.Label = "testobject-" + uuid.NewString()
	v.Size = size
	v.BinaryContent = data
	return v, nil
}

// InlineXMLRandomVersion wraps base64 encoded random bytes in an XML element
// so random content can live in an inline XML datastream.
func (g *Generator) InlineXMLRandomVersion(size int64) (*foxml.DatastreamVersion, error) {
	encoded, err := RandomBase64(g.rnd, size, g.maxInlineSize)
	if err != nil {
		return nil, err
	}
	content := make([]byte, 0, len(encoded)+64)
	content = append(content, `<randomContent encoding="base64">`...)
	content = append(content, encoded...)
	content = append(content, `</randomContent>`...)

	v := g.newVersion("ds-")
	v.MIMEType = textXML
	v.Label = "testobject-" + uuid.NewString()
	v.Size = int64(len(content))
	v.InlineXML = content
	return v, nil
}

// VersionFromURI returns a version referencing uri. For inline XML the
// content is fetched now, checked to be a well-formed element and embedded
// verbatim.
func (g *Generator) VersionFromURI(ctx context.Context, uri string, cg foxml.ControlGroup) (*foxml.DatastreamVersion, error) {
	if cg == "" {
		cg = foxml.ControlGroupManaged
	}
	v := g.newVersion("datastream-")
	v.ContentLocation = uri
	v.MIMEType = guessMIMEType(uri)

	if cg == foxml.ControlGroupInlineXML {
		content, err := g.fetchAll(ctx, uri)
		if err != nil {
			return nil, err
		}
		if err := foxml.CheckInlineXML(content); err != nil {
			return nil, &GenerationError{Op: "inline xml", Path: uri, Err: err}
		}
		v.InlineXML = content
		v.Size = int64(len(content))
		v.MIMEType = textXML
		return v, nil
	}

	if p, err := LocalPath(uri); err == nil {
		if info, err := os.Stat(p); err == nil {
			v.Size = info.Size()
		}
	}
	return v, nil
}

// DatastreamFromRandomData builds one datastream with n random versions of
// size bytes each.
func (g *Generator) DatastreamFromRandomData(ctx context.Context, n int, size int64, cg foxml.ControlGroup) (*foxml.Datastream, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidVersionCount, n)
	}
	ds := foxml.NewDatastream("random-datastream-"+uuid.NewString(), cg)
	for i := 0; i < n; i++ {
		var (
			v   *foxml.DatastreamVersion
			err error
		)
		if ds.ControlGroup == foxml.ControlGroupInlineXML {
			v, err = g.InlineXMLRandomVersion(size)
		} else {
			v, err = g.RandomVersion(ctx, size)
		}
		if err == nil {
			err = ds.AddVersion(v)
		}
		if err != nil {
			g.discardContent(ctx, ds)
			return nil, err
		}
	}
	return ds, nil
}

// InlineDatastreamFromRandomData builds a managed datastream whose n versions
// hold their random content in memory.
func (g *Generator) InlineDatastreamFromRandomData(n int, size int64) (*foxml.Datastream, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidVersionCount, n)
	}
	ds := foxml.NewDatastream("random-datastream-"+uuid.NewString(), foxml.ControlGroupManaged)
	for i := 0; i < n; i++ {
		v, err := g.InlineRandomVersion(size)
		if err != nil {
			return nil, err
		}
		if err := ds.AddVersion(v); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

// DatastreamFromURI builds a datastream with a single version for uri.
func (g *Generator) DatastreamFromURI(ctx context.Context, uri string, cg foxml.ControlGroup) (*foxml.Datastream, error) {
	return g.DatastreamFromURIs(ctx, []string{uri}, cg)
}

// DatastreamFromURIs builds one datastream with a version per uri, in order.
func (g *Generator) DatastreamFromURIs(ctx context.Context, uris []string, cg foxml.ControlGroup) (*foxml.Datastream, error) {
	if len(uris) == 0 {
		return nil, ErrNoSources
	}
	ds := foxml.NewDatastream("datastream-"+uuid.NewString(), cg)
	for _, uri := range uris {
		v, err := g.VersionFromURI(ctx, uri, ds.ControlGroup)
		if err != nil {
			return nil, err
		}
		if err := ds.AddVersion(v); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

// DatastreamsFromURIs builds one single-version datastream per uri.
func (g *Generator) DatastreamsFromURIs(ctx context.Context, uris []string, cg foxml.ControlGroup) ([]*foxml.Datastream, error) {
	streams := make([]*foxml.Datastream, 0, len(uris))
	for _, uri := range uris {
		ds, err := g.DatastreamFromURI(ctx, uri, cg)
		if err != nil {
			return nil, err
		}
		streams = append(streams, ds)
	}
	return streams, nil
}

// DatastreamFromFiles builds one datastream with a version per local file.
func (g *Generator) DatastreamFromFiles(ctx context.Context, paths []string, cg foxml.ControlGroup) (*foxml.Datastream, error) {
	uris := make([]string, 0, len(paths))
	for _, p := range paths {
		uri, err := FileURI(p)
		if err != nil {
			return nil, err
		}
		uris = append(uris, uri)
	}
	return g.DatastreamFromURIs(ctx, uris, cg)
}

func (g *Generator) newVersion(prefix string) *foxml.DatastreamVersion {
	return &foxml.DatastreamVersion{
		ID:        prefix + uuid.NewString(),
		Created:   g.now(),
		FormatURI: foxml.FormatURI,
	}
}

// fetchAll reads uri into memory, bounded by the inline size limit.
func (g *Generator) fetchAll(ctx context.Context, uri string) ([]byte, error) {
	rc, err := g.fetcher.Fetch(ctx, uri)
	if err != nil {
		return nil, &GenerationError{Op: "fetch", Path: uri, Err: fmt.Errorf("%w: %w", ErrFetchFailed, err)}
	}
	defer rc.Close()

	content, err := io.ReadAll(io.LimitReader(rc, g.maxInlineSize+1))
	if err != nil {
		return nil, &GenerationError{Op: "fetch", Path: uri, Err: fmt.Errorf("%w: %w", ErrFetchFailed, err)}
	}
	if int64(len(content)) > g.maxInlineSize {
		return nil, &GenerationError{Op: "fetch", Path: uri, Err: fmt.Errorf("%w: limit %d", ErrContentTooLarge, g.maxInlineSize)}
	}
	return content, nil
}

func guessMIMEType(uri string) string {
	if t := mime.TypeByExtension(path.Ext(uri)); t != "" {
		return t
	}
	return octetStream
}

// discardContent removes stored content of generated versions. Failures are
// logged; the caller is already returning an error.
func (g *Generator) discardContent(ctx context.Context, streams ...*foxml.Datastream) {
	deleter, ok := g.store.(ContentDeleter)
	if !ok {
		return
	}
	ctx = context.WithoutCancel(ctx)
	for _, ds := range streams {
		for _, v := range ds.Versions {
			if v.ContentLocation == "" || v.InlineXML != nil {
				continue
			}
			if err := deleter.Delete(ctx, v.ContentLocation); err != nil {
				g.logger.Warn("failed to discard content", "location", v.ContentLocation, "err", err)
				continue
			}
			g.logger.Debug("discarded content", "location", v.ContentLocation)
		}
	}
}
