package generator

import (
	"context"

	"github.com/google/uuid"
	"github.com/tendant/foxml-generator/pkg/foxml"
)

// ObjectFromRandomData builds an object with one datastream of n random
// versions, size bytes each, stored with control group cg.
func (g *Generator) ObjectFromRandomData(ctx context.Context, n int, size int64, cg foxml.ControlGroup) (*foxml.Object, error) {
	ds, err := g.DatastreamFromRandomData(ctx, n, size, cg)
	if err != nil {
		return nil, err
	}
	return g.objectWith(ds)
}

// InlineObjectFromRandomData builds an object with one managed datastream
// whose random content is held in memory for embedding.
func (g *Generator) InlineObjectFromRandomData(n int, size int64) (*foxml.Object, error) {
	ds, err := g.InlineDatastreamFromRandomData(n, size)
	if err != nil {
		return nil, err
	}
	return g.objectWith(ds)
}

// ObjectFromURI builds an object with one datastream referencing uri.
func (g *Generator) ObjectFromURI(ctx context.Context, uri string, cg foxml.ControlGroup) (*foxml.Object, error) {
	ds, err := g.DatastreamFromURI(ctx, uri, cg)
	if err != nil {
		return nil, err
	}
	return g.objectWith(ds)
}

// ObjectFromURIs builds an object with one datastream holding a version per uri.
func (g *Generator) ObjectFromURIs(ctx context.Context, uris []string, cg foxml.ControlGroup) (*foxml.Object, error) {
	ds, err := g.DatastreamFromURIs(ctx, uris, cg)
	if err != nil {
		return nil, err
	}
	return g.objectWith(ds)
}

// ObjectFromFiles builds an object with one datastream holding a version per file.
func (g *Generator) ObjectFromFiles(ctx context.Context, paths []string, cg foxml.ControlGroup) (*foxml.Object, error) {
	ds, err := g.DatastreamFromFiles(ctx, paths, cg)
	if err != nil {
		return nil, err
	}
	return g.objectWith(ds)
}

func (g *Generator) objectWith(ds *foxml.Datastream) (*foxml.Object, error) {
	now := g.now()
	obj := &foxml.Object{
		PID:              "random:" + uuid.NewString(),
		OwnerID:          g.ownerID,
		Label:            "random test object " + uuid.NewString(),
		State:            foxml.StateActive,
		CreatedDate:      now,
		LastModifiedDate: now,
	}
	if err := obj.AddDatastream(ds); err != nil {
		return nil, err
	}
	return obj, nil
}
