package foxml_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/xml"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/foxml-generator/pkg/foxml"
)

type parsedObject struct {
	XMLName     xml.Name           `xml:"digitalObject"`
	Version     string             `xml:"VERSION,attr"`
	PID         string             `xml:"PID,attr"`
	Properties  []parsedProperty   `xml:"objectProperties>property"`
	Datastreams []parsedDatastream `xml:"datastream"`
}

type parsedProperty struct {
	Name  string `xml:"NAME,attr"`
	Value string `xml:"VALUE,attr"`
}

type parsedDatastream struct {
	ID           string          `xml:"ID,attr"`
	State        string          `xml:"STATE,attr"`
	ControlGroup string          `xml:"CONTROL_GROUP,attr"`
	Versionable  string          `xml:"VERSIONABLE,attr"`
	Versions     []parsedVersion `xml:"datastreamVersion"`
}

type parsedVersion struct {
	ID         string          `xml:"ID,attr"`
	Label      string          `xml:"LABEL,attr"`
	Created    string          `xml:"CREATED,attr"`
	MIMEType   string          `xml:"MIMETYPE,attr"`
	FormatURI  string          `xml:"FORMAT_URI,attr"`
	Size       string          `xml:"SIZE,attr"`
	Location   *parsedLocation `xml:"contentLocation"`
	Binary     *string         `xml:"binaryContent"`
	XMLContent *parsedInner    `xml:"xmlContent"`
}

type parsedLocation struct {
	Type string `xml:"TYPE,attr"`
	Ref  string `xml:"REF,attr"`
}

type parsedInner struct {
	Inner string `xml:",innerxml"`
}

type mapResolver map[string][]byte

func (m mapResolver) Fetch(ctx context.Context, location string) (io.ReadCloser, error) {
	data, ok := m[location]
	if !ok {
		return nil, errors.New("not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

var created = time.Date(2024, 3, 1, 12, 30, 45, 123000000, time.UTC)

func newObject(t *testing.T, streams ...*foxml.Datastream) *foxml.Object {
	t.Helper()
	obj := &foxml.Object{
		PID:              "random:1234",
		OwnerID:          "testOwner",
		Label:            "random test object",
		State:            foxml.StateActive,
		CreatedDate:      created,
		LastModifiedDate: created,
	}
	for _, ds := range streams {
		require.NoError(t, obj.AddDatastream(ds))
	}
	return obj
}

func write(t *testing.T, w *foxml.Writer, obj *foxml.Object) (string, parsedObject) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, w.WriteObject(context.Background(), obj, &buf))
	var parsed parsedObject
	require.NoError(t, xml.Unmarshal(buf.Bytes(), &parsed), buf.String())
	return buf.String(), parsed
}

func decodeBinary(t *testing.T, s *string) []byte {
	t.Helper()
	require.NotNil(t, s)
	data, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(*s), ""))
	require.NoError(t, err)
	return data
}

func TestWriteObjectManagedLocations(t *testing.T) {
	ds := foxml.NewDatastream("DS1", foxml.ControlGroupManaged)
	for _, id := range []string{"DS1.0", "DS1.1", "DS1.2"} {
		require.NoError(t, ds.AddVersion(&foxml.DatastreamVersion{
			ID:              id,
			Created:         created,
			MIMEType:        "application/octet-stream",
			FormatURI:       foxml.FormatURI,
			Label:           "label " + id,
			Size:            10,
			ContentLocation: "file:///tmp/" + id,
		}))
	}

	raw, parsed := write(t, foxml.NewWriter(nil), newObject(t, ds))

	assert.True(t, strings.HasPrefix(raw, `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, raw, `xmlns:foxml="info:fedora/fedora-system:def/foxml#"`)
	assert.Equal(t, "1.1", parsed.Version)
	assert.Equal(t, "random:1234", parsed.PID)

	props := map[string]string{}
	for _, p := range parsed.Properties {
		props[p.Name] = p.Value
	}
	assert.Equal(t, "Active", props["info:fedora/fedora-system:def/model#state"])
	assert.Equal(t, "random test object", props["info:fedora/fedora-system:def/model#label"])
	assert.Equal(t, "testOwner", props["info:fedora/fedora-system:def/model#ownerId"])
	assert.Equal(t, "2024-03-01T12:30:45.123Z", props["info:fedora/fedora-system:def/model#createdDate"])
	assert.Equal(t, "2024-03-01T12:30:45.123Z", props["info:fedora/fedora-system:def/view#lastModifiedDate"])

	require.Len(t, parsed.Datastreams, 1)
	pds := parsed.Datastreams[0]
	assert.Equal(t, "DS1", pds.ID)
	assert.Equal(t, "A", pds.State)
	assert.Equal(t, "M", pds.ControlGroup)
	assert.Equal(t, "true", pds.Versionable)
	require.Len(t, pds.Versions, 3)
	for i, v := range pds.Versions {
		assert.Equal(t, ds.Versions[i].ID, v.ID)
		assert.Equal(t, "10", v.Size)
		assert.Equal(t, foxml.FormatURI, v.FormatURI)
		assert.Equal(t, "application/octet-stream", v.MIMEType)
		assert.Equal(t, "2024-03-01T12:30:45.123Z", v.Created)
		require.NotNil(t, v.Location)
		assert.Equal(t, "URL", v.Location.Type)
		assert.Equal(t, ds.Versions[i].ContentLocation, v.Location.Ref)
		assert.Nil(t, v.Binary)
	}
}

func TestWriteObjectBinaryContent(t *testing.T) {
	content := []byte{0, 1, 2, 3, 250, 251, 252, 253, 254, 255}
	ds := foxml.NewDatastream("DS1", foxml.ControlGroupManaged)
	require.NoError(t, ds.AddVersion(&foxml.DatastreamVersion{ID: "DS1.0", Created: created, Size: 10, BinaryContent: content}))

	_, parsed := write(t, foxml.NewWriter(nil), newObject(t, ds))

	v := parsed.Datastreams[0].Versions[0]
	assert.Nil(t, v.Location)
	assert.Equal(t, content, decodeBinary(t, v.Binary))
}

func TestWriteObjectEmbedManaged(t *testing.T) {
	content := bytes.Repeat([]byte("0123456789"), 1000)
	resolver := mapResolver{"memory:///a": content}

	embedded := foxml.NewDatastream("EMBED", foxml.ControlGroupManaged)
	require.NoError(t, embedded.AddVersion(&foxml.DatastreamVersion{ID: "EMBED.0", Created: created, Size: int64(len(content)), ContentLocation: "memory:///a"}))
	referenced := foxml.NewDatastream("REF", foxml.ControlGroupManaged)
	require.NoError(t, referenced.AddVersion(&foxml.DatastreamVersion{ID: "REF.0", Created: created, ContentLocation: "memory:///a"}))

	w := foxml.NewWriter(resolver)
	w.SetManagedDatastreamsToEmbed("EMBED")
	_, parsed := write(t, w, newObject(t, embedded, referenced))

	require.Len(t, parsed.Datastreams, 2)
	assert.Equal(t, content, decodeBinary(t, parsed.Datastreams[0].Versions[0].Binary))
	require.NotNil(t, parsed.Datastreams[1].Versions[0].Location)
	assert.Equal(t, "memory:///a", parsed.Datastreams[1].Versions[0].Location.Ref)

	t.Run("NoResolver", func(t *testing.T) {
		w := foxml.NewWriter(nil)
		w.SetManagedDatastreamsToEmbed("EMBED")
		err := w.WriteObject(context.Background(), newObject(t, embedded), io.Discard)
		assert.ErrorIs(t, err, foxml.ErrNoResolver)
	})

	t.Run("MissingContent", func(t *testing.T) {
		w := foxml.NewWriter(mapResolver{})
		w.SetManagedDatastreamsToEmbed("EMBED")
		err := w.WriteObject(context.Background(), newObject(t, embedded), io.Discard)
		assert.Error(t, err)
	})
}

func TestWriteObjectInlineXML(t *testing.T) {
	source := []byte("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<record><title>Test &amp; more</title></record>")
	ds := foxml.NewDatastream("DC", foxml.ControlGroupInlineXML)
	require.NoError(t, ds.AddVersion(&foxml.DatastreamVersion{
		ID:              "DC.0",
		Created:         created,
		MIMEType:        "text/xml",
		Size:            int64(len(source)),
		ContentLocation: "file:///tmp/dc.xml",
		InlineXML:       source,
	}))

	raw, parsed := write(t, foxml.NewWriter(nil), newObject(t, ds))

	assert.Equal(t, 1, strings.Count(raw, "<?xml"))
	v := parsed.Datastreams[0].Versions[0]
	assert.Equal(t, "X", parsed.Datastreams[0].ControlGroup)
	assert.Nil(t, v.Location)
	require.NotNil(t, v.XMLContent)
	assert.Equal(t, "<record><title>Test &amp; more</title></record>", strings.TrimSpace(v.XMLContent.Inner))
}

func TestWriteObjectExternalAndRedirect(t *testing.T) {
	ext := foxml.NewDatastream("EXT", foxml.ControlGroupExternal)
	require.NoError(t, ext.AddVersion(&foxml.DatastreamVersion{ID: "EXT.0", Created: created, ContentLocation: "http://example.org/a.jpg?x=1&y=2"}))
	red := foxml.NewDatastream("RED", foxml.ControlGroupRedirect)
	require.NoError(t, red.AddVersion(&foxml.DatastreamVersion{ID: "RED.0", Created: created, ContentLocation: "http://example.org/b"}))

	_, parsed := write(t, foxml.NewWriter(nil), newObject(t, ext, red))

	require.Len(t, parsed.Datastreams, 2)
	assert.Equal(t, "E", parsed.Datastreams[0].ControlGroup)
	assert.Equal(t, "http://example.org/a.jpg?x=1&y=2", parsed.Datastreams[0].Versions[0].Location.Ref)
	assert.Equal(t, "R", parsed.Datastreams[1].ControlGroup)
	assert.Equal(t, "http://example.org/b", parsed.Datastreams[1].Versions[0].Location.Ref)
}

func TestWriteObjectInvalid(t *testing.T) {
	err := foxml.NewWriter(nil).WriteObject(context.Background(), newObject(t, foxml.NewDatastream("EMPTY", foxml.ControlGroupManaged)), io.Discard)
	assert.ErrorIs(t, err, foxml.ErrEmptyDatastream)
}

func TestWriteObjectCanceled(t *testing.T) {
	ds := foxml.NewDatastream("DS1", foxml.ControlGroupManaged)
	require.NoError(t, ds.AddVersion(&foxml.DatastreamVersion{ID: "DS1.0", ContentLocation: "file:///a"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := foxml.NewWriter(nil).WriteObject(ctx, newObject(t, ds), io.Discard)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStripXMLDeclaration(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"Declaration", "<?xml version=\"1.0\"?>\n<a/>", "<a/>"},
		{"BOMAndDeclaration", "\xef\xbb\xbf<?xml version=\"1.0\"?><a/>", "<a/>"},
		{"LeadingWhitespace", "  \n<?xml version=\"1.0\"?>\n\n<a/>", "<a/>"},
		{"NoDeclaration", "<a><?pi x?></a>", "<a><?pi x?></a>"},
		{"Empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(foxml.StripXMLDeclaration([]byte(tt.input))))
		})
	}
}

func TestCheckInlineXML(t *testing.T) {
	valid := []string{
		"<dc/>",
		"<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<dc><title>a &amp; b</title></dc>\n",
		"\xef\xbb\xbf<dc xmlns=\"http://purl.org/dc/elements/1.1/\"><!-- note --><title>x</title></dc>",
		"<dc><![CDATA[fish & chips < 5]]></dc>",
	}
	for _, content := range valid {
		assert.NoError(t, foxml.CheckInlineXML([]byte(content)), content)
	}

	invalid := map[string]string{
		"PlainText":     "fish & chips < 5 dollars",
		"TextOnly":      "hello",
		"Empty":         "",
		"Doctype":       `<!DOCTYPE dc [<!ENTITY e "x">]><dc>&e;</dc>`,
		"Unclosed":      "<dc><title>x</dc>",
		"TwoRoots":      "<a/><b/>",
		"TrailingText":  "<a/>tail",
		"Binary":        "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR",
		"UnknownEntity": "<dc>&nbsp;</dc>",
	}
	for name, content := range invalid {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, foxml.CheckInlineXML([]byte(content)), foxml.ErrInvalidInlineXML)
		})
	}
}
