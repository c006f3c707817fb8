package foxml

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"
)

const (
	foxmlNamespace = "info:fedora/fedora-system:def/foxml#"
	xsiNamespace   = "http://www.w3.org/2001/XMLSchema-instance"
	schemaLocation = "info:fedora/fedora-system:def/foxml# http://www.fedora.info/definitions/1/0/foxml1-1.xsd"

	propState        = "info:fedora/fedora-system:def/model#state"
	propLabel        = "info:fedora/fedora-system:def/model#label"
	propOwnerID      = "info:fedora/fedora-system:def/model#ownerId"
	propCreated      = "info:fedora/fedora-system:def/model#createdDate"
	propLastModified = "info:fedora/fedora-system:def/view#lastModifiedDate"

	// DateFormat is the timestamp layout used for FOXML dates.
	DateFormat = "2006-01-02T15:04:05.000Z"
)

// ErrNoResolver indicates a managed datastream must be embedded but the
// writer has no way to read its content location.
var ErrNoResolver = errors.New("no content resolver for embedded datastream")

// ContentResolver opens the content behind a version's location.
type ContentResolver interface {
	Fetch(ctx context.Context, location string) (io.ReadCloser, error)
}

// Writer serializes objects to FOXML 1.1.
type Writer struct {
	resolver ContentResolver
	embed    map[string]struct{}
}

// NewWriter creates a writer. resolver may be nil when no managed datastream
// needs to be embedded by reference.
func NewWriter(resolver ContentResolver) *Writer {
	return &Writer{
		resolver: resolver,
		embed:    make(map[string]struct{}),
	}
}

// SetManagedDatastreamsToEmbed marks managed datastreams whose versions are
// written by value as base64 binaryContent instead of a contentLocation.
func (w *Writer) SetManagedDatastreamsToEmbed(ids ...string) {
	w.embed = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		w.embed[id] = struct{}{}
	}
}

// WriteObject writes obj to out. out is not closed.
func (w *Writer) WriteObject(ctx context.Context, obj *Object, out io.Writer) error {
	if err := obj.Validate(); err != nil {
		return err
	}

	bw := bufio.NewWriter(out)
	enc := xml.NewEncoder(bw)
	enc.Indent("", "  ")

	if err := enc.EncodeToken(xml.ProcInst{Target: "xml", Inst: []byte(`version="1.0" encoding="UTF-8"`)}); err != nil {
		return fmt.Errorf("failed to write xml header: %w", err)
	}

	root := start("foxml:digitalObject",
		"VERSION", "1.1",
		"PID", obj.PID,
		"xmlns:foxml", foxmlNamespace,
		"xmlns:xsi", xsiNamespace,
		"xsi:schemaLocation", schemaLocation,
	)
	if err := enc.EncodeToken(root); err != nil {
		return fmt.Errorf("failed to write object %s: %w", obj.PID, err)
	}
	if err := writeProperties(enc, obj); err != nil {
		return fmt.Errorf("failed to write properties of %s: %w", obj.PID, err)
	}

	for _, ds := range obj.Datastreams() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.writeDatastream(ctx, enc, bw, ds); err != nil {
			return fmt.Errorf("failed to write datastream %s: %w", ds.ID, err)
		}
	}

	if err := enc.EncodeToken(root.End()); err != nil {
		return err
	}
	if err := enc.Flush(); err != nil {
		return err
	}
	if _, err := bw.WriteString("\n"); err != nil {
		return err
	}
	return bw.Flush()
}

func writeProperties(enc *xml.Encoder, obj *Object) error {
	props := start("foxml:objectProperties")
	if err := enc.EncodeToken(props); err != nil {
		return err
	}
	state := obj.State
	if state == "" {
		state = StateActive
	}
	pairs := [][2]string{
		{propState, state.Name()},
		{propLabel, obj.Label},
		{propOwnerID, obj.OwnerID},
		{propCreated, formatDate(obj.CreatedDate)},
		{propLastModified, formatDate(obj.LastModifiedDate)},
	}
	for _, p := range pairs {
		if p[1] == "" {
			continue
		}
		if err := emptyElement(enc, start("foxml:property", "NAME", p[0], "VALUE", p[1])); err != nil {
			return err
		}
	}
	return enc.EncodeToken(props.End())
}

func (w *Writer) writeDatastream(ctx context.Context, enc *xml.Encoder, bw *bufio.Writer, ds *Datastream) error {
	state := ds.State
	if state == "" {
		state = StateActive
	}
	el := start("foxml:datastream",
		"ID", ds.ID,
		"STATE", string(state),
		"CONTROL_GROUP", string(ds.ControlGroup),
		"VERSIONABLE", strconv.FormatBool(ds.Versionable),
	)
	if err := enc.EncodeToken(el); err != nil {
		return err
	}

	_, embed := w.embed[ds.ID]
	embed = embed && ds.ControlGroup == ControlGroupManaged

	for _, v := range ds.Versions {
		attrs := []string{"ID", v.ID}
		if v.Label != "" {
			attrs = append(attrs, "LABEL", v.Label)
		}
		attrs = append(attrs, "CREATED", formatDate(v.Created))
		if v.MIMEType != "" {
			attrs = append(attrs, "MIMETYPE", v.MIMEType)
		}
		if v.FormatURI != "" {
			attrs = append(attrs, "FORMAT_URI", v.FormatURI)
		}
		attrs = append(attrs, "SIZE", strconv.FormatInt(v.Size, 10))
		dv := start("foxml:datastreamVersion", attrs...)
		if err := enc.EncodeToken(dv); err != nil {
			return err
		}

		var err error
		switch {
		case ds.ControlGroup == ControlGroupInlineXML:
			err = writeInlineXML(enc, bw, v.InlineXML)
		case v.BinaryContent != nil:
			err = writeBinary(enc, bw, bytes.NewReader(v.BinaryContent))
		case embed:
			err = w.writeEmbedded(ctx, enc, bw, v)
		default:
			err = emptyElement(enc, start("foxml:contentLocation", "TYPE", "URL", "REF", v.ContentLocation))
		}
		if err != nil {
			return fmt.Errorf("version %s: %w", v.ID, err)
		}

		if err := enc.EncodeToken(dv.End()); err != nil {
			return err
		}
	}
	return enc.EncodeToken(el.End())
}

func (w *Writer) writeEmbedded(ctx context.Context, enc *xml.Encoder, bw *bufio.Writer, v *DatastreamVersion) error {
	if w.resolver == nil {
		return ErrNoResolver
	}
	rc, err := w.resolver.Fetch(ctx, v.ContentLocation)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", v.ContentLocation, err)
	}
	defer rc.Close()
	return writeBinary(enc, bw, rc)
}

// writeInlineXML copies content verbatim into xmlContent. The encoder is
// flushed first so the raw bytes land after the open tag.
func writeInlineXML(enc *xml.Encoder, bw *bufio.Writer, content []byte) error {
	el := start("foxml:xmlContent")
	if err := enc.EncodeToken(el); err != nil {
		return err
	}
	if err := enc.Flush(); err != nil {
		return err
	}
	if _, err := bw.Write(StripXMLDeclaration(content)); err != nil {
		return err
	}
	return enc.EncodeToken(el.End())
}

func writeBinary(enc *xml.Encoder, bw *bufio.Writer, r io.Reader) error {
	el := start("foxml:binaryContent")
	if err := enc.EncodeToken(el); err != nil {
		return err
	}
	if err := enc.Flush(); err != nil {
		return err
	}
	b64 := base64.NewEncoder(base64.StdEncoding, bw)
	if _, err := io.Copy(b64, r); err != nil {
		return err
	}
	if err := b64.Close(); err != nil {
		return err
	}
	return enc.EncodeToken(el.End())
}

// CheckInlineXML reports whether content is a single well-formed XML element
// that can be nested in xmlContent. The check runs on the bytes the writer
// embeds, after StripXMLDeclaration. DOCTYPE and other directives are
// rejected since entity declarations do not survive nesting.
func CheckInlineXML(content []byte) error {
	dec := xml.NewDecoder(bytes.NewReader(StripXMLDeclaration(content)))
	depth, roots := 0, 0
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidInlineXML, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if depth == 0 {
				roots++
			}
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			if depth == 0 && len(bytes.TrimSpace(t)) > 0 {
				return fmt.Errorf("%w: text outside the root element", ErrInvalidInlineXML)
			}
		case xml.Directive:
			return fmt.Errorf("%w: directive <!%s> not allowed", ErrInvalidInlineXML, firstWord(t))
		}
	}
	if roots != 1 {
		return fmt.Errorf("%w: expected one root element, found %d", ErrInvalidInlineXML, roots)
	}
	return nil
}

func firstWord(b []byte) string {
	if f := bytes.Fields(b); len(f) > 0 {
		return string(f[0])
	}
	return ""
}

// StripXMLDeclaration drops a leading byte order mark, whitespace and
// <?xml ...?> declaration so the content can be nested in another document.
func StripXMLDeclaration(content []byte) []byte {
	out := bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))
	trimmed := bytes.TrimLeft(out, " \t\r\n")
	if bytes.HasPrefix(trimmed, []byte("<?xml")) {
		if end := bytes.Index(trimmed, []byte("?>")); end >= 0 {
			return bytes.TrimLeft(trimmed[end+2:], " \t\r\n")
		}
	}
	return out
}

func start(name string, attrs ...string) xml.StartElement {
	el := xml.StartElement{Name: xml.Name{Local: name}}
	for i := 0; i+1 < len(attrs); i += 2 {
		el.Attr = append(el.Attr, xml.Attr{Name: xml.Name{Local: attrs[i]}, Value: attrs[i+1]})
	}
	return el
}

func emptyElement(enc *xml.Encoder, el xml.StartElement) error {
	if err := enc.EncodeToken(el); err != nil {
		return err
	}
	return enc.EncodeToken(el.End())
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(DateFormat)
}
