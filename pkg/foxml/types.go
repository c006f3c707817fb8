// Package foxml models Fedora digital objects and writes them as FOXML 1.1.
package foxml

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// FormatURI is the format tag attached to every generated datastream version.
const FormatURI = "info:fedora/fedora-system:def/foxml#"

// Error types
var (
	// ErrInvalidControlGroup indicates an unknown control group code or name
	ErrInvalidControlGroup = errors.New("invalid control group")

	// ErrDuplicateVersion indicates a version ID already present in a datastream
	ErrDuplicateVersion = errors.New("duplicate datastream version")

	// ErrDuplicateDatastream indicates a datastream ID already present in an object
	ErrDuplicateDatastream = errors.New("duplicate datastream")

	// ErrEmptyDatastream indicates a datastream without versions
	ErrEmptyDatastream = errors.New("datastream has no versions")

	// ErrContentMismatch indicates version content that does not fit the control group
	ErrContentMismatch = errors.New("version content does not match control group")

	// ErrInvalidInlineXML indicates content that cannot be nested in xmlContent
	ErrInvalidInlineXML = errors.New("invalid inline xml")
)

// ControlGroup is the storage mode of a datastream.
type ControlGroup string

// Control group constants (FOXML codes).
const (
	ControlGroupManaged   ControlGroup = "M"
	ControlGroupInlineXML ControlGroup = "X"
	ControlGroupExternal  ControlGroup = "E"
	ControlGroupRedirect  ControlGroup = "R"
)

// ParseControlGroup accepts a FOXML code or a long name in any case.
// "I" is accepted as a shorthand for inline XML.
func ParseControlGroup(s string) (ControlGroup, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "M", "MANAGED":
		return ControlGroupManaged, nil
	case "X", "I", "INLINE", "INLINE_XML":
		return ControlGroupInlineXML, nil
	case "E", "EXTERNAL":
		return ControlGroupExternal, nil
	case "R", "REDIRECT":
		return ControlGroupRedirect, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidControlGroup, s)
}

// Name returns the long name, e.g. "MANAGED".
func (c ControlGroup) Name() string {
	switch c {
	case ControlGroupManaged:
		return "MANAGED"
	case ControlGroupInlineXML:
		return "INLINE_XML"
	case ControlGroupExternal:
		return "EXTERNAL"
	case ControlGroupRedirect:
		return "REDIRECT"
	}
	return string(c)
}

func (c ControlGroup) String() string {
	return c.Name()
}

// Valid reports whether c is one of the four known control groups.
func (c ControlGroup) Valid() bool {
	switch c {
	case ControlGroupManaged, ControlGroupInlineXML, ControlGroupExternal, ControlGroupRedirect:
		return true
	}
	return false
}

// State is the lifecycle state of an object or datastream.
type State string

// State constants (FOXML codes).
const (
	StateActive   State = "A"
	StateInactive State = "I"
	StateDeleted  State = "D"
)

// Name returns the object property value, e.g. "Active".
func (s State) Name() string {
	switch s {
	case StateActive:
		return "Active"
	case StateInactive:
		return "Inactive"
	case StateDeleted:
		return "Deleted"
	}
	return string(s)
}

// DatastreamVersion is one immutable revision of a datastream's content.
//
// Exactly one content form is expected per control group: InlineXML for
// inline XML streams, ContentLocation or BinaryContent for managed streams,
// ContentLocation for external and redirect streams. An inline XML version may
// keep its source location alongside the embedded bytes.
type DatastreamVersion struct {
	ID              string
	Created         time.Time
	MIMEType        string
	FormatURI       string
	Label           string
	Size            int64
	ContentLocation string
	InlineXML       []byte
	BinaryContent   []byte
}

// Datastream is a named, versioned content attachment of an object.
type Datastream struct {
	ID           string
	ControlGroup ControlGroup
	State        State
	Versionable  bool
	Versions     []*DatastreamVersion
}

// NewDatastream creates an active, versionable datastream.
func NewDatastream(id string, cg ControlGroup) *Datastream {
	if cg == "" {
		cg = ControlGroupManaged
	}
	return &Datastream{
		ID:           id,
		ControlGroup: cg,
		State:        StateActive,
		Versionable:  true,
	}
}

// AddVersion appends v, keeping creation order. Version IDs are unique.
func (d *Datastream) AddVersion(v *DatastreamVersion) error {
	for _, existing := range d.Versions {
		if existing.ID == v.ID {
			return fmt.Errorf("%w: %s in %s", ErrDuplicateVersion, v.ID, d.ID)
		}
	}
	d.Versions = append(d.Versions, v)
	return nil
}

// Validate checks that the datastream has versions and that every version's
// content fits the control group.
func (d *Datastream) Validate() error {
	if len(d.Versions) == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyDatastream, d.ID)
	}
	if !d.ControlGroup.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidControlGroup, string(d.ControlGroup))
	}
	for _, v := range d.Versions {
		switch d.ControlGroup {
		case ControlGroupInlineXML:
			if v.InlineXML == nil {
				return fmt.Errorf("%w: %s/%s has no inline content", ErrContentMismatch, d.ID, v.ID)
			}
		case ControlGroupManaged:
			if v.InlineXML != nil || (v.ContentLocation == "" && v.BinaryContent == nil) {
				return fmt.Errorf("%w: %s/%s", ErrContentMismatch, d.ID, v.ID)
			}
		default:
			if v.ContentLocation == "" || v.InlineXML != nil || v.BinaryContent != nil {
				return fmt.Errorf("%w: %s/%s must reference a location", ErrContentMismatch, d.ID, v.ID)
			}
		}
	}
	return nil
}

// Object is a repository object: the top level entity serialized to FOXML.
type Object struct {
	PID              string
	OwnerID          string
	Label            string
	State            State
	CreatedDate      time.Time
	LastModifiedDate time.Time

	datastreams map[string]*Datastream
	order       []string
}

// AddDatastream registers d under its ID. IDs are unique within an object.
func (o *Object) AddDatastream(d *Datastream) error {
	if o.datastreams == nil {
		o.datastreams = make(map[string]*Datastream)
	}
	if _, exists := o.datastreams[d.ID]; exists {
		return fmt.Errorf("%w: %s in %s", ErrDuplicateDatastream, d.ID, o.PID)
	}
	o.datastreams[d.ID] = d
	o.order = append(o.order, d.ID)
	return nil
}

// Datastream returns the datastream with the given ID.
func (o *Object) Datastream(id string) (*Datastream, bool) {
	d, ok := o.datastreams[id]
	return d, ok
}

// Datastreams returns the datastreams in insertion order.
func (o *Object) Datastreams() []*Datastream {
	out := make([]*Datastream, 0, len(o.order))
	for _, id := range o.order {
		out = append(out, o.datastreams[id])
	}
	return out
}

// DatastreamIDs returns the datastream IDs in insertion order.
func (o *Object) DatastreamIDs() []string {
	return append([]string(nil), o.order...)
}

// Validate checks every datastream of the object.
func (o *Object) Validate() error {
	if o.PID == "" {
		return errors.New("object pid is required")
	}
	for _, d := range o.Datastreams() {
		if err := d.Validate(); err != nil {
			return err
		}
	}
	return nil
}
