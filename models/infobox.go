package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// InfoboxLink is an anchor found in an infobox value.
type InfoboxLink struct {
	Href string `json:"href" yaml:"href"`
	Text string `json:"text" yaml:"text"`
}

// InfoboxField is one label/value row of an infobox group.
// The label is the key the field is stored under and is not serialized.
type InfoboxField struct {
	Label string        `json:"-" yaml:"-"`
	Value string        `json:"value" yaml:"value"`
	Links []InfoboxLink `json:"links" yaml:"links"`
}

func (f InfoboxField) MarshalJSON() ([]byte, error) {
	links := f.Links
	if links == nil {
		links = []InfoboxLink{}
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	if err := writeJSONEntry(&buf, "value", f.Value); err != nil {
		return nil, err
	}
	buf.WriteByte(',')
	if err := writeJSONEntry(&buf, "links", links); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// InfoboxGroup maps field labels to fields, in source order.
type InfoboxGroup = OrderedMap[InfoboxField]

// DecodedInfobox is the flattened form of one portable infobox.
type DecodedInfobox struct {
	// Template is nil when the infobox carried no navigation link.
	Template *string
	Image    string
	Title    string
	Groups   OrderedMap[InfoboxGroup]
}

const (
	infoboxImageKey = "image"
	infoboxTitleKey = "title"
)

// TemplateName returns the template identifier, or "" when unknown.
func (d *DecodedInfobox) TemplateName() string {
	if d == nil || d.Template == nil {
		return ""
	}
	return *d.Template
}

// SetImage records the infobox image. A group with the same name is replaced.
func (d *DecodedInfobox) SetImage(url string) {
	d.Groups.Delete(infoboxImageKey)
	d.Image = url
}

// SetTitle records the infobox title. A group with the same name is replaced.
func (d *DecodedInfobox) SetTitle(title string) {
	d.Groups.Delete(infoboxTitleKey)
	d.Title = title
}

// SetGroup stores a group, replacing any scalar that shares its name.
func (d *DecodedInfobox) SetGroup(name string, g InfoboxGroup) {
	switch name {
	case infoboxImageKey:
		d.Image = ""
	case infoboxTitleKey:
		d.Title = ""
	}
	d.Groups.Set(name, g)
}

// Field looks up a field by group name and label.
func (d *DecodedInfobox) Field(group, label string) (InfoboxField, bool) {
	g, ok := d.Groups.Get(group)
	if !ok {
		return InfoboxField{}, false
	}
	return g.Get(label)
}

func (d DecodedInfobox) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if err := writeJSONEntry(&buf, "template", d.Template); err != nil {
		return nil, err
	}
	buf.WriteString(`,"infobox":{`)
	n := 0
	sep := func() {
		if n > 0 {
			buf.WriteByte(',')
		}
		n++
	}
	if d.Image != "" {
		sep()
		if err := writeJSONEntry(&buf, infoboxImageKey, d.Image); err != nil {
			return nil, err
		}
	}
	if d.Title != "" {
		sep()
		if err := writeJSONEntry(&buf, infoboxTitleKey, d.Title); err != nil {
			return nil, err
		}
	}
	for name, g := range d.Groups.All() {
		sep()
		if err := writeJSONEntry(&buf, name, g); err != nil {
			return nil, err
		}
	}
	buf.WriteString("}}")
	return buf.Bytes(), nil
}

func (d *DecodedInfobox) UnmarshalJSON(data []byte) error {
	var outer struct {
		Template *string        `json:"template"`
		Infobox  json.RawMessage `json:"infobox"`
	}
	if err := json.Unmarshal(data, &outer); err != nil {
		return err
	}
	*d = DecodedInfobox{Template: outer.Template, Groups: NewOrderedMap[InfoboxGroup]()}
	if len(outer.Infobox) == 0 {
		return nil
	}
	return decodeObject(outer.Infobox, func(key string, raw json.RawMessage) error {
		if key == infoboxImageKey || key == infoboxTitleKey {
			var s string
			if err := json.Unmarshal(raw, &s); err == nil {
				if key == infoboxImageKey {
					d.Image = s
				} else {
					d.Title = s
				}
				return nil
			}
		}
		var g InfoboxGroup
		if err := json.Unmarshal(raw, &g); err != nil {
			return fmt.Errorf("infobox group %q: %w", key, err)
		}
		for label, f := range g.All() {
			f.Label = label
			g.Set(label, f)
		}
		d.Groups.Set(key, g)
		return nil
	})
}
