package infobox

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	errMissingLabel = errors.New("data node has no label")
	errMissingValue = errors.New("data node has no value")
)

// Node is one element of a portable infobox payload. The set of
// implementations is closed; Decode switches over all of them.
type Node interface {
	node()
}

// ImageNode carries the infobox image URL.
type ImageNode struct {
	URL string
}

// NavigationNode carries an HTML fragment whose first anchor names the template.
type NavigationNode struct {
	HTML string
}

// TitleNode carries the plain-text infobox title.
type TitleNode struct {
	Text string
}

// GroupNode carries the group heading fragment and its data rows.
// Rows that could not be parsed are kept in Malformed and skipped.
type GroupNode struct {
	HeaderHTML string
	Fields     []DataNode
	Malformed  []error
}

// DataNode is a single label/value row, both HTML fragments.
type DataNode struct {
	LabelHTML string
	ValueHTML string
}

// UnknownNode is any node type the decoder does not understand.
type UnknownNode struct {
	Type string
}

func (ImageNode) node()      {}
func (NavigationNode) node() {}
func (TitleNode) node()      {}
func (GroupNode) node()      {}
func (DataNode) node()       {}
func (UnknownNode) node()    {}

type rawNode struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type valueData struct {
	Value json.RawMessage `json:"value"`
}

type dataFields struct {
	Label *string `json:"label"`
	Value *string `json:"value"`
}

// parseNode converts one raw node into its variant.
func parseNode(raw rawNode) (Node, error) {
	switch raw.Type {
	case "image":
		var images []struct {
			URL string `json:"url"`
		}
		if err := json.Unmarshal(raw.Data, &images); err != nil {
			return nil, fmt.Errorf("image data: %w", err)
		}
		if len(images) == 0 {
			return nil, fmt.Errorf("image data is empty")
		}
		return ImageNode{URL: images[0].URL}, nil

	case "navigation":
		s, err := stringValue(raw.Data)
		if err != nil {
			return nil, fmt.Errorf("navigation data: %w", err)
		}
		return NavigationNode{HTML: s}, nil

	case "title":
		s, err := stringValue(raw.Data)
		if err != nil {
			return nil, fmt.Errorf("title data: %w", err)
		}
		return TitleNode{Text: s}, nil

	case "group":
		var vd valueData
		if err := json.Unmarshal(raw.Data, &vd); err != nil {
			return nil, fmt.Errorf("group data: %w", err)
		}
		var children []rawNode
		if err := json.Unmarshal(vd.Value, &children); err != nil {
			return nil, fmt.Errorf("group value: %w", err)
		}
		if len(children) == 0 {
			return nil, fmt.Errorf("group has no header")
		}
		header, err := stringValue(children[0].Data)
		if err != nil {
			return nil, fmt.Errorf("group header: %w", err)
		}
		g := GroupNode{HeaderHTML: header}
		for i, child := range children {
			if child.Type != "data" {
				continue
			}
			d, err := parseData(child.Data)
			if err != nil {
				g.Malformed = append(g.Malformed, fmt.Errorf("group field %d: %w", i, err))
				continue
			}
			g.Fields = append(g.Fields, d)
		}
		return g, nil

	case "data":
		d, err := parseData(raw.Data)
		if err != nil {
			return nil, fmt.Errorf("data: %w", err)
		}
		return d, nil
	}
	return UnknownNode{Type: raw.Type}, nil
}

func parseData(data json.RawMessage) (DataNode, error) {
	var f dataFields
	if err := json.Unmarshal(data, &f); err != nil {
		return DataNode{}, err
	}
	switch {
	case f.Label == nil:
		return DataNode{}, errMissingLabel
	case f.Value == nil:
		return DataNode{}, errMissingValue
	}
	return DataNode{LabelHTML: *f.Label, ValueHTML: *f.Value}, nil
}

// stringValue reads {"value": "<string>"}.
func stringValue(data json.RawMessage) (string, error) {
	var vd valueData
	if err := json.Unmarshal(data, &vd); err != nil {
		return "", err
	}
	var s string
	if err := json.Unmarshal(vd.Value, &s); err != nil {
		return "", fmt.Errorf("value is not a string")
	}
	return s, nil
}
