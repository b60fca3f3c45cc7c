// Package infobox flattens portable-infobox JSON payloads into models.DecodedInfobox.
package infobox

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/dtnitsch/wiki-harvester/models"
	"github.com/dtnitsch/wiki-harvester/pkg/normalizer"
)

// ErrNotPortableInfobox is returned when a payload is not a JSON array whose
// first element carries a data array.
var ErrNotPortableInfobox = errors.New("not a portable infobox payload")

// Decoder decodes infobox payloads. Skipped nodes are logged at debug level.
type Decoder struct {
	Logger *slog.Logger
}

// NewDecoder returns a Decoder that logs to logger. A nil logger discards.
func NewDecoder(logger *slog.Logger) *Decoder {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Decoder{Logger: logger}
}

var defaultDecoder = NewDecoder(nil)

// Decode decodes raw with a silent decoder.
func Decode(raw []byte) (*models.DecodedInfobox, error) {
	return defaultDecoder.Decode(raw)
}

// Decode parses one payload. Individual malformed nodes are skipped; the
// payload as a whole only fails when its outer shape is wrong.
func (d *Decoder) Decode(raw []byte) (*models.DecodedInfobox, error) {
	var top []json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotPortableInfobox, err)
	}
	if len(top) == 0 {
		return nil, fmt.Errorf("%w: empty array", ErrNotPortableInfobox)
	}
	var first struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(top[0], &first); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotPortableInfobox, err)
	}
	if first.Data == nil {
		return nil, fmt.Errorf("%w: missing data array", ErrNotPortableInfobox)
	}

	out := &models.DecodedInfobox{Groups: models.NewOrderedMap[models.InfoboxGroup]()}
	for i, item := range first.Data {
		var rn rawNode
		if err := json.Unmarshal(item, &rn); err != nil {
			d.skip(i, "", err)
			continue
		}
		n, err := parseNode(rn)
		if err != nil {
			d.skip(i, rn.Type, err)
			continue
		}
		if err := d.apply(out, n); err != nil {
			d.skip(i, rn.Type, err)
		}
	}
	return out, nil
}

func (d *Decoder) apply(out *models.DecodedInfobox, n Node) error {
	switch n := n.(type) {
	case ImageNode:
		out.SetImage(n.URL)
	case NavigationNode:
		href, ok, err := normalizer.FirstAnchorHref(n.HTML)
		if err != nil {
			return err
		}
		if ok {
			name := TemplateFromHref(href)
			out.Template = &name
		}
	case TitleNode:
		out.SetTitle(n.Text)
	case GroupNode:
		name, err := normalizer.GroupName(n.HeaderHTML)
		if err != nil {
			return err
		}
		for _, err := range n.Malformed {
			d.skipField(name, err)
		}
		group := models.NewOrderedMap[models.InfoboxField]()
		for _, f := range n.Fields {
			field, err := decodeField(f)
			if err != nil {
				d.skipField(name, err)
				continue
			}
			group.Set(field.Label, field)
		}
		out.SetGroup(name, group)
	case DataNode:
		d.Logger.Debug("data node outside a group ignored", "label", n.LabelHTML)
	case UnknownNode:
	}
	return nil
}

func decodeField(n DataNode) (models.InfoboxField, error) {
	label, err := normalizer.NormalizeField(n.LabelHTML)
	if err != nil {
		return models.InfoboxField{}, err
	}
	value, err := normalizer.NormalizeField(n.ValueHTML)
	if err != nil {
		return models.InfoboxField{}, err
	}
	return models.InfoboxField{
		Label: label.Text,
		Value: value.Text,
		Links: value.Links,
	}, nil
}

// TemplateFromHref returns the segment after the last ':' of a navigation
// link, e.g. "/wiki/Template:Planet" -> "Planet".
func TemplateFromHref(href string) string {
	if i := strings.LastIndex(href, ":"); i >= 0 {
		return href[i+1:]
	}
	return href
}

func (d *Decoder) skip(index int, typ string, err error) {
	d.Logger.Debug("skipping malformed infobox node", "index", index, "type", typ, "error", err)
}

func (d *Decoder) skipField(group string, err error) {
	d.Logger.Debug("skipping malformed infobox field", "group", group, "error", err)
}
