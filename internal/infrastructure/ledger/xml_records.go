package ledger

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Godswill9/sage200EvolutionApi/internal/domain/invoicing"
)

// errXMLFault is returned when a list endpoint answers with a fault document
var errXMLFault = errors.New("ledger: fault document returned")

// decodeRecordList decodes an ArrayOf<item> document into records.
// Namespaces are dropped, single children are not wrapped in slices and
// xsi:nil elements become nil. An empty body is an empty list.
func decodeRecordList(data []byte, item string) ([]invoicing.Record, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))

	root, err := nextStartElement(dec)
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	switch {
	case strings.EqualFold(root.Name.Local, "Fault") || strings.EqualFold(root.Name.Local, "Envelope"):
		return nil, errXMLFault
	case root.Name.Local == item:
		rec, err := decodeRecord(dec, root)
		if err != nil {
			return nil, err
		}
		return []invoicing.Record{rec}, nil
	}

	records := make([]invoicing.Record, 0)
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("ledger: reading %s list: %w", item, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != item {
				if err := dec.Skip(); err != nil {
					return nil, err
				}
				continue
			}
			rec, err := decodeRecord(dec, t)
			if err != nil {
				return nil, err
			}
			records = append(records, rec)
		case xml.EndElement:
			return records, nil
		}
	}
}

func nextStartElement(dec *xml.Decoder) (xml.StartElement, error) {
	for {
		tok, err := dec.Token()
		if err != nil {
			return xml.StartElement{}, err
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start, nil
		}
	}
}

func decodeRecord(dec *xml.Decoder, start xml.StartElement) (invoicing.Record, error) {
	v, err := decodeElement(dec, start)
	if err != nil {
		return nil, err
	}
	if rec, ok := v.(invoicing.Record); ok {
		return rec, nil
	}
	return invoicing.Record{"#text": v}, nil
}

func decodeElement(dec *xml.Decoder, start xml.StartElement) (any, error) {
	isNil := false
	for _, attr := range start.Attr {
		if attr.Name.Local == "nil" && attr.Value == "true" {
			isNil = true
		}
	}

	children := invoicing.Record{}
	hasChildren := false
	var text strings.Builder

	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("ledger: reading <%s>: %w", start.Name.Local, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			hasChildren = true
			v, err := decodeElement(dec, t)
			if err != nil {
				return nil, err
			}
			addChild(children, t.Name.Local, v)
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			switch {
			case hasChildren:
				return children, nil
			case isNil:
				return nil, nil
			default:
				return strings.TrimSpace(text.String()), nil
			}
		}
	}
}

func addChild(rec invoicing.Record, name string, v any) {
	existing, ok := rec[name]
	if !ok {
		rec[name] = v
		return
	}
	if list, ok := existing.([]any); ok {
		rec[name] = append(list, v)
		return
	}
	rec[name] = []any{existing, v}
}
