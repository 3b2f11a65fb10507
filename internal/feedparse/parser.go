package feedparse

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// ErrUnknownFormat marks a payload that is none of the four supported feed
// formats. This is a permanent condition for the source until its feed
// changes.
var ErrUnknownFormat = fmt.Errorf("payload is not a recognized feed format")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Parse sniffs the payload and decodes it with the matching converter.
// Served content-types are too unreliable to trust outright, so the bytes
// decide first; contentTypeHint only breaks ties when sniffing fails.
func Parse(payload []byte, contentTypeHint string) (*Document, error) {
	format, err := DetectFormat(payload)
	if err != nil {
		if hinted, ok := formatFromContentType(contentTypeHint); ok {
			format, err = hinted, nil
		} else {
			return nil, err
		}
	}

	switch format {
	case FormatRSS:
		return parseRSS(payload)
	case FormatAtom:
		return parseAtom(payload)
	case FormatJSONFeed:
		return parseJSONFeed(payload)
	case FormatRDF:
		return parseRDF(payload)
	default:
		return nil, ErrUnknownFormat
	}
}

// formatFromContentType maps an advisory Content-Type onto a format when the
// payload itself was inconclusive.
func formatFromContentType(contentType string) (Format, bool) {
	mediaType := strings.ToLower(strings.TrimSpace(contentType))
	if idx := strings.IndexByte(mediaType, ';'); idx >= 0 {
		mediaType = strings.TrimSpace(mediaType[:idx])
	}
	switch mediaType {
	case "application/feed+json", "application/json":
		return FormatJSONFeed, true
	case "application/rss+xml":
		return FormatRSS, true
	case "application/atom+xml":
		return FormatAtom, true
	default:
		return "", false
	}
}

// DetectFormat identifies the wire format from the payload bytes: a JSON
// object is JSON Feed, otherwise the first XML start element decides.
func DetectFormat(payload []byte) (Format, error) {
	trimmed := bytes.TrimSpace(bytes.TrimPrefix(payload, utf8BOM))
	if len(trimmed) == 0 {
		return "", fmt.Errorf("%w: empty payload", ErrUnknownFormat)
	}

	if trimmed[0] == '{' {
		return FormatJSONFeed, nil
	}

	decoder := newLenientXMLDecoder(bytes.NewReader(trimmed))
	for {
		token, err := decoder.Token()
		if err != nil {
			return "", fmt.Errorf("%w: no xml root element", ErrUnknownFormat)
		}
		start, ok := token.(xml.StartElement)
		if !ok {
			continue
		}
		switch start.Name.Local {
		case "rss":
			return FormatRSS, nil
		case "feed":
			return FormatAtom, nil
		case "RDF":
			return FormatRDF, nil
		default:
			return "", fmt.Errorf("%w: unexpected root element <%s>", ErrUnknownFormat, start.Name.Local)
		}
	}
}

func decodeXML(payload []byte, dest any) error {
	trimmed := bytes.TrimPrefix(payload, utf8BOM)
	return newLenientXMLDecoder(bytes.NewReader(trimmed)).Decode(dest)
}

// newLenientXMLDecoder accepts the charset labels feeds actually declare.
// Non-UTF-8 byte streams decode best-effort; a garbled entry is skipped by
// the converter rather than failing the document.
func newLenientXMLDecoder(r io.Reader) *xml.Decoder {
	decoder := xml.NewDecoder(r)
	decoder.Strict = false
	decoder.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		switch strings.ToLower(strings.TrimSpace(charset)) {
		case "", "utf-8", "utf8", "us-ascii", "iso-8859-1", "latin1", "windows-1252":
			return input, nil
		default:
			return nil, fmt.Errorf("unsupported charset %q", charset)
		}
	}
	return decoder
}
