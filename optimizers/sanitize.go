package optimizers

import (
	"bytes"
	"encoding/xml"
	"io"
	"regexp"
	"strings"
)

// SVG sanitization and serialization.
//
// Parsing goes through encoding/xml, which resolves no external entities and
// fetches no DTDs, so crafted input cannot trigger XXE-style reads.  The
// serializer understands exactly the namespaces SVG documents use in
// practice: the SVG default namespace, xlink, and xml.  Everything else
// (inkscape, sodipodi, RDF metadata) is editor bloat and is dropped.

const (
	svgNS   = "http://www.w3.org/2000/svg"
	xlinkNS = "http://www.w3.org/1999/xlink"
	xmlNS   = "http://www.w3.org/XML/1998/namespace"
)

// Elements whose entire subtree is removed: script execution vectors and
// HTML embedding.
var dangerousElements = map[string]bool{
	"script":        true,
	"foreignobject": true,
}

// descriptiveElements carry no rendering and are stripped with metadata.
var descriptiveElements = map[string]bool{
	"title":    true,
	"desc":     true,
	"metadata": true,
}

var atImportRe = regexp.MustCompile(`(?i)@import[^;]*;?`)

// dangerousAttrValue rejects script URLs and inline HTML documents.
func dangerousAttrValue(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return strings.HasPrefix(v, "javascript:") || strings.Contains(v, "data:text/html")
}

// svgTransformOptions control the shared token pipeline used by both the
// sanitizer and the minifier.
type svgTransformOptions struct {
	stripMetadata bool
	stripProlog   bool
	collapseText  bool
	precision     int               // 0 = leave numbers alone
	idRenames     map[string]string // nil = keep IDs
}

// transformSVG re-emits the document with dangerous content removed and the
// given options applied.  Malformed XML returns an error.
func transformSVG(data []byte, opts svgTransformOptions) ([]byte, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false
	dec.AutoClose = xml.HTMLAutoClose
	dec.Entity = xml.HTMLEntity

	needXlink := bytes.Contains(data, []byte(xlinkNS))

	w := &svgWriter{opts: opts, needXlink: needXlink}
	skipDepth := 0
	var stack []string

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			name := strings.ToLower(t.Name.Local)
			if skipDepth > 0 {
				skipDepth++
				continue
			}
			if dangerousElements[name] ||
				(t.Name.Space != "" && t.Name.Space != svgNS) ||
				(opts.stripMetadata && descriptiveElements[name]) {
				skipDepth = 1
				continue
			}
			stack = append(stack, name)
			w.startElement(t)
		case xml.EndElement:
			if skipDepth > 0 {
				skipDepth--
				continue
			}
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			w.endElement(t)
		case xml.CharData:
			if skipDepth > 0 {
				continue
			}
			text := string(t)
			if len(stack) > 0 && stack[len(stack)-1] == "style" {
				text = atImportRe.ReplaceAllString(text, "")
				text = rewriteURLRefs(text, opts.idRenames)
			}
			if opts.collapseText && strings.TrimSpace(text) == "" {
				continue
			}
			w.charData(text)
		case xml.Comment:
			if skipDepth > 0 || opts.stripMetadata {
				continue
			}
			w.comment(string(t))
		case xml.ProcInst:
			if opts.stripProlog {
				continue
			}
			if t.Target == "xml" {
				w.procInst(t)
			}
			// Other processing instructions (xml-stylesheet and friends)
			// are dropped: they can reference external resources.
		case xml.Directive:
			// DOCTYPE and entity declarations never survive.
		}
	}
	return w.bytes(), nil
}

// rewriteURLRefs applies ID renames inside url(#...) references.
func rewriteURLRefs(s string, renames map[string]string) string {
	if len(renames) == 0 || !strings.Contains(s, "url(#") {
		return s
	}
	for old, short := range renames {
		s = strings.ReplaceAll(s, "url(#"+old+")", "url(#"+short+")")
	}
	return s
}

// ── serializer ────────────────────────────────────────────────────────────────

type svgWriter struct {
	buf       bytes.Buffer
	opts      svgTransformOptions
	needXlink bool
	wroteRoot bool

	// pending holds an open start tag so empty elements can collapse into
	// the self-closing form.
	pending   bool
	pendingEl string
}

func (w *svgWriter) flushPending(selfClose bool) {
	if !w.pending {
		return
	}
	if selfClose {
		w.buf.WriteString("/>")
	} else {
		w.buf.WriteByte('>')
	}
	w.pending = false
}

func (w *svgWriter) startElement(t xml.StartElement) {
	w.flushPending(false)
	name := t.Name.Local
	w.buf.WriteByte('<')
	w.buf.WriteString(name)

	if !w.wroteRoot && strings.EqualFold(name, "svg") {
		w.wroteRoot = true
		w.writeAttr("xmlns", svgNS)
		if w.needXlink {
			w.writeAttr("xmlns:xlink", xlinkNS)
		}
	}

	for _, attr := range t.Attr {
		if name, value, ok := w.cleanAttr(strings.ToLower(t.Name.Local), attr); ok {
			w.writeAttr(name, value)
		}
	}
	w.pending = true
	w.pendingEl = name
}

// cleanAttr filters and rewrites one attribute, returning ok=false to drop it.
func (w *svgWriter) cleanAttr(element string, attr xml.Attr) (string, string, bool) {
	local := attr.Name.Local
	lower := strings.ToLower(local)

	// Namespace declarations are re-emitted canonically on the root.
	if attr.Name.Space == "xmlns" || (attr.Name.Space == "" && lower == "xmlns") {
		return "", "", false
	}
	// Event handlers are the primary script vector.
	if strings.HasPrefix(lower, "on") {
		return "", "", false
	}

	var name string
	switch attr.Name.Space {
	case "", svgNS:
		name = local
	case xlinkNS:
		name = "xlink:" + local
	case xmlNS:
		name = "xml:" + local
	default:
		// Editor namespaces (inkscape, sodipodi, RDF).
		return "", "", false
	}

	value := attr.Value
	isHref := lower == "href"
	if isHref {
		if dangerousAttrValue(value) {
			return "", "", false
		}
		// use elements may only reference local fragments; external
		// references can exfiltrate or inject.
		if element == "use" && !strings.HasPrefix(strings.TrimSpace(value), "#") {
			return "", "", false
		}
	}
	if lower == "style" {
		value = atImportRe.ReplaceAllString(value, "")
	}

	if len(w.opts.idRenames) > 0 {
		switch {
		case lower == "id":
			if short, ok := w.opts.idRenames[value]; ok {
				value = short
			}
		case isHref && strings.HasPrefix(value, "#"):
			if short, ok := w.opts.idRenames[value[1:]]; ok {
				value = "#" + short
			}
		default:
			value = rewriteURLRefs(value, w.opts.idRenames)
		}
	}

	if w.opts.precision > 0 && numericAttrs[lower] {
		value = roundNumbers(value, w.opts.precision)
	}
	return name, value, true
}

func (w *svgWriter) writeAttr(name, value string) {
	w.buf.WriteByte(' ')
	w.buf.WriteString(name)
	w.buf.WriteString(`="`)
	_ = xml.EscapeText(&w.buf, []byte(value))
	w.buf.WriteByte('"')
}

func (w *svgWriter) endElement(t xml.EndElement) {
	if w.pending && w.pendingEl == t.Name.Local {
		w.flushPending(true)
		return
	}
	w.flushPending(false)
	w.buf.WriteString("</")
	w.buf.WriteString(t.Name.Local)
	w.buf.WriteByte('>')
}

func (w *svgWriter) charData(s string) {
	w.flushPending(false)
	_ = xml.EscapeText(&w.buf, []byte(s))
}

func (w *svgWriter) comment(s string) {
	w.flushPending(false)
	w.buf.WriteString("<!--")
	w.buf.WriteString(s)
	w.buf.WriteString("-->")
}

func (w *svgWriter) procInst(t xml.ProcInst) {
	w.flushPending(false)
	w.buf.WriteString("<?")
	w.buf.WriteString(t.Target)
	w.buf.WriteByte(' ')
	w.buf.Write(t.Inst)
	w.buf.WriteString("?>")
}

func (w *svgWriter) bytes() []byte {
	w.flushPending(false)
	return w.buf.Bytes()
}

// SanitizeSVG removes script vectors without otherwise minifying: dangerous
// elements and attributes go, comments and formatting stay.
func SanitizeSVG(data []byte) ([]byte, error) {
	return transformSVG(data, svgTransformOptions{})
}
