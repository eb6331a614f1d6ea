package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"golang.org/x/net/html"

	"github.com/kkyouma/myanimelist-scraper/internal/model"
)

const (
	statBlockSelector = "div[class*='spaceit_pad']"
	labelSelector     = "span.dark_text"
)

// ErrEmptyStats marks a stats page that yielded no fields. Callers skip the
// item.
var ErrEmptyStats = eris.New("extract: stats unavailable")

// Fields extracts the labelled stat blocks of a stats page. A block's value
// depends on the anchors it holds outside its label: none gives the text
// right after the label, one gives that anchor's text, more give every anchor
// text in order. Numeric fields are coerced to integers when they parse.
func Fields(raw string) (model.Fields, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return nil, eris.Wrap(err, "extract: parse stats")
	}

	fields := model.Fields{}
	doc.Find(statBlockSelector).Each(func(_ int, block *goquery.Selection) {
		label := block.Find(labelSelector).First()
		if label.Length() == 0 {
			return
		}
		name := fieldName(label.Text())
		if name == "" {
			return
		}

		var value model.FieldValue
		anchors := block.Find("a").NotSelection(label.Find("a"))
		switch anchors.Length() {
		case 0:
			text := siblingText(label.Nodes[0])
			if text == "" {
				return
			}
			value = model.StringValue(text)
		case 1:
			value = model.StringValue(strings.TrimSpace(anchors.Text()))
		default:
			items := make([]string, 0, anchors.Length())
			anchors.Each(func(_ int, a *goquery.Selection) {
				items = append(items, strings.TrimSpace(a.Text()))
			})
			value = model.ListValue(items)
		}

		fields[name] = model.Coerce(name, value)
	})
	return fields, nil
}

// fieldName normalizes a label such as " Members: " to "members".
func fieldName(label string) string {
	name := strings.TrimSpace(label)
	name = strings.TrimRight(name, ":")
	return strings.ToLower(strings.TrimSpace(name))
}

// siblingText returns the trimmed text node immediately following n.
func siblingText(n *html.Node) string {
	next := n.NextSibling
	if next == nil || next.Type != html.TextNode {
		return ""
	}
	return strings.TrimSpace(next.Data)
}
