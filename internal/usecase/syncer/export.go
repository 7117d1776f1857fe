package syncer

import (
	"strconv"
	"strings"

	"canvasd/internal/domain"
)

// EmptyContentPlaceholder is written in place of a document body when the
// item has no content yet.
const EmptyContentPlaceholder = "*No content yet*"

// sheetHeader is the first row of every exported sheet. Import recognizes
// and skips it.
var sheetHeader = []string{"ID", "Type", "Name", "Subtitle", "Content", "Word Count"}

// CanvasMarkdown renders the whole canvas as one markdown document:
// the global title as a top-level heading, the description paragraph,
// then one section per item.
func CanvasMarkdown(state domain.CanvasState) string {
	var b strings.Builder

	title := state.GlobalTitle
	if title == "" {
		title = "Canvas Export"
	}
	b.WriteString("# " + title + "\n\n")

	if state.GlobalDescription != "" {
		b.WriteString(state.GlobalDescription + "\n\n")
	}

	for _, item := range state.Items {
		name := item.Name
		if name == "" {
			name = "Untitled"
		}
		b.WriteString("## " + name + "\n\n")

		if item.Subtitle != "" {
			b.WriteString("*" + item.Subtitle + "*\n\n")
		}

		if d, ok := item.Document(); ok {
			if d.Content != "" {
				b.WriteString(d.Content + "\n\n")
			} else {
				b.WriteString(EmptyContentPlaceholder + "\n\n")
			}
		}
	}
	return b.String()
}

// ItemMarkdown renders a single item's body for per-item document export.
func ItemMarkdown(item domain.Item) string {
	if d, ok := item.Document(); ok {
		if d.Content != "" {
			return d.Content + "\n\n"
		}
		return EmptyContentPlaceholder + "\n\n"
	}
	return ""
}

// SheetRows serializes the canvas items into spreadsheet rows, header
// first. Non-document payloads export with empty content columns.
func SheetRows(state domain.CanvasState) [][]string {
	rows := make([][]string, 0, len(state.Items)+1)
	rows = append(rows, sheetHeader)
	for _, item := range state.Items {
		content, words := "", ""
		if d, ok := item.Document(); ok {
			content = d.Content
			words = strconv.Itoa(d.WordCount)
		}
		rows = append(rows, []string{item.ID, string(item.Type), item.Name, item.Subtitle, content, words})
	}
	return rows
}

// EnsureGdocTitle appends the .gdoc suffix expected by the workspace
// service when the title does not already carry it.
func EnsureGdocTitle(title string) string {
	if strings.HasSuffix(title, ".gdoc") {
		return title
	}
	return title + ".gdoc"
}
